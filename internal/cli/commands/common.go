package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/scdash-dev/scdash/internal/cli/auth"
	"github.com/scdash-dev/scdash/internal/cli/client"
	"github.com/scdash-dev/scdash/internal/cli/config"
	"github.com/scdash-dev/scdash/internal/cli/serverselect"
	"github.com/scdash-dev/scdash/internal/logger"
	"github.com/scdash-dev/scdash/internal/session"
)

const (
	envEmail    = "SCDASH_EMAIL"
	envPassword = "SCDASH_PASSWORD"
	envLogLevel = "SCDASH_LOG_LEVEL"
)

// options carries the dependencies a command needs. Tests replace them with
// the With* functions; anything left unset is resolved from the project
// config, the OS keyring and the terminal.
type options struct {
	serverAlias   string
	server        *config.Server
	authenticator session.Authenticator
	tokenStore    auth.TokenStore
	out           io.Writer
	logger        *zerolog.Logger
	readPassword  func(prompt string) (string, error)
	openBrowser   func(url string) error
}

// Option configures a command run
type Option func(*options)

// WithServerAlias selects a server from scdash.json by alias or URL
func WithServerAlias(alias string) Option {
	return func(o *options) { o.serverAlias = alias }
}

// WithServer bypasses server resolution
func WithServer(server *config.Server) Option {
	return func(o *options) { o.server = server }
}

// WithAuthenticator replaces the HTTP authentication client
func WithAuthenticator(a session.Authenticator) Option {
	return func(o *options) { o.authenticator = a }
}

// WithTokenStore replaces the OS keyring
func WithTokenStore(store auth.TokenStore) Option {
	return func(o *options) { o.tokenStore = store }
}

// WithOutput redirects command output
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLogger replaces the stderr console logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithPasswordReader replaces the terminal password prompt
func WithPasswordReader(fn func(prompt string) (string, error)) Option {
	return func(o *options) { o.readPassword = fn }
}

// WithBrowser replaces the function that opens URLs
func WithBrowser(fn func(url string) error) Option {
	return func(o *options) { o.openBrowser = fn }
}

func newOptions(opts []Option) *options {
	o := &options{
		out:          os.Stdout,
		tokenStore:   auth.Default,
		readPassword: readTerminalPassword,
		openBrowser:  openBrowser,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		l := logger.NewCLI(getEnvOr(envLogLevel, "warn"))
		o.logger = &l
	}
	return o
}

// resolveServer returns the configured server, loading scdash.json if needed
func (o *options) resolveServer() (*config.Server, error) {
	if o.server != nil {
		return o.server, nil
	}

	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'scdash init' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, o.serverAlias, *o.logger)
	if err != nil {
		return nil, err
	}

	if server.URL == "" {
		return nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", config.ConfigFileName)
	}

	o.server = server
	return server, nil
}

// newSession builds a session store over the resolved server
func (o *options) newSession() (*session.Store, *config.Server, error) {
	server, err := o.resolveServer()
	if err != nil {
		return nil, nil, err
	}

	a := o.authenticator
	if a == nil {
		c := client.New(server.URL, o.tokenStore)
		c.SetLogger(*o.logger)
		a = c
	}

	return session.New(a, *o.logger), server, nil
}

// resolvePassword takes the flag value, then the environment, then prompts
func (o *options) resolvePassword(password string) (string, error) {
	if password == "" {
		password = os.Getenv(envPassword)
	}
	if password != "" {
		return password, nil
	}

	password, err := o.readPassword("Password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func resolveEmail(email string) (string, error) {
	if email == "" {
		email = os.Getenv(envEmail)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email is required (use --email flag or %s env var)", envEmail)
	}
	return email, nil
}

func readTerminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", envPassword)
	}

	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
