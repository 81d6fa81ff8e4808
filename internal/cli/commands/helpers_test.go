package commands

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/scdash-dev/scdash/internal/cli/auth"
	"github.com/scdash-dev/scdash/internal/cli/config"
	srvconfig "github.com/scdash-dev/scdash/internal/config"
	"github.com/scdash-dev/scdash/internal/server"
)

// testEnv is a running auth API plus the options a command needs to reach it
type testEnv struct {
	server *config.Server
	tokens *auth.MemoryStore
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &srvconfig.Config{
		Server:   srvconfig.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}},
		Database: srvconfig.DatabaseConfig{URL: filepath.Join(t.TempDir(), "scdash.sqlite")},
		Auth:     srvconfig.AuthConfig{AccessTokenTTL: time.Hour, PruneSchedule: "@hourly"},
	}

	srv, err := server.New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	t.Setenv(envEmail, "")
	t.Setenv(envPassword, "")

	return &testEnv{
		server: &config.Server{URL: httpSrv.URL, Alias: "test"},
		tokens: auth.NewMemoryStore(),
		out:    &bytes.Buffer{},
	}
}

func (e *testEnv) opts(extra ...Option) []Option {
	base := []Option{
		WithServer(e.server),
		WithTokenStore(e.tokens),
		WithOutput(e.out),
		WithLogger(zerolog.Nop()),
		WithPasswordReader(func(string) (string, error) {
			return "", errNoPrompt
		}),
		WithBrowser(func(string) error { return errNoPrompt }),
	}
	return append(base, extra...)
}
