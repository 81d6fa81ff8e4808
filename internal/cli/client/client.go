package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scdash-dev/scdash/internal/cli/auth"
)

const maxErrorBody = 4096

// Client represents an HTTP client for the scdash auth API. It owns token
// storage: successful login and registration persist the access token, and
// logout removes it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      auth.TokenStore
	logger     zerolog.Logger
}

// New creates a new API client for the server at baseURL
func New(baseURL string, store auth.TokenStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:  store,
		logger: zerolog.Nop(),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetLogger sets the logger used for swallowed storage errors
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Credentials represents the login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// User is the account record returned by the server
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name" yaml:"name"`
	Role      string    `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Token is an issued access token
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Tokens is the locally stored credential set. AccessToken is empty when the
// user is not logged in.
type Tokens struct {
	AccessToken string
}

type tokenResponse struct {
	Token
	User *User `json:"user"`
}

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Detail)
}

// Login authenticates the user and stores the issued access token
func (c *Client) Login(ctx context.Context, creds Credentials) (*Token, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", creds, &resp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if err := c.saveToken(resp.Token); err != nil {
		return nil, err
	}
	return &resp.Token, nil
}

// Register creates an account and stores the issued access token
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Token, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &resp); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	if err := c.saveToken(resp.Token); err != nil {
		return nil, err
	}
	return &resp.Token, nil
}

// Logout revokes the token on the server. The stored token is removed even
// when the server call fails; the server error is still returned.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.store.LoadToken(c.baseURL)
	if err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			return nil
		}
		return err
	}

	callErr := c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
	c.ClearAuth()
	if callErr != nil {
		return fmt.Errorf("logout failed: %w", callErr)
	}
	return nil
}

// GetCurrentUser returns the user the stored token belongs to
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	token, err := c.store.LoadToken(c.baseURL)
	if err != nil {
		return nil, err
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &user, nil
}

// GetTokens returns the stored credentials. A missing or unreadable token
// yields an empty Tokens.
func (c *Client) GetTokens() Tokens {
	token, err := c.store.LoadToken(c.baseURL)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			c.logger.Warn().Err(err).Str("server", c.baseURL).Msg("Failed to read stored token")
		}
		return Tokens{}
	}
	return Tokens{AccessToken: token}
}

// ClearAuth removes the stored token
func (c *Client) ClearAuth() {
	if err := c.store.DeleteToken(c.baseURL); err != nil {
		c.logger.Warn().Err(err).Str("server", c.baseURL).Msg("Failed to clear stored token")
	}
}

func (c *Client) saveToken(token Token) error {
	if token.AccessToken == "" {
		return fmt.Errorf("server returned an empty access token")
	}
	if err := c.store.SaveToken(c.baseURL, token.AccessToken); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes a 2xx response into out. Non-2xx
// responses become *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Detail = payload.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	return apiErr
}
