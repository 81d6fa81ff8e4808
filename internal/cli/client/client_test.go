package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scdash-dev/scdash/internal/cli/auth"
)

// mockAuthAPI is a minimal stand-in for the auth API
type mockAuthAPI struct {
	t          *testing.T
	token      string
	logoutCode int

	mu    sync.Mutex
	calls []string
}

func (m *mockAuthAPI) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockAuthAPI) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockAuthAPI) handler() http.Handler {
	mux := http.NewServeMux()

	writeToken := func(w http.ResponseWriter, status int, email string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": m.token,
			"token_type":   "bearer",
			"expires_at":   time.Now().Add(time.Hour).UTC(),
			"user":         map[string]any{"id": "u1", "email": email, "name": "Test User", "role": "viewer"},
		})
	}

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		m.record("login")
		var creds Credentials
		require.NoError(m.t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "passw0rdx" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Invalid email or password"}`))
			return
		}
		writeToken(w, http.StatusOK, creds.Email)
	})

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		m.record("register")
		var req RegisterRequest
		require.NoError(m.t, json.NewDecoder(r.Body).Decode(&req))
		if req.Email == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"detail": "Email already registered"}`))
			return
		}
		writeToken(w, http.StatusCreated, req.Email)
	})

	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		m.record("logout")
		assert.Equal(m.t, "Bearer "+m.token, r.Header.Get("Authorization"))
		w.WriteHeader(m.logoutCode)
	})

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		m.record("me")
		if r.Header.Get("Authorization") != "Bearer "+m.token {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Invalid or expired token"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "a@example.com", "name": "Test User", "role": "admin"})
	})

	return mux
}

func newTestClient(t *testing.T, api *mockAuthAPI) (*Client, *auth.MemoryStore) {
	t.Helper()
	api.t = t
	if api.logoutCode == 0 {
		api.logoutCode = http.StatusNoContent
	}

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := auth.NewMemoryStore()
	return New(srv.URL+"/", store), store
}

func TestLogin_StoresToken(t *testing.T) {
	api := &mockAuthAPI{token: "jwt-abc"}
	c, store := newTestClient(t, api)

	token, err := c.Login(context.Background(), Credentials{Email: "a@example.com", Password: "passw0rdx"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)

	saved, err := store.LoadToken(c.BaseURL())
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", saved)
	assert.Equal(t, Tokens{AccessToken: "jwt-abc"}, c.GetTokens())
}

func TestLogin_APIErrorDetail(t *testing.T) {
	api := &mockAuthAPI{token: "jwt-abc"}
	c, _ := newTestClient(t, api)

	_, err := c.Login(context.Background(), Credentials{Email: "a@example.com", Password: "nope"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid email or password", apiErr.Detail)
	assert.Empty(t, c.GetTokens().AccessToken)
}

func TestRegister(t *testing.T) {
	api := &mockAuthAPI{token: "jwt-new"}
	c, _ := newTestClient(t, api)

	_, err := c.Register(context.Background(), RegisterRequest{Email: "n@example.com", Password: "passw0rdx", Name: "N"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-new", c.GetTokens().AccessToken)

	c.ClearAuth()
	_, err = c.Register(context.Background(), RegisterRequest{Email: "taken@example.com", Password: "passw0rdx", Name: "T"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Empty(t, c.GetTokens().AccessToken)
}

func TestGetCurrentUser(t *testing.T) {
	api := &mockAuthAPI{token: "jwt-abc"}
	c, store := newTestClient(t, api)

	_, err := c.GetCurrentUser(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Empty(t, api.recorded(), "no request without a token")

	require.NoError(t, store.SaveToken(c.BaseURL(), "jwt-abc"))
	user, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "admin", user.Role)

	require.NoError(t, store.SaveToken(c.BaseURL(), "stale"))
	_, err = c.GetCurrentUser(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid or expired token", apiErr.Detail)
}

func TestLogout_ClearsTokenEvenOnFailure(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		expectErr bool
	}{
		{name: "server accepts", code: http.StatusNoContent},
		{name: "server fails", code: http.StatusInternalServerError, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAuthAPI{token: "jwt-abc", logoutCode: tt.code}
			c, store := newTestClient(t, api)
			require.NoError(t, store.SaveToken(c.BaseURL(), "jwt-abc"))

			err := c.Logout(context.Background())
			if tt.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, []string{"logout"}, api.recorded())
			assert.Empty(t, c.GetTokens().AccessToken)
		})
	}
}

func TestLogout_WithoutTokenSkipsServer(t *testing.T) {
	api := &mockAuthAPI{token: "jwt-abc"}
	c, _ := newTestClient(t, api)

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, api.recorded())
}

func TestDecodeAPIError_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, auth.NewMemoryStore())
	_, err := c.Login(context.Background(), Credentials{Email: "a@example.com", Password: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Detail)
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "request failed (status 500)", (&APIError{StatusCode: 500}).Error())
	assert.Equal(t, "request failed (status 401): nope", (&APIError{StatusCode: 401, Detail: "nope"}).Error())
}
