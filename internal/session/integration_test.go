package session

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scdash-dev/scdash/internal/cli/auth"
	"github.com/scdash-dev/scdash/internal/cli/client"
	"github.com/scdash-dev/scdash/internal/config"
	"github.com/scdash-dev/scdash/internal/server"
)

func startAuthAPI(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{CORSOrigins: []string{"http://localhost:5173"}},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "scdash.sqlite")},
		Auth:     config.AuthConfig{AccessTokenTTL: time.Hour, PruneSchedule: "@hourly"},
	}

	srv, err := server.New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)
	return httpSrv.URL
}

func TestSessionAgainstAuthAPI(t *testing.T) {
	baseURL := startAuthAPI(t)
	tokens := auth.NewMemoryStore()
	ctx := context.Background()

	s := New(client.New(baseURL, tokens), zerolog.Nop())

	// Nothing stored yet
	s.CheckAuth(ctx)
	assert.False(t, s.State().IsAuthenticated)

	err := s.Register(ctx, client.RegisterRequest{Email: "ops@example.com", Password: "c0mpliance", Name: "Ops"})
	require.NoError(t, err)
	st := s.State()
	require.True(t, st.IsAuthenticated)
	assert.Equal(t, "ops@example.com", st.User.Email)
	assert.Equal(t, "viewer", st.User.Role)

	// A fresh store over the same token store restores the session
	restored := New(client.New(baseURL, tokens), zerolog.Nop())
	restored.CheckAuth(ctx)
	assert.True(t, restored.State().IsAuthenticated)
	assert.Equal(t, st.User.ID, restored.State().User.ID)

	err = s.Login(ctx, client.Credentials{Email: "ops@example.com", Password: "wrong-pass1"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", s.State().Error)
	assert.False(t, s.State().IsAuthenticated)

	require.NoError(t, s.Login(ctx, client.Credentials{Email: "ops@example.com", Password: "c0mpliance"}))
	assert.True(t, s.State().IsAuthenticated)

	s.Logout(ctx)
	assert.Equal(t, State{}, s.State())

	s.CheckAuth(ctx)
	assert.False(t, s.State().IsAuthenticated)
}

func TestCheckAuth_RevokedTokenIsCleared(t *testing.T) {
	baseURL := startAuthAPI(t)
	tokens := auth.NewMemoryStore()
	ctx := context.Background()

	c := client.New(baseURL, tokens)
	_, err := c.Register(ctx, client.RegisterRequest{Email: "aud@example.com", Password: "aud1torpass", Name: "Auditor"})
	require.NoError(t, err)
	stolen := c.GetTokens().AccessToken

	// Revoke server side, then put the revoked token back as if another
	// process still held it.
	require.NoError(t, c.Logout(ctx))
	require.NoError(t, tokens.SaveToken(c.BaseURL(), stolen))

	s := New(c, zerolog.Nop())
	s.CheckAuth(ctx)

	assert.False(t, s.State().IsAuthenticated)
	_, err = tokens.LoadToken(c.BaseURL())
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}
