package serverselect

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scdash-dev/scdash/internal/cli/config"
	"github.com/scdash-dev/scdash/internal/cli/userconfig"
)

func twoServers() *config.Config {
	return &config.Config{Servers: []config.Server{
		{URL: "https://prod.example.com", Alias: "production"},
		{URL: "http://localhost:8080", Alias: "local"},
	}}
}

func TestResolveServer_FlagWins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("https://prod.example.com"))

	server, err := ResolveServer(twoServers(), "local", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", server.URL)
}

func TestResolveServer_UnknownFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := ResolveServer(twoServers(), "staging", zerolog.Nop())
	assert.Error(t, err)
}

func TestResolveServer_UsesSelection(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("http://localhost:8080"))

	server, err := ResolveServer(twoServers(), "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", server.Alias)
}

func TestResolveServer_SingleServerIsSelected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := &config.Config{Servers: []config.Server{{URL: "https://only.example.com", Alias: "production"}}}

	server, err := ResolveServer(cfg, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "production", server.Alias)

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "https://only.example.com", selected)
}

func TestResolveServer_StaleSelectionFallsBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, userconfig.SetSelectedServer("https://gone.example.com"))
	cfg := &config.Config{Servers: []config.Server{{URL: "https://only.example.com", Alias: "production"}}}

	server, err := ResolveServer(cfg, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "https://only.example.com", server.URL)
}

func TestPromptServerSelection_NoServers(t *testing.T) {
	_, err := PromptServerSelection(&config.Config{})
	assert.Error(t, err)
}
