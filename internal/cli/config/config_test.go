package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
	}{
		{name: "https url", input: "https://compliance.example.com", expected: "https://compliance.example.com"},
		{name: "trailing slash", input: "https://compliance.example.com/", expected: "https://compliance.example.com"},
		{name: "http with port", input: "http://localhost:8080", expected: "http://localhost:8080"},
		{name: "bare host gets https", input: "10.0.0.5", expected: "https://10.0.0.5"},
		{name: "surrounding whitespace", input: "  https://a.example.com  ", expected: "https://a.example.com"},
		{name: "empty", input: "", shouldError: true},
		{name: "ftp scheme", input: "ftp://files.example.com", shouldError: true},
		{name: "missing host", input: "https://", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)

			if tt.shouldError {
				if err == nil {
					t.Errorf("expected error for %q, got %q", tt.input, got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestServerLookup(t *testing.T) {
	cfg := &Config{
		Servers: []Server{
			{URL: "https://prod.example.com", Alias: "production"},
			{URL: "http://localhost:8080", Alias: "local"},
		},
	}

	t.Run("by alias", func(t *testing.T) {
		server, err := cfg.GetServerByAlias("local")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server.URL != "http://localhost:8080" {
			t.Errorf("url = %q, want %q", server.URL, "http://localhost:8080")
		}
	})

	t.Run("by url with trailing slash", func(t *testing.T) {
		server, err := cfg.GetServerByURL("https://prod.example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server.Alias != "production" {
			t.Errorf("alias = %q, want %q", server.Alias, "production")
		}
	})

	t.Run("url or alias", func(t *testing.T) {
		for _, key := range []string{"production", "https://prod.example.com"} {
			server, err := cfg.GetServerByURLOrAlias(key)
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", key, err)
			}
			if server.Alias != "production" {
				t.Errorf("alias = %q, want %q", server.Alias, "production")
			}
		}
	})

	t.Run("returns pointer into config", func(t *testing.T) {
		server, _ := cfg.GetServerByAlias("production")
		if server != &cfg.Servers[0] {
			t.Error("expected pointer to the stored server")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := cfg.GetServerByURLOrAlias("staging"); err == nil {
			t.Error("expected error for unknown server")
		}
	})

	t.Run("default", func(t *testing.T) {
		server, err := cfg.GetDefaultServer()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if server.Alias != "production" {
			t.Errorf("alias = %q, want %q", server.Alias, "production")
		}

		if _, err := (&Config{}).GetDefaultServer(); err == nil {
			t.Error("expected error for empty config")
		}
	})
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	cfg := &Config{Servers: []Server{{URL: "https://prod.example.com", Alias: "production"}}}
	if err := Save(filepath.Join(root, ConfigFileName), cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Chdir(nested)

	loaded, err := LoadFromCurrentDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Servers) != 1 || loaded.Servers[0].Alias != "production" {
		t.Errorf("unexpected config: %+v", loaded)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{invalid"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
