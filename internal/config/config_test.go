package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" || cfg.MCPTransport != TransportHTTP || cfg.SetupExchanges != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 4 || cfg.UsePostgres() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MCP_TRANSPORT", "STDIO")
	t.Setenv("FREEFORM_EXPLORATION", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/dungeon")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "9000" || !cfg.Freeform || cfg.MCPTransport != TransportStdio || !cfg.UsePostgres() {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %q", cfg.CORSOrigins)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"transport", "MCP_TRANSPORT", "carrier-pigeon"},
		{"exchanges", "SETUP_EXCHANGES", "-1"},
		{"not a number", "SETUP_EXCHANGES", "lots"},
		{"secret without issuer key", "AUTH_SECRET", "s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Parse(); err == nil {
				t.Fatalf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	os.Unsetenv("LOG_LEVEL")
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
}
