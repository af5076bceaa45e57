// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MCP transports
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds every server setting
type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	DBPath          string   `env:"DB_PATH" envDefault:"./agent-dungeon.db"`
	DatabaseURL     string   `env:"DATABASE_URL"`
	CharacterDBPath string   `env:"CHARACTER_DB_PATH" envDefault:"./characters.db"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string   `env:"LOG_FORMAT" envDefault:"json"`
	AuthSecret      string   `env:"AUTH_SECRET"`
	AuthIssuerKey   string   `env:"AUTH_ISSUER_KEY"`
	MCPTransport    string   `env:"MCP_TRANSPORT" envDefault:"http"`
	Freeform        bool     `env:"FREEFORM_EXPLORATION" envDefault:"false"`
	SetupExchanges  int      `env:"SETUP_EXCHANGES" envDefault:"2"`
	OTelEndpoint    string   `env:"OTEL_ENDPOINT"`
	CatalogPath     string   `env:"CATALOG_PATH"`
}

// Load reads an optional .env file (existing variables win) and parses the
// environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing file is fine; only the environment matters then.
		_ = godotenv.Load(f)
	}
	return Parse()
}

// Parse reads the configuration from environment variables only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	c.MCPTransport = strings.ToLower(strings.TrimSpace(c.MCPTransport))
	if c.MCPTransport != TransportHTTP && c.MCPTransport != TransportStdio {
		return fmt.Errorf("MCP_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, c.MCPTransport)
	}
	if strings.TrimSpace(c.AuthSecret) != "" && strings.TrimSpace(c.AuthIssuerKey) == "" {
		return fmt.Errorf("AUTH_ISSUER_KEY is required when AUTH_SECRET is set")
	}
	if c.SetupExchanges < 0 {
		return fmt.Errorf("SETUP_EXCHANGES must not be negative")
	}
	origins := c.CORSOrigins[:0]
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
	return nil
}

// UsePostgres reports whether game rows go to Postgres instead of SQLite
func (c Config) UsePostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
