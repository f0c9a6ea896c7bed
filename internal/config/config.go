// Package config provides the server configuration, assembled from defaults,
// a JSON config file, command-line flags, a .env file and environment
// variables, in increasing order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the server.
type Options struct {
	// Address is the listening address (ip:port).
	Address string `json:"server_address"`

	// DatabaseType selects the driver: postgres or sqlite.
	DatabaseType string `json:"database_type"`

	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"database_dsn"`

	// TokenKey is the hex encoded PASETO key. Empty generates one per run.
	TokenKey string `json:"token_key"`

	// TLSCert and TLSKey are the server certificate files. When either is
	// empty the server speaks plain HTTP.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// AllowedOrigins lists the CORS origins.
	AllowedOrigins []string `json:"allowed_origins"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Options {
	return Options{
		Address:      "localhost:8080",
		DatabaseType: "sqlite",
		DatabaseDSN:  "gophtally.db",
		TLSCert:      "certs/server.crt",
		TLSKey:       "certs/server.key",
		LogLevel:     "info",
		Config:       "config.json",
	}
}

// Parse reads the process arguments and environment. It exits on error.
func Parse() *Options {
	opts, err := Load(os.Args[1:], ".env")
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return opts
}

// Load builds the configuration from args and the environment. envFile is
// loaded into the environment first when it exists; variables that are
// already set win.
func Load(args []string, envFile string) (*Options, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	opts := Defaults()
	var flagged Options
	var origins string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&flagged.Address, "a", opts.Address, "run on ip:port server")
	fs.StringVar(&flagged.DatabaseDSN, "d", opts.DatabaseDSN, "database DSN")
	fs.StringVar(&flagged.DatabaseType, "t", opts.DatabaseType, "database driver: postgres or sqlite")
	fs.StringVar(&flagged.Config, "config", opts.Config, "path to config file")
	fs.StringVar(&flagged.Config, "c", opts.Config, "path to config file (shorthand)")
	fs.StringVar(&flagged.TokenKey, "k", "", "token key, 64 hex characters")
	fs.StringVar(&flagged.TLSCert, "tls-cert", opts.TLSCert, "server certificate file")
	fs.StringVar(&flagged.TLSKey, "tls-key", opts.TLSKey, "server key file")
	fs.StringVar(&origins, "origins", "", "comma separated CORS origins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts.Config = flagged.Config
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error while reading config file: %w", err)
		default:
			if err := json.Unmarshal(data, &opts); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	apply := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	apply("a", &opts.Address, flagged.Address)
	apply("d", &opts.DatabaseDSN, flagged.DatabaseDSN)
	apply("t", &opts.DatabaseType, flagged.DatabaseType)
	apply("k", &opts.TokenKey, flagged.TokenKey)
	apply("tls-cert", &opts.TLSCert, flagged.TLSCert)
	apply("tls-key", &opts.TLSKey, flagged.TLSKey)
	if set["origins"] {
		opts.AllowedOrigins = splitList(origins)
	}

	env := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	env("SERVER_ADDRESS", &opts.Address)
	env("DATABASE_DSN", &opts.DatabaseDSN)
	env("DATABASE_TYPE", &opts.DatabaseType)
	env("TOKEN_KEY", &opts.TokenKey)
	env("LOG_LEVEL", &opts.LogLevel)

	switch opts.DatabaseType {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database type %q", opts.DatabaseType)
	}
	return &opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
