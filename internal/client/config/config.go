// Package config loads the shell's settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Options holds the shell configuration.
type Options struct {
	// ServerURL is the remote store base URL. Empty disables sign-in.
	ServerURL string `toml:"server_url"`
	// CAFile is a PEM bundle the server certificate must chain to.
	CAFile string `toml:"ca_file"`
	// StorageBackend is "file" or "badger".
	StorageBackend string `toml:"storage_backend"`
	// StoragePath is the JSON file or badger directory.
	StoragePath string `toml:"storage_path"`
	Locale      string `toml:"locale"`
	LogLevel    string `toml:"log_level"`
	ExportDir   string `toml:"export_dir"`
}

// Defaults returns the settings used for anything the file leaves out.
func Defaults() Options {
	return Options{
		ServerURL:      "https://localhost:8080",
		CAFile:         "certs/ca.crt",
		StorageBackend: BackendFile,
		StoragePath:    "~/.config/gophtally/storage.json",
		Locale:         "ja",
		LogLevel:       "warn",
		ExportDir:      ".",
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return "~/.config/gophtally/config.toml"
}

// Load reads path over Defaults. A missing file is not an error.
// GOPHTALLY_SERVER_URL overrides server_url.
func Load(path string) (*Options, error) {
	opts := Defaults()
	if path == "" {
		path = DefaultPath()
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("error while reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &opts); err != nil {
			return nil, fmt.Errorf("error while parsing config file: %w", err)
		}
	}

	if url := os.Getenv("GOPHTALLY_SERVER_URL"); url != "" {
		opts.ServerURL = url
	}

	if opts.StorageBackend != BackendFile && opts.StorageBackend != BackendBadger {
		return nil, fmt.Errorf("unknown storage_backend %q", opts.StorageBackend)
	}
	for _, p := range []*string{&opts.CAFile, &opts.StoragePath, &opts.ExportDir} {
		if *p, err = expandHome(*p); err != nil {
			return nil, err
		}
	}
	return &opts, nil
}

// Save writes opts to path as TOML, creating parent directories.
func Save(path string, opts *Options) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
