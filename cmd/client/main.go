// Package main runs the GophTally interactive client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTally/internal/client/config"
	"github.com/atinyakov/GophTally/internal/client/remote"
	"github.com/atinyakov/GophTally/internal/client/shell"
	"github.com/atinyakov/GophTally/internal/client/storage"
	"github.com/atinyakov/GophTally/internal/client/syncer"
	"github.com/atinyakov/GophTally/internal/client/view"
	"github.com/atinyakov/GophTally/internal/logger"
)

var (
	version   string
	buildDate string
)

// openStorage opens the configured local backend.
func openStorage(opts *config.Options, zl *zap.Logger) (*storage.LocalStorage, error) {
	switch opts.StorageBackend {
	case config.BackendBadger:
		b, err := storage.OpenBadger(opts.StoragePath)
		if err != nil {
			return nil, err
		}
		return storage.New(b, zl), nil
	default:
		return storage.New(storage.NewFileBackend(opts.StoragePath), zl), nil
	}
}

// openRemote builds the remote store client. A nil client means local-only.
func openRemote(opts *config.Options, zl *zap.Logger) *remote.Client {
	if opts.ServerURL == "" {
		return nil
	}
	hc, err := remote.NewHTTPClient(opts.CAFile)
	if err != nil {
		zl.Warn("remote store disabled", zap.Error(err))
		return nil
	}
	rc, err := remote.New(opts.ServerURL, hc, zl)
	if err != nil {
		zl.Warn("remote store disabled", zap.Error(err))
		return nil
	}
	return rc
}

// main loads the configuration, wires storage, the remote store and the
// coordinator, then runs the shell until exit.
func main() {
	var (
		configPath string
		showVer    bool
	)
	flag.StringVar(&configPath, "config", config.DefaultPath(), "path to the TOML config file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("GophTally Client\nVersion: %s\nBuild Date: %s\n",
			orNA(version), orNA(buildDate))
		return
	}

	opts, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.NewConsole(os.Stderr, opts.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ls, err := openStorage(opts, zl)
	if err != nil {
		log.Fatal(err)
	}
	defer ls.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordOpts := syncer.Options{
		Local:    ls,
		Renderer: view.New(os.Stdout, opts.Locale),
		Logger:   zl,
		Locale:   opts.Locale,
	}
	shellOpts := shell.Options{
		In:        os.Stdin,
		Out:       os.Stdout,
		Device:    ls,
		Logger:    zl,
		Locale:    opts.Locale,
		ExportDir: opts.ExportDir,
	}
	if rc := openRemote(opts, zl); rc != nil {
		coordOpts.Remote = rc
		shellOpts.Auth = rc
	}

	coord := syncer.New(coordOpts)
	defer coord.Close()
	coord.Load()

	shellOpts.Coordinator = coord
	sh := shell.New(shellOpts)
	unbind := sh.BindAuth(ctx)
	defer unbind()

	sh.Run(ctx)
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
