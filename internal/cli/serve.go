package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runnerr0/recall/internal/daemon"
	"github.com/runnerr0/recall/internal/logging"
	"github.com/runnerr0/recall/pkg/places"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath, err := cfg.DBPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	level := cfg.Logging.Level
	if c.globals != nil && c.globals.Verbose {
		level = "debug"
	}

	conn, err := places.OpenWithOptions(dbPath, places.OpenOptions{
		WriteTimeout: time.Duration(cfg.Storage.WriteTimeoutMS) * time.Millisecond,
		LogLevel:     level,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	host := cfg.Daemon.Host
	if c.Host != "" {
		host = c.Host
	}
	port := cfg.Daemon.Port
	if c.Port != 0 {
		port = c.Port
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	return daemon.Serve(context.Background(), addr, daemon.Deps{
		Conn:           conn,
		MaxRequestSize: int64(cfg.Daemon.MaxRequestSize),
		MaxLimit:       cfg.Autocomplete.MaxLimit,
		Log:            logging.New("daemon", level),
	})
}
