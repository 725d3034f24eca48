package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/frecency"
	"github.com/runnerr0/recall/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}

	eng, _, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng)
}

// executeWithEngine runs the add logic against a provided engine (used by tests).
func (c *AddCommand) executeWithEngine(eng *engine.Engine) error {
	if c.RedirectSource && c.PermanentRedirect {
		return fmt.Errorf("--redirect-source and --permanent-redirect-source are mutually exclusive")
	}

	obs := storage.Observation{URL: c.URL}

	if c.Type != "" {
		vt := frecency.VisitType(c.Type)
		obs.VisitType = &vt
	}
	if c.Title != "" {
		obs.Title = &c.Title
	}
	if c.At != 0 {
		at := time.UnixMilli(c.At)
		obs.At = &at
	}
	if c.Error {
		obs.IsError = &c.Error
	}
	if c.RedirectSource {
		obs.IsRedirectSource = &c.RedirectSource
	}
	if c.PermanentRedirect {
		obs.IsPermanentRedirectSource = &c.PermanentRedirect
	}
	if c.Referrer != "" {
		obs.Referrer = &c.Referrer
	}
	if c.Remote {
		obs.IsRemote = &c.Remote
	}

	ctx := context.Background()
	if err := eng.Record(ctx, obs); err != nil {
		return fmt.Errorf("recording observation: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"url":   c.URL,
			"type":  c.Type,
			"error": c.Error,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Recorded %s visit\n", c.Type)
	fmt.Printf("  URL: %s\n", c.URL)
	if c.Title != "" {
		fmt.Printf("  Title: %s\n", c.Title)
	}

	return nil
}
