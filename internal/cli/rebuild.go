package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for RebuildCommand.
func (c *RebuildCommand) Execute(args []string) error {
	eng, _, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng)
}

// executeWithEngine runs the rebuild against a provided engine (for testing).
func (c *RebuildCommand) executeWithEngine(eng *engine.Engine) error {
	ctx := context.Background()
	if err := eng.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	fmt.Println("Frecency scores rebuilt.")
	return nil
}
