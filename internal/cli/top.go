package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for TopCommand.
func (c *TopCommand) Execute(args []string) error {
	eng, _, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng)
}

// executeWithEngine runs the top listing against a provided engine (for testing).
func (c *TopCommand) executeWithEngine(eng *engine.Engine) error {
	ctx := context.Background()
	results, err := eng.TopK(ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("top listing failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printResultsJSON("", results)
	}
	return printResultsHuman("", results)
}
