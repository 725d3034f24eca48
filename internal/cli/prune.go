package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/recall/internal/config"
	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	eng, cfg, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng, cfg)
}

// executeWithEngine runs the prune against a provided engine (for testing).
func (c *PruneCommand) executeWithEngine(eng *engine.Engine, cfg *config.Config) error {
	var retention time.Duration
	switch {
	case c.OlderThan != "":
		dur, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		retention = dur
	case cfg != nil && cfg.Retention.Days > 0:
		retention = time.Duration(cfg.Retention.Days) * 24 * time.Hour
	default:
		return fmt.Errorf("no retention period configured; pass --older-than or set retention.days")
	}

	cutoff := time.Now().Add(-retention)

	if c.DryRun {
		fmt.Printf("Would prune visits older than %s (before %s)\n",
			formatDurationHuman(retention), cutoff.Local().Format("2006-01-02 15:04"))
		return nil
	}

	ctx := context.Background()
	n, err := eng.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	fmt.Printf("Pruned %d visits older than %s\n", n, formatDurationHuman(retention))
	return nil
}
