package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/recall/internal/config"
	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	eng, cfg, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng, cfg)
}

// executeWithEngine runs status against a provided engine (for testing).
func (c *StatusCommand) executeWithEngine(eng *engine.Engine, cfg *config.Config) error {
	ctx := context.Background()
	stats, err := eng.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"version":      c.version,
			"total_places": stats.TotalPlaces,
			"total_visits": stats.TotalVisits,
		}
		if stats.TotalVisits > 0 {
			out["oldest_visit"] = stats.OldestVisit.UTC().Format(time.RFC3339)
			out["newest_visit"] = stats.NewestVisit.UTC().Format(time.RFC3339)
		}
		hosts := make([]map[string]interface{}, len(stats.TopHosts))
		for i, h := range stats.TopHosts {
			hosts[i] = map[string]interface{}{"host": h.Host, "count": h.Count}
		}
		out["top_hosts"] = hosts
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("recall %s\n\n", c.version)
	fmt.Printf("Places: %d\n", stats.TotalPlaces)
	fmt.Printf("Visits: %d\n", stats.TotalVisits)
	if stats.TotalVisits > 0 {
		fmt.Printf("Oldest visit: %s\n", stats.OldestVisit.Local().Format("2006-01-02 15:04"))
		fmt.Printf("Newest visit: %s\n", stats.NewestVisit.Local().Format("2006-01-02 15:04"))
	}
	if len(stats.TopHosts) > 0 {
		fmt.Println("\nTop hosts:")
		for _, h := range stats.TopHosts {
			fmt.Printf("  %6d  %s\n", h.Count, h.Host)
		}
	}
	if cfg != nil {
		if cfg.Retention.Days > 0 {
			fmt.Printf("\nRetention: %d days\n", cfg.Retention.Days)
		} else {
			fmt.Println("\nRetention: unlimited")
		}
	}

	return nil
}
