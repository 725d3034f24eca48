package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all to confirm intent")
	}

	eng, _, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng, os.Stdin)
}

// executeWithEngine runs the purge against a provided engine (for testing).
// confirm supplies the interactive confirmation input.
func (c *PurgeCommand) executeWithEngine(eng *engine.Engine, confirm io.Reader) error {
	if !c.Force {
		fmt.Print("This deletes ALL recall data. Type 'yes' to continue: ")
		reader := bufio.NewReader(confirm)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		if strings.TrimSpace(line) != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	if err := eng.Purge(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	fmt.Println("All recall data deleted.")
	return nil
}
