package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/recall/internal/engine"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	eng, _, err := openEngine(c.globals)
	if err != nil {
		return err
	}
	defer eng.Close()

	return c.executeWithEngine(eng, args)
}

// executeWithEngine runs the search against a provided engine (for testing).
func (c *SearchCommand) executeWithEngine(eng *engine.Engine, args []string) error {
	query := c.Query
	if query == "" && len(args) > 0 {
		query = strings.Join(args, " ")
	}

	ctx := context.Background()
	results, err := eng.Search(ctx, query, c.Limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printResultsJSON(query, results)
	}
	return printResultsHuman(query, results)
}

func printResultsHuman(query string, results []engine.Result) error {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No results found for %q\n", query)
		} else {
			fmt.Println("No results found")
		}
		return nil
	}

	resultWord := "results"
	if len(results) == 1 {
		resultWord = "result"
	}
	if query != "" {
		fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)
	} else {
		fmt.Printf("Top %d %s by frecency\n\n", len(results), resultWord)
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   %s\n", r.URL)
		fmt.Printf("   frecency %d\n", r.Frecency)
		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonResult struct {
	SearchString string `json:"search_string"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Frecency     int64  `json:"frecency"`
	IconURL      string `json:"icon_url,omitempty"`
}

type jsonSearchOutput struct {
	Count   int          `json:"count"`
	Query   string       `json:"query"`
	Results []jsonResult `json:"results"`
}

func printResultsJSON(query string, results []engine.Result) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]jsonResult, len(results)),
	}

	for i, r := range results {
		out.Results[i] = jsonResult{
			SearchString: r.SearchString,
			URL:          r.URL,
			Title:        r.Title,
			Frecency:     r.Frecency,
			IconURL:      r.IconURL,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
