package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Add     *AddCommand
	Search  *SearchCommand
	Top     *TopCommand
	Status  *StatusCommand
	Rebuild *RebuildCommand
	Prune   *PruneCommand
	Purge   *PurgeCommand
	Serve   *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "recall"
	parser.LongDescription = "Local browsing history storage with frecency-ranked autocomplete."

	cmds := &commands{
		Add:     &AddCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals, version: version},
		Top:     &TopCommand{globals: &globals, version: version},
		Status:  &StatusCommand{globals: &globals, version: version},
		Rebuild: &RebuildCommand{globals: &globals, version: version},
		Prune:   &PruneCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("add", "Record a visit observation", "Record a single visit observation for a URL.", cmds.Add)
	parser.AddCommand("search", "Autocomplete search", "Search places by URL/title prefix or substring, ranked by frecency.", cmds.Search)
	parser.AddCommand("top", "Show highest-frecency places", "Show the highest-frecency places in descending order.", cmds.Top)
	parser.AddCommand("status", "Show database statistics", "Show database statistics and configuration summary.", cmds.Status)
	parser.AddCommand("rebuild", "Rebuild frecency scores", "Recompute every frecency score from stored visit history.", cmds.Rebuild)
	parser.AddCommand("prune", "Remove old visits", "Remove visits older than the retention period and rebuild scores.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL recall data", "Delete ALL recall data. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("serve", "Start the recall daemon", "Start the recall daemon (local HTTP service).", cmds.Serve)

	return parser, &globals, cmds
}

// Run is the main entry point for the recall CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("recall %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
