package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// AddCommand — record a single visit observation.
type AddCommand struct {
	URL               string `long:"url" description:"URL that was visited (required)"`
	Title             string `long:"title" description:"Page title"`
	Type              string `long:"type" description:"Visit type: link, typed, bookmark, embed, redirect_permanent, redirect_temporary, download, framed_link, reload" default:"link"`
	At                int64  `long:"at" description:"Visit time as epoch milliseconds (default: now)"`
	Error             bool   `long:"error" description:"Mark the visit as a load error"`
	RedirectSource    bool   `long:"redirect-source" description:"Visit was the source of a temporary redirect"`
	PermanentRedirect bool   `long:"permanent-redirect-source" description:"Visit was the source of a permanent redirect"`
	Referrer          string `long:"referrer" description:"Referrer URL"`
	Remote            bool   `long:"remote" description:"Visit originated from sync, not this device"`

	globals *GlobalFlags
	version string
}

// SearchCommand — autocomplete search over URLs and titles.
type SearchCommand struct {
	Query string `long:"query" short:"q" description:"Search string (positional args are joined if omitted)"`
	Limit int    `long:"limit" description:"Maximum results" default:"10"`

	globals *GlobalFlags
	version string
}

// TopCommand — show the highest-frecency places.
type TopCommand struct {
	Limit int `long:"limit" description:"Maximum results" default:"10"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show database statistics and config summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// RebuildCommand — recompute all frecency scores from visit history.
type RebuildCommand struct {
	globals *GlobalFlags
	version string
}

// PruneCommand — remove visits older than the retention period.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 90d, 24h)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL recall data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// ServeCommand — start the local HTTP daemon.
type ServeCommand struct {
	Host string `long:"host" description:"Override daemon host"`
	Port int    `long:"port" description:"Override daemon port"`

	globals *GlobalFlags
	version string
}
