package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:           "~/.config/recall",
			SQLiteFile:     "recall.db",
			WriteTimeoutMS: 5000,
		},
		Autocomplete: AutocompleteConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8643,
			MaxRequestSize: 1 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Retention: RetentionConfig{
			Days: 0, // 0 = keep everything
		},
	}
}
