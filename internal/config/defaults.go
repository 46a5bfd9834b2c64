package config

const (
	defaultSocket           = "~/.local/share/trebuchet/launch.sock"
	defaultLogDir           = "~/.local/share/trebuchet/logs"
	defaultWorkerCommand    = "python3"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
	defaultHistoryKeep      = 500
)

// Default returns a Config populated with repository defaults. Worker.Count
// is left at zero here and resolved to the CPU count during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			Socket: defaultSocket,
			LogDir: defaultLogDir,
		},
		Worker: Worker{
			Command: defaultWorkerCommand,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled: true,
			Keep:    defaultHistoryKeep,
		},
	}
}
