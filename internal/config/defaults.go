package config

const (
	defaultStateDir                = "~/.local/share/seam"
	defaultLogDir                  = "~/.local/share/seam/logs"
	defaultExecutablePath          = "syncthing"
	defaultAddress                 = "127.0.0.1:8384"
	defaultConnectTimeout          = 60
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultEventPollTimeout        = 60
	defaultConnectionsPollInterval = 10
	defaultJournalRetentionDays    = 30
	defaultNtfyRequestTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Syncthing: Syncthing{
			ExecutablePath: defaultExecutablePath,
			Address:        defaultAddress,
			ConnectTimeout: defaultConnectTimeout,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Supervisor: Supervisor{
			StartOnLaunch:           true,
			EventPollTimeout:        defaultEventPollTimeout,
			ConnectionsPollInterval: defaultConnectionsPollInterval,
			JournalRetentionDays:    defaultJournalRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
	}
}
