package config

const (
	defaultDataDir   = "~/.local/share/glossa"
	defaultLogDir    = "~/.local/share/glossa/logs"
	defaultOutputDir = "~/Documents/glossa"
	defaultAPIBind   = "127.0.0.1:7486"

	defaultEngineModule         = "pdf2zh_engine"
	defaultReadyTimeoutSeconds  = 30
	defaultRestartWindowSeconds = 60
	defaultRestartWindowMax     = 5
	defaultService              = "google"
	defaultThreads              = 4
	defaultLangIn               = "en"
	defaultLangOut              = "zh"

	defaultResultAttempts = 10
	defaultResultDelayMS  = 500

	defaultNtfyTimeoutSeconds = 10

	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRetentionDays = 14
)

// Services enumerates the translation backends the engine accepts.
var Services = []string{"google", "bing"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Engine: Engine{
			Module:               defaultEngineModule,
			ReadyTimeoutSeconds:  defaultReadyTimeoutSeconds,
			RestartWindowSeconds: defaultRestartWindowSeconds,
			RestartWindowMax:     defaultRestartWindowMax,
			DefaultService:       defaultService,
			Threads:              defaultThreads,
			LangIn:               defaultLangIn,
			LangOut:              defaultLangOut,
		},
		Result: Result{
			Attempts: defaultResultAttempts,
			DelayMS:  defaultResultDelayMS,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}

// ServiceSupported reports whether the given translation service is known.
func ServiceSupported(service string) bool {
	for _, known := range Services {
		if service == known {
			return true
		}
	}
	return false
}
