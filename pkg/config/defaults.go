package config

const (
	defaultHTTPAddr     = ":8080"
	defaultSyncAddr     = ":9090"
	defaultGRPCAddr     = ":9092"
	defaultNotifyAddr   = ":9091"
	defaultMirrorAddr   = ":8090"
	defaultDBPath       = "~/.animehub/data.db"
	defaultJWTSecret    = "dev-secret-change-me"
	defaultJWTIssuer    = "animehub"
	defaultJWTTTLHours  = 24
	defaultLogLevel     = "info"
	defaultJikanBaseURL = "https://api.jikan.moe/v4"
	defaultJikanPages   = 2
	defaultTimeout      = 15
	defaultUserAgent    = "animehub-scraper/1.0"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			HTTPAddr:   defaultHTTPAddr,
			SyncAddr:   defaultSyncAddr,
			GRPCAddr:   defaultGRPCAddr,
			NotifyAddr: defaultNotifyAddr,
			MirrorAddr: defaultMirrorAddr,
		},
		Database: Database{Path: defaultDBPath},
		Auth: Auth{
			JWTSecret:   defaultJWTSecret,
			JWTIssuer:   defaultJWTIssuer,
			JWTTTLHours: defaultJWTTTLHours,
		},
		Log: Log{Level: defaultLogLevel},
		Scraper: Scraper{
			JikanBaseURL:   defaultJikanBaseURL,
			JikanPages:     defaultJikanPages,
			TimeoutSeconds: defaultTimeout,
			UserAgent:      defaultUserAgent,
		},
	}
}
