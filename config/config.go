package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the environment snapshot the server runs on. The shared network
// root backs every durable store; the project root usually lives on a second
// share with tighter permissions, which is why it is configured separately.
type Config struct {
	NetworkRoot       string
	LocalFallbackRoot string
	ProjectRoot       string

	ArchiveCap          int
	NotifyCap           int
	ProbeCache          time.Duration
	RetryInterval       time.Duration
	AllowDegradedWrites bool

	// IdentitySource is a users JSON file path or a MySQL DSN.
	IdentitySource string

	JWTSecret  string
	ServerPort string
}

// Load reads configuration from the environment, applying the documented
// defaults.
func Load() Config {
	return Config{
		NetworkRoot:         getenv("NETWORK_ROOT", "./data/shared"),
		LocalFallbackRoot:   getenv("LOCAL_FALLBACK_ROOT", "./data/local"),
		ProjectRoot:         getenv("PROJECT_ROOT", "./data/projects"),
		ArchiveCap:          getenvInt("ARCHIVE_CAP", 1000),
		NotifyCap:           getenvInt("NOTIFY_CAP", 100),
		ProbeCache:          time.Duration(getenvInt("PROBE_CACHE_SECONDS", 30)) * time.Second,
		RetryInterval:       time.Duration(getenvInt("RETRY_INTERVAL_SECONDS", 60)) * time.Second,
		AllowDegradedWrites: getenvBool("ALLOW_DEGRADED_WRITES", false),
		IdentitySource:      getenv("IDENTITY_PROVIDER_SOURCE", "./data/shared/users.json"),
		JWTSecret:           getenv("JWT_SECRET", "approval-dev-secret"),
		ServerPort:          getenv("SERVER_PORT", "8080"),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
