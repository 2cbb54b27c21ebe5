package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the runtime configuration. The hydration window width and
// inter-window delay are tuned for the provider's undocumented rate limits and
// deliberately configurable rather than hard constants.
type Settings struct {
	ListenAddr string
	DataDir    string

	ProviderAPIKey  string
	ProviderBaseURL string
	Language        string

	MetadataTTL        time.Duration
	SnapshotTTL        time.Duration
	PendingConfirmTTL  time.Duration
	HydrateWindowSize  int
	HydrateWindowDelay time.Duration
	FetchTimeout       time.Duration
	LaneSize           int
}

// Load reads settings from the environment, with a best-effort .env file for
// local development.
func Load() Settings {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded settings from .env")
	}

	return Settings{
		ListenAddr:         getEnv("LANEFEED_ADDR", ":8080"),
		DataDir:            getEnv("LANEFEED_DATA_DIR", "./data"),
		ProviderAPIKey:     getEnv("LANEFEED_PROVIDER_API_KEY", ""),
		ProviderBaseURL:    getEnv("LANEFEED_PROVIDER_BASE_URL", ""),
		Language:           getEnv("LANEFEED_LANGUAGE", "en-US"),
		MetadataTTL:        getEnvMinutes("LANEFEED_METADATA_TTL_MINUTES", 30),
		SnapshotTTL:        getEnvMinutes("LANEFEED_SNAPSHOT_TTL_MINUTES", 60),
		PendingConfirmTTL:  getEnvMinutes("LANEFEED_PENDING_TTL_MINUTES", 5),
		HydrateWindowSize:  getEnvInt("LANEFEED_HYDRATE_WINDOW", 12),
		HydrateWindowDelay: time.Duration(getEnvInt("LANEFEED_HYDRATE_DELAY_MS", 50)) * time.Millisecond,
		FetchTimeout:       time.Duration(getEnvInt("LANEFEED_FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		LaneSize:           getEnvInt("LANEFEED_LANE_SIZE", 15),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvMinutes(key string, defaultMinutes int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMinutes)) * time.Minute
}
