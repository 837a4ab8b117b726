package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// Language is the locale for directions instruction text. Loaded once at
	// session start and passed explicitly — never read from ambient state.
	Language string `env:"LANGUAGE, default=en"`

	Backend  BackendConfig
	Tracking TrackingConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

// BackendConfig locates the platform REST API the core consumes
// (active orders, directions proxy, geocode, status writes).
type BackendConfig struct {
	BaseURL string        `env:"BACKEND_BASE_URL, default=http://localhost:9000"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT,  default=30s"`
}

// TrackingConfig tunes the location stream and ingestion workers.
type TrackingConfig struct {
	// MinInterval and MinDistanceM gate the GPS throttle: a sample inside
	// both gates is dropped.
	MinInterval  time.Duration `env:"LOCATION_MIN_INTERVAL,   default=5s"`
	MinDistanceM float64       `env:"LOCATION_MIN_DISTANCE_M, default=10"`
	Workers      int           `env:"LOCATION_WORKERS,        default=8"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=driver_tracking"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
