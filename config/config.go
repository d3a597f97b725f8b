package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// CountModePages reports totalCount as round(matching/pageSize), at least 1.
	CountModePages = "pages"
	// CountModeTotal reports totalCount as the number of matching records.
	CountModeTotal = "total"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	S3     S3Config
	Auth   AuthConfig
	Google GoogleConfig
	NATS   NATSConfig
	Redis  RedisConfig
	Feed   FeedConfig
	Log    LogConfig
}

type ServerConfig struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// MongoConfig holds database configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

type S3Config struct {
	Region             string
	Endpoint           string
	PostAudioBucket    string
	ProfileImageBucket string
	PublicBaseURL      string
	UsePathStyle       bool
	AccessKeyID        string
	SecretAccessKey    string
}

type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	CookieName  string
	BcryptCost  int
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	FrontendURL  string
	StateTTL     time.Duration
}

type NATSConfig struct {
	URL           string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FeedConfig struct {
	DefaultPageSize  int
	CountMode        string
	EmptyPageIsError bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			GRPCPort:        getEnv("GRPC_PORT", "50051"),
			RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "social"),
			ConnectTimeout: getEnvAsDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    getEnvAsInt("MONGO_MAX_POOL_SIZE", 50),
		},
		S3: S3Config{
			Region:             getEnv("AWS_REGION", "us-east-1"),
			Endpoint:           getEnv("S3_ENDPOINT", ""),
			PostAudioBucket:    getEnv("S3BUCKET_POSTAUDIOS", "post-audios"),
			ProfileImageBucket: getEnv("S3BUCKET_PROFILEIMAGES", "profile-images"),
			PublicBaseURL:      getEnv("S3_PUBLIC_BASE_URL", ""),
			UsePathStyle:       getEnvAsBool("S3_USE_PATH_STYLE", false),
			AccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			TokenExpiry: getEnvAsDuration("TOKEN_EXPIRY", 30*24*time.Hour),
			CookieName:  getEnv("AUTH_COOKIE_NAME", "jwt"),
			BcryptCost:  getEnvAsInt("BCRYPT_COST", 10),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/v2/users/auth/google/callback"),
			FrontendURL:  strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
			StateTTL:     getEnvAsDuration("GOOGLE_STATE_TTL", 10*time.Minute),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			ClientID:      getEnv("NATS_CLIENT_ID", "social-service"),
			MaxReconnects: getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait: getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Feed: FeedConfig{
			DefaultPageSize:  getEnvAsInt("FEED_DEFAULT_PAGE_SIZE", 20),
			CountMode:        strings.ToLower(getEnv("FEED_COUNT_MODE", CountModePages)),
			EmptyPageIsError: getEnvAsBool("FEED_EMPTY_PAGE_IS_ERROR", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("database name is required (set MONGO_DATABASE)")
	}
	if c.Feed.DefaultPageSize < 1 {
		return fmt.Errorf("invalid FEED_DEFAULT_PAGE_SIZE %d: must be positive", c.Feed.DefaultPageSize)
	}
	if c.Feed.CountMode != CountModePages && c.Feed.CountMode != CountModeTotal {
		return fmt.Errorf("invalid FEED_COUNT_MODE %q: must be %q or %q", c.Feed.CountMode, CountModePages, CountModeTotal)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", c.Log.Format)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
