package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret        string
		ExpiryHours   time.Duration
		RefreshSecret string
		RefreshExpiry time.Duration
	}

	// Security configuration
	Security struct {
		RequireAuth     bool
		RateLimit       float64
		RateLimitBurst  int
		AllowedOrigins  []string
		TrustedProxies  []string
		MaxBodySize     int64
		TimestampWindow time.Duration
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Gateway tunes the turn pipeline and connection lifecycle
	Gateway struct {
		STTTimeout        time.Duration
		TTSTimeout        time.Duration
		QueryTimeout      time.Duration
		StoreTimeout      time.Duration
		SendBufferSize    int
		SendHighWaterMark int
	}

	// Adapters holds the external collaborator endpoints/credentials
	Adapters struct {
		IdentityProviderURL string
		STTEndpoint         string
		STTAPIKey           string
		TTSEndpoint         string
		TTSAPIKey           string
		QueryEndpoint       string
		QueryAPIKey         string
	}

	// Voice holds defaults for the Voice Profile Registry (C11)
	Voice struct {
		DefaultLanguageCode string
		DefaultVoiceName    string
		DefaultGender       string
		DefaultSpeakingRate float64
	}

	// Archive tunes the Audio Archive (C12)
	Archive struct {
		Enabled         bool
		DefaultTTL      time.Duration
		MaxChunksPerDay int
		CleanupPeriod   time.Duration
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
		RedisURL    string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		godotenv.Load()

		instance = &Config{}

		instance.Server.Port = getEnvString("PORT", "7000")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "voxgate")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)
		instance.JWT.RefreshSecret = getEnvString("JWT_REFRESH_SECRET", "default-refresh-secret-do-not-use-in-production")
		instance.JWT.RefreshExpiry = getEnvDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour)

		instance.Security.RequireAuth = getEnvBool("REQUIRE_AUTH", false)
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 10<<20) // 10MB
		instance.Security.TimestampWindow = getEnvDuration("TIMESTAMP_WINDOW", 15*time.Minute)

		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		instance.Gateway.STTTimeout = getEnvDuration("STT_TIMEOUT", 15*time.Second)
		instance.Gateway.TTSTimeout = getEnvDuration("TTS_TIMEOUT", 15*time.Second)
		instance.Gateway.QueryTimeout = getEnvDuration("QUERY_TIMEOUT", 20*time.Second)
		instance.Gateway.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 5*time.Second)
		instance.Gateway.SendBufferSize = getEnvInt("SEND_BUFFER_SIZE", 256)
		instance.Gateway.SendHighWaterMark = getEnvInt("SEND_HIGH_WATER_MARK", 1024)

		instance.Adapters.IdentityProviderURL = getEnvString("IDENTITY_PROVIDER_URL", "")
		instance.Adapters.STTEndpoint = getEnvString("STT_ENDPOINT", "")
		instance.Adapters.STTAPIKey = getEnvString("STT_API_KEY", "")
		instance.Adapters.TTSEndpoint = getEnvString("TTS_ENDPOINT", "")
		instance.Adapters.TTSAPIKey = getEnvString("TTS_API_KEY", "")
		instance.Adapters.QueryEndpoint = getEnvString("QUERY_ENDPOINT", "")
		instance.Adapters.QueryAPIKey = getEnvString("QUERY_API_KEY", "")

		instance.Voice.DefaultLanguageCode = getEnvString("DEFAULT_VOICE_LANGUAGE", "en-IN")
		instance.Voice.DefaultVoiceName = getEnvString("DEFAULT_VOICE_NAME", "default")
		instance.Voice.DefaultGender = getEnvString("DEFAULT_VOICE_GENDER", "female")
		instance.Voice.DefaultSpeakingRate = getEnvFloat("DEFAULT_VOICE_SPEAKING_RATE", 1.0)

		instance.Archive.Enabled = getEnvBool("AUDIO_ARCHIVE_ENABLED", true)
		instance.Archive.DefaultTTL = getEnvDuration("AUDIO_ARCHIVE_TTL", 24*time.Hour)
		instance.Archive.MaxChunksPerDay = getEnvInt("AUDIO_ARCHIVE_MAX_CHUNKS_PER_DAY", 1000)
		instance.Archive.CleanupPeriod = getEnvDuration("AUDIO_ARCHIVE_CLEANUP_PERIOD", 1*time.Hour)

		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
		instance.Cache.RedisURL = getEnvString("REDIS_URL", "localhost:6379")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
