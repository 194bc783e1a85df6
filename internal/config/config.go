package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the listing service.
type Config struct {
	AppName  string
	AppPort  string
	LogLevel string

	StorageDriver        string
	DatabaseDSN          string
	MongoURI             string
	MongoDatabase        string
	PropertiesCollection string

	FirebaseProjectID       string
	FirebaseCredentialsFile string
	FirebaseAPIKey          string

	AuthProvider     string
	AdminEmail       string
	AdminPassword    string
	JWTSecret        string
	SessionTTL       time.Duration
	SessionStore     string
	SessionPurgeSpec string

	CacheDriver   string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	MemcachedHost string

	RabbitMQURL      string
	RabbitMQExchange string

	CORSOrigins string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "realestate")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("STORAGE_DRIVER", "firestore")
	v.SetDefault("DATABASE_DSN", "host=127.0.0.1 user=postgres password=postgres dbname=realestate port=5432 sslmode=disable")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "realestate")
	v.SetDefault("PROPERTIES_COLLECTION", "properties")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_API_KEY", "")

	v.SetDefault("AUTH_PROVIDER", "firebase")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_PURGE_SPEC", "@every 1h")

	v.SetDefault("CACHE_DRIVER", "none")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("MEMCACHED_HOST", "localhost:11211")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "properties_events")

	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads an optional .env file, then the environment, into a Config.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:  v.GetString("APP_NAME"),
		AppPort:  v.GetString("APP_PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		StorageDriver:        strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseDSN:          v.GetString("DATABASE_DSN"),
		MongoURI:             v.GetString("MONGODB_URI"),
		MongoDatabase:        v.GetString("MONGODB_DATABASE"),
		PropertiesCollection: v.GetString("PROPERTIES_COLLECTION"),

		FirebaseProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		FirebaseAPIKey:          v.GetString("FIREBASE_API_KEY"),

		AuthProvider:     strings.ToLower(v.GetString("AUTH_PROVIDER")),
		AdminEmail:       v.GetString("ADMIN_EMAIL"),
		AdminPassword:    v.GetString("ADMIN_PASSWORD"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		SessionStore:     strings.ToLower(v.GetString("SESSION_STORE")),
		SessionPurgeSpec: v.GetString("SESSION_PURGE_SPEC"),

		CacheDriver:   strings.ToLower(v.GetString("CACHE_DRIVER")),
		CacheTTL:      v.GetDuration("CACHE_TTL"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		MemcachedHost: v.GetString("MEMCACHED_HOST"),

		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),

		CORSOrigins: v.GetString("CORS_ORIGINS"),
	}
}
