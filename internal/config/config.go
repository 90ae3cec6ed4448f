package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	StorageBackend storage.Kind
	DefaultPrefix  string
	SessionKey     string
	CacheKeyPrefix string
	CacheTTL       time.Duration

	SessionCookieName string
	SessionTTL        time.Duration

	RedisURL      string
	RedisAddr     string
	RedisPassword string

	MongoURI    string
	MongoDBName string

	CatalogDBPath string

	KafkaBrokers    []string
	CheckoutTopic   string
	CartEventsTopic string
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	kind, err := storage.ParseKind(getEnv("CART_STORAGE_BACKEND", string(storage.KindSession)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cacheSeconds, err := getInt("CART_CACHE_TIMEOUT", int(storage.DefaultCacheTTL/time.Second))
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDuration("SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	sessionKey := getEnv("CART_SESSION_KEY", storage.DefaultSessionKey)
	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		RequestTimeout:    requestTimeout,
		ShutdownTimeout:   10 * time.Second,
		StorageBackend:    kind,
		DefaultPrefix:     getEnv("CART_DEFAULT_PREFIX", "default"),
		SessionKey:        sessionKey,
		CacheKeyPrefix:    getEnv("CART_CACHE_KEY_PREFIX", sessionKey),
		CacheTTL:          time.Duration(cacheSeconds) * time.Second,
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "sessionid"),
		SessionTTL:        sessionTTL,
		RedisURL:          os.Getenv("REDIS_URL"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "cartdb"),
		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "./catalog.db"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		CheckoutTopic:     getEnv("CHECKOUT_TOPIC", "checkout-outbox"),
		CartEventsTopic:   getEnv("CART_EVENTS_TOPIC", "cart-events"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.HTTPPort == "":
		return fmt.Errorf("%w: HTTP_PORT is empty", ErrInvalidConfig)
	case c.DefaultPrefix == "":
		return fmt.Errorf("%w: CART_DEFAULT_PREFIX is empty", ErrInvalidConfig)
	case c.SessionKey == "":
		return fmt.Errorf("%w: CART_SESSION_KEY is empty", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: CART_CACHE_TIMEOUT must not be negative", ErrInvalidConfig)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", ErrInvalidConfig)
	case c.StorageBackend == storage.KindDurable && c.MongoURI == "":
		return fmt.Errorf("%w: durable storage requires MONGO_URI", ErrInvalidConfig)
	case c.StorageBackend == storage.KindCustom:
		return fmt.Errorf("%w: custom storage cannot be selected from the environment", ErrInvalidConfig)
	}
	return nil
}

// RedisOptions prefers REDIS_URL over REDIS_ADDR/REDIS_PASSWORD.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL != "" {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: REDIS_URL: %w", ErrInvalidConfig, err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
