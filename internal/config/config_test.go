package config

import (
	"testing"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, storage.KindSession, cfg.StorageBackend)
	assert.Equal(t, "default", cfg.DefaultPrefix)
	assert.Equal(t, "CART-ID", cfg.SessionKey)
	assert.Equal(t, "CART-ID", cfg.CacheKeyPrefix)
	assert.Equal(t, 5*24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "sessionid", cfg.SessionCookieName)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "cartdb", cfg.MongoDBName)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "checkout-outbox", cfg.CheckoutTopic)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CART_STORAGE_BACKEND", "durable")
	t.Setenv("CART_SESSION_KEY", "BASKET")
	t.Setenv("CART_CACHE_TIMEOUT", "60")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REQUEST_TIMEOUT", "5s")

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, storage.KindDurable, cfg.StorageBackend)
	assert.Equal(t, "BASKET", cfg.CacheKeyPrefix)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"unknown backend": {"CART_STORAGE_BACKEND", "memcached"},
		"custom backend":  {"CART_STORAGE_BACKEND", "custom"},
		"bad cache ttl":   {"CART_CACHE_TIMEOUT", "soon"},
		"negative ttl":    {"CART_CACHE_TIMEOUT", "-1"},
		"bad session ttl": {"SESSION_TTL", "forever"},
		"zero timeout":    {"REQUEST_TIMEOUT", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := fromEnv()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	cfg := &Config{RedisAddr: "cache:6379", RedisPassword: "pw"}
	opts, err := cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)

	cfg.RedisURL = "redis://:secret@redis.internal:6380/2"
	opts, err = cfg.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	cfg.RedisURL = "http://nope"
	_, err = cfg.RedisOptions()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
