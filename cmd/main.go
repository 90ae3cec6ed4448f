package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	c "github.com/fjod/go_cart/shopcart/internal/cache"
	"github.com/fjod/go_cart/shopcart/internal/cart"
	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/config"
	"github.com/fjod/go_cart/shopcart/internal/events"
	h "github.com/fjod/go_cart/shopcart/internal/http"
	"github.com/fjod/go_cart/shopcart/internal/poller"
	"github.com/fjod/go_cart/shopcart/internal/repository"
	"github.com/fjod/go_cart/shopcart/internal/session"
	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := log.New(os.Stdout, "[shopcart] ", log.LstdFlags|log.Lshortfile)
	ctx := context.Background()

	// Product catalog
	store, err := catalog.NewStore(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer store.Close()
	if err := store.RunMigrations(); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	products := catalog.New()
	products.Register(catalog.ProductType, store.Resolve)
	log.Printf("Catalog ready at %s", cfg.CatalogDBPath)

	// Redis backs visitor sessions and, for the cache backend, cart state
	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		log.Fatalf("Invalid Redis config: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	selectorOpts := storage.Options{
		Kind:           cfg.StorageBackend,
		SessionKey:     cfg.SessionKey,
		CacheKeyPrefix: cfg.CacheKeyPrefix,
		CacheTTL:       cfg.CacheTTL,
		Cache:          c.NewRedisCache(redisClient),
	}

	var mongoDB *mongo.Database
	if cfg.StorageBackend == storage.KindDurable {
		mongoDB, err = repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		repo, err := repository.NewMongoRepository(ctx, mongoDB)
		if err != nil {
			log.Fatalf("Failed to prepare cart collection: %v", err)
		}
		selectorOpts.Repository = repo
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)
	}

	selector, err := storage.NewSelector(selectorOpts)
	if err != nil {
		log.Fatalf("Invalid storage config: %v", err)
	}

	modifiers := []cart.Modifier{cart.NewLoggingModifier(logger)}
	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewPublisher(events.NewWriter(cfg.CartEventsTopic, cfg.KafkaBrokers...), logger)
		modifiers = append(modifiers, events.NewModifier(publisher, logger))
	}
	manager := cart.NewManager(selector, products, cart.WithModifiers(modifiers...), cart.WithLogger(logger))

	pollCtx, stopPoller := context.WithCancel(ctx)
	var checkoutPoller *poller.Poller
	if len(cfg.KafkaBrokers) > 0 && cfg.StorageBackend != storage.KindSession {
		checkoutPoller = poller.NewPoller(manager, poller.NewReader(cfg.CheckoutTopic, cfg.KafkaBrokers...), logger)
		go checkoutPoller.Run(pollCtx)
		log.Printf("Consuming %s from %v", cfg.CheckoutTopic, cfg.KafkaBrokers)
	}

	handler := h.NewCartHandler(manager, products, cfg.DefaultPrefix, cfg.RequestTimeout, logger)
	sessions := session.Middleware(session.NewRedisStore(redisClient, cfg.SessionTTL), cfg.SessionCookieName, logger)
	router := h.NewRouter(handler, sessions, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "shopcart"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart service starting on :%s with %s storage", cfg.HTTPPort, selector.Kind())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	stopPoller()
	if checkoutPoller != nil {
		checkoutPoller.Close()
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Printf("failed to close event writer: %v", err)
		}
	}
	if mongoDB != nil {
		mongoDB.Client().Disconnect(shutdownCtx)
	}
	log.Println("server exited")
}
