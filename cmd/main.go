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

	"github.com/joho/godotenv"

	"github.com/datx24/storefront/internal/router"
	"github.com/datx24/storefront/pkg/ai"
	"github.com/datx24/storefront/pkg/backend"
	"github.com/datx24/storefront/pkg/browser"
	"github.com/datx24/storefront/pkg/global"
	"github.com/datx24/storefront/pkg/mongo"
	"github.com/datx24/storefront/pkg/redis"
	"github.com/datx24/storefront/pkg/storage"
)

func main() {

	// the .env file is optional, deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg := global.LoadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	var catalog router.Catalog = client
	var store storage.Store

	switch cfg.StorageDriver {
	case "redis":
		rdb := redis.RedisClient()
		if err := redis.Ping(rdb); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		store = redis.NewStorage(rdb, cfg.SessionTTL)
		catalog = redis.NewCachedCatalog(client, rdb, global.GetEnvDuration("CATALOG_CACHE_TTL", redis.DefaultCatalogTTL))
		log.Println("Session storage: redis")
	case "mongo":
		mongoClient := mongo.GetMongoClient()
		defer mongo.Disconnect(mongoClient)
		db := mongo.InitMongoDB(mongoClient)
		mongo.EnsureIndexesOnStartup(db, cfg.SessionTTL)
		store = mongo.NewStorage(db)
		log.Println("Session storage: mongo")
	case "memory":
		store = storage.NewMemory()
		log.Println("Session storage: memory (state is lost on restart)")
	default:
		log.Fatalf("Unknown STORAGE_DRIVER %q, expected memory, redis or mongo", cfg.StorageDriver)
	}

	browsers := browser.NewRegistry(catalog, global.GetEnvDuration("BROWSER_IDLE_TTL", time.Hour))
	go browsers.RunJanitor(ctx, 5*time.Minute)

	router.InitEngine(cfg)
	router.InitializeRoutes(router.NewHandler(router.Dependencies{
		Config:   cfg,
		Store:    store,
		Backend:  client,
		Catalog:  catalog,
		Browsers: browsers,
		AI:       ai.InitializeAIService(),
	}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server is running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
