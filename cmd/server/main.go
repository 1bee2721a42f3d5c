package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	gqlapi "socialgraph/internal/api/graphql"
	"socialgraph/internal/api/rest"
	"socialgraph/internal/social"
	"socialgraph/internal/store"
	"socialgraph/pkg/config"
	"socialgraph/pkg/logger"
)

func main() {
	// Load configuration first so the logger knows the environment
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting social graph API server...")

	ctx := context.Background()
	st, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize record store", zap.Error(err))
	}
	defer cleanup()

	repo := social.NewRepository(st)

	schema, err := gqlapi.NewSchema(repo)
	if err != nil {
		log.Fatal("Failed to build GraphQL schema", zap.Error(err))
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rest.NewHandler(repo).RegisterRoutes(router)

	graphqlHandler := gqlapi.NewHandler(&schema, cfg.GraphiQL && !cfg.IsProduction())
	router.POST("/graphql", graphqlHandler)
	router.GET("/graphql", graphqlHandler)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newStore builds the configured record store and returns a cleanup func.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	log := logger.Get()

	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn("Using in-memory store; data is not persisted")
		return store.NewMemory(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoStore, err := store.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	if err := mongoStore.EnsureIndexes(connectCtx); err != nil {
		return nil, nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoStore.Close(closeCtx); err != nil {
			log.Error("Failed to close mongo connection", zap.Error(err))
		}
	}
	return mongoStore, cleanup, nil
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
