package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mediatrakker/internal/media"
	"mediatrakker/internal/notify"
	"mediatrakker/internal/prefs"
	"mediatrakker/internal/provider"
	"mediatrakker/internal/search"
	"mediatrakker/internal/storage"
	"mediatrakker/internal/storage/memory"
	mongostore "mediatrakker/internal/storage/mongo"
	"mediatrakker/internal/storage/sqlite"
	"mediatrakker/internal/userlist"
	"mediatrakker/pkg/config"
	"mediatrakker/pkg/logger"
	"mediatrakker/pkg/models"
)

func main() {
	cfg, err := config.Load(os.Getenv("MT_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := openStore(ctx, cfg.Storage)
	cancel()
	if err != nil {
		log.Fatal("open store failed", zap.Error(err))
	}

	user := models.UserContext{UserID: cfg.User.ID}
	providers := buildProviders(cfg.Providers, log)

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(corsMiddleware())

	hub := notify.NewHub()
	router.GET("/ws", notify.WSHandler(hub, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": cfg.Storage.Driver})
	})
	router.GET("/ready", func(c *gin.Context) {
		pingCtx, pingCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer pingCancel()
		if err := store.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"store_error": err.Error(),
				"ws_clients":  hub.ClientCount(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "ws_clients": hub.ClientCount()})
	})

	api := router.Group("/api")
	api.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Media Trakker API"})
	})

	agg := search.NewAggregator(store.Media(), providers, log)
	search.NewHandler(agg, log).RegisterRoutes(api)
	media.NewHandler(store.Media()).RegisterRoutes(api)
	userlist.NewHandler(store.Lists(), store.Media(), user, hub, log).RegisterRoutes(api)
	prefs.NewHandler(store.Prefs(), user, log).RegisterRoutes(api)

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error("store close error", zap.Error(err))
	}
	log.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil || home == "" {
				home = "."
			}
			path = filepath.Join(home, ".mediatrakker", "data.db")
		}
		return sqlite.Open(path)
	case "mongo":
		return mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return memory.New(), nil
	}
}

func buildProviders(cfg config.ProvidersConfig, log *zap.Logger) provider.Registry {
	client := &http.Client{Timeout: cfg.Timeout}

	tmdb := provider.NewTMDB(cfg.TMDB, client)
	anilist := provider.NewAniList(cfg.AniList, client)
	books := provider.NewGoogleBooks(cfg.Books, client, log)
	igdb := provider.NewIGDB(cfg.IGDB, client)

	return provider.Registry{
		models.TypeMovie: tmdb,
		models.TypeTV:    tmdb,
		models.TypeAnime: anilist,
		models.TypeManga: anilist,
		models.TypeBook:  books,
		models.TypeGame:  igdb,
	}
}

// corsMiddleware mirrors the permissive policy the browser frontend needs.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
