// warm-cache runs a batch of searches through the aggregator so the media
// cache is populated before the API server takes traffic. Queries are read
// one per line as "media_type:query" (e.g. "movie:Inception").
package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"mediatrakker/internal/provider"
	"mediatrakker/internal/search"
	"mediatrakker/internal/storage"
	"mediatrakker/internal/storage/memory"
	mongostore "mediatrakker/internal/storage/mongo"
	"mediatrakker/internal/storage/sqlite"
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
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = store.Close(closeCtx)
	}()

	client := &http.Client{Timeout: cfg.Providers.Timeout}
	tmdb := provider.NewTMDB(cfg.Providers.TMDB, client)
	anilist := provider.NewAniList(cfg.Providers.AniList, client)
	books := provider.NewGoogleBooks(cfg.Providers.Books, client, log)
	igdb := provider.NewIGDB(cfg.Providers.IGDB, client)

	agg := search.NewAggregator(store.Media(), provider.Registry{
		models.TypeMovie: tmdb,
		models.TypeTV:    tmdb,
		models.TypeAnime: anilist,
		models.TypeManga: anilist,
		models.TypeBook:  books,
		models.TypeGame:  igdb,
	}, log)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		mediaType, query, ok := strings.Cut(line, ":")
		if !ok {
			log.Warn("skipping malformed line", zap.String("line", line))
			continue
		}

		runCtx, runCancel := context.WithTimeout(context.Background(), time.Minute)
		results, source, err := agg.Search(runCtx, strings.TrimSpace(query), strings.TrimSpace(mediaType), 1)
		runCancel()
		if err != nil {
			log.Warn("warm query failed",
				zap.String("media_type", mediaType),
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		log.Info("warmed",
			zap.String("media_type", mediaType),
			zap.String("query", query),
			zap.String("source", source),
			zap.Int("results", len(results)))
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("read stdin", zap.Error(err))
	}
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
