package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"tailtown/internal/adapters/gingr"
	"tailtown/internal/adapters/observability"
	redisad "tailtown/internal/adapters/redis"
	"tailtown/internal/app"
	"tailtown/internal/shared"
	mysqlrepo "tailtown/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.GingrBase).
		Int("workers", cfg.Workers).
		Int("page_size", cfg.PageSize).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := gingr.New(cfg.GingrBase, cfg.GingrKey, cfg.GingrRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Gingr client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	booking := app.NewBookingService(repo, cache, cfg.TierOrder)
	sync := app.NewSyncService(client, repo, booking, cfg.Workers, cfg.PageSize)

	stats, err := sync.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("sync run failed")
	}

	log.Info().
		Int64("imported", stats.Imported).
		Int64("skipped", stats.Skipped).
		Int64("missed", stats.Missed).
		Int64("failed", stats.Failed).
		Msg("sync completed")
}
