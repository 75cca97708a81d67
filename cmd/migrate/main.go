package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tenqz/videosos/internal/infra"
)

// migrate applies the SQL files under the migrations directory in
// lexicographic order, recording applied files in schema_migrations so
// reruns are safe.
func main() {
	dir := flag.String("dir", "migrations", "directory containing .sql migration files")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW());`); err != nil {
		logger.Fatal().Err(err).Msg("create schema_migrations")
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("read migrations directory")
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name).Scan(&exists); err != nil {
			logger.Fatal().Err(err).Str("file", name).Msg("check migration state")
		}
		if exists {
			continue
		}
		sql, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			logger.Fatal().Err(err).Str("file", name).Msg("read migration")
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Fatal().Err(err).Str("file", name).Msg("apply migration")
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			logger.Fatal().Err(err).Str("file", name).Msg("record migration")
		}
		logger.Info().Str("file", name).Msg("applied migration")
		applied++
	}
	logger.Info().Int("applied", applied).Int("total", len(files)).Msg("migrations up to date")
}
