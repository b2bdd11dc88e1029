// Command migrate applies the SQL files under migrations/ in order, tracking
// applied versions and their checksums in schema_migrations. Safe to run on
// every deploy; an advisory lock keeps concurrent deploys from racing.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"service-workorder/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// one lock key per application; prevents two migrators running at once
const migrationLockKey = 424053

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockKey).Scan(&locked); err != nil {
		log.Fatalf("advisory lock: %v", err)
	}
	if !locked {
		log.Fatal("another migrator is already running")
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		log.Fatalf("create schema_migrations: %v", err)
	}

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	files, err := discoverMigrations(dir)
	if err != nil {
		log.Fatalf("discover migrations: %v", err)
	}
	for _, filename := range files {
		if err := apply(ctx, pool, dir, filename); err != nil {
			log.Fatalf("apply %s: %v", filename, err)
		}
	}
	log.Printf("migrations up to date (%d file(s))", len(files))
}

// discoverMigrations lists the NNN_description.sql files in order, rejecting
// duplicate version prefixes.
func discoverMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := migrationVersion(entry.Name())
		if err != nil {
			return nil, err
		}
		if other, ok := seen[version]; ok {
			return nil, fmt.Errorf("version %s used by both %s and %s", version, other, entry.Name())
		}
		seen[version] = entry.Name()
		files = append(files, entry.Name())
	}

	sort.Strings(files)
	return files, nil
}

func migrationVersion(filename string) (string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("migration %s does not match NNN_description.sql", filename)
	}
	return parts[0], nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, dir, filename string) error {
	version, err := migrationVersion(filename)
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	sum := sha256.Sum256(contents)
	checksum := hex.EncodeToString(sum[:])

	var applied string
	err = pool.QueryRow(ctx,
		"SELECT checksum FROM schema_migrations WHERE version = $1", version,
	).Scan(&applied)
	switch {
	case err == nil:
		if applied != checksum {
			return fmt.Errorf("already applied with a different checksum; migrations must not be edited after applying")
		}
		log.Printf("skip %s (already applied)", filename)
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// not applied yet
	default:
		return fmt.Errorf("query schema_migrations: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(contents)); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	log.Printf("applied %s", filename)
	return nil
}
