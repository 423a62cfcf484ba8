// Package main provides a CLI for importing legacy single-device exports.
//
// The watcher handles drop-directory imports automatically; this tool exists
// for one-off imports where the operator knows the file and the owner.
//
// Usage:
//
//	DB_PATH=~/sproutling/db go run ./cmd/import --file export.db --owner account_abc123
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/sproutlingapp/sproutling-server/internal/migrate"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

func main() {
	file := flag.String("file", "", "Path to the legacy SQLite export")
	owner := flag.String("owner", "", "Account ID that will own the imported records")
	flag.Parse()

	if *file == "" || *owner == "" {
		flag.Usage()
		os.Exit(2)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/sproutling/db")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := store.New(dbPath, logger, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	// The owner must exist; importing against a typo would strand records.
	ctx := context.Background()
	account, err := s.GetAccount(ctx, *owner)
	if err != nil {
		log.Fatalf("Owner account %q not found: %v", *owner, err)
	}

	importer := migrate.NewImporter(s, logger)
	result, err := importer.Import(ctx, *file, account.ID)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Import %s complete\n", result.BatchID)
	fmt.Printf("  children: %d\n", result.Children)
	for entityType, count := range result.Records {
		fmt.Printf("  %s: %d\n", entityType, count)
	}
	if result.Skipped > 0 {
		fmt.Printf("  skipped rows: %d\n", result.Skipped)
	}
}
