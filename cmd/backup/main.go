// Package main provides a CLI for database backup and restore.
//
// The server takes scheduled backups on its own; this tool exists for
// manual snapshots and for restoring onto a fresh data directory.
//
// Usage:
//
//	DB_PATH=~/sproutling/db go run ./cmd/backup create
//	DB_PATH=~/sproutling/db go run ./cmd/backup list
//	DB_PATH=~/sproutling/db go run ./cmd/backup restore backup-2026-01-02-150405.sproutling.gz
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sproutlingapp/sproutling-server/internal/backup"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

func main() {
	backupDir := flag.String("backup-dir", "", "Directory for backup files (default: <db parent>/backups)")
	keep := flag.Int("keep", 7, "Number of backup files to retain")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/sproutling/db")
	}
	dir := *backupDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(dbPath), "backups")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := store.New(dbPath, logger, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	svc := backup.NewService(s, dir, *keep, logger)
	ctx := context.Background()

	switch flag.Arg(0) {
	case "create":
		result, err := svc.Create(ctx)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		fmt.Printf("Backup written to %s (%d bytes, %s)\n", result.Path, result.Size, result.Duration)

	case "list":
		infos, err := svc.List()
		if err != nil {
			log.Fatalf("Listing backups failed: %v", err)
		}
		if len(infos) == 0 {
			fmt.Println("No backups found")
			return
		}
		for _, info := range infos {
			fmt.Printf("%s  %10d bytes  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"), info.Size, info.Path)
		}

	case "restore":
		if flag.NArg() < 2 {
			usage()
		}
		path := flag.Arg(1)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := svc.Restore(path); err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		fmt.Printf("Restored %s into %s\n", path, dbPath)

	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: backup [flags] create|list|restore <file>")
	flag.PrintDefaults()
	os.Exit(2)
}
