// Package main provides a read-only inspection tool for the Sproutling database.
//
// Usage:
//
//	DB_PATH=~/sproutling/db go run ./cmd/dbinspect
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// entityPrefixes maps display names to badger key prefixes.
var entityPrefixes = []struct {
	name   string
	prefix string
}{
	{"accounts", "account:"},
	{"children", "child:"},
	{"invitations", "invitation:"},
	{"sessions", "session:"},
	{"feedings", "feeding:"},
	{"sleep sessions", "sleep:"},
	{"diaper changes", "diaper:"},
	{"growth measurements", "growth:"},
	{"medication doses", "medication:"},
	{"food introductions", "food:"},
	{"recipes", "recipe:"},
	{"shopping items", "shopping:"},
	{"meal plans", "mealplan:"},
	{"nutrient goals", "goals:"},
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/sproutling/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	for _, ep := range entityPrefixes {
		records, indexes := countPrefix(db, ep.prefix)
		fmt.Printf("%-22s %6d records  %6d index keys\n", ep.name, records, indexes)
	}

	fmt.Println()
	printInvitationStatuses(db)
}

// countPrefix counts record and index keys under a prefix. Index keys are
// namespaced as <prefix>idx:.
func countPrefix(db *badger.DB, prefix string) (records, indexes int) {
	idxPrefix := prefix + "idx:"

	_ = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, idxPrefix) {
				indexes++
			} else {
				records++
			}
		}
		return nil
	})
	return records, indexes
}

func printInvitationStatuses(db *badger.DB) {
	statuses := map[string]int{}
	deleted := 0

	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("invitation:")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, "invitation:idx:") {
				continue
			}

			// Only status and tombstone matter here.
			var inv struct {
				Status    string  `json:"status"`
				DeletedAt *string `json:"deleted_at"`
			}
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &inv)
			})
			if err != nil {
				return err
			}
			if inv.DeletedAt != nil {
				deleted++
				continue
			}
			statuses[inv.Status]++
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to scan invitations: %v", err)
	}

	fmt.Println("Invitations by status:")
	for _, status := range []string{"pending", "accepted", "declined", "expired"} {
		fmt.Printf("  %-10s %d\n", status, statuses[status])
	}
	if deleted > 0 {
		fmt.Printf("  deleted    %d\n", deleted)
	}
}
