// Package main provides a tool to seed the database with demo care data.
//
// It creates a small demo family: two caregivers sharing a child profile,
// plus a few weeks of feedings, sleep, diapers, and food introductions to
// exercise the timeline, allergen, and search features.
//
// Usage:
//
//	DB_PATH=~/sproutling/db go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/auth"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

const seedPassword = "sproutling-demo"

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/sproutling/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	parent := createAccount(ctx, s, "demo.parent@example.com", "Demo Parent")
	grandma := createAccount(ctx, s, "demo.grandma@example.com", "Demo Grandma")

	child := createChild(ctx, s, parent.ID, "Mia", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	if _, err := s.AddCollaborator(ctx, child.ID, grandma.ID); err != nil {
		log.Fatalf("Failed to add collaborator: %v", err)
	}

	owners := []string{parent.ID, grandma.ID}
	counts := seedCareRecords(ctx, s, child.ID, owners)

	fmt.Println("Seed complete:")
	fmt.Printf("  accounts: 2 (password %q)\n", seedPassword)
	fmt.Printf("  children: 1 (%s)\n", child.Name)
	for kind, n := range counts {
		fmt.Printf("  %s: %d\n", kind, n)
	}
}

func createAccount(ctx context.Context, s *store.Store, email, name string) *domain.Account {
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	accountID, err := id.Generate("account")
	if err != nil {
		log.Fatalf("Failed to generate account ID: %v", err)
	}

	account := &domain.Account{
		Syncable: domain.Syncable{
			ID: accountID,
		},
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		LastLoginAt:  time.Now(),
	}
	account.InitTimestamps()

	if err := s.CreateAccount(ctx, account); err != nil {
		log.Fatalf("Failed to create account %s: %v", email, err)
	}
	fmt.Printf("Created account %s (%s)\n", email, accountID)
	return account
}

func createChild(ctx context.Context, s *store.Store, ownerID, name string, birthDate time.Time) *domain.ChildProfile {
	childID, err := id.Generate("child")
	if err != nil {
		log.Fatalf("Failed to generate child ID: %v", err)
	}

	child := domain.NewChildProfile(childID, ownerID, name, birthDate)
	if err := s.CreateChild(ctx, child); err != nil {
		log.Fatalf("Failed to create child: %v", err)
	}
	fmt.Printf("Created child %s (%s)\n", name, childID)
	return child
}

// seedCareRecords writes three weeks of plausible daily records, alternating
// the recording caregiver so shared timelines have mixed ownership.
func seedCareRecords(ctx context.Context, s *store.Store, childID string, owners []string) map[string]int {
	counts := map[string]int{}
	now := time.Now()

	for day := 21; day >= 1; day-- {
		date := now.AddDate(0, 0, -day)

		// Feedings every 3-4 hours.
		for hour := 6; hour <= 20; hour += 3 + rand.Intn(2) {
			owner := owners[rand.Intn(len(owners))]
			start := date.Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour)
			end := start.Add(20 * time.Minute)

			rec := &domain.FeedingLog{
				OwnerID:  owner,
				ChildID:  childID,
				Method:   domain.FeedingBottle,
				StartAt:  start,
				EndAt:    &end,
				AmountML: 90 + rand.Intn(90),
			}
			rec.ID = mustID("feeding_log")
			rec.InitTimestamps()
			mustCreate("feeding log", s.FeedingLogs.Create(ctx, rec.ID, rec))
			counts["feedings"]++
		}

		// One nap, one night sleep.
		for _, sleep := range []struct {
			startHour int
			length    time.Duration
			isNap     bool
		}{
			{13, 90 * time.Minute, true},
			{19, 10 * time.Hour, false},
		} {
			owner := owners[rand.Intn(len(owners))]
			start := date.Truncate(24 * time.Hour).Add(time.Duration(sleep.startHour) * time.Hour)
			end := start.Add(sleep.length)

			rec := &domain.SleepSession{
				OwnerID: owner,
				ChildID: childID,
				StartAt: start,
				EndAt:   &end,
				IsNap:   sleep.isNap,
			}
			rec.ID = mustID("sleep_session")
			rec.InitTimestamps()
			mustCreate("sleep session", s.SleepSessions.Create(ctx, rec.ID, rec))
			counts["sleep"]++
		}

		// A handful of diaper changes.
		kinds := []domain.DiaperKind{domain.DiaperWet, domain.DiaperDirty, domain.DiaperMixed}
		for i := 0; i < 4+rand.Intn(3); i++ {
			owner := owners[rand.Intn(len(owners))]
			rec := &domain.DiaperChange{
				OwnerID:   owner,
				ChildID:   childID,
				ChangedAt: date.Truncate(24 * time.Hour).Add(time.Duration(7+3*i) * time.Hour),
				Kind:      kinds[rand.Intn(len(kinds))],
			}
			rec.ID = mustID("diaper_change")
			rec.InitTimestamps()
			mustCreate("diaper change", s.DiaperChanges.Create(ctx, rec.ID, rec))
			counts["diapers"]++
		}
	}

	// Food introductions, including flagged allergens.
	foods := []struct {
		name       string
		reaction   domain.FoodReaction
		isAllergen bool
	}{
		{"oat cereal", domain.ReactionNone, false},
		{"banana", domain.ReactionNone, false},
		{"peanut butter", domain.ReactionMild, true},
		{"egg yolk", domain.ReactionNone, true},
		{"strawberry", domain.ReactionAllergic, false},
	}
	for i, food := range foods {
		rec := &domain.FoodIntroduction{
			OwnerID:      owners[0],
			ChildID:      childID,
			FoodName:     food.name,
			FirstTriedAt: now.AddDate(0, 0, -20+4*i),
			Reaction:     food.reaction,
			IsAllergen:   food.isAllergen,
		}
		rec.ID = mustID("food_introduction")
		rec.InitTimestamps()
		mustCreate("food introduction", s.FoodIntroductions.Create(ctx, rec.ID, rec))
		counts["foods"]++
	}

	return counts
}

func mustID(prefix string) string {
	recordID, err := id.Generate(prefix)
	if err != nil {
		log.Fatalf("Failed to generate record ID: %v", err)
	}
	return recordID
}

func mustCreate(kind string, err error) {
	if err != nil {
		log.Fatalf("Failed to create %s: %v", kind, err)
	}
}
