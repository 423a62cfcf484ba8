// Package migrate imports data from the legacy single-device app.
// Early releases kept everything in a local SQLite file with no notion of
// accounts or sharing; an import maps that file into canonical records
// owned by one caregiver.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/id"
	"github.com/sproutlingapp/sproutling-server/internal/store"
)

// legacyTime is the timestamp format the legacy app wrote.
const legacyTime = "2006-01-02 15:04:05"

// Result summarizes one import run.
type Result struct {
	BatchID  string         `json:"batch_id"`
	Children int            `json:"children"`
	Records  map[string]int `json:"records"`
	Skipped  int            `json:"skipped"`
}

// Importer reads a legacy database and writes canonical records.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// NewImporter creates a legacy database importer.
func NewImporter(st *store.Store, logger *slog.Logger) *Importer {
	return &Importer{store: st, logger: logger}
}

// Import reads the SQLite file at path and creates records owned by
// ownerID. Rows that cannot be parsed are skipped and counted, never
// fatal: a partially corrupt export should still recover what it can.
func (m *Importer) Import(ctx context.Context, path, ownerID string) (*Result, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("read legacy database: %w", err)
	}

	result := &Result{
		BatchID: uuid.NewString(),
		Records: make(map[string]int),
	}

	m.logger.Info("Legacy import started",
		"batch_id", result.BatchID,
		"path", path,
		"owner_id", ownerID,
	)

	// Legacy child rowid -> new child ID. Every record table references
	// children by rowid.
	childIDs, err := m.importChildren(ctx, db, ownerID, result)
	if err != nil {
		return nil, err
	}

	importers := []struct {
		table string
		fn    func(context.Context, *sql.DB, string, map[int64]string, *Result) error
	}{
		{"feedings", m.importFeedings},
		{"sleeps", m.importSleeps},
		{"diapers", m.importDiapers},
		{"growth", m.importGrowth},
		{"medications", m.importMedications},
		{"foods", m.importFoods},
	}

	for _, imp := range importers {
		if err := imp.fn(ctx, db, ownerID, childIDs, result); err != nil {
			// Older exports are missing newer tables entirely.
			if isMissingTable(err) {
				m.logger.Debug("Legacy table absent, skipping", "table", imp.table)
				continue
			}
			return nil, fmt.Errorf("import %s: %w", imp.table, err)
		}
	}

	m.logger.Info("Legacy import finished",
		"batch_id", result.BatchID,
		"children", result.Children,
		"skipped", result.Skipped,
	)

	return result, nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func parseLegacyTime(s string) (time.Time, error) {
	if t, err := time.Parse(legacyTime, s); err == nil {
		return t, nil
	}
	// Some exports carry RFC 3339 timestamps instead.
	return time.Parse(time.RFC3339, s)
}

func (m *Importer) importChildren(ctx context.Context, db *sql.DB, ownerID string, result *Result) (map[int64]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT rowid, name, birth_date FROM children`)
	if err != nil {
		if isMissingTable(err) {
			return nil, errors.New("legacy database has no children table")
		}
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer rows.Close()

	childIDs := make(map[int64]string)
	for rows.Next() {
		var (
			rowid     int64
			name      string
			birthDate string
		)
		if err := rows.Scan(&rowid, &name, &birthDate); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}

		born, err := parseLegacyTime(birthDate)
		if err != nil {
			m.logger.Warn("Skipping child with unparseable birth date",
				"name", name,
				"birth_date", birthDate,
			)
			result.Skipped++
			continue
		}

		childID, err := id.Generate("child")
		if err != nil {
			return nil, fmt.Errorf("generate child ID: %w", err)
		}
		child := domain.NewChildProfile(childID, ownerID, name, born)
		if err := m.store.CreateChild(ctx, child); err != nil {
			return nil, fmt.Errorf("create child: %w", err)
		}

		childIDs[rowid] = childID
		result.Children++
	}
	return childIDs, rows.Err()
}

func (m *Importer) importFeedings(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, method, start_at, end_at, amount_ml, side, food_name, notes FROM feedings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild int64
			method      string
			startAt     string
			endAt       sql.NullString
			amountML    sql.NullInt64
			side        sql.NullString
			foodName    sql.NullString
			notes       sql.NullString
		)
		if err := rows.Scan(&legacyChild, &method, &startAt, &endAt, &amountML, &side, &foodName, &notes); err != nil {
			return fmt.Errorf("scan feeding: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		start, err := parseLegacyTime(startAt)
		if err != nil {
			result.Skipped++
			continue
		}

		rec := &domain.FeedingLog{
			OwnerID:  ownerID,
			ChildID:  childID,
			Method:   domain.FeedingMethod(method),
			StartAt:  start,
			AmountML: int(amountML.Int64),
			Side:     side.String,
			FoodName: foodName.String,
			Notes:    notes.String,
		}
		if endAt.Valid {
			if end, err := parseLegacyTime(endAt.String); err == nil {
				rec.EndAt = &end
			}
		}

		if err := importRecord(ctx, m.store.FeedingLogs, "feeding", "feeding_log", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *Importer) importSleeps(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, start_at, end_at, is_nap, notes FROM sleeps`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild int64
			startAt     string
			endAt       sql.NullString
			isNap       bool
			notes       sql.NullString
		)
		if err := rows.Scan(&legacyChild, &startAt, &endAt, &isNap, &notes); err != nil {
			return fmt.Errorf("scan sleep: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		start, err := parseLegacyTime(startAt)
		if err != nil {
			result.Skipped++
			continue
		}

		rec := &domain.SleepSession{
			OwnerID: ownerID,
			ChildID: childID,
			StartAt: start,
			IsNap:   isNap,
			Notes:   notes.String,
		}
		if endAt.Valid {
			if end, err := parseLegacyTime(endAt.String); err == nil {
				rec.EndAt = &end
			}
		}

		if err := importRecord(ctx, m.store.SleepSessions, "sleep", "sleep_session", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *Importer) importDiapers(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, changed_at, kind, notes FROM diapers`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild int64
			changedAt   string
			kind        string
			notes       sql.NullString
		)
		if err := rows.Scan(&legacyChild, &changedAt, &kind, &notes); err != nil {
			return fmt.Errorf("scan diaper: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		changed, err := parseLegacyTime(changedAt)
		if err != nil {
			result.Skipped++
			continue
		}

		rec := &domain.DiaperChange{
			OwnerID:   ownerID,
			ChildID:   childID,
			ChangedAt: changed,
			Kind:      domain.DiaperKind(kind),
			Notes:     notes.String,
		}

		if err := importRecord(ctx, m.store.DiaperChanges, "diaper", "diaper_change", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *Importer) importGrowth(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, measured_at, weight_kg, height_cm, head_cm, notes FROM growth`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild int64
			measuredAt  string
			weightKg    sql.NullFloat64
			heightCm    sql.NullFloat64
			headCm      sql.NullFloat64
			notes       sql.NullString
		)
		if err := rows.Scan(&legacyChild, &measuredAt, &weightKg, &heightCm, &headCm, &notes); err != nil {
			return fmt.Errorf("scan growth: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		measured, err := parseLegacyTime(measuredAt)
		if err != nil {
			result.Skipped++
			continue
		}

		rec := &domain.GrowthMeasurement{
			OwnerID:    ownerID,
			ChildID:    childID,
			MeasuredAt: measured,
			WeightKg:   weightKg.Float64,
			HeightCm:   heightCm.Float64,
			HeadCm:     headCm.Float64,
			Notes:      notes.String,
		}

		if err := importRecord(ctx, m.store.GrowthMeasurements, "growth", "growth_measurement", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *Importer) importMedications(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, medication, dose, given_at, notes FROM medications`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild int64
			medication  string
			dose        string
			givenAt     string
			notes       sql.NullString
		)
		if err := rows.Scan(&legacyChild, &medication, &dose, &givenAt, &notes); err != nil {
			return fmt.Errorf("scan medication: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		given, err := parseLegacyTime(givenAt)
		if err != nil {
			result.Skipped++
			continue
		}

		rec := &domain.MedicationDose{
			OwnerID:    ownerID,
			ChildID:    childID,
			Medication: medication,
			Dose:       dose,
			GivenAt:    given,
			Notes:      notes.String,
		}

		if err := importRecord(ctx, m.store.MedicationDoses, "medication", "medication_dose", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *Importer) importFoods(ctx context.Context, db *sql.DB, ownerID string, childIDs map[int64]string, result *Result) error {
	rows, err := db.QueryContext(ctx, `SELECT child_id, food_name, first_tried_at, reaction, is_allergen, notes FROM foods`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			legacyChild  int64
			foodName     string
			firstTriedAt string
			reaction     sql.NullString
			isAllergen   bool
			notes        sql.NullString
		)
		if err := rows.Scan(&legacyChild, &foodName, &firstTriedAt, &reaction, &isAllergen, &notes); err != nil {
			return fmt.Errorf("scan food: %w", err)
		}

		childID, ok := childIDs[legacyChild]
		if !ok {
			result.Skipped++
			continue
		}
		tried, err := parseLegacyTime(firstTriedAt)
		if err != nil {
			result.Skipped++
			continue
		}

		foodReaction := domain.ReactionNone
		if reaction.Valid && reaction.String != "" {
			foodReaction = domain.FoodReaction(reaction.String)
		}

		rec := &domain.FoodIntroduction{
			OwnerID:      ownerID,
			ChildID:      childID,
			FoodName:     foodName,
			FirstTriedAt: tried,
			Reaction:     foodReaction,
			IsAllergen:   isAllergen,
			Notes:        notes.String,
		}

		if err := importRecord(ctx, m.store.FoodIntroductions, "food", "food_introduction", rec, result); err != nil {
			return err
		}
	}
	return rows.Err()
}

// syncedRecord is the sync metadata surface imported records share.
type syncedRecord[T any] interface {
	*T
	SetID(string)
	InitTimestamps()
}

func importRecord[T any, P syncedRecord[T]](ctx context.Context, entity *store.Entity[T], idPrefix, entityType string, rec P, result *Result) error {
	recordID, err := id.Generate(idPrefix)
	if err != nil {
		return fmt.Errorf("generate %s ID: %w", entityType, err)
	}
	rec.SetID(recordID)
	rec.InitTimestamps()

	if err := entity.Create(ctx, recordID, (*T)(rec)); err != nil {
		return fmt.Errorf("create %s: %w", entityType, err)
	}
	result.Records[entityType]++
	return nil
}
