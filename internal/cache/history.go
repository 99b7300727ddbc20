package cache

import (
	"database/sql"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryStore is a SQLite-backed store of per-label calibrated score
// history, used by the dynamic threshold supplement: a label configured
// with threshold_mode "dynamic" gates against the label's recent score
// distribution instead of a fixed threshold.
type HistoryStore struct {
	db           *sql.DB
	insertCount  atomic.Int64
	pruneMaxRows int
	pruneMaxDays int
}

const (
	defaultHistoryMaxRows    = 10000
	defaultHistoryMaxAgeDays = 30
)

// NewHistoryStore creates the label_score_history table and index if they
// don't exist, then returns a HistoryStore backed by the provided *sql.DB.
func NewHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS label_score_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			label_id   TEXT    NOT NULL,
			score      REAL    NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create label_score_history table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_label_score_history_id_ts
		ON label_score_history (label_id, created_at)
	`); err != nil {
		return nil, fmt.Errorf("create label_score_history index: %w", err)
	}

	return &HistoryStore{
		db:           db,
		pruneMaxRows: defaultHistoryMaxRows,
		pruneMaxDays: defaultHistoryMaxAgeDays,
	}, nil
}

// SetPruneConfig overrides the pruning parameters (maxRows and maxAgeDays).
// Call before the first Record to take effect.
func (h *HistoryStore) SetPruneConfig(maxRows, maxAgeDays int) {
	h.pruneMaxRows = maxRows
	h.pruneMaxDays = maxAgeDays
}

// Record inserts one calibrated score for labelID (its LabelID.String()
// form). Every 100th insert also runs Prune with the configured limits,
// synchronously, before Record returns.
func (h *HistoryStore) Record(labelID string, score float64) error {
	_, err := h.db.Exec(
		`INSERT INTO label_score_history (label_id, score, created_at) VALUES (?, ?, ?)`,
		labelID, score, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record label score history: %w", err)
	}

	n := h.insertCount.Add(1)
	if n%100 == 0 {
		_ = h.Prune(h.pruneMaxRows, h.pruneMaxDays)
	}

	return nil
}

// Prune removes stale and excess rows from label_score_history. It deletes
// rows older than maxAgeDays and, per label_id, keeps only the maxRows most
// recent rows.
func (h *HistoryStore) Prune(maxRows int, maxAgeDays int) error {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays).UnixNano()
	if _, err := h.db.Exec(
		`DELETE FROM label_score_history WHERE created_at < ?`,
		cutoff,
	); err != nil {
		return fmt.Errorf("prune by age: %w", err)
	}

	if _, err := h.db.Exec(
		`DELETE FROM label_score_history
		 WHERE id NOT IN (
		   SELECT id FROM label_score_history h2
		   WHERE h2.label_id = label_score_history.label_id
		   ORDER BY h2.created_at DESC
		   LIMIT ?
		 )`,
		maxRows,
	); err != nil {
		return fmt.Errorf("prune by row count: %w", err)
	}

	return nil
}

// QueryWindow returns the last windowSize scores for labelID, ordered by
// created_at DESC (most recent first).
func (h *HistoryStore) QueryWindow(labelID string, windowSize int) ([]float64, error) {
	rows, err := h.db.Query(
		`SELECT score FROM label_score_history
		 WHERE label_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		labelID, windowSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query window rows: %w", err)
	}
	return scores, nil
}

// Stats computes the mean, population standard deviation, and count of all
// recorded scores for labelID. Returns zero values when no rows exist. Uses
// the statistical identity stddev = sqrt(avg(x^2) - avg(x)^2) in a single
// query rather than a full table scan in Go.
func (h *HistoryStore) Stats(labelID string) (mean float64, stddev float64, count int, err error) {
	row := h.db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(score), 0.0), COALESCE(AVG(score * score), 0.0)
		 FROM label_score_history WHERE label_id = ?`,
		labelID,
	)
	var avgSq float64
	if err = row.Scan(&count, &mean, &avgSq); err != nil {
		return 0, 0, 0, fmt.Errorf("stats query: %w", err)
	}
	if count == 0 {
		return 0, 0, 0, nil
	}

	variance := avgSq - mean*mean
	if variance < 0 {
		variance = 0 // guard against floating-point rounding
	}
	stddev = math.Sqrt(variance)
	return mean, stddev, count, nil
}

// Close closes the underlying database handle.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
