package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// lruFlushInterval is how often deferred LRU writes are flushed to SQLite.
	lruFlushInterval = 5 * time.Second
	// lruFlushThreshold triggers a flush when the pending map reaches this size.
	lruFlushThreshold = 64
)

// lruKey is the composite key for deferred LRU writes.
type lruKey struct {
	contentHash string
	labelID     string
}

// ScoreCache is an LRU-evicting SQLite-backed cache of raw per-label Scorer
// confidences, keyed by (content hash of the input text, label id). A CPU-
// bound local model repeatedly scoring repeated or near-duplicate utterances
// (e.g. replayed fixtures, retried batches) skips inference entirely on a
// cache hit.
type ScoreCache struct {
	db    *sql.DB
	maxMB int

	pendingLRU sync.Map // map[lruKey]int64 (UnixNano)
	pendingLen atomic.Int64
	stopFlush  chan struct{}
	flushDone  chan struct{}
}

// CacheStats reports current usage of the score cache.
type CacheStats struct {
	Entries    int
	TotalBytes int64
}

// NewScoreCache opens (or creates) a score cache at dbPath. maxMB sets the
// maximum size in megabytes before LRU eviction triggers.
func NewScoreCache(dbPath string, maxMB int) (*ScoreCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scores (
			content_hash TEXT    NOT NULL,
			label_id     TEXT    NOT NULL,
			raw_score    REAL    NOT NULL,
			created_at   INTEGER NOT NULL,
			accessed_at  INTEGER NOT NULL,
			PRIMARY KEY (content_hash, label_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_scores_accessed ON scores(accessed_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	c := &ScoreCache{
		db:        db,
		maxMB:     maxMB,
		stopFlush: make(chan struct{}),
		flushDone: make(chan struct{}),
	}

	go c.flushLoop()

	return c, nil
}

// flushLoop periodically writes buffered accessed_at updates to SQLite.
func (c *ScoreCache) flushLoop() {
	defer close(c.flushDone)
	ticker := time.NewTicker(lruFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.FlushLRU()
		case <-c.stopFlush:
			c.FlushLRU()
			return
		}
	}
}

// FlushLRU writes all pending accessed_at updates to SQLite in a single transaction.
func (c *ScoreCache) FlushLRU() {
	if c.pendingLen.Load() == 0 {
		return
	}

	type entry struct {
		key lruKey
		ts  int64
	}
	var entries []entry
	c.pendingLRU.Range(func(k, v any) bool {
		entries = append(entries, entry{key: k.(lruKey), ts: v.(int64)})
		c.pendingLRU.Delete(k)
		return true
	})
	c.pendingLen.Store(0)

	if len(entries) == 0 {
		return
	}

	tx, err := c.db.Begin()
	if err != nil {
		return
	}

	stmt, err := tx.Prepare(`UPDATE scores SET accessed_at = ? WHERE content_hash = ? AND label_id = ?`)
	if err != nil {
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, e := range entries {
		_, _ = stmt.Exec(e.ts, e.key.contentHash, e.key.labelID)
	}

	_ = tx.Commit()
}

// ContentHash returns the SHA-256 hex digest of the given text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a cached raw score for the given content hash and label id.
// Returns (0, false, nil) on cache miss.
func (c *ScoreCache) Get(contentHash, labelID string) (float64, bool, error) {
	row := c.db.QueryRow(
		`SELECT raw_score FROM scores WHERE content_hash = ? AND label_id = ?`,
		contentHash, labelID,
	)

	var raw float64
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get score: %w", err)
	}

	key := lruKey{contentHash: contentHash, labelID: labelID}
	c.pendingLRU.Store(key, time.Now().UnixNano())
	n := c.pendingLen.Add(1)
	if n >= lruFlushThreshold {
		go c.FlushLRU()
	}

	return raw, true, nil
}

// Put stores a raw score for the given content hash and label id, then
// evicts if over the size limit.
func (c *ScoreCache) Put(contentHash, labelID string, raw float64) error {
	now := time.Now().UnixNano()

	_, err := c.db.Exec(
		`INSERT INTO scores(content_hash, label_id, raw_score, created_at, accessed_at)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(content_hash, label_id) DO UPDATE SET raw_score=excluded.raw_score, accessed_at=excluded.accessed_at`,
		contentHash, labelID, raw, now, now,
	)
	if err != nil {
		return fmt.Errorf("put score: %w", err)
	}

	return c.evictIfNeeded()
}

// Evict removes the least-recently-used entries until the cache is under maxMB.
func (c *ScoreCache) Evict() error {
	return c.evictIfNeeded()
}

// Stats returns current cache statistics. TotalBytes is an estimate (8 bytes
// per stored float64 row).
func (c *ScoreCache) Stats() (*CacheStats, error) {
	row := c.db.QueryRow(`SELECT COUNT(*) FROM scores`)
	var stats CacheStats
	if err := row.Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	stats.TotalBytes = int64(stats.Entries) * 8
	return &stats, nil
}

// Clear removes all cached entries.
func (c *ScoreCache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM scores`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close flushes pending LRU writes, stops the background flush loop, and
// releases the database connection.
func (c *ScoreCache) Close() error {
	close(c.stopFlush)
	<-c.flushDone
	return c.db.Close()
}

func (c *ScoreCache) evictIfNeeded() error {
	c.FlushLRU()

	maxBytes := int64(c.maxMB) * 1024 * 1024

	row := c.db.QueryRow(`SELECT COUNT(*) FROM scores`)
	var totalCount int64
	if err := row.Scan(&totalCount); err != nil {
		return fmt.Errorf("evict size check: %w", err)
	}
	totalBytes := totalCount * 8

	if totalBytes <= maxBytes || totalCount == 0 {
		return nil
	}

	excess := totalBytes - maxBytes
	deleteCount := excess / 8
	if deleteCount < 1 {
		deleteCount = 1
	}
	deleteCount = deleteCount + deleteCount/10
	if deleteCount > totalCount {
		deleteCount = totalCount
	}

	_, err := c.db.Exec(
		`DELETE FROM scores WHERE rowid IN (SELECT rowid FROM scores ORDER BY accessed_at ASC LIMIT ?)`,
		deleteCount,
	)
	if err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}

	return nil
}
