// Package history keeps an append-only log of trace regenerations in a
// SQLite database, together with a compressed archive of the JSON each
// regeneration replaced. The log is an audit trail: losing it never affects
// trace generation or enforcement.
package history

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	run_id       TEXT    NOT NULL,
	trace_id     TEXT    NOT NULL,
	version      INTEGER NOT NULL,
	generated_at TEXT    NOT NULL,
	duration_ms  INTEGER NOT NULL,
	prior_digest TEXT,
	prior_json   BLOB,
	PRIMARY KEY (trace_id, version)
);
CREATE INDEX IF NOT EXISTS idx_generations_trace ON generations(trace_id);
`

// Entry is one recorded regeneration.
type Entry struct {
	RunID       string
	TraceID     string
	Version     int
	GeneratedAt string
	DurationMs  int64
	PriorDigest string
}

// Store wraps the history database.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database and codec resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// LogGeneration records one regeneration. prior is the canonical JSON the
// regeneration replaced; nil for a first generation.
func (s *Store) LogGeneration(runID, traceID string, version int, generatedAt string, durationMs int64, prior []byte) error {
	var digest string
	var archived []byte
	if len(prior) > 0 {
		sum := blake3.Sum256(prior)
		digest = hex.EncodeToString(sum[:])
		archived = s.enc.EncodeAll(prior, nil)
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO generations
			(run_id, trace_id, version, generated_at, duration_ms, prior_digest, prior_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, traceID, version, generatedAt, durationMs, digest, archived)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

// Entries returns the recorded regenerations for a trace, newest first.
func (s *Store) Entries(traceID string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT run_id, trace_id, version, generated_at, duration_ms, COALESCE(prior_digest, '')
		FROM generations WHERE trace_id = ? ORDER BY version DESC
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.TraceID, &e.Version, &e.GeneratedAt, &e.DurationMs, &e.PriorDigest); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PriorSnapshot returns the decompressed JSON a given regeneration replaced,
// or nil when none was archived.
func (s *Store) PriorSnapshot(traceID string, version int) ([]byte, error) {
	var archived []byte
	err := s.db.QueryRow(`
		SELECT prior_json FROM generations WHERE trace_id = ? AND version = ?
	`, traceID, version).Scan(&archived)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no history for %s version %d", traceID, version)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	if len(archived) == 0 {
		return nil, nil
	}

	prior, err := s.dec.DecodeAll(archived, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	return prior, nil
}
