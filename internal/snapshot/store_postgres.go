package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"commwatch/internal/domain"
	"commwatch/pkg/platform/sentinel"
)

// PostgresStore persists snapshots, evidence, and absence markers in
// PostgreSQL. Communities travel as JSON since the core never queries inside
// a snapshot; the evidence log is row-per-candidate so it can be filtered by
// method when tuning thresholds.
//
// Expected schema:
//
//	CREATE TABLE snapshots (
//	    id         BIGSERIAL PRIMARY KEY,
//	    subject_id TEXT        NOT NULL,
//	    taken_at   TIMESTAMPTZ NOT NULL,
//	    communities JSONB      NOT NULL,
//	    stats      JSONB       NOT NULL DEFAULT '{}'
//	);
//	CREATE TABLE evidence_log (
//	    id             UUID PRIMARY KEY,
//	    subject_id     TEXT        NOT NULL,
//	    method         TEXT        NOT NULL,
//	    raw_fragment   TEXT        NOT NULL,
//	    extracted_id   TEXT,
//	    extracted_name TEXT,
//	    confidence     DOUBLE PRECISION NOT NULL,
//	    role_hint      TEXT        NOT NULL,
//	    recorded_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE absence_markers (
//	    subject_id      TEXT NOT NULL,
//	    community_id    TEXT NOT NULL,
//	    community       JSONB NOT NULL,
//	    misses          INT NOT NULL,
//	    first_missed_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (subject_id, community_id)
//	);
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithClock sets the time source for evidence timestamps, for testability.
func WithClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *PostgresStore) Latest(ctx context.Context, subjectID string) (*domain.Snapshot, error) {
	var (
		takenAt  time.Time
		raw      []byte
		rawStats []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT taken_at, communities, stats
		FROM snapshots
		WHERE subject_id = $1
		ORDER BY taken_at DESC, id DESC
		LIMIT 1
	`, subjectID).Scan(&takenAt, &raw, &rawStats)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	var communities []domain.Community
	if err := json.Unmarshal(raw, &communities); err != nil {
		return nil, fmt.Errorf("decode snapshot communities: %w", err)
	}
	var stats domain.RunStats
	if len(rawStats) > 0 {
		if err := json.Unmarshal(rawStats, &stats); err != nil {
			return nil, fmt.Errorf("decode snapshot stats: %w", err)
		}
	}
	return &domain.Snapshot{
		SubjectID:   subjectID,
		TakenAt:     takenAt,
		Communities: communities,
		Stats:       stats,
	}, nil
}

func (s *PostgresStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is required")
	}
	raw, err := json.Marshal(snap.Communities)
	if err != nil {
		return fmt.Errorf("encode snapshot communities: %w", err)
	}
	rawStats, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("encode snapshot stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (subject_id, taken_at, communities, stats)
		VALUES ($1, $2, $3, $4)
	`, snap.SubjectID, snap.TakenAt, raw, rawStats)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendEvidence(ctx context.Context, subjectID string, candidates []domain.DetectionCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin evidence tx: %w", err)
	}
	defer tx.Rollback()

	now := s.clock()
	for _, cand := range candidates {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_log
				(id, subject_id, method, raw_fragment, extracted_id, extracted_name, confidence, role_hint, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New(), subjectID, string(cand.Method), cand.RawFragment,
			nullString(cand.ExtractedID), nullString(cand.ExtractedName),
			cand.Confidence, string(cand.RoleHint), now)
		if err != nil {
			return fmt.Errorf("append evidence: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit evidence tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Absences(ctx context.Context, subjectID string) (map[string]domain.Absence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT community_id, community, misses, first_missed_at
		FROM absence_markers
		WHERE subject_id = $1
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load absence markers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Absence)
	for rows.Next() {
		var (
			communityID string
			raw         []byte
			marker      domain.Absence
		)
		if err := rows.Scan(&communityID, &raw, &marker.Misses, &marker.FirstMissedAt); err != nil {
			return nil, fmt.Errorf("scan absence marker: %w", err)
		}
		if err := json.Unmarshal(raw, &marker.Community); err != nil {
			return nil, fmt.Errorf("decode absence community: %w", err)
		}
		out[communityID] = marker
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate absence markers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) PutAbsences(ctx context.Context, subjectID string, absences map[string]domain.Absence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin absence tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM absence_markers WHERE subject_id = $1`, subjectID); err != nil {
		return fmt.Errorf("clear absence markers: %w", err)
	}
	for communityID, marker := range absences {
		raw, err := json.Marshal(marker.Community)
		if err != nil {
			return fmt.Errorf("encode absence community: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO absence_markers (subject_id, community_id, community, misses, first_missed_at)
			VALUES ($1, $2, $3, $4, $5)
		`, subjectID, communityID, raw, marker.Misses, marker.FirstMissedAt)
		if err != nil {
			return fmt.Errorf("put absence marker: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit absence tx: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
