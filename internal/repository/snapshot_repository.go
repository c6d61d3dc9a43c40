package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/blaybrigidi/4Salvage/internal/models"
)

// SnapshotRepository is the durable store for last-observed grade snapshots.
// The monitor loads the whole map at the start of a cycle and saves it back
// at the end; partially processed cycles are never committed.
type SnapshotRepository interface {
	LoadAll(ctx context.Context) (map[string]*models.GradeSnapshot, error)
	SaveAll(ctx context.Context, snapshots map[string]*models.GradeSnapshot) error
	Get(ctx context.Context, cacheKey string) (*models.GradeSnapshot, error)
	Ping(ctx context.Context) error
}

type snapshotRepository struct {
	*PostgresRepository
}

func NewSnapshotRepository(db *sql.DB, logger zerolog.Logger) SnapshotRepository {
	return &snapshotRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *snapshotRepository) LoadAll(ctx context.Context) (map[string]*models.GradeSnapshot, error) {
	query := `
		SELECT cache_key, course_id, assignment_id, score, workflow_state, submission, checked_at
		FROM grade_snapshots
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load grade snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make(map[string]*models.GradeSnapshot)
	for rows.Next() {
		var snap models.GradeSnapshot
		var score sql.NullFloat64

		if err := rows.Scan(
			&snap.CacheKey,
			&snap.CourseID,
			&snap.AssignmentID,
			&score,
			&snap.WorkflowState,
			&snap.Submission,
			&snap.CheckedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grade snapshot: %w", err)
		}
		if score.Valid {
			v := score.Float64
			snap.Score = &v
		}
		snapshots[snap.CacheKey] = &snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grade snapshots: %w", err)
	}

	r.logger.Debug().Int("count", len(snapshots)).Msg("Loaded grade snapshots")
	return snapshots, nil
}

func (r *snapshotRepository) SaveAll(ctx context.Context, snapshots map[string]*models.GradeSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO grade_snapshots (
			cache_key, course_id, assignment_id, score, workflow_state, submission, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cache_key) DO UPDATE SET
			score          = EXCLUDED.score,
			workflow_state = EXCLUDED.workflow_state,
			submission     = EXCLUDED.submission,
			checked_at     = EXCLUDED.checked_at
	`

	for _, snap := range snapshots {
		var score sql.NullFloat64
		if snap.Score != nil {
			score = sql.NullFloat64{Float64: *snap.Score, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, query,
			snap.CacheKey,
			snap.CourseID,
			snap.AssignmentID,
			score,
			snap.WorkflowState,
			[]byte(snap.Submission),
			snap.CheckedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert snapshot %s: %w", snap.CacheKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}

	r.logger.Debug().Int("count", len(snapshots)).Msg("Saved grade snapshots")
	return nil
}

func (r *snapshotRepository) Get(ctx context.Context, cacheKey string) (*models.GradeSnapshot, error) {
	query := `
		SELECT cache_key, course_id, assignment_id, score, workflow_state, submission, checked_at
		FROM grade_snapshots
		WHERE cache_key = $1
	`

	var snap models.GradeSnapshot
	var score sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, cacheKey).Scan(
		&snap.CacheKey,
		&snap.CourseID,
		&snap.AssignmentID,
		&score,
		&snap.WorkflowState,
		&snap.Submission,
		&snap.CheckedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", cacheKey, err)
	}
	if score.Valid {
		v := score.Float64
		snap.Score = &v
	}
	return &snap, nil
}
