// Package store persists the verifier's validation run history —
// which accumulator kind ran, against how large a candidate log, what
// outcome it produced, and which indices it named as dropped.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ValidationRun records one verifier Validate() call for persistence
// and later inspection over the API.
type ValidationRun struct {
	ID              uuid.UUID `json:"id"`
	RouterSession   string    `json:"routerSession"`
	AccumulatorKind string    `json:"accumulatorKind"`
	CandidateSize   int       `json:"candidateSize"`
	ProcessedTotal  uint64    `json:"processedTotal"`
	Outcome         string    `json:"outcome"`
	IsValid         bool      `json:"isValid"`
	IsUndetermined  bool      `json:"isUndetermined"`
	DroppedIndices  []int     `json:"droppedIndices"`
	DurationMs      int64     `json:"durationMs"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PostgresStore wraps a pgx connection pool scoped to validation-run
// history.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for validation-run history")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Validation run history schema initialized")
	return nil
}

// SaveValidationRun persists one validation outcome.
func (s *PostgresStore) SaveValidationRun(ctx context.Context, run ValidationRun) error {
	dropped, err := json.Marshal(run.DroppedIndices)
	if err != nil {
		return fmt.Errorf("failed to marshal dropped indices: %v", err)
	}

	sql := `
		INSERT INTO validation_runs
		(id, router_session, accumulator_kind, candidate_size, processed_total,
		 outcome, is_valid, is_undetermined, dropped_indices, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.pool.Exec(ctx, sql,
		run.ID, run.RouterSession, run.AccumulatorKind, run.CandidateSize, run.ProcessedTotal,
		run.Outcome, run.IsValid, run.IsUndetermined, dropped, run.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert validation_runs: %v", err)
	}
	return nil
}

// GetValidationRuns returns a page of validation runs, newest first.
func (s *PostgresStore) GetValidationRuns(ctx context.Context, page, limit int) ([]ValidationRun, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM validation_runs`).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, router_session, accumulator_kind, candidate_size, processed_total,
		       outcome, is_valid, is_undetermined, dropped_indices, duration_ms, created_at
		FROM validation_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []ValidationRun
	for rows.Next() {
		var r ValidationRun
		var droppedRaw []byte
		if err := rows.Scan(&r.ID, &r.RouterSession, &r.AccumulatorKind, &r.CandidateSize,
			&r.ProcessedTotal, &r.Outcome, &r.IsValid, &r.IsUndetermined, &droppedRaw,
			&r.DurationMs, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(droppedRaw, &r.DroppedIndices); err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	if runs == nil {
		runs = []ValidationRun{}
	}
	return runs, totalCount, nil
}

// GetPool exposes the connection pool for the shadow runner and other
// subsystems that need direct pgx access.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
