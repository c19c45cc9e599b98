package shadow

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ygina/subset-digest/pkg/accumulator"
)

// ShadowRunner runs an experimental accumulator (PowerSum, CBF, or
// IBLT) in parallel with the Naive accumulator's ground-truth subset
// enumeration over the same candidate log. "Production" here is the
// combinatorially exact but exponential Naive validator, and "shadow"
// is the cheap accumulator a real deployment would run instead.
// Divergence means the cheap accumulator's decode is wrong or
// undetermined where ground truth says valid — a correctness signal,
// not a drift metric to ignore.
type ShadowRunner struct {
	pool             *pgxpool.Pool
	runSnapshotID    int64
	groundTruth      accumulator.Accumulator
	experimental     accumulator.Accumulator
	experimentalKind string
	eval             *Evaluator
}

// ShadowResult captures the diff between the ground-truth Naive
// validation and the experimental accumulator's validation of the same
// candidate log.
type ShadowResult struct {
	ExperimentalKind    string    `json:"experimentalKind"`
	GroundTruthValid    bool      `json:"groundTruthValid"`
	ExperimentalValid   bool      `json:"experimentalValid"`
	ExperimentalOutcome string    `json:"experimentalOutcome"`
	Jaccard             float64   `json:"jaccard"`
	Divergent           bool      `json:"divergent"`
	SnapshotID          int64     `json:"snapshotId"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NewShadowRunner creates a runner comparing groundTruth (expected to
// be a *accumulator.NaiveAccumulator fed the same elements as
// experimental) against experimental, identified by kind for logging
// and persistence.
func NewShadowRunner(pool *pgxpool.Pool, runSnapshotID int64, groundTruth, experimental accumulator.Accumulator, experimentalKind string) *ShadowRunner {
	return &ShadowRunner{
		pool:             pool,
		runSnapshotID:    runSnapshotID,
		groundTruth:      groundTruth,
		experimental:     experimental,
		experimentalKind: experimentalKind,
		eval:             NewEvaluator(),
	}
}

// RunShadowValidation validates candidate against both accumulators and
// persists the comparison to the shadow_results table.
func (sr *ShadowRunner) RunShadowValidation(ctx context.Context, candidate [][]byte) (*ShadowResult, error) {
	gtOutcome, gtDropped := sr.groundTruth.Validate(candidate)
	expOutcome, expDropped := sr.experimental.Validate(candidate)

	sort.Ints(gtDropped)
	sort.Ints(expDropped)

	result := &ShadowResult{
		ExperimentalKind:    sr.experimentalKind,
		GroundTruthValid:    gtOutcome.IsValid(),
		ExperimentalValid:   expOutcome.IsValid(),
		ExperimentalOutcome: expOutcome.String(),
		Jaccard:             sr.eval.JaccardSimilarity(gtDropped, expDropped),
		SnapshotID:          sr.runSnapshotID,
		CreatedAt:           time.Now(),
	}
	result.Divergent = result.GroundTruthValid != result.ExperimentalValid || result.Jaccard < 1.0

	if result.Divergent {
		log.Printf("[Shadow] DIVERGENCE kind=%s ground_truth_valid=%v experimental_valid=%v experimental_outcome=%s jaccard=%.3f diff=%v",
			sr.experimentalKind, result.GroundTruthValid, result.ExperimentalValid,
			result.ExperimentalOutcome, result.Jaccard, sr.eval.SymmetricDifference(gtDropped, expDropped))
	}

	if sr.pool != nil {
		if err := sr.persistShadowResult(ctx, result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// persistShadowResult writes the shadow comparison to the database.
func (sr *ShadowRunner) persistShadowResult(ctx context.Context, result *ShadowResult) error {
	sql := `INSERT INTO shadow_results
		(experimental_kind, ground_truth_valid, experimental_valid, experimental_outcome,
		 jaccard, divergent, snapshot_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := sr.pool.Exec(ctx, sql,
		result.ExperimentalKind,
		result.GroundTruthValid,
		result.ExperimentalValid,
		result.ExperimentalOutcome,
		result.Jaccard,
		result.Divergent,
		result.SnapshotID,
		result.CreatedAt,
	)
	return err
}

// GenerateDriftReport counts the shadow results and divergences, and
// averages the Jaccard similarity, over all shadow results in the
// database for this runner's snapshot and experimental accumulator kind.
func (sr *ShadowRunner) GenerateDriftReport(ctx context.Context) (totalRuns int, divergences int, avgJaccard float64, err error) {
	sql := `SELECT
		COUNT(*) as total,
		COUNT(*) FILTER (WHERE divergent) as divergences,
		COALESCE(AVG(jaccard), 1) as avg_jaccard
	FROM shadow_results WHERE snapshot_id = $1 AND experimental_kind = $2`

	row := sr.pool.QueryRow(ctx, sql, sr.runSnapshotID, sr.experimentalKind)
	err = row.Scan(&totalRuns, &divergences, &avgJaccard)
	return
}
