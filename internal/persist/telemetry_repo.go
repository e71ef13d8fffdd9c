package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RunRow is one simulation run.
type RunRow struct {
	ID         uuid.UUID
	Name       string
	Seed       int64
	Concurrent bool
	Workers    int
	StartedAt  time.Time
	FinishedAt *time.Time
	Ticks      int64
	GraphHash  string
}

// TickSample is one telemetry row.
type TickSample struct {
	Tick        uint64
	Entities    int
	RedShips    int
	BlueShips   int
	Projectiles int
	Kills       int
	Tasks       int
	Edges       int
	MaxParallel int
	Duration    time.Duration
}

type TelemetryRepo struct {
	db *DB
}

func NewTelemetryRepo(db *DB) *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// StartRun inserts the run row.
func (r *TelemetryRepo) StartRun(ctx context.Context, run *RunRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO battle_runs (id, name, seed, concurrent, workers, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Name, run.Seed, run.Concurrent, run.Workers, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun stamps the final tick count and graph fingerprint.
func (r *TelemetryRepo) FinishRun(ctx context.Context, id uuid.UUID, ticks int64, graphHash string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE battle_runs SET finished_at = now(), ticks = $2, graph_hash = $3 WHERE id = $1`,
		id, ticks, graphHash,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// WriteSamples atomically writes a batch of samples in a single transaction.
func (r *TelemetryRepo) WriteSamples(ctx context.Context, runID uuid.UUID, samples []TickSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("samples begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range samples {
		batch.Queue(
			`INSERT INTO tick_samples (run_id, tick, entities, red_ships, blue_ships, projectiles,
			                           kills, tasks, edges, max_parallel, duration_us)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			runID, int64(s.Tick), s.Entities, s.RedShips, s.BlueShips, s.Projectiles,
			s.Kills, s.Tasks, s.Edges, s.MaxParallel, s.Duration.Microseconds(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("samples insert: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadRun reads a run row back, or nil if it does not exist.
func (r *TelemetryRepo) LoadRun(ctx context.Context, id uuid.UUID) (*RunRow, error) {
	row := &RunRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, seed, concurrent, workers, started_at, finished_at, ticks, graph_hash
		 FROM battle_runs WHERE id = $1`, id,
	).Scan(
		&row.ID, &row.Name, &row.Seed, &row.Concurrent, &row.Workers,
		&row.StartedAt, &row.FinishedAt, &row.Ticks, &row.GraphHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
