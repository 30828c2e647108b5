package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/dayplan/core/model"
	corestore "github.com/kilianp07/dayplan/core/store"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    date_key TEXT NOT NULL,
    wake_time TIMESTAMPTZ NOT NULL,
    sleep_time TIMESTAMPTZ NOT NULL,
    energy_state TEXT NOT NULL,
    status TEXT NOT NULL,
    generated_at TIMESTAMPTZ NOT NULL,
    generated_after_now BOOLEAN NOT NULL,
    plan_start TIMESTAMPTZ NOT NULL,
    UNIQUE (user_id, date_key)
);
CREATE TABLE IF NOT EXISTS time_blocks (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    activity_type TEXT NOT NULL,
    name TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    fixed BOOLEAN NOT NULL,
    sequence_order INTEGER NOT NULL,
    status TEXT NOT NULL,
    skip_reason TEXT NOT NULL DEFAULT '',
    target_time TIMESTAMPTZ,
    placement_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS time_blocks_plan ON time_blocks(plan_id);
CREATE TABLE IF NOT EXISTS exit_times (
    plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    commitment_id TEXT NOT NULL,
    exit_time TIMESTAMPTZ NOT NULL,
    travel_minutes INTEGER NOT NULL,
    preparation_minutes INTEGER NOT NULL,
    travel_method TEXT NOT NULL,
    PRIMARY KEY (plan_id, position)
);`

const pgPlanColumns = `id, user_id, date_key, wake_time, sleep_time, energy_state, status, generated_at, generated_after_now, plan_start`

const pgUniqueViolation = "23505"

// PostgresStore persists plans in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := NewPostgresStoreFromPool(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool. Migrate must have run.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

func (s *PostgresStore) CreatePlan(ctx context.Context, plan model.DailyPlan) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return insertPlanPG(ctx, tx, plan)
	})
}

// ReplacePlan deletes oldID and inserts plan in one transaction.
func (s *PostgresStore) ReplacePlan(ctx context.Context, oldID string, plan model.DailyPlan) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM plans WHERE id = $1`, oldID); err != nil {
			return err
		}
		return insertPlanPG(ctx, tx, plan)
	})
}

func insertPlanPG(ctx context.Context, tx pgx.Tx, plan model.DailyPlan) error {
	_, err := tx.Exec(ctx, `INSERT INTO plans (`+pgPlanColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		plan.ID, plan.UserID, plan.DateKey(), plan.WakeTime, plan.SleepTime, string(plan.EnergyState),
		string(plan.Status), plan.GeneratedAt, plan.GeneratedAfterNow, plan.PlanStart)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s on %s", corestore.ErrPlanExists, plan.UserID, plan.DateKey())
		}
		return err
	}
	if err := upsertBlocksPG(ctx, tx, plan.ID, plan.Blocks); err != nil {
		return err
	}
	for i, e := range plan.ExitTimes {
		if _, err := tx.Exec(ctx, `INSERT INTO exit_times (plan_id, position, commitment_id, exit_time, travel_minutes, preparation_minutes, travel_method)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			plan.ID, i, e.CommitmentID, e.ExitTime, e.TravelDurationMinutes, e.PreparationTimeMinutes, e.TravelMethod); err != nil {
			return err
		}
	}
	return nil
}

func upsertBlocksPG(ctx context.Context, tx pgx.Tx, planID string, blocks []model.TimeBlock) error {
	batch := &pgx.Batch{}
	for _, b := range blocks {
		target, reason := metadataColumns(b.Metadata)
		var targetArg *time.Time
		if !target.IsZero() {
			targetArg = &target
		}
		batch.Queue(`INSERT INTO time_blocks
            (id, plan_id, start_time, end_time, activity_type, name, source_id, fixed, sequence_order, status, skip_reason, target_time, placement_reason)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
            ON CONFLICT (id) DO UPDATE SET
                start_time = EXCLUDED.start_time,
                end_time = EXCLUDED.end_time,
                activity_type = EXCLUDED.activity_type,
                name = EXCLUDED.name,
                source_id = EXCLUDED.source_id,
                fixed = EXCLUDED.fixed,
                sequence_order = EXCLUDED.sequence_order,
                status = EXCLUDED.status,
                skip_reason = EXCLUDED.skip_reason,
                target_time = EXCLUDED.target_time,
                placement_reason = EXCLUDED.placement_reason`,
			b.ID, planID, b.StartTime, b.EndTime, string(b.ActivityType), b.Name, b.SourceID, b.Fixed,
			b.SequenceOrder, string(b.Status), b.SkipReason, targetArg, reason)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (model.DailyPlan, error) {
	plans, err := s.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return model.DailyPlan{}, err
	}
	if len(plans) == 0 {
		return model.DailyPlan{}, fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return plans[0], nil
}

func (s *PostgresStore) FindPlan(ctx context.Context, userID string, date time.Time) (model.DailyPlan, error) {
	key := date.Format(model.DateLayout)
	plans, err := s.query(ctx, `WHERE user_id = $1 AND date_key = $2`, userID, key)
	if err != nil {
		return model.DailyPlan{}, err
	}
	if len(plans) == 0 {
		return model.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, key, corestore.ErrNotFound)
	}
	return plans[0], nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, f corestore.Filter) ([]model.DailyPlan, error) {
	where := `WHERE 1=1`
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	if !f.Date.IsZero() {
		args = append(args, f.Date.Format(model.DateLayout))
		where += fmt.Sprintf(` AND date_key = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	return s.query(ctx, where, args...)
}

func (s *PostgresStore) query(ctx context.Context, where string, args ...any) ([]model.DailyPlan, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgPlanColumns+` FROM plans `+where+` ORDER BY date_key, id`, args...)
	if err != nil {
		return nil, err
	}
	var (
		plans []model.DailyPlan
		ids   []string
	)
	for rows.Next() {
		var (
			p              model.DailyPlan
			key            string
			energy, status string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &key, &p.WakeTime, &p.SleepTime, &energy, &status,
			&p.GeneratedAt, &p.GeneratedAfterNow, &p.PlanStart); err != nil {
			rows.Close()
			return nil, err
		}
		p.EnergyState = model.EnergyState(energy)
		p.Status = model.PlanStatus(status)
		if p.Date, err = planDate(key, p.WakeTime); err != nil {
			rows.Close()
			return nil, err
		}
		plans = append(plans, p)
		ids = append(ids, p.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}

	blocks, err := s.blocks(ctx, ids)
	if err != nil {
		return nil, err
	}
	exits, err := s.exits(ctx, ids)
	if err != nil {
		return nil, err
	}
	attach(plans, blocks, exits)
	return plans, nil
}

func (s *PostgresStore) blocks(ctx context.Context, ids []string) (map[string][]model.TimeBlock, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, plan_id, start_time, end_time, activity_type, name, source_id,
        fixed, sequence_order, status, skip_reason, target_time, placement_reason
        FROM time_blocks WHERE plan_id = ANY($1) ORDER BY sequence_order`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]model.TimeBlock)
	for rows.Next() {
		var (
			b                   model.TimeBlock
			typ, status, reason string
			target              *time.Time
		)
		if err := rows.Scan(&b.ID, &b.PlanID, &b.StartTime, &b.EndTime, &typ, &b.Name, &b.SourceID,
			&b.Fixed, &b.SequenceOrder, &status, &b.SkipReason, &target, &reason); err != nil {
			return nil, err
		}
		b.ActivityType = model.ActivityType(typ)
		b.Status = model.BlockStatus(status)
		var tt time.Time
		if target != nil {
			tt = *target
		}
		b.Metadata = metadataFrom(tt, reason)
		out[b.PlanID] = append(out[b.PlanID], b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) exits(ctx context.Context, ids []string) (map[string][]model.ExitTime, error) {
	rows, err := s.pool.Query(ctx, `SELECT plan_id, commitment_id, exit_time, travel_minutes, preparation_minutes, travel_method
        FROM exit_times WHERE plan_id = ANY($1) ORDER BY plan_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]model.ExitTime)
	for rows.Next() {
		var (
			planID string
			e      model.ExitTime
		)
		if err := rows.Scan(&planID, &e.CommitmentID, &e.ExitTime, &e.TravelDurationMinutes, &e.PreparationTimeMinutes, &e.TravelMethod); err != nil {
			return nil, err
		}
		out[planID] = append(out[planID], e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdatePlanStatus(ctx context.Context, id string, status model.PlanStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE plans SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SaveBlocks(ctx context.Context, planID string, blocks []model.TimeBlock) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requirePlanPG(ctx, tx, planID); err != nil {
			return err
		}
		return upsertBlocksPG(ctx, tx, planID, blocks)
	})
}

func (s *PostgresStore) DeleteBlocks(ctx context.Context, planID string, ids []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requirePlanPG(ctx, tx, planID); err != nil {
			return err
		}
		return deleteBlocksPG(ctx, tx, planID, ids)
	})
}

// ApplyDegradation deletes, saves and updates the status in one transaction.
func (s *PostgresStore) ApplyDegradation(ctx context.Context, planID string, deleted []string, blocks []model.TimeBlock) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requirePlanPG(ctx, tx, planID); err != nil {
			return err
		}
		if err := deleteBlocksPG(ctx, tx, planID, deleted); err != nil {
			return err
		}
		if err := upsertBlocksPG(ctx, tx, planID, blocks); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE plans SET status = $1 WHERE id = $2`, string(model.PlanDegraded), planID)
		return err
	})
}

func deleteBlocksPG(ctx context.Context, tx pgx.Tx, planID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `DELETE FROM time_blocks WHERE plan_id = $1 AND id = ANY($2)`, planID, ids)
	return err
}

func requirePlanPG(ctx context.Context, tx pgx.Tx, id string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM plans WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return err
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ corestore.PlanStore = (*PostgresStore)(nil)
