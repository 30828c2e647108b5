package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/dayplan/core/model"
	corestore "github.com/kilianp07/dayplan/core/store"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plans (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    date_key TEXT NOT NULL,
    wake_time TEXT NOT NULL,
    sleep_time TEXT NOT NULL,
    energy_state TEXT NOT NULL,
    status TEXT NOT NULL,
    generated_at TEXT NOT NULL,
    generated_after_now INTEGER NOT NULL,
    plan_start TEXT NOT NULL,
    UNIQUE(user_id, date_key)
);
CREATE TABLE IF NOT EXISTS time_blocks (
    id TEXT PRIMARY KEY,
    plan_id TEXT NOT NULL REFERENCES plans(id),
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    activity_type TEXT NOT NULL,
    name TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    fixed INTEGER NOT NULL,
    sequence_order INTEGER NOT NULL,
    status TEXT NOT NULL,
    skip_reason TEXT NOT NULL DEFAULT '',
    target_time TEXT NOT NULL DEFAULT '',
    placement_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS time_blocks_plan ON time_blocks(plan_id);
CREATE TABLE IF NOT EXISTS exit_times (
    plan_id TEXT NOT NULL REFERENCES plans(id),
    position INTEGER NOT NULL,
    commitment_id TEXT NOT NULL,
    exit_time TEXT NOT NULL,
    travel_minutes INTEGER NOT NULL,
    preparation_minutes INTEGER NOT NULL,
    travel_method TEXT NOT NULL,
    PRIMARY KEY(plan_id, position)
);`

const sqlitePlanColumns = `id, user_id, date_key, wake_time, sleep_time, energy_state, status, generated_at, generated_after_now, plan_start`

// SQLiteStore persists plans in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreatePlan(ctx context.Context, plan model.DailyPlan) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertPlanSQLite(ctx, tx, plan)
	})
}

// ReplacePlan deletes oldID and inserts plan in one transaction.
func (s *SQLiteStore) ReplacePlan(ctx context.Context, oldID string, plan model.DailyPlan) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := deletePlanSQLite(ctx, tx, oldID); err != nil {
			return err
		}
		return insertPlanSQLite(ctx, tx, plan)
	})
}

func insertPlanSQLite(ctx context.Context, tx *sql.Tx, plan model.DailyPlan) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans WHERE id = ? OR (user_id = ? AND date_key = ?)`,
		plan.ID, plan.UserID, plan.DateKey()).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s on %s", corestore.ErrPlanExists, plan.UserID, plan.DateKey())
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO plans (`+sqlitePlanColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.DateKey(), encTime(plan.WakeTime), encTime(plan.SleepTime),
		string(plan.EnergyState), string(plan.Status), encTime(plan.GeneratedAt), plan.GeneratedAfterNow,
		encTime(plan.PlanStart)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %v", corestore.ErrPlanExists, err)
		}
		return err
	}
	if err := upsertBlocksSQLite(ctx, tx, plan.ID, plan.Blocks); err != nil {
		return err
	}
	for i, e := range plan.ExitTimes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO exit_times (plan_id, position, commitment_id, exit_time, travel_minutes, preparation_minutes, travel_method)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, i, e.CommitmentID, encTime(e.ExitTime), e.TravelDurationMinutes, e.PreparationTimeMinutes, e.TravelMethod); err != nil {
			return err
		}
	}
	return nil
}

func upsertBlocksSQLite(ctx context.Context, tx *sql.Tx, planID string, blocks []model.TimeBlock) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO time_blocks
        (id, plan_id, start_time, end_time, activity_type, name, source_id, fixed, sequence_order, status, skip_reason, target_time, placement_reason)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            start_time = excluded.start_time,
            end_time = excluded.end_time,
            activity_type = excluded.activity_type,
            name = excluded.name,
            source_id = excluded.source_id,
            fixed = excluded.fixed,
            sequence_order = excluded.sequence_order,
            status = excluded.status,
            skip_reason = excluded.skip_reason,
            target_time = excluded.target_time,
            placement_reason = excluded.placement_reason`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, b := range blocks {
		target, reason := metadataColumns(b.Metadata)
		if _, err := stmt.ExecContext(ctx, b.ID, planID, encTime(b.StartTime), encTime(b.EndTime),
			string(b.ActivityType), b.Name, b.SourceID, b.Fixed, b.SequenceOrder, string(b.Status),
			b.SkipReason, encTime(target), reason); err != nil {
			return fmt.Errorf("save block %s: %w", b.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (model.DailyPlan, error) {
	plans, err := s.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return model.DailyPlan{}, err
	}
	if len(plans) == 0 {
		return model.DailyPlan{}, fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return plans[0], nil
}

func (s *SQLiteStore) FindPlan(ctx context.Context, userID string, date time.Time) (model.DailyPlan, error) {
	key := date.Format(model.DateLayout)
	plans, err := s.query(ctx, `WHERE user_id = ? AND date_key = ?`, userID, key)
	if err != nil {
		return model.DailyPlan{}, err
	}
	if len(plans) == 0 {
		return model.DailyPlan{}, fmt.Errorf("plan for %s on %s: %w", userID, key, corestore.ErrNotFound)
	}
	return plans[0], nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context, f corestore.Filter) ([]model.DailyPlan, error) {
	where := `WHERE 1=1`
	var args []any
	if f.UserID != "" {
		where += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if !f.Date.IsZero() {
		where += ` AND date_key = ?`
		args = append(args, f.Date.Format(model.DateLayout))
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	return s.query(ctx, where, args...)
}

// query loads the plans matching where with their blocks and exit times.
func (s *SQLiteStore) query(ctx context.Context, where string, args ...any) ([]model.DailyPlan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlitePlanColumns+` FROM plans `+where+` ORDER BY date_key, id`, args...)
	if err != nil {
		return nil, err
	}
	var (
		plans []model.DailyPlan
		ids   []any
	)
	for rows.Next() {
		var (
			p                                  model.DailyPlan
			key, wake, sleep, generated, start string
			energy, status                     string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &key, &wake, &sleep, &energy, &status, &generated,
			&p.GeneratedAfterNow, &start); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if err := decodePlanTimes(&p, key, wake, sleep, generated, start); err != nil {
			_ = rows.Close()
			return nil, err
		}
		p.EnergyState = model.EnergyState(energy)
		p.Status = model.PlanStatus(status)
		plans = append(plans, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()
	if len(plans) == 0 {
		return nil, nil
	}

	in := `(` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
	blocks, err := s.blocks(ctx, in, ids)
	if err != nil {
		return nil, err
	}
	exits, err := s.exits(ctx, in, ids)
	if err != nil {
		return nil, err
	}
	attach(plans, blocks, exits)
	return plans, nil
}

func decodePlanTimes(p *model.DailyPlan, key, wake, sleep, generated, start string) error {
	var err error
	if p.WakeTime, err = decTime(wake); err != nil {
		return err
	}
	if p.SleepTime, err = decTime(sleep); err != nil {
		return err
	}
	if p.GeneratedAt, err = decTime(generated); err != nil {
		return err
	}
	if p.PlanStart, err = decTime(start); err != nil {
		return err
	}
	p.Date, err = planDate(key, p.WakeTime)
	return err
}

func (s *SQLiteStore) blocks(ctx context.Context, in string, ids []any) (map[string][]model.TimeBlock, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, plan_id, start_time, end_time, activity_type, name, source_id,
        fixed, sequence_order, status, skip_reason, target_time, placement_reason
        FROM time_blocks WHERE plan_id IN `+in+` ORDER BY sequence_order`, ids...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string][]model.TimeBlock)
	for rows.Next() {
		var (
			b                   model.TimeBlock
			start, end, target  string
			typ, status, reason string
		)
		if err := rows.Scan(&b.ID, &b.PlanID, &start, &end, &typ, &b.Name, &b.SourceID,
			&b.Fixed, &b.SequenceOrder, &status, &b.SkipReason, &target, &reason); err != nil {
			return nil, err
		}
		if b.StartTime, err = decTime(start); err != nil {
			return nil, err
		}
		if b.EndTime, err = decTime(end); err != nil {
			return nil, err
		}
		tt, err := decTime(target)
		if err != nil {
			return nil, err
		}
		b.ActivityType = model.ActivityType(typ)
		b.Status = model.BlockStatus(status)
		b.Metadata = metadataFrom(tt, reason)
		out[b.PlanID] = append(out[b.PlanID], b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) exits(ctx context.Context, in string, ids []any) (map[string][]model.ExitTime, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT plan_id, commitment_id, exit_time, travel_minutes, preparation_minutes, travel_method
        FROM exit_times WHERE plan_id IN `+in+` ORDER BY plan_id, position`, ids...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make(map[string][]model.ExitTime)
	for rows.Next() {
		var (
			planID, at string
			e          model.ExitTime
		)
		if err := rows.Scan(&planID, &e.CommitmentID, &at, &e.TravelDurationMinutes, &e.PreparationTimeMinutes, &e.TravelMethod); err != nil {
			return nil, err
		}
		if e.ExitTime, err = decTime(at); err != nil {
			return nil, err
		}
		out[planID] = append(out[planID], e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := deletePlanSQLite(ctx, tx, id)
		if err != nil {
			return err
		}
		return requireRow(res, id)
	})
}

func deletePlanSQLite(ctx context.Context, tx *sql.Tx, id string) (sql.Result, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM time_blocks WHERE plan_id = ?`, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exit_times WHERE plan_id = ?`, id); err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
}

func (s *SQLiteStore) UpdatePlanStatus(ctx context.Context, id string, status model.PlanStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) SaveBlocks(ctx context.Context, planID string, blocks []model.TimeBlock) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePlan(ctx, tx, planID); err != nil {
			return err
		}
		return upsertBlocksSQLite(ctx, tx, planID, blocks)
	})
}

func (s *SQLiteStore) DeleteBlocks(ctx context.Context, planID string, ids []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePlan(ctx, tx, planID); err != nil {
			return err
		}
		return deleteBlocksSQLite(ctx, tx, planID, ids)
	})
}

// ApplyDegradation deletes, saves and updates the status in one transaction.
func (s *SQLiteStore) ApplyDegradation(ctx context.Context, planID string, deleted []string, blocks []model.TimeBlock) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requirePlan(ctx, tx, planID); err != nil {
			return err
		}
		if err := deleteBlocksSQLite(ctx, tx, planID, deleted); err != nil {
			return err
		}
		if err := upsertBlocksSQLite(ctx, tx, planID, blocks); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE plans SET status = ? WHERE id = ?`, string(model.PlanDegraded), planID)
		return err
	})
}

func deleteBlocksSQLite(ctx context.Context, tx *sql.Tx, planID string, ids []string) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM time_blocks WHERE plan_id = ? AND id = ?`, planID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) requirePlan(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM plans WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return err
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("plan %s: %w", id, corestore.ErrNotFound)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ corestore.PlanStore = (*SQLiteStore)(nil)
