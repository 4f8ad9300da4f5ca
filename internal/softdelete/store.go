package softdelete

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/devsanjithm/accountd/internal/common/clock"
	"github.com/devsanjithm/accountd/internal/common/db"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

var (
	ErrNoActiveRow   = errors.New("no active row matched")
	ErrNoInactiveRow = errors.New("no soft-deleted row matched")
)

// Store intercepts the delete path for every registered entity: rows are
// marked inactive and audited for purge instead of being removed. The mark
// and the audit append commit in one transaction.
type Store struct {
	pool  *pgxpool.Pool
	reg   *Registry
	clock clock.Clock
	log   *logger.Logger
}

func NewStore(pool *pgxpool.Pool, reg *Registry, clk clock.Clock, log *logger.Logger) *Store {
	return &Store{pool: pool, reg: reg, clock: clk, log: log}
}

func (s *Store) Registry() *Registry {
	return s.reg
}

// SoftDelete marks one active row inactive and appends its audit record.
func (s *Store) SoftDelete(ctx context.Context, tag, id string) error {
	e, err := s.reg.Lookup(tag)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return db.HandleExecError(err, "begin soft delete", start)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(
		ctx,
		fmt.Sprintf(
			`UPDATE %s SET is_active = FALSE, deleted_at = $2 WHERE %s = $1 AND is_active = TRUE`,
			e.Table, e.IDColumn,
		),
		id,
		now,
	)
	if err != nil {
		return db.HandleExecError(err, "soft delete "+tag, start)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoActiveRow
	}

	_, err = tx.Exec(
		ctx,
		`INSERT INTO audit_records (item_id, entity_type, created_at) VALUES ($1, $2, $3)`,
		id,
		tag,
		now,
	)
	if err != nil {
		return db.HandleExecError(err, "append audit record", start)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.HandleExecError(err, "commit soft delete", start)
	}

	db.MeasureQueryDuration("soft delete "+tag, start)
	metrics.SoftDeletesTotal.WithLabelValues(tag).Inc()

	s.log.WithFields(ctx, logger.Fields{
		"entity":  tag,
		"item_id": id,
		"action":  "soft_delete",
	}).Info("row marked inactive")

	return nil
}

// SoftDeleteMany marks every still-active row in ids inactive and appends
// one audit record per affected row. Returns the number of rows marked.
func (s *Store) SoftDeleteMany(ctx context.Context, tag string, ids []string) (int64, error) {
	e, err := s.reg.Lookup(tag)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := s.clock.Now()
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, db.HandleExecError(err, "begin bulk soft delete", start)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(
		ctx,
		fmt.Sprintf(
			`UPDATE %s SET is_active = FALSE, deleted_at = $2
			 WHERE %s = ANY($1::uuid[]) AND is_active = TRUE
			 RETURNING %s`,
			e.Table, e.IDColumn, e.IDColumn,
		),
		ids,
		now,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "bulk soft delete "+tag, start)
	}

	var affected []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, db.HandleExecError(err, "scan bulk soft delete "+tag, start)
		}
		affected = append(affected, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return 0, db.HandleExecError(rows.Err(), "bulk soft delete "+tag, start)
	}

	for _, id := range affected {
		_, err = tx.Exec(
			ctx,
			`INSERT INTO audit_records (item_id, entity_type, created_at) VALUES ($1, $2, $3)`,
			id,
			tag,
			now,
		)
		if err != nil {
			return 0, db.HandleExecError(err, "append audit record", start)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, db.HandleExecError(err, "commit bulk soft delete", start)
	}

	db.MeasureQueryDuration("bulk soft delete "+tag, start)
	metrics.SoftDeletesTotal.WithLabelValues(tag).Add(float64(len(affected)))

	return int64(len(affected)), nil
}

// Restore reactivates a soft-deleted row and withdraws its pending audit
// entries so the next sweep cannot purge it.
func (s *Store) Restore(ctx context.Context, tag, id string) error {
	e, err := s.reg.Lookup(tag)
	if err != nil {
		return err
	}

	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return db.HandleExecError(err, "begin restore", start)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(
		ctx,
		fmt.Sprintf(
			`UPDATE %s SET is_active = TRUE, deleted_at = NULL WHERE %s = $1 AND is_active = FALSE`,
			e.Table, e.IDColumn,
		),
		id,
	)
	if err != nil {
		return db.HandleExecError(err, "restore "+tag, start)
	}
	if ct.RowsAffected() == 0 {
		return ErrNoInactiveRow
	}

	_, err = tx.Exec(
		ctx,
		`DELETE FROM audit_records WHERE item_id = $1 AND entity_type = $2`,
		id,
		tag,
	)
	if err != nil {
		return db.HandleExecError(err, "withdraw audit record", start)
	}

	if err := tx.Commit(ctx); err != nil {
		return db.HandleExecError(err, "commit restore", start)
	}

	db.MeasureQueryDuration("restore "+tag, start)
	metrics.RestoresTotal.WithLabelValues(tag).Inc()

	s.log.WithFields(ctx, logger.Fields{
		"entity":  tag,
		"item_id": id,
		"action":  "restore",
	}).Info("row restored")

	return nil
}

// Sweep physically deletes every row whose audit entry is at or before
// cutoff, grouped by entity type, and consumes those entries. Everything
// commits in one transaction or not at all; an unregistered entity tag in
// the ledger aborts the sweep before any delete runs.
func (s *Store) Sweep(ctx context.Context, cutoff time.Time) (SweepResult, error) {
	start := time.Now()

	rows, err := s.pool.Query(
		ctx,
		`SELECT item_id, entity_type, created_at FROM audit_records WHERE created_at <= $1`,
		cutoff,
	)
	if err != nil {
		return SweepResult{}, db.HandleQueryError(err, nil, "list sweepable audit records", start)
	}

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ItemID, &rec.EntityType, &rec.CreatedAt); err != nil {
			rows.Close()
			return SweepResult{}, db.HandleQueryError(err, nil, "scan sweepable audit record", start)
		}
		records = append(records, rec)
	}
	rows.Close()
	if rows.Err() != nil {
		return SweepResult{}, db.HandleQueryError(rows.Err(), nil, "list sweepable audit records", start)
	}

	metrics.AuditRecordsPending.Set(float64(len(records)))

	if len(records) == 0 {
		return SweepResult{}, nil
	}

	groups := GroupByEntity(records)

	entities := make(map[string]Entity, len(groups))
	for tag := range groups {
		e, err := s.reg.Lookup(tag)
		if err != nil {
			return SweepResult{}, err
		}
		entities[tag] = e
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return SweepResult{}, db.HandleExecError(err, "begin purge sweep", start)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var res SweepResult
	for _, tag := range sortedTags(groups) {
		e := entities[tag]
		ct, err := tx.Exec(
			ctx,
			fmt.Sprintf(
				`DELETE FROM %s WHERE %s = ANY($1::uuid[]) AND is_active = FALSE`,
				e.Table, e.IDColumn,
			),
			groups[tag],
		)
		if err != nil {
			return SweepResult{}, db.HandleExecError(err, "purge "+tag, start)
		}
		res.RowsDeleted += ct.RowsAffected()
		res.Groups++
	}

	ct, err := tx.Exec(ctx, `DELETE FROM audit_records WHERE created_at <= $1`, cutoff)
	if err != nil {
		return SweepResult{}, db.HandleExecError(err, "consume audit records", start)
	}
	res.EntriesConsumed = ct.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return SweepResult{}, db.HandleExecError(err, "commit purge sweep", start)
	}

	db.MeasureQueryDuration("purge sweep", start)
	return res, nil
}

// Reconcile re-appends audit entries for inactive rows that lost theirs, so
// a crash between older two-step implementations cannot strand rows outside
// the purge path. Returns the number of entries appended.
func (s *Store) Reconcile(ctx context.Context, tag string) (int64, error) {
	e, err := s.reg.Lookup(tag)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	ct, err := s.pool.Exec(
		ctx,
		fmt.Sprintf(
			`INSERT INTO audit_records (item_id, entity_type, created_at)
			 SELECT t.%s, $1, $2 FROM %s t
			 WHERE t.is_active = FALSE
			   AND NOT EXISTS (
			 	SELECT 1 FROM audit_records a
			 	WHERE a.item_id = t.%s AND a.entity_type = $1
			   )`,
			e.IDColumn, e.Table, e.IDColumn,
		),
		tag,
		s.clock.Now(),
	)
	if err != nil {
		return 0, db.HandleExecError(err, "reconcile audit records", start)
	}

	db.MeasureQueryDuration("reconcile audit records", start)
	return ct.RowsAffected(), nil
}
