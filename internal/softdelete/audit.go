package softdelete

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/devsanjithm/accountd/internal/common/db"
)

// Record is one pending-purge audit entry. Duplicates for the same item are
// tolerated; the sweep deletes the row at most once anyway.
type Record struct {
	ItemID     string    `json:"item_id"`
	EntityType string    `json:"entity_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupByEntity buckets pending item ids by entity tag, deduplicating ids
// within a bucket. Bucket order is stable for deterministic sweeps.
func GroupByEntity(records []Record) map[string][]string {
	groups := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, rec := range records {
		if seen[rec.EntityType] == nil {
			seen[rec.EntityType] = make(map[string]bool)
		}
		if seen[rec.EntityType][rec.ItemID] {
			continue
		}
		seen[rec.EntityType][rec.ItemID] = true
		groups[rec.EntityType] = append(groups[rec.EntityType], rec.ItemID)
	}
	return groups
}

func sortedTags(groups map[string][]string) []string {
	tags := make([]string, 0, len(groups))
	for tag := range groups {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

type PgLedger struct {
	pool  *pgxpool.Pool
	clock interface{ Now() time.Time }
}

func NewPgLedger(pool *pgxpool.Pool, clock interface{ Now() time.Time }) *PgLedger {
	return &PgLedger{pool: pool, clock: clock}
}

func (l *PgLedger) Append(ctx context.Context, itemID, entityType string) error {
	start := time.Now()
	_, err := l.pool.Exec(
		ctx,
		`INSERT INTO audit_records (item_id, entity_type, created_at) VALUES ($1, $2, $3)`,
		itemID,
		entityType,
		l.clock.Now(),
	)
	return db.HandleExecError(err, "append audit record", start)
}

func (l *PgLedger) ListWindow(ctx context.Context, from, to time.Time) ([]Record, error) {
	start := time.Now()
	rows, err := l.pool.Query(
		ctx,
		`SELECT item_id, entity_type, created_at
		 FROM audit_records
		 WHERE created_at >= $1 AND created_at <= $2
		 ORDER BY created_at ASC`,
		from,
		to,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list audit records", start)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ItemID, &rec.EntityType, &rec.CreatedAt); err != nil {
			return nil, db.HandleQueryError(err, nil, "scan audit record", start)
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, db.HandleQueryError(rows.Err(), nil, "list audit records", start)
	}

	db.MeasureQueryDuration("list audit records", start)
	return records, nil
}
