package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context) (Tx, error)
}

//go:embed schema.sql
var schemaSQL string

// BucketRepository stores every chart in one shared table keyed by chart name.
// Counters and unique sets are JSONB objects keyed by column name.
type BucketRepository struct {
	db DB
}

func NewBucketRepository(db DB) *BucketRepository {
	return &BucketRepository{db: db}
}

var _ ports.BucketStorePort = (*BucketRepository)(nil)

// EnsureSchema creates the chart tables when they are missing.
func (r *BucketRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create chart tables: %w", err)
	}
	return nil
}

const selectBucketSQL = `
SELECT bucket_start, counters, uniques
FROM chart_buckets
WHERE chart_name = $1 AND span = $2 AND group_key = $3 AND bucket_start = $4`

const selectLatestBucketSQL = `
SELECT bucket_start, counters, uniques
FROM chart_buckets
WHERE chart_name = $1 AND span = $2 AND group_key = $3 AND bucket_start < $4
ORDER BY bucket_start DESC
LIMIT 1`

const selectRangeSQL = `
SELECT bucket_start, counters, uniques
FROM chart_buckets
WHERE chart_name = $1 AND span = $2 AND group_key = $3 AND bucket_start BETWEEN $4 AND $5
ORDER BY bucket_start`

const selectActiveGroupsSQL = `
SELECT DISTINCT group_key
FROM chart_buckets
WHERE chart_name = $1 AND span = $2 AND bucket_start >= $3
ORDER BY group_key`

const selectWatermarkSQL = `
SELECT period_start
FROM chart_tick_watermarks
WHERE chart_name = $1 AND tick = $2 AND group_key = $3`

const upsertBucketSQL = `
INSERT INTO chart_buckets (
    chart_name,
    span,
    bucket_start,
    group_key,
    counters,
    uniques
) VALUES (
    $1, $2, $3, $4, $5, $6
)
ON CONFLICT (chart_name, span, bucket_start, group_key) DO UPDATE SET
    counters   = EXCLUDED.counters,
    uniques    = EXCLUDED.uniques,
    updated_at = now();
`

const upsertWatermarkSQL = `
INSERT INTO chart_tick_watermarks (
    chart_name,
    tick,
    group_key,
    period_start
) VALUES (
    $1, $2, $3, $4
)
ON CONFLICT (chart_name, tick, group_key) DO UPDATE SET
    period_start = EXCLUDED.period_start
WHERE chart_tick_watermarks.period_start < EXCLUDED.period_start;
`

func (r *BucketRepository) LoadBucket(ctx context.Context, key domain.BucketKey) (*domain.Bucket, error) {
	buckets, err := r.queryBuckets(ctx, key.Chart, key.Span, key.Group, selectBucketSQL,
		key.Chart, string(key.Span), key.Group, key.Start.UTC())
	if err != nil || len(buckets) == 0 {
		return nil, err
	}
	return buckets[0], nil
}

func (r *BucketRepository) LatestBucketBefore(ctx context.Context, chart string, span domain.Span, group string, before time.Time) (*domain.Bucket, error) {
	buckets, err := r.queryBuckets(ctx, chart, span, group, selectLatestBucketSQL,
		chart, string(span), group, before.UTC())
	if err != nil || len(buckets) == 0 {
		return nil, err
	}
	return buckets[0], nil
}

func (r *BucketRepository) RangeBuckets(ctx context.Context, chart string, span domain.Span, group string, from, to time.Time) ([]*domain.Bucket, error) {
	return r.queryBuckets(ctx, chart, span, group, selectRangeSQL,
		chart, string(span), group, from.UTC(), to.UTC())
}

func (r *BucketRepository) ActiveGroups(ctx context.Context, chart string, span domain.Span, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, selectActiveGroupsSQL, chart, string(span), since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *BucketRepository) LoadWatermark(ctx context.Context, chart string, tick domain.TickKind, group string) (time.Time, error) {
	rows, err := r.db.QueryContext(ctx, selectWatermarkSQL, chart, string(tick), group)
	if err != nil {
		return time.Time{}, err
	}
	defer rows.Close()

	var period time.Time
	if rows.Next() {
		if err := rows.Scan(&period); err != nil {
			return time.Time{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, err
	}
	return period.UTC(), nil
}

func (r *BucketRepository) Save(ctx context.Context, batch domain.Batch) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := writeBatch(ctx, tx, batch); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

func writeBatch(ctx context.Context, tx Tx, batch domain.Batch) error {
	for _, b := range batch.Buckets {
		counters, err := json.Marshal(b.Counters)
		if err != nil {
			return err
		}
		uniques, err := json.Marshal(b.Uniques)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, upsertBucketSQL,
			b.Key.Chart,
			string(b.Key.Span),
			b.Key.Start.UTC(),
			b.Key.Group,
			counters,
			uniques,
		); err != nil {
			return err
		}
	}

	if wm := batch.Watermark; wm != nil {
		if _, err := tx.ExecContext(ctx, upsertWatermarkSQL,
			wm.Chart,
			string(wm.Tick),
			wm.Group,
			wm.Period.UTC(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *BucketRepository) queryBuckets(
	ctx context.Context,
	chart string,
	span domain.Span,
	group string,
	query string,
	args ...any,
) ([]*domain.Bucket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []*domain.Bucket
	for rows.Next() {
		var (
			start             time.Time
			counters, uniques []byte
		)
		if err := rows.Scan(&start, &counters, &uniques); err != nil {
			return nil, err
		}

		b := domain.NewBucket(domain.BucketKey{Chart: chart, Span: span, Start: start, Group: group})
		if err := json.Unmarshal(counters, &b.Counters); err != nil {
			return nil, fmt.Errorf("decode counters: %w", err)
		}
		if err := json.Unmarshal(uniques, &b.Uniques); err != nil {
			return nil, fmt.Errorf("decode uniques: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}
