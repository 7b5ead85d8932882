package ports

import (
	"context"
	"time"

	"chart-engine-service/internal/charts/core/domain"
)

type BucketReaderPort interface {
	// LoadBucket returns nil, nil when the bucket does not exist.
	LoadBucket(ctx context.Context, key domain.BucketKey) (*domain.Bucket, error)

	// LatestBucketBefore returns the newest bucket of (chart, span, group)
	// starting strictly before the given time, or nil.
	LatestBucketBefore(ctx context.Context, chart string, span domain.Span, group string, before time.Time) (*domain.Bucket, error)

	// RangeBuckets returns buckets with from <= start <= to, ordered by start.
	RangeBuckets(ctx context.Context, chart string, span domain.Span, group string, from, to time.Time) ([]*domain.Bucket, error)

	// ActiveGroups lists distinct groups with a bucket starting at or after since.
	ActiveGroups(ctx context.Context, chart string, span domain.Span, since time.Time) ([]string, error)
}

type WatermarkReaderPort interface {
	// LoadWatermark returns the zero time when no tick was applied yet.
	LoadWatermark(ctx context.Context, chart string, tick domain.TickKind, group string) (time.Time, error)
}

type BucketWriterPort interface {
	// Save upserts every bucket of the batch and advances its watermark
	// atomically.
	Save(ctx context.Context, batch domain.Batch) error
}

// BucketStorePort is the TimeBucketStore the engine runs on.
type BucketStorePort interface {
	BucketReaderPort
	WatermarkReaderPort
	BucketWriterPort
}
