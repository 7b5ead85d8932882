// Package memory provides in-process chart storage and locking for tests and
// single-node development.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

type bucketID struct {
	chart string
	span  domain.Span
	start int64
	group string
}

type watermarkID struct {
	chart string
	tick  domain.TickKind
	group string
}

// Store keeps buckets in a map. Buckets are copied on the way in and out so
// callers never share state with the store.
type Store struct {
	mu         sync.RWMutex
	buckets    map[bucketID]*domain.Bucket
	watermarks map[watermarkID]time.Time
}

var _ ports.BucketStorePort = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		buckets:    map[bucketID]*domain.Bucket{},
		watermarks: map[watermarkID]time.Time{},
	}
}

func idOf(k domain.BucketKey) bucketID {
	return bucketID{chart: k.Chart, span: k.Span, start: k.Start.Unix(), group: k.Group}
}

func (s *Store) LoadBucket(_ context.Context, key domain.BucketKey) (*domain.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[idOf(key)]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

func (s *Store) LatestBucketBefore(_ context.Context, chart string, span domain.Span, group string, before time.Time) (*domain.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Bucket
	for id, b := range s.buckets {
		if id.chart != chart || id.span != span || id.group != group || id.start >= before.Unix() {
			continue
		}
		if latest == nil || id.start > latest.Key.Start.Unix() {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Clone(), nil
}

func (s *Store) RangeBuckets(_ context.Context, chart string, span domain.Span, group string, from, to time.Time) ([]*domain.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Bucket
	for id, b := range s.buckets {
		if id.chart != chart || id.span != span || id.group != group {
			continue
		}
		if id.start < from.Unix() || id.start > to.Unix() {
			continue
		}
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Start.Before(out[j].Key.Start) })
	return out, nil
}

func (s *Store) ActiveGroups(_ context.Context, chart string, span domain.Span, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for id := range s.buckets {
		if id.chart == chart && id.span == span && id.start >= since.Unix() {
			seen[id.group] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (s *Store) LoadWatermark(_ context.Context, chart string, tick domain.TickKind, group string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermarks[watermarkID{chart: chart, tick: tick, group: group}], nil
}

func (s *Store) Save(_ context.Context, batch domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range batch.Buckets {
		s.buckets[idOf(b.Key)] = b.Clone()
	}
	if wm := batch.Watermark; wm != nil {
		s.watermarks[watermarkID{chart: wm.Chart, tick: wm.Tick, group: wm.Group}] = wm.Period.UTC()
	}
	return nil
}

// Put stores a bucket bypassing the engine. Tests use it to simulate drift.
func (s *Store) Put(b *domain.Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[idOf(b.Key)] = b.Clone()
}
