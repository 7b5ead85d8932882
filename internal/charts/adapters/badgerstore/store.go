// Package badgerstore stores chart buckets in an embedded Badger database for
// single-node deployments.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
)

// Key layout, fields separated by 0x00:
//
//	b <chart> <span> <group> <start>   bucket value
//	g <chart> <span> <start> <group>   active-group index, empty value
//	w <chart> <tick> <group>           watermark period
//
// start is the big-endian unix second so keys sort chronologically.
const sep = 0x00

type Store struct {
	db *badger.DB
}

var _ ports.BucketStorePort = (*Store)(nil)

// Open opens (or creates) the store at dir. An empty dir keeps everything in
// memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type record struct {
	Counters map[string]int64    `json:"c"`
	Uniques  map[string][]string `json:"u"`
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, []byte{sep})
}

func unix(t time.Time) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t.Unix()))
	return b
}

func bucketPrefix(chart string, span domain.Span, group string) []byte {
	return append(join([]byte("b"), []byte(chart), []byte(span), []byte(group)), sep)
}

func bucketKey(k domain.BucketKey) []byte {
	return append(bucketPrefix(k.Chart, k.Span, k.Group), unix(k.Start)...)
}

func groupPrefix(chart string, span domain.Span) []byte {
	return append(join([]byte("g"), []byte(chart), []byte(span)), sep)
}

func groupKey(k domain.BucketKey) []byte {
	return join(append(groupPrefix(k.Chart, k.Span), unix(k.Start)...), []byte(k.Group))
}

func watermarkKey(chart string, tick domain.TickKind, group string) []byte {
	return join([]byte("w"), []byte(chart), []byte(tick), []byte(group))
}

func (s *Store) LoadBucket(_ context.Context, key domain.BucketKey) (*domain.Bucket, error) {
	var out *domain.Bucket
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bucketKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, err = decode(key, item)
		return err
	})
	return out, err
}

func (s *Store) LatestBucketBefore(_ context.Context, chart string, span domain.Span, group string, before time.Time) (*domain.Bucket, error) {
	prefix := bucketPrefix(chart, span, group)
	var out *domain.Bucket
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse Seek lands on the largest key <= the seek key.
		it.Seek(append(bytes.Clone(prefix), unix(before.Add(-time.Second))...))
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		start := startOf(it.Item().Key(), prefix)
		var err error
		out, err = decode(domain.BucketKey{Chart: chart, Span: span, Start: start, Group: group}, it.Item())
		return err
	})
	return out, err
}

func (s *Store) RangeBuckets(_ context.Context, chart string, span domain.Span, group string, from, to time.Time) ([]*domain.Bucket, error) {
	prefix := bucketPrefix(chart, span, group)
	var out []*domain.Bucket
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(bytes.Clone(prefix), unix(from)...)); it.ValidForPrefix(prefix); it.Next() {
			start := startOf(it.Item().Key(), prefix)
			if start.After(to) {
				break
			}
			b, err := decode(domain.BucketKey{Chart: chart, Span: span, Start: start, Group: group}, it.Item())
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	return out, err
}

func (s *Store) ActiveGroups(_ context.Context, chart string, span domain.Span, since time.Time) ([]string, error) {
	prefix := groupPrefix(chart, span)
	seen := map[string]bool{}
	var groups []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(bytes.Clone(prefix), unix(since)...)); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			g := string(key[len(prefix)+8+1:])
			if !seen[g] {
				seen[g] = true
				groups = append(groups, g)
			}
		}
		return nil
	})
	return groups, err
}

func (s *Store) LoadWatermark(_ context.Context, chart string, tick domain.TickKind, group string) (time.Time, error) {
	var period time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(watermarkKey(chart, tick, group))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			period = time.Unix(int64(binary.BigEndian.Uint64(v)), 0).UTC()
			return nil
		})
	})
	return period, err
}

func (s *Store) Save(_ context.Context, batch domain.Batch) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, b := range batch.Buckets {
			v, err := json.Marshal(record{Counters: b.Counters, Uniques: b.Uniques})
			if err != nil {
				return err
			}
			if err := txn.Set(bucketKey(b.Key), v); err != nil {
				return err
			}
			if err := txn.Set(groupKey(b.Key), nil); err != nil {
				return err
			}
		}

		wm := batch.Watermark
		if wm == nil {
			return nil
		}
		key := watermarkKey(wm.Chart, wm.Tick, wm.Group)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var current int64
			if err := item.Value(func(v []byte) error {
				current = int64(binary.BigEndian.Uint64(v))
				return nil
			}); err != nil {
				return err
			}
			if current >= wm.Period.Unix() {
				return nil
			}
		}
		return txn.Set(key, unix(wm.Period))
	})
}

func startOf(key, prefix []byte) time.Time {
	return time.Unix(int64(binary.BigEndian.Uint64(key[len(prefix):len(prefix)+8])), 0).UTC()
}

func decode(key domain.BucketKey, item *badger.Item) (*domain.Bucket, error) {
	b := domain.NewBucket(key)
	err := item.Value(func(v []byte) error {
		var rec record
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		for col, n := range rec.Counters {
			b.Counters[col] = n
		}
		for col, members := range rec.Uniques {
			b.Uniques[col] = members
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode bucket: %w", err)
	}
	return b, nil
}
