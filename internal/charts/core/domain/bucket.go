package domain

import (
	"maps"
	"slices"
	"time"
)

// BucketKey addresses exactly one stored bucket. Group is empty for the
// implicit root group of ungrouped charts.
type BucketKey struct {
	Chart string
	Span  Span
	Start time.Time
	Group string
}

// Bucket holds one period's aggregated values for a chart group.
// Uniques members are kept sorted and distinct.
type Bucket struct {
	Key      BucketKey
	Counters map[string]int64
	Uniques  map[string][]string
}

func NewBucket(key BucketKey) *Bucket {
	key.Start = key.Start.UTC()
	return &Bucket{
		Key:      key,
		Counters: map[string]int64{},
		Uniques:  map[string][]string{},
	}
}

// Apply adds counter deltas and unions unique members.
func (b *Bucket) Apply(ch *Changes) {
	if ch == nil {
		return
	}
	for col, d := range ch.Counters {
		b.Counters[col] += d
	}
	for col, members := range ch.Members {
		b.AddMembers(col, members...)
	}
}

// Overwrite replaces the given counters.
func (b *Bucket) Overwrite(values map[string]int64) {
	for col, v := range values {
		b.Counters[col] = v
	}
}

// AddMembers unions members into col and returns how many were new.
func (b *Bucket) AddMembers(col string, members ...string) int {
	set := b.Uniques[col]
	added := 0
	for _, m := range members {
		i, found := slices.BinarySearch(set, m)
		if found {
			continue
		}
		set = slices.Insert(set, i, m)
		added++
	}
	if set != nil {
		b.Uniques[col] = set
	}
	return added
}

func (b *Bucket) Cardinality(col string) int64 {
	return int64(len(b.Uniques[col]))
}

// Value reads a column as the series reports it: the counter value or the set
// cardinality.
func (b *Bucket) Value(c ColumnSpec) int64 {
	if b == nil {
		return 0
	}
	if c.Kind == UniqueSet {
		return b.Cardinality(c.Name)
	}
	return b.Counters[c.Name]
}

func (b *Bucket) Clone() *Bucket {
	out := NewBucket(b.Key)
	maps.Copy(out.Counters, b.Counters)
	for col, members := range b.Uniques {
		out.Uniques[col] = slices.Clone(members)
	}
	return out
}

// SameValues reports whether b and o read the same for every column. Absent
// counters count as zero.
func (b *Bucket) SameValues(o *Bucket) bool {
	for _, pair := range [][2]*Bucket{{b, o}, {o, b}} {
		for col, v := range pair[0].Counters {
			if pair[1].Counters[col] != v {
				return false
			}
		}
		for col, members := range pair[0].Uniques {
			if !slices.Equal(members, pair[1].Uniques[col]) {
				return false
			}
		}
	}
	return true
}

// Seed copies accumulating counters from prev into b.
func (b *Bucket) Seed(prev *Bucket, columns []string) {
	if prev == nil {
		return
	}
	for _, col := range columns {
		if v, ok := prev.Counters[col]; ok {
			b.Counters[col] = v
		}
	}
}

// TickKind distinguishes the two scheduled tick flavours.
type TickKind string

const (
	TickMinor TickKind = "minor"
	TickMajor TickKind = "major"
)

// Watermark records the last period a tick was applied to for a chart group.
type Watermark struct {
	Chart  string
	Tick   TickKind
	Group  string
	Period time.Time
}

// Batch is persisted atomically: every bucket is upserted and, when set, the
// watermark is advanced in the same write.
type Batch struct {
	Buckets   []*Bucket
	Watermark *Watermark
}

// Series maps column name to one value per period, oldest first.
type Series map[string][]int64
