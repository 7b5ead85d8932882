package domain

import (
	"errors"
	"fmt"
)

type ColumnKind int

const (
	// Counter columns accumulate signed deltas.
	Counter ColumnKind = iota + 1
	// UniqueSet columns accumulate distinct member keys and expose their cardinality.
	UniqueSet
)

func (k ColumnKind) String() string {
	switch k {
	case Counter:
		return "counter"
	case UniqueSet:
		return "unique"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// ColumnSpec declares one chart column.
//
// Accumulate marks running-total counters: a bucket created for a new period
// starts from the value of the latest earlier bucket instead of zero.
type ColumnSpec struct {
	Name       string
	Kind       ColumnKind
	Accumulate bool
}

func CounterColumn(name string) ColumnSpec {
	return ColumnSpec{Name: name, Kind: Counter}
}

func TotalColumn(name string) ColumnSpec {
	return ColumnSpec{Name: name, Kind: Counter, Accumulate: true}
}

func UniqueColumn(name string) ColumnSpec {
	return ColumnSpec{Name: name, Kind: UniqueSet}
}

var ErrInvalidSchema = errors.New("invalid chart schema")

// Schema is the static declaration of a chart: its name, whether buckets are
// partitioned by a group key, and its ordered columns.
type Schema struct {
	name    string
	grouped bool
	columns []ColumnSpec
	index   map[string]ColumnSpec
}

func NewSchema(name string, grouped bool, columns ...ColumnSpec) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty chart name", ErrInvalidSchema)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: chart %q declares no columns", ErrInvalidSchema, name)
	}

	s := &Schema{
		name:    name,
		grouped: grouped,
		columns: make([]ColumnSpec, 0, len(columns)),
		index:   make(map[string]ColumnSpec, len(columns)),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: chart %q has an unnamed column", ErrInvalidSchema, name)
		}
		if c.Kind != Counter && c.Kind != UniqueSet {
			return nil, fmt.Errorf("%w: column %q of %q has unknown kind %s", ErrInvalidSchema, c.Name, name, c.Kind)
		}
		if c.Accumulate && c.Kind != Counter {
			return nil, fmt.Errorf("%w: column %q of %q: only counters can accumulate", ErrInvalidSchema, c.Name, name)
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: column %q of %q declared twice", ErrInvalidSchema, c.Name, name)
		}
		s.columns = append(s.columns, c)
		s.index[c.Name] = c
	}
	return s, nil
}

// MustSchema is NewSchema for package-level chart declarations.
func MustSchema(name string, grouped bool, columns ...ColumnSpec) *Schema {
	s, err := NewSchema(name, grouped, columns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string  { return s.name }
func (s *Schema) Grouped() bool { return s.grouped }

func (s *Schema) Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *Schema) Column(name string) (ColumnSpec, bool) {
	c, ok := s.index[name]
	return c, ok
}

// AccumulatingColumns lists the running-total counters in declaration order.
func (s *Schema) AccumulatingColumns() []string {
	var cols []string
	for _, c := range s.columns {
		if c.Accumulate {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// Validate checks that every column touched by ch is declared with the
// matching kind.
func (s *Schema) Validate(ch *Changes) error {
	if ch == nil {
		return nil
	}
	for col := range ch.Counters {
		if err := s.expect(col, Counter); err != nil {
			return err
		}
	}
	for col := range ch.Members {
		if err := s.expect(col, UniqueSet); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOverwrite checks a major tick result: only declared counters can be
// replaced.
func (s *Schema) ValidateOverwrite(values map[string]int64) error {
	for col := range values {
		if err := s.expect(col, Counter); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) ValidateGroup(group string) error {
	switch {
	case s.grouped && group == "":
		return &SchemaViolationError{Chart: s.name, Reason: "grouped chart requires a group key"}
	case !s.grouped && group != "":
		return &SchemaViolationError{Chart: s.name, Reason: fmt.Sprintf("ungrouped chart got group key %q", group)}
	}
	return nil
}

func (s *Schema) expect(col string, kind ColumnKind) error {
	c, ok := s.index[col]
	if !ok {
		return &SchemaViolationError{Chart: s.name, Column: col, Reason: "undeclared column"}
	}
	if c.Kind != kind {
		return &SchemaViolationError{
			Chart:  s.name,
			Column: col,
			Reason: fmt.Sprintf("declared as %s, used as %s", c.Kind, kind),
		}
	}
	return nil
}
