package domain

// Changes is a partial column map: signed deltas for counter columns and
// member keys for unique-set columns.
type Changes struct {
	Counters map[string]int64
	Members  map[string][]string
}

func NewChanges() *Changes {
	return &Changes{
		Counters: map[string]int64{},
		Members:  map[string][]string{},
	}
}

// Add adds delta to a counter column.
func (c *Changes) Add(col string, delta int64) *Changes {
	if c.Counters == nil {
		c.Counters = map[string]int64{}
	}
	c.Counters[col] += delta
	return c
}

// Put appends member keys to a unique-set column.
func (c *Changes) Put(col string, members ...string) *Changes {
	if c.Members == nil {
		c.Members = map[string][]string{}
	}
	c.Members[col] = append(c.Members[col], members...)
	return c
}

func (c *Changes) Empty() bool {
	return c == nil || (len(c.Counters) == 0 && len(c.Members) == 0)
}
