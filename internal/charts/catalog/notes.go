package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

func noteColumns(prefix string) []domain.ColumnSpec {
	return []domain.ColumnSpec{
		domain.TotalColumn(prefix + "total"),
		domain.CounterColumn(prefix + "inc"),
		domain.CounterColumn(prefix + "dec"),
		domain.CounterColumn(prefix + "diffs.normal"),
		domain.CounterColumn(prefix + "diffs.reply"),
		domain.CounterColumn(prefix + "diffs.renote"),
		domain.CounterColumn(prefix + "diffs.withFile"),
	}
}

// noteChanges records a created or deleted note under prefix. A note is
// normal when it is neither a reply nor a renote.
func noteChanges(prefix string, n Note, added bool) *domain.Changes {
	d := sign(added)
	ch := domain.NewChanges().
		Add(prefix+"total", d).
		Add(incDec(prefix, added), 1)
	if n.ReplyID == "" && n.RenoteID == "" {
		ch.Add(prefix+"diffs.normal", d)
	}
	if n.ReplyID != "" {
		ch.Add(prefix+"diffs.reply", d)
	}
	if n.RenoteID != "" {
		ch.Add(prefix+"diffs.renote", d)
	}
	if n.HasFiles {
		ch.Add(prefix+"diffs.withFile", d)
	}
	return ch
}

var NotesSchema = domain.MustSchema("notes", false,
	append(noteColumns("local."), noteColumns("remote.")...)...,
)

type NotesChart struct {
	chart
	src NoteCounter
}

func newNotesChart(d Deps) *NotesChart {
	c := &NotesChart{src: d.Notes}
	var hooks engine.Hooks
	if d.Notes != nil {
		hooks = c
	}
	c.init(d, NotesSchema, hooks)
	return c
}

func (c *NotesChart) Update(ctx context.Context, n Note, added bool) {
	c.commit(ctx, "", noteChanges(locality(n.UserHost)+".", n, added))
}

func (c *NotesChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *NotesChart) TickMajor(ctx context.Context, _ string) (map[string]int64, error) {
	local, remote, err := c.src.CountNotes(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"local.total": local, "remote.total": remote}, nil
}

var PerUserNotesSchema = domain.MustSchema("per-user-notes", true, noteColumns("")...)

// PerUserNotesChart tracks notes posted by each user.
type PerUserNotesChart struct {
	chart
	src NoteCounter
}

func newPerUserNotesChart(d Deps) *PerUserNotesChart {
	c := &PerUserNotesChart{src: d.Notes}
	var hooks engine.Hooks
	if d.Notes != nil {
		hooks = c
	}
	c.init(d, PerUserNotesSchema, hooks)
	return c
}

func (c *PerUserNotesChart) Update(ctx context.Context, userID string, n Note, added bool) {
	c.commit(ctx, userID, noteChanges("", n, added))
}

func (c *PerUserNotesChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *PerUserNotesChart) TickMajor(ctx context.Context, userID string) (map[string]int64, error) {
	total, err := c.src.CountNotesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"total": total}, nil
}
