package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"

	"chart-engine-service/internal/activities/core/domain"
	"chart-engine-service/internal/activities/core/ports"
)

//go:embed schema.sql
var schemaSQL string

// ActivityLogRepository remembers delivered activity ids so a redelivered
// activity does not move the charts twice.
type ActivityLogRepository struct {
	db DB
}

func NewActivityLogRepository(db DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

var _ ports.ActivityLogPort = (*ActivityLogRepository)(nil)

func (r *ActivityLogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create activity_log: %w", err)
	}
	return nil
}

const insertActivitySQL = `
INSERT INTO activity_log (
    id,
    kind,
    actor_id,
    occurred_at,
    payload
) VALUES (
    $1, $2, $3, $4, $5
)
ON CONFLICT (id) DO NOTHING;
`

type payload struct {
	ActorHost  string `json:"actor_host,omitempty"`
	TargetID   string `json:"target_id,omitempty"`
	TargetHost string `json:"target_host,omitempty"`
	NoteID     string `json:"note_id,omitempty"`
	FileID     string `json:"file_id,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	Host       string `json:"host,omitempty"`
	Tag        string `json:"tag,omitempty"`
}

func (r *ActivityLogRepository) Insert(ctx context.Context, a *domain.Activity) (bool, error) {
	var actorID any
	if a.Actor.ID != "" {
		actorID = a.Actor.ID
	}

	payloadJSON, err := json.Marshal(payload{
		ActorHost:  a.Actor.Host,
		TargetID:   a.Target.ID,
		TargetHost: a.Target.Host,
		NoteID:     a.Note.ID,
		FileID:     a.File.ID,
		FileSize:   a.File.Size,
		Host:       a.Host,
		Tag:        a.Tag,
	})
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, insertActivitySQL,
		a.ID,
		string(a.Kind),
		actorID,
		a.OccurredAt,
		payloadJSON,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 0 -> duplicate (ON CONFLICT DO NOTHING)
	return rows > 0, nil
}
