package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"

	"chart-engine-service/internal/activities/core/domain"
	"chart-engine-service/internal/activities/core/ports"
	"chart-engine-service/internal/telemetry"
)

var (
	ErrInvalidActivity = errors.New("invalid activity")
	ErrUnknownKind     = errors.New("unknown activity kind")
	ErrFutureTime      = errors.New("timestamp cannot be in the future")
)

// clockSkew tolerates producers whose clocks run slightly ahead.
const clockSkew = time.Minute

type AccountInput struct {
	ID        string
	Host      string
	CreatedAt int64
}

type RecordActivityInput struct {
	ID        string
	Kind      string
	Actor     AccountInput
	Target    AccountInput
	NoteID    string
	ReplyID   string
	RenoteID  string
	HasFiles  bool
	FileID    string
	FileSize  int64
	Host      string
	Tag       string
	ViewerKey string
	Visitor   bool
	Timestamp int64
}

type RecordActivityUseCase struct {
	log      ports.ActivityLogPort
	recorder ports.ChartRecorderPort
	clock    quartz.Clock
}

// NewRecordActivityUseCase builds the ingest usecase. log may be nil, in which
// case activities are never deduplicated.
func NewRecordActivityUseCase(log ports.ActivityLogPort, recorder ports.ChartRecorderPort, clock quartz.Clock) *RecordActivityUseCase {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &RecordActivityUseCase{log: log, recorder: recorder, clock: clock}
}

// Execute records one activity and reports whether it was new.
func (uc *RecordActivityUseCase) Execute(ctx context.Context, in RecordActivityInput) (created bool, err error) {
	defer func() {
		result := "recorded"
		switch {
		case errors.Is(err, ErrInvalidActivity), errors.Is(err, ErrUnknownKind), errors.Is(err, ErrFutureTime):
			result = "rejected"
		case err != nil:
			result = "error"
		case !created:
			result = "duplicate"
		}
		kind := in.Kind
		if errors.Is(err, ErrUnknownKind) {
			kind = "unknown"
		}
		telemetry.ActivitiesRecorded.WithLabelValues(kind, result).Inc()
	}()

	if err := uc.validateInput(in); err != nil {
		return false, err
	}

	a := toActivity(in, uc.clock.Now())

	if uc.log != nil && a.ID != "" {
		isNew, err := uc.log.Insert(ctx, a)
		if err != nil {
			return false, err
		}
		if !isNew {
			return false, nil
		}
	}

	if err := uc.recorder.Record(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

type BulkRecordActivitiesInput struct {
	Activities []RecordActivityInput
}

type BulkRecordActivitiesResult struct {
	Recorded   int
	Duplicates int
}

// BulkRecord validates every activity before recording any of them.
func (uc *RecordActivityUseCase) BulkRecord(ctx context.Context, in BulkRecordActivitiesInput) (BulkRecordActivitiesResult, error) {
	var res BulkRecordActivitiesResult

	for i, a := range in.Activities {
		if err := uc.validateInput(a); err != nil {
			return res, fmt.Errorf("activity %d: %w", i, err)
		}
	}

	for _, a := range in.Activities {
		ok, err := uc.Execute(ctx, a)
		if err != nil {
			return res, err
		}

		if ok {
			res.Recorded++
		} else {
			res.Duplicates++
		}
	}

	return res, nil
}

func (uc *RecordActivityUseCase) validateInput(in RecordActivityInput) error {
	kind := domain.Kind(in.Kind)
	if !slices.Contains(domain.Kinds, kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, in.Kind)
	}

	if in.Timestamp > uc.clock.Now().Add(clockSkew).Unix() {
		return ErrFutureTime
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidActivity, kind, field)
	}

	switch kind {
	case domain.KindUserCreated, domain.KindUserDeleted:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
	case domain.KindUserRead, domain.KindUserWrote:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
		if in.Actor.Host != "" {
			return fmt.Errorf("%w: %s requires a local actor", ErrInvalidActivity, kind)
		}
	case domain.KindNoteCreated, domain.KindNoteDeleted:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
		if in.NoteID == "" {
			return missing("note_id")
		}
	case domain.KindDriveFileCreated, domain.KindDriveFileDeleted:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
		if in.FileID == "" {
			return missing("file_id")
		}
		if in.FileSize < 0 {
			return fmt.Errorf("%w: negative file_size", ErrInvalidActivity)
		}
	case domain.KindReactionCreated, domain.KindFollowCreated, domain.KindFollowDeleted:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
		if in.Target.ID == "" {
			return missing("target.id")
		}
	case domain.KindPageViewed:
		if in.Target.ID == "" {
			return missing("target.id")
		}
		if in.ViewerKey == "" {
			return missing("viewer_key")
		}
	case domain.KindHashtagUsed:
		if in.Actor.ID == "" {
			return missing("actor.id")
		}
		if in.Tag == "" {
			return missing("tag")
		}
	case domain.KindDeliverSucceeded, domain.KindDeliverFailed, domain.KindInboxReceived:
		if in.Host == "" {
			return missing("host")
		}
	}

	return nil
}

func toAccount(in AccountInput) domain.Account {
	a := domain.Account{ID: in.ID, Host: in.Host}
	if in.CreatedAt > 0 {
		a.CreatedAt = time.Unix(in.CreatedAt, 0).UTC()
	}
	return a
}

func toActivity(in RecordActivityInput, now time.Time) *domain.Activity {
	occurred := now.UTC()
	if in.Timestamp > 0 {
		occurred = time.Unix(in.Timestamp, 0).UTC()
	}
	return &domain.Activity{
		ID:     in.ID,
		Kind:   domain.Kind(in.Kind),
		Actor:  toAccount(in.Actor),
		Target: toAccount(in.Target),
		Note: domain.NoteRef{
			ID:       in.NoteID,
			ReplyID:  in.ReplyID,
			RenoteID: in.RenoteID,
			HasFiles: in.HasFiles,
		},
		File:       domain.FileRef{ID: in.FileID, Size: in.FileSize},
		Host:       in.Host,
		Tag:        in.Tag,
		ViewerKey:  in.ViewerKey,
		Visitor:    in.Visitor,
		OccurredAt: occurred,
	}
}
