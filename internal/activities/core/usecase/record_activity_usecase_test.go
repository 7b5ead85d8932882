package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"

	"chart-engine-service/internal/activities/core/domain"
	"chart-engine-service/internal/activities/core/usecase"
)

var now = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

// Fake log implementing ActivityLogPort
type fakeActivityLog struct {
	InsertFn    func(ctx context.Context, a *domain.Activity) (bool, error)
	InsertCalls []*domain.Activity
}

func (f *fakeActivityLog) Insert(ctx context.Context, a *domain.Activity) (bool, error) {
	f.InsertCalls = append(f.InsertCalls, a)
	if f.InsertFn != nil {
		return f.InsertFn(ctx, a)
	}
	return true, nil
}

// Fake recorder implementing ChartRecorderPort
type fakeRecorder struct {
	RecordFn func(ctx context.Context, a *domain.Activity) error
	recorded []*domain.Activity
}

func (f *fakeRecorder) Record(ctx context.Context, a *domain.Activity) error {
	f.recorded = append(f.recorded, a)
	if f.RecordFn != nil {
		return f.RecordFn(ctx, a)
	}
	return nil
}

func newUseCase(t *testing.T, log *fakeActivityLog, rec *fakeRecorder) *usecase.RecordActivityUseCase {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(now)
	if log == nil {
		return usecase.NewRecordActivityUseCase(nil, rec, clk)
	}
	return usecase.NewRecordActivityUseCase(log, rec, clk)
}

// ------------------------------------------------------------
// SUCCESS TEST
// ------------------------------------------------------------
func TestRecordActivity_Success(t *testing.T) {
	log := &fakeActivityLog{}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	created, err := uc.Execute(context.Background(), usecase.RecordActivityInput{
		ID:       "act-1",
		Kind:     "note.created",
		Actor:    usecase.AccountInput{ID: "u1", Host: "remote.example"},
		NoteID:   "n1",
		ReplyID:  "n0",
		HasFiles: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true, got false")
	}
	if len(log.InsertCalls) != 1 || len(rec.recorded) != 1 {
		t.Fatalf("expected one log insert and one record, got %d/%d", len(log.InsertCalls), len(rec.recorded))
	}

	a := rec.recorded[0]
	if a.Kind != domain.KindNoteCreated || a.Actor.Host != "remote.example" || a.Note.ReplyID != "n0" || !a.Note.HasFiles {
		t.Fatalf("unexpected activity: %+v", a)
	}
	if !a.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at to default to now, got %v", a.OccurredAt)
	}
}

// ------------------------------------------------------------
// DUPLICATE
// ------------------------------------------------------------
func TestRecordActivity_DuplicateIsNotRecorded(t *testing.T) {
	log := &fakeActivityLog{
		InsertFn: func(ctx context.Context, a *domain.Activity) (bool, error) {
			return false, nil
		},
	}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	created, err := uc.Execute(context.Background(), usecase.RecordActivityInput{
		ID:    "act-1",
		Kind:  "user.created",
		Actor: usecase.AccountInput{ID: "u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for duplicate")
	}
	if len(rec.recorded) != 0 {
		t.Fatalf("duplicate must not reach the charts")
	}
}

func TestRecordActivity_NoIDSkipsLog(t *testing.T) {
	log := &fakeActivityLog{}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	created, err := uc.Execute(context.Background(), usecase.RecordActivityInput{
		Kind: "inbox.received",
		Host: "remote.example",
	})
	if err != nil || !created {
		t.Fatalf("expected created without error, got %v / %v", created, err)
	}
	if len(log.InsertCalls) != 0 {
		t.Fatalf("expected no log insert without id")
	}
}

func TestRecordActivity_NilLog(t *testing.T) {
	rec := &fakeRecorder{}
	uc := newUseCase(t, nil, rec)

	created, err := uc.Execute(context.Background(), usecase.RecordActivityInput{
		ID:   "act-1",
		Kind: "deliver.failed",
		Host: "remote.example",
	})
	if err != nil || !created {
		t.Fatalf("expected created without error, got %v / %v", created, err)
	}
}

// ------------------------------------------------------------
// VALIDATION
// ------------------------------------------------------------
func TestRecordActivity_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   usecase.RecordActivityInput
		want error
	}{
		{"unknown kind", usecase.RecordActivityInput{Kind: "note.liked"}, usecase.ErrUnknownKind},
		{"user without actor", usecase.RecordActivityInput{Kind: "user.created"}, usecase.ErrInvalidActivity},
		{"remote reader", usecase.RecordActivityInput{Kind: "user.read", Actor: usecase.AccountInput{ID: "u1", Host: "remote.example"}}, usecase.ErrInvalidActivity},
		{"note without id", usecase.RecordActivityInput{Kind: "note.created", Actor: usecase.AccountInput{ID: "u1"}}, usecase.ErrInvalidActivity},
		{"negative file size", usecase.RecordActivityInput{Kind: "drive_file.created", Actor: usecase.AccountInput{ID: "u1"}, FileID: "f", FileSize: -1}, usecase.ErrInvalidActivity},
		{"follow without target", usecase.RecordActivityInput{Kind: "follow.created", Actor: usecase.AccountInput{ID: "u1"}}, usecase.ErrInvalidActivity},
		{"page view without viewer", usecase.RecordActivityInput{Kind: "page.viewed", Target: usecase.AccountInput{ID: "u1"}}, usecase.ErrInvalidActivity},
		{"hashtag without tag", usecase.RecordActivityInput{Kind: "hashtag.used", Actor: usecase.AccountInput{ID: "u1"}}, usecase.ErrInvalidActivity},
		{"delivery without host", usecase.RecordActivityInput{Kind: "deliver.succeeded"}, usecase.ErrInvalidActivity},
		{"future timestamp", usecase.RecordActivityInput{Kind: "inbox.received", Host: "h", Timestamp: now.Add(5 * time.Minute).Unix()}, usecase.ErrFutureTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &fakeActivityLog{}
			rec := &fakeRecorder{}
			uc := newUseCase(t, log, rec)

			created, err := uc.Execute(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if created {
				t.Fatalf("expected created=false")
			}
			if len(log.InsertCalls) != 0 || len(rec.recorded) != 0 {
				t.Fatalf("invalid activity must not be logged or recorded")
			}
		})
	}
}

// ------------------------------------------------------------
// ERRORS
// ------------------------------------------------------------
func TestRecordActivity_LogError(t *testing.T) {
	log := &fakeActivityLog{
		InsertFn: func(ctx context.Context, a *domain.Activity) (bool, error) {
			return false, errors.New("db failure")
		},
	}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	_, err := uc.Execute(context.Background(), usecase.RecordActivityInput{ID: "a", Kind: "user.read", Actor: usecase.AccountInput{ID: "u1"}})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if len(rec.recorded) != 0 {
		t.Fatalf("expected nothing recorded on log failure")
	}
}

// ------------------------------------------------------------
// BULK
// ------------------------------------------------------------
func TestBulkRecord_MixedRecordedAndDuplicate(t *testing.T) {
	results := []bool{true, false, true}
	log := &fakeActivityLog{
		InsertFn: func(ctx context.Context, a *domain.Activity) (bool, error) {
			r := results[0]
			results = results[1:]
			return r, nil
		},
	}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	res, err := uc.BulkRecord(context.Background(), usecase.BulkRecordActivitiesInput{
		Activities: []usecase.RecordActivityInput{
			{ID: "1", Kind: "user.wrote", Actor: usecase.AccountInput{ID: "u1"}},
			{ID: "1", Kind: "user.wrote", Actor: usecase.AccountInput{ID: "u1"}},
			{ID: "2", Kind: "hashtag.used", Actor: usecase.AccountInput{ID: "u1"}, Tag: "go"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Recorded != 2 || res.Duplicates != 1 {
		t.Fatalf("expected 2 recorded / 1 duplicate, got %+v", res)
	}
	if len(rec.recorded) != 2 {
		t.Fatalf("expected 2 chart records, got %d", len(rec.recorded))
	}
}

func TestBulkRecord_ValidationErrorInOneActivity(t *testing.T) {
	log := &fakeActivityLog{}
	rec := &fakeRecorder{}
	uc := newUseCase(t, log, rec)

	_, err := uc.BulkRecord(context.Background(), usecase.BulkRecordActivitiesInput{
		Activities: []usecase.RecordActivityInput{
			{ID: "1", Kind: "user.read", Actor: usecase.AccountInput{ID: "u1"}},
			{ID: "2", Kind: "user.read"},
		},
	})
	if !errors.Is(err, usecase.ErrInvalidActivity) {
		t.Fatalf("expected ErrInvalidActivity, got %v", err)
	}
	if len(log.InsertCalls) != 0 || len(rec.recorded) != 0 {
		t.Fatalf("expected nothing stored when any activity is invalid")
	}
}
