package domain

import "time"

type Kind string

const (
	KindUserCreated      Kind = "user.created"
	KindUserDeleted      Kind = "user.deleted"
	KindNoteCreated      Kind = "note.created"
	KindNoteDeleted      Kind = "note.deleted"
	KindDriveFileCreated Kind = "drive_file.created"
	KindDriveFileDeleted Kind = "drive_file.deleted"
	KindReactionCreated  Kind = "reaction.created"
	KindFollowCreated    Kind = "follow.created"
	KindFollowDeleted    Kind = "follow.deleted"
	KindPageViewed       Kind = "page.viewed"
	KindUserRead         Kind = "user.read"
	KindUserWrote        Kind = "user.wrote"
	KindHashtagUsed      Kind = "hashtag.used"
	KindDeliverSucceeded Kind = "deliver.succeeded"
	KindDeliverFailed    Kind = "deliver.failed"
	KindInboxReceived    Kind = "inbox.received"
)

// Kinds lists every activity kind the charts understand.
var Kinds = []Kind{
	KindUserCreated, KindUserDeleted,
	KindNoteCreated, KindNoteDeleted,
	KindDriveFileCreated, KindDriveFileDeleted,
	KindReactionCreated,
	KindFollowCreated, KindFollowDeleted,
	KindPageViewed,
	KindUserRead, KindUserWrote,
	KindHashtagUsed,
	KindDeliverSucceeded, KindDeliverFailed,
	KindInboxReceived,
}

// Account identifies a user; Host is empty for local accounts.
type Account struct {
	ID        string
	Host      string
	CreatedAt time.Time
}

type NoteRef struct {
	ID       string
	ReplyID  string
	RenoteID string
	HasFiles bool
}

type FileRef struct {
	ID   string
	Size int64
}

// Activity is one backend occurrence that moves charts. Which fields are
// required depends on Kind.
type Activity struct {
	// ID makes delivery idempotent when set.
	ID         string
	Kind       Kind
	Actor      Account
	Target     Account
	Note       NoteRef
	File       FileRef
	Host       string
	Tag        string
	ViewerKey  string
	Visitor    bool
	OccurredAt time.Time
}
