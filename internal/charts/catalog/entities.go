package catalog

import (
	"context"
	"time"
)

// User is the part of a user row the charts look at. Host is empty for
// local users.
type User struct {
	ID        string
	Host      string
	CreatedAt time.Time
}

type Note struct {
	ID       string
	UserID   string
	UserHost string
	ReplyID  string
	RenoteID string
	HasFiles bool
}

type DriveFile struct {
	ID       string
	UserID   string
	UserHost string
	Size     int64
}

// Ground-truth sources queried by major ticks.

type UserCounter interface {
	CountUsers(ctx context.Context) (local, remote int64, err error)
}

type NoteCounter interface {
	CountNotes(ctx context.Context) (local, remote int64, err error)
	CountNotesByUser(ctx context.Context, userID string) (int64, error)
}

type DriveCounter interface {
	DriveUsage(ctx context.Context, userID string) (files, bytes int64, err error)
}

type FollowStats struct {
	LocalFollowings  int64
	RemoteFollowings int64
	LocalFollowers   int64
	RemoteFollowers  int64
}

type FollowCounter interface {
	FollowCounts(ctx context.Context, userID string) (FollowStats, error)
}

// FederationStats counts known instances by their follow relationship with
// this server. Active excludes suspended and unresponsive instances.
type FederationStats struct {
	Sub       int64
	Pub       int64
	PubSub    int64
	SubActive int64
	PubActive int64
}

type HostStats struct {
	Notes      int64
	Users      int64
	Following  int64
	Followers  int64
	DriveFiles int64
}

type InstanceCounter interface {
	FederationStats(ctx context.Context) (FederationStats, error)
	HostStats(ctx context.Context, host string) (HostStats, error)
}
