// Package charts maps ingested activities onto the chart catalog.
package charts

import (
	"context"
	"fmt"

	"chart-engine-service/internal/activities/core/domain"
	"chart-engine-service/internal/activities/core/ports"
	"chart-engine-service/internal/charts/catalog"
)

type Recorder struct {
	charts *catalog.Charts
}

var _ ports.ChartRecorderPort = (*Recorder)(nil)

func NewRecorder(charts *catalog.Charts) *Recorder {
	return &Recorder{charts: charts}
}

// Record fans an activity out to every chart it affects. Chart commit
// failures are logged by the catalog; only an unknown kind is an error.
func (r *Recorder) Record(ctx context.Context, a *domain.Activity) error {
	c := r.charts
	actor := user(a.Actor)

	switch a.Kind {
	case domain.KindUserCreated, domain.KindUserDeleted:
		added := a.Kind == domain.KindUserCreated
		c.Users.Update(ctx, actor, added)
		if actor.Host != "" {
			c.Instance.UpdateUsers(ctx, actor.Host, added)
		}

	case domain.KindNoteCreated, domain.KindNoteDeleted:
		added := a.Kind == domain.KindNoteCreated
		n := catalog.Note{
			ID:       a.Note.ID,
			UserID:   actor.ID,
			UserHost: actor.Host,
			ReplyID:  a.Note.ReplyID,
			RenoteID: a.Note.RenoteID,
			HasFiles: a.Note.HasFiles,
		}
		c.Notes.Update(ctx, n, added)
		c.PerUserNotes.Update(ctx, actor.ID, n, added)
		if actor.Host != "" {
			c.Instance.UpdateNote(ctx, actor.Host, added)
		}

	case domain.KindDriveFileCreated, domain.KindDriveFileDeleted:
		added := a.Kind == domain.KindDriveFileCreated
		f := catalog.DriveFile{ID: a.File.ID, UserID: actor.ID, UserHost: actor.Host, Size: a.File.Size}
		c.Drive.Update(ctx, f, added)
		c.PerUserDrive.Update(ctx, f, added)
		if actor.Host != "" {
			c.Instance.UpdateDrive(ctx, f, added)
		}

	case domain.KindReactionCreated:
		c.PerUserReactions.Update(ctx, actor, a.Target.ID)

	case domain.KindFollowCreated, domain.KindFollowDeleted:
		added := a.Kind == domain.KindFollowCreated
		followee := user(a.Target)
		c.PerUserFollowing.Update(ctx, actor, followee, added)
		if followee.Host != "" {
			c.Instance.UpdateFollowing(ctx, followee.Host, added)
		}
		if actor.Host != "" {
			c.Instance.UpdateFollowers(ctx, actor.Host, added)
		}

	case domain.KindPageViewed:
		if a.Visitor {
			c.PerUserPV.CommitByVisitor(ctx, a.Target.ID, a.ViewerKey)
		} else {
			c.PerUserPV.CommitByUser(ctx, a.Target.ID, a.ViewerKey)
		}

	case domain.KindUserRead:
		c.ActiveUsers.Read(ctx, actor)

	case domain.KindUserWrote:
		c.ActiveUsers.Write(ctx, actor)

	case domain.KindHashtagUsed:
		c.Hashtag.Update(ctx, a.Tag, actor)

	case domain.KindDeliverSucceeded, domain.KindDeliverFailed:
		ok := a.Kind == domain.KindDeliverSucceeded
		if ok {
			c.APRequest.DeliverSucceeded(ctx)
		} else {
			c.APRequest.DeliverFailed(ctx)
		}
		c.Federation.Delivered(ctx, a.Host, ok)
		c.Instance.RequestSent(ctx, a.Host, ok)

	case domain.KindInboxReceived:
		c.APRequest.InboxReceived(ctx)
		c.Federation.Inbox(ctx, a.Host)
		c.Instance.RequestReceived(ctx, a.Host)

	default:
		return fmt.Errorf("no chart handles activity kind %q", a.Kind)
	}
	return nil
}

func user(a domain.Account) catalog.User {
	return catalog.User{ID: a.ID, Host: a.Host, CreatedAt: a.CreatedAt}
}
