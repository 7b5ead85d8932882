package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"chart-engine-service/internal/charts/adapters/memory"
	"chart-engine-service/internal/charts/catalog"
	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var now = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

type fakeSources struct {
	localUsers, remoteUsers int64
	userNotes               map[string]int64
	follows                 catalog.FollowStats
	err                     error
}

func (f *fakeSources) CountUsers(context.Context) (int64, int64, error) {
	return f.localUsers, f.remoteUsers, f.err
}

func (f *fakeSources) CountNotes(context.Context) (int64, int64, error) {
	return 0, 0, f.err
}

func (f *fakeSources) CountNotesByUser(_ context.Context, userID string) (int64, error) {
	return f.userNotes[userID], f.err
}

func (f *fakeSources) FollowCounts(context.Context, string) (catalog.FollowStats, error) {
	return f.follows, f.err
}

type fixture struct {
	charts *catalog.Charts
	clock  *quartz.Mock
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, d catalog.Deps) fixture {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(now)
	logs := &bytes.Buffer{}
	if d.Store == nil {
		d.Store = memory.NewStore()
	}
	d.Locks = memory.NewLocker()
	d.Clock = clk
	d.Logger = zerolog.New(logs)
	return fixture{charts: catalog.New(d), clock: clk, logs: logs}
}

func series(t *testing.T, e *engine.Engine, group string, limit int) domain.Series {
	t.Helper()
	s, err := e.GetChart(context.Background(), domain.SpanHour, limit, time.Time{}, group)
	require.NoError(t, err)
	return s
}

func TestCharts_RegisterAll(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	r := engine.NewRegistry()
	require.NoError(t, f.charts.Register(r))

	names := make([]string, 0)
	for _, e := range r.Engines() {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{
		"users", "notes", "drive", "active-users", "federation", "ap-request", "instance",
		"hashtag", "per-user-notes", "per-user-drive", "per-user-reactions", "per-user-following", "per-user-pv",
	}, names)

	require.ErrorIs(t, f.charts.Register(r), engine.ErrDuplicateChart)
}

func TestUsersChart_UpdateKeepsRunningTotal(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	users := f.charts.Users

	users.Update(ctx, catalog.User{ID: "a"}, true)
	users.Update(ctx, catalog.User{ID: "b"}, true)
	users.Update(ctx, catalog.User{ID: "r", Host: "remote.example"}, true)

	f.clock.Set(now.Add(time.Hour))
	users.Update(ctx, catalog.User{ID: "a"}, false)

	s := series(t, users.Engine(), "", 2)
	require.Equal(t, []int64{2, 1}, s["local.total"])
	require.Equal(t, []int64{2, 0}, s["local.inc"])
	require.Equal(t, []int64{0, 1}, s["local.dec"])
	require.Equal(t, []int64{1, 1}, s["remote.total"])
}

func TestUsersChart_TickMajorOverwritesTotals(t *testing.T) {
	src := &fakeSources{localUsers: 40, remoteUsers: 7}
	f := newFixture(t, catalog.Deps{Users: src})
	ctx := context.Background()

	f.charts.Users.Update(ctx, catalog.User{ID: "a"}, true)
	require.NoError(t, f.charts.Users.Engine().TickMajor(ctx))

	s := series(t, f.charts.Users.Engine(), "", 1)
	require.Equal(t, []int64{40}, s["local.total"])
	require.Equal(t, []int64{7}, s["remote.total"])
	require.Equal(t, []int64{1}, s["local.inc"])
}

func TestNotesChart_Diffs(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	notes := f.charts.Notes

	notes.Update(ctx, catalog.Note{ID: "1"}, true)
	notes.Update(ctx, catalog.Note{ID: "2", ReplyID: "1", HasFiles: true}, true)
	notes.Update(ctx, catalog.Note{ID: "3", RenoteID: "1", UserHost: "remote.example"}, true)
	notes.Update(ctx, catalog.Note{ID: "1"}, false)

	s := series(t, notes.Engine(), "", 1)
	require.Equal(t, []int64{1}, s["local.total"])
	require.Equal(t, []int64{2}, s["local.inc"])
	require.Equal(t, []int64{1}, s["local.dec"])
	require.Equal(t, []int64{0}, s["local.diffs.normal"])
	require.Equal(t, []int64{1}, s["local.diffs.reply"])
	require.Equal(t, []int64{1}, s["local.diffs.withFile"])
	require.Equal(t, []int64{1}, s["remote.diffs.renote"])
}

func TestPerUserNotesChart_TickMajorPerGroup(t *testing.T) {
	src := &fakeSources{userNotes: map[string]int64{"u1": 12, "u2": 3}}
	f := newFixture(t, catalog.Deps{Notes: src})
	ctx := context.Background()
	pun := f.charts.PerUserNotes

	pun.Update(ctx, "u1", catalog.Note{ID: "1"}, true)
	pun.Update(ctx, "u2", catalog.Note{ID: "2"}, true)
	require.NoError(t, pun.Engine().TickMajor(ctx))

	require.Equal(t, []int64{12}, series(t, pun.Engine(), "u1", 1)["total"])
	require.Equal(t, []int64{3}, series(t, pun.Engine(), "u2", 1)["total"])
}

func TestPerUserFollowingChart_UpdatesBothSides(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	pf := f.charts.PerUserFollowing

	alice := catalog.User{ID: "alice"}
	bob := catalog.User{ID: "bob", Host: "remote.example"}
	pf.Update(ctx, alice, bob, true)

	a := series(t, pf.Engine(), "alice", 1)
	require.Equal(t, []int64{1}, a["remote.followings.total"])
	require.Equal(t, []int64{0}, a["local.followers.total"])

	b := series(t, pf.Engine(), "bob", 1)
	require.Equal(t, []int64{1}, b["local.followers.total"])
	require.Equal(t, []int64{1}, b["local.followers.inc"])
}

func TestActiveUsersChart_RegistrationWindows(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	au := f.charts.ActiveUsers

	fresh := catalog.User{ID: "fresh", CreatedAt: now.Add(-48 * time.Hour)}
	old := catalog.User{ID: "old", CreatedAt: now.Add(-400 * 24 * time.Hour)}
	au.Read(ctx, fresh)
	au.Write(ctx, fresh)
	au.Read(ctx, old)

	s := series(t, au.Engine(), "", 1)
	require.Equal(t, []int64{2}, s["readWrite"])
	require.Equal(t, []int64{2}, s["read"])
	require.Equal(t, []int64{1}, s["write"])
	require.Equal(t, []int64{1}, s["registeredWithinWeek"])
	require.Equal(t, []int64{1}, s["registeredOutsideYear"])
	require.Equal(t, []int64{1}, s["registeredOutsideWeek"])
	require.Equal(t, []int64{1}, s["registeredWithinYear"])
}

func TestActiveUsersChart_SkipsRemoteAndUnknownAge(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	au := f.charts.ActiveUsers

	au.Read(ctx, catalog.User{ID: "remote", Host: "remote.example", CreatedAt: now.Add(-time.Hour)})
	au.Write(ctx, catalog.User{ID: "remote", Host: "remote.example"})
	au.Write(ctx, catalog.User{ID: "unknown-age"})

	s := series(t, au.Engine(), "", 1)
	require.Equal(t, []int64{1}, s["readWrite"])
	require.Equal(t, []int64{0}, s["read"])
	require.Equal(t, []int64{1}, s["write"])
	for _, col := range []string{
		"registeredWithinWeek", "registeredWithinMonth", "registeredWithinYear",
		"registeredOutsideWeek", "registeredOutsideMonth", "registeredOutsideYear",
	} {
		require.Equal(t, []int64{0}, s[col], col)
	}
}

func TestPerUserPVChart_UniqueViewers(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()
	pv := f.charts.PerUserPV

	pv.CommitByUser(ctx, "owner", "viewer-1")
	pv.CommitByUser(ctx, "owner", "viewer-1")
	pv.CommitByVisitor(ctx, "owner", "10.0.0.1")

	s := series(t, pv.Engine(), "owner", 1)
	require.Equal(t, []int64{1}, s["upv.user"])
	require.Equal(t, []int64{2}, s["pv.user"])
	require.Equal(t, []int64{1}, s["upv.visitor"])
	require.Equal(t, []int64{1}, s["pv.visitor"])
}

func TestFederationAndInstanceCharts(t *testing.T) {
	f := newFixture(t, catalog.Deps{})
	ctx := context.Background()

	f.charts.Federation.Delivered(ctx, "a.example", true)
	f.charts.Federation.Delivered(ctx, "a.example", true)
	f.charts.Federation.Delivered(ctx, "b.example", false)
	f.charts.Federation.Inbox(ctx, "a.example")
	f.charts.APRequest.DeliverSucceeded(ctx)
	f.charts.APRequest.DeliverFailed(ctx)
	f.charts.Instance.RequestSent(ctx, "a.example", true)
	f.charts.Instance.UpdateDrive(ctx, catalog.DriveFile{UserHost: "a.example", Size: 100}, true)

	fed := series(t, f.charts.Federation.Engine(), "", 1)
	require.Equal(t, []int64{1}, fed["deliveredInstances"])
	require.Equal(t, []int64{1}, fed["stalled"])
	require.Equal(t, []int64{1}, fed["inboxInstances"])

	ap := series(t, f.charts.APRequest.Engine(), "", 1)
	require.Equal(t, []int64{1}, ap["deliverSucceeded"])
	require.Equal(t, []int64{1}, ap["deliverFailed"])

	inst := series(t, f.charts.Instance.Engine(), "a.example", 1)
	require.Equal(t, []int64{1}, inst["requests.succeeded"])
	require.Equal(t, []int64{1}, inst["drive.totalFiles"])
	require.Equal(t, []int64{100}, inst["drive.incUsage"])
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Save(context.Context, domain.Batch) error {
	return errors.New("disk full")
}

func TestChart_CommitFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t, catalog.Deps{Store: failingStore{memory.NewStore()}})

	f.charts.APRequest.InboxReceived(context.Background())

	require.Contains(t, f.logs.String(), `"level":"error"`)
	require.Contains(t, f.logs.String(), "disk full")
	require.Contains(t, f.logs.String(), `"chart":"ap-request"`)
}
