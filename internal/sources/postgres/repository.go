// Package postgres reads ground-truth counts from the primary tables for the
// charts' major ticks. It never writes.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"chart-engine-service/internal/charts/catalog"
)

var errNoRow = errors.New("aggregate query returned no row")

const (
	countUsersQuery = `
SELECT
    COUNT(*) FILTER (WHERE host IS NULL) AS local_count,
    COUNT(*) FILTER (WHERE host IS NOT NULL) AS remote_count
FROM "user"`

	countNotesQuery = `
SELECT
    COUNT(*) FILTER (WHERE "userHost" IS NULL) AS local_count,
    COUNT(*) FILTER (WHERE "userHost" IS NOT NULL) AS remote_count
FROM note`

	countNotesByUserQuery = `SELECT COUNT(*) FROM note WHERE "userId" = $1`

	driveUsageQuery = `
SELECT COUNT(*), COALESCE(SUM(size), 0)
FROM drive_file
WHERE "userId" = $1`

	followCountsQuery = `
SELECT
    COUNT(*) FILTER (WHERE "followerId" = $1 AND "followeeHost" IS NULL),
    COUNT(*) FILTER (WHERE "followerId" = $1 AND "followeeHost" IS NOT NULL),
    COUNT(*) FILTER (WHERE "followeeId" = $1 AND "followerHost" IS NULL),
    COUNT(*) FILTER (WHERE "followeeId" = $1 AND "followerHost" IS NOT NULL)
FROM following
WHERE "followerId" = $1 OR "followeeId" = $1`

	// sub: hosts we follow; pub: hosts following us. Blocked hosts never count.
	federationStatsQuery = `
WITH sub AS (
    SELECT DISTINCT "followeeHost" AS host FROM following
    WHERE "followeeHost" IS NOT NULL AND NOT ("followeeHost" = ANY($1))
), pub AS (
    SELECT DISTINCT "followerHost" AS host FROM following
    WHERE "followerHost" IS NOT NULL AND NOT ("followerHost" = ANY($1))
), active AS (
    SELECT host FROM instance WHERE NOT "isSuspended" AND NOT "isNotResponding"
)
SELECT
    (SELECT COUNT(*) FROM sub),
    (SELECT COUNT(*) FROM pub),
    (SELECT COUNT(*) FROM sub JOIN pub USING (host)),
    (SELECT COUNT(*) FROM sub JOIN active USING (host)),
    (SELECT COUNT(*) FROM pub JOIN active USING (host))`

	// following: local users following host; followers: host users following us.
	hostStatsQuery = `
SELECT
    (SELECT COUNT(*) FROM note WHERE "userHost" = $1),
    (SELECT COUNT(*) FROM "user" WHERE host = $1),
    (SELECT COUNT(*) FROM following WHERE "followeeHost" = $1),
    (SELECT COUNT(*) FROM following WHERE "followerHost" = $1),
    (SELECT COUNT(*) FROM drive_file WHERE "userHost" = $1)`
)

// SourceRepository implements every ground-truth counter of the catalog.
type SourceRepository struct {
	db           DB
	blockedHosts []string
}

var (
	_ catalog.UserCounter     = (*SourceRepository)(nil)
	_ catalog.NoteCounter     = (*SourceRepository)(nil)
	_ catalog.DriveCounter    = (*SourceRepository)(nil)
	_ catalog.FollowCounter   = (*SourceRepository)(nil)
	_ catalog.InstanceCounter = (*SourceRepository)(nil)
)

func NewSourceRepository(db DB, blockedHosts ...string) *SourceRepository {
	return &SourceRepository{db: db, blockedHosts: blockedHosts}
}

func (r *SourceRepository) CountUsers(ctx context.Context) (local, remote int64, err error) {
	err = r.queryRow(ctx, countUsersQuery, nil, &local, &remote)
	return local, remote, err
}

func (r *SourceRepository) CountNotes(ctx context.Context) (local, remote int64, err error) {
	err = r.queryRow(ctx, countNotesQuery, nil, &local, &remote)
	return local, remote, err
}

func (r *SourceRepository) CountNotesByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.queryRow(ctx, countNotesByUserQuery, []any{userID}, &n)
	return n, err
}

func (r *SourceRepository) DriveUsage(ctx context.Context, userID string) (files, bytes int64, err error) {
	err = r.queryRow(ctx, driveUsageQuery, []any{userID}, &files, &bytes)
	return files, bytes, err
}

func (r *SourceRepository) FollowCounts(ctx context.Context, userID string) (catalog.FollowStats, error) {
	var st catalog.FollowStats
	err := r.queryRow(ctx, followCountsQuery, []any{userID},
		&st.LocalFollowings, &st.RemoteFollowings, &st.LocalFollowers, &st.RemoteFollowers)
	return st, err
}

func (r *SourceRepository) FederationStats(ctx context.Context) (catalog.FederationStats, error) {
	var st catalog.FederationStats
	blocked := r.blockedHosts
	if blocked == nil {
		blocked = []string{}
	}
	err := r.queryRow(ctx, federationStatsQuery, []any{pq.Array(blocked)},
		&st.Sub, &st.Pub, &st.PubSub, &st.SubActive, &st.PubActive)
	return st, err
}

func (r *SourceRepository) HostStats(ctx context.Context, host string) (catalog.HostStats, error) {
	var st catalog.HostStats
	err := r.queryRow(ctx, hostStatsQuery, []any{host},
		&st.Notes, &st.Users, &st.Following, &st.Followers, &st.DriveFiles)
	return st, err
}

func (r *SourceRepository) queryRow(ctx context.Context, query string, args []any, dest ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errNoRow
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan aggregate: %w", err)
	}
	return rows.Err()
}
