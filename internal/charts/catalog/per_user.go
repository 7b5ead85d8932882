package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var HashtagSchema = domain.MustSchema("hashtag", true,
	domain.UniqueColumn("local.users"),
	domain.UniqueColumn("remote.users"),
)

// HashtagChart counts distinct users per tag.
type HashtagChart struct {
	chart
}

func newHashtagChart(d Deps) *HashtagChart {
	c := &HashtagChart{}
	c.init(d, HashtagSchema, nil)
	return c
}

func (c *HashtagChart) Update(ctx context.Context, tag string, u User) {
	c.commit(ctx, tag, domain.NewChanges().Put(locality(u.Host)+".users", u.ID))
}

var PerUserReactionsSchema = domain.MustSchema("per-user-reactions", true,
	domain.CounterColumn("local.count"),
	domain.CounterColumn("remote.count"),
)

// PerUserReactionsChart counts reactions received by each note author.
type PerUserReactionsChart struct {
	chart
}

func newPerUserReactionsChart(d Deps) *PerUserReactionsChart {
	c := &PerUserReactionsChart{}
	c.init(d, PerUserReactionsSchema, nil)
	return c
}

func (c *PerUserReactionsChart) Update(ctx context.Context, reactor User, noteAuthorID string) {
	c.commit(ctx, noteAuthorID, domain.NewChanges().Add(locality(reactor.Host)+".count", 1))
}

func followColumns() []domain.ColumnSpec {
	var cols []domain.ColumnSpec
	for _, loc := range []string{"local", "remote"} {
		for _, rel := range []string{"followings", "followers"} {
			prefix := loc + "." + rel + "."
			cols = append(cols,
				domain.TotalColumn(prefix+"total"),
				domain.CounterColumn(prefix+"inc"),
				domain.CounterColumn(prefix+"dec"),
			)
		}
	}
	return cols
}

var PerUserFollowingSchema = domain.MustSchema("per-user-following", true, followColumns()...)

type PerUserFollowingChart struct {
	chart
	src FollowCounter
}

func newPerUserFollowingChart(d Deps) *PerUserFollowingChart {
	c := &PerUserFollowingChart{src: d.Follows}
	var hooks engine.Hooks
	if d.Follows != nil {
		hooks = c
	}
	c.init(d, PerUserFollowingSchema, hooks)
	return c
}

// Update records a follow or unfollow on both sides of the relationship.
func (c *PerUserFollowingChart) Update(ctx context.Context, follower, followee User, added bool) {
	c.commit(ctx, follower.ID, totalChanges(locality(followee.Host)+".followings.", added))
	c.commit(ctx, followee.ID, totalChanges(locality(follower.Host)+".followers.", added))
}

func (c *PerUserFollowingChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *PerUserFollowingChart) TickMajor(ctx context.Context, userID string) (map[string]int64, error) {
	st, err := c.src.FollowCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"local.followings.total":  st.LocalFollowings,
		"remote.followings.total": st.RemoteFollowings,
		"local.followers.total":   st.LocalFollowers,
		"remote.followers.total":  st.RemoteFollowers,
	}, nil
}

var PerUserPVSchema = domain.MustSchema("per-user-pv", true,
	domain.UniqueColumn("upv.user"),
	domain.CounterColumn("pv.user"),
	domain.UniqueColumn("upv.visitor"),
	domain.CounterColumn("pv.visitor"),
)

// PerUserPVChart counts profile views, split by signed-in users and
// anonymous visitors. key identifies the viewer.
type PerUserPVChart struct {
	chart
}

func newPerUserPVChart(d Deps) *PerUserPVChart {
	c := &PerUserPVChart{}
	c.init(d, PerUserPVSchema, nil)
	return c
}

func (c *PerUserPVChart) CommitByUser(ctx context.Context, userID, key string) {
	c.commit(ctx, userID, domain.NewChanges().Put("upv.user", key).Add("pv.user", 1))
}

func (c *PerUserPVChart) CommitByVisitor(ctx context.Context, userID, key string) {
	c.commit(ctx, userID, domain.NewChanges().Put("upv.visitor", key).Add("pv.visitor", 1))
}
