// Package catalog declares the concrete charts of the server: their column
// schemas, the typed calls the rest of the backend makes, and the tick hooks
// that reconcile them against the primary tables.
package catalog

import (
	"context"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
	"chart-engine-service/internal/charts/core/ports"
)

// Deps wires every chart to the shared store and lock. Sources are optional;
// a chart whose source is nil only changes through commits.
type Deps struct {
	Store  ports.BucketStorePort
	Locks  ports.LockProviderPort
	Clock  quartz.Clock
	Logger zerolog.Logger
	// Engine options applied to every chart, e.g. engine.WithLockTimeout.
	Options []engine.Option

	Users     UserCounter
	Notes     NoteCounter
	Instances InstanceCounter
	Drive     DriveCounter
	Follows   FollowCounter
}

// Charts holds one instance of every chart.
type Charts struct {
	Users            *UsersChart
	Notes            *NotesChart
	Drive            *DriveChart
	ActiveUsers      *ActiveUsersChart
	Federation       *FederationChart
	APRequest        *APRequestChart
	Instance         *InstanceChart
	Hashtag          *HashtagChart
	PerUserNotes     *PerUserNotesChart
	PerUserDrive     *PerUserDriveChart
	PerUserReactions *PerUserReactionsChart
	PerUserFollowing *PerUserFollowingChart
	PerUserPV        *PerUserPVChart
}

func New(d Deps) *Charts {
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	return &Charts{
		Users:            newUsersChart(d),
		Notes:            newNotesChart(d),
		Drive:            newDriveChart(d),
		ActiveUsers:      newActiveUsersChart(d),
		Federation:       newFederationChart(d),
		APRequest:        newAPRequestChart(d),
		Instance:         newInstanceChart(d),
		Hashtag:          newHashtagChart(d),
		PerUserNotes:     newPerUserNotesChart(d),
		PerUserDrive:     newPerUserDriveChart(d),
		PerUserReactions: newPerUserReactionsChart(d),
		PerUserFollowing: newPerUserFollowingChart(d),
		PerUserPV:        newPerUserPVChart(d),
	}
}

func (c *Charts) Engines() []*engine.Engine {
	return []*engine.Engine{
		c.Users.Engine(),
		c.Notes.Engine(),
		c.Drive.Engine(),
		c.ActiveUsers.Engine(),
		c.Federation.Engine(),
		c.APRequest.Engine(),
		c.Instance.Engine(),
		c.Hashtag.Engine(),
		c.PerUserNotes.Engine(),
		c.PerUserDrive.Engine(),
		c.PerUserReactions.Engine(),
		c.PerUserFollowing.Engine(),
		c.PerUserPV.Engine(),
	}
}

// Register adds every chart engine to r.
func (c *Charts) Register(r *engine.Registry) error {
	return r.Register(c.Engines()...)
}

// chart is embedded by every concrete chart.
type chart struct {
	engine *engine.Engine
	logger zerolog.Logger
}

func (c *chart) init(d Deps, schema *domain.Schema, hooks engine.Hooks) {
	c.logger = d.Logger.With().Str("chart", schema.Name()).Logger()
	opts := append([]engine.Option{
		engine.WithClock(d.Clock),
		engine.WithLogger(d.Logger),
	}, d.Options...)
	if hooks != nil {
		opts = append(opts, engine.WithHooks(hooks))
	}
	c.engine = engine.New(schema, d.Store, d.Locks, opts...)
}

func (c *chart) Engine() *engine.Engine { return c.engine }

// commit records ch and logs a failure instead of returning it: chart
// updates ride along with user-facing requests and must never fail them.
func (c *chart) commit(ctx context.Context, group string, ch *domain.Changes) {
	if err := c.engine.Commit(ctx, group, ch); err != nil {
		c.logger.Error().Err(err).Str("group", group).Msg("chart commit failed")
	}
}

func locality(host string) string {
	if host == "" {
		return "local"
	}
	return "remote"
}

func sign(added bool) int64 {
	if added {
		return 1
	}
	return -1
}

// incDec picks the inc or dec column for a change direction.
func incDec(prefix string, added bool) string {
	if added {
		return prefix + "inc"
	}
	return prefix + "dec"
}
