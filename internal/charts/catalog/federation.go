package catalog

import (
	"context"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
)

var FederationSchema = domain.MustSchema("federation", false,
	domain.UniqueColumn("deliveredInstances"),
	domain.UniqueColumn("inboxInstances"),
	domain.UniqueColumn("stalled"),
	domain.CounterColumn("sub"),
	domain.CounterColumn("pub"),
	domain.CounterColumn("pubsub"),
	domain.CounterColumn("subActive"),
	domain.CounterColumn("pubActive"),
)

// FederationChart tracks which remote instances this server exchanges
// activities with.
type FederationChart struct {
	chart
	src InstanceCounter
}

func newFederationChart(d Deps) *FederationChart {
	c := &FederationChart{src: d.Instances}
	var hooks engine.Hooks
	if d.Instances != nil {
		hooks = c
	}
	c.init(d, FederationSchema, hooks)
	return c
}

// Delivered records an outbound delivery attempt to host.
func (c *FederationChart) Delivered(ctx context.Context, host string, succeeded bool) {
	col := "stalled"
	if succeeded {
		col = "deliveredInstances"
	}
	c.commit(ctx, "", domain.NewChanges().Put(col, host))
}

func (c *FederationChart) Inbox(ctx context.Context, host string) {
	c.commit(ctx, "", domain.NewChanges().Put("inboxInstances", host))
}

func (c *FederationChart) TickMinor(context.Context, string) (*domain.Changes, error) {
	return nil, nil
}

func (c *FederationChart) TickMajor(ctx context.Context, _ string) (map[string]int64, error) {
	st, err := c.src.FederationStats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]int64{
		"sub":       st.Sub,
		"pub":       st.Pub,
		"pubsub":    st.PubSub,
		"subActive": st.SubActive,
		"pubActive": st.PubActive,
	}, nil
}

var APRequestSchema = domain.MustSchema("ap-request", false,
	domain.CounterColumn("deliverFailed"),
	domain.CounterColumn("deliverSucceeded"),
	domain.CounterColumn("inboxReceived"),
)

type APRequestChart struct {
	chart
}

func newAPRequestChart(d Deps) *APRequestChart {
	c := &APRequestChart{}
	c.init(d, APRequestSchema, nil)
	return c
}

func (c *APRequestChart) DeliverSucceeded(ctx context.Context) {
	c.commit(ctx, "", domain.NewChanges().Add("deliverSucceeded", 1))
}

func (c *APRequestChart) DeliverFailed(ctx context.Context) {
	c.commit(ctx, "", domain.NewChanges().Add("deliverFailed", 1))
}

func (c *APRequestChart) InboxReceived(ctx context.Context) {
	c.commit(ctx, "", domain.NewChanges().Add("inboxReceived", 1))
}
