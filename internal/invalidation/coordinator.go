// Package invalidation evicts derived cache views when the underlying data changes.
//
// Eviction happens synchronously inside the mutation call, so once OnMutation returns
// no reader can be served a value cached before the mutation. Namespaces are cleared
// one after another; a reader racing the invalidation may see one namespace already
// cleared and another not yet cleared. That window closes when OnMutation returns.
package invalidation

import (
	"context"
	"fmt"
	"time"

	"photographer-backend/internal/timing"

	"go.uber.org/zap"
)

// Kind names the mutation that triggered an invalidation.
type Kind string

const (
	KindCreated Kind = "PhotographerCreated"
	KindUpdated Kind = "PhotographerUpdated"
	KindDeleted Kind = "PhotographerDeleted"
)

// Mutation describes a completed write and the namespaces it may have made stale.
type Mutation struct {
	Kind       Kind
	EntityID   int64
	Namespaces []string
}

// Event is what publishers receive after the caches have been cleared.
type Event struct {
	Kind       Kind      `json:"kind"`
	EntityID   int64     `json:"entityId"`
	Namespaces []string  `json:"namespaces"`
	Evicted    int       `json:"evicted"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher forwards invalidation events to other interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// NamespaceEvictor clears named cache namespaces. cache.Manager implements it.
type NamespaceEvictor interface {
	EvictAll(names ...string) (int, error)
}

// Coordinator fans a mutation out to every affected namespace.
type Coordinator struct {
	evictor        NamespaceEvictor
	publisher      Publisher
	publishTimeout time.Duration
	logger         *zap.Logger
}

// NewCoordinator creates a coordinator. A nil publisher disables publishing.
func NewCoordinator(evictor NamespaceEvictor, publisher Publisher, publishTimeout time.Duration, logger *zap.Logger) *Coordinator {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publishTimeout <= 0 {
		publishTimeout = 2 * time.Second
	}
	return &Coordinator{
		evictor:        evictor,
		publisher:      publisher,
		publishTimeout: publishTimeout,
		logger:         logger.Named("invalidation"),
	}
}

// OnMutation clears every namespace listed in m and then publishes an event.
// The eviction time is recorded as cache time on the request tracker. Publish
// failures are logged and never fail the mutation.
func (c *Coordinator) OnMutation(ctx context.Context, m Mutation) error {
	if len(m.Namespaces) == 0 {
		return nil
	}

	start := time.Now()
	evicted, err := c.evictor.EvictAll(m.Namespaces...)
	timing.AddCache(ctx, time.Since(start))
	if err != nil {
		return fmt.Errorf("invalidate %s for %d: %w", m.Kind, m.EntityID, err)
	}

	c.logger.Debug("Caches invalidated",
		zap.String("kind", string(m.Kind)),
		zap.Int64("entityId", m.EntityID),
		zap.Strings("namespaces", m.Namespaces),
		zap.Int("evicted", evicted),
	)

	event := Event{
		Kind:       m.Kind,
		EntityID:   m.EntityID,
		Namespaces: m.Namespaces,
		Evicted:    evicted,
		OccurredAt: time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()
	if err := c.publisher.Publish(pubCtx, event); err != nil {
		c.logger.Warn("Failed to publish invalidation event",
			zap.String("kind", string(m.Kind)),
			zap.Int64("entityId", m.EntityID),
			zap.Error(err),
		)
	}
	return nil
}
