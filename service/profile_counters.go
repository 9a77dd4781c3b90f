package service

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"feed/model"
	"feed/repository"
)

// ProfileCounters fronts the profile cache for both services. Every
// invalidation bumps an epoch; a read-through fill is dropped when the
// epoch moved while the store read was in flight, so a fill never puts
// back counters older than the last write.
type ProfileCounters struct {
	cache repository.ProfileCache

	mu    sync.Mutex
	epoch uint64
}

func NewProfileCounters(cache repository.ProfileCache) *ProfileCounters {
	return &ProfileCounters{cache: cache}
}

// Get returns the cached profile and the epoch a later Fill must present.
func (c *ProfileCounters) Get(ctx context.Context, userId string) (*model.Profile, uint64, bool) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	profile, ok := c.cache.GetProfile(ctx, userId)
	return profile, epoch, ok
}

// Fill stores profile unless an invalidation ran since epoch was issued.
func (c *ProfileCounters) Fill(ctx context.Context, profile *model.Profile, epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return nil
	}
	return c.cache.PostProfile(ctx, profile)
}

// Invalidate drops the cached profiles of userIds. A failure is recorded
// on span and logged; the write that caused it has already succeeded.
func (c *ProfileCounters) Invalidate(ctx context.Context, span trace.Span, userIds ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	if err := c.cache.DeleteProfiles(ctx, userIds...); err != nil {
		span.RecordError(err)
		log.Printf("failed to invalidate cached profiles %v: %v", userIds, err)
	}
}
