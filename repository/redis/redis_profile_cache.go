package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/config"
	"feed/model"
)

// RedisProfileCache stores the viewer-independent part of profiles.
// IsFollowing is cleared before a profile is written.
type RedisProfileCache struct {
	tracer trace.Tracer
	cli    *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(tracer trace.Tracer, cfg config.RedisConfig) *RedisProfileCache {
	redisAddress := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})

	return &RedisProfileCache{
		tracer: tracer,
		cli:    client,
		ttl:    cfg.ProfileTTL,
	}
}

func (r *RedisProfileCache) GetProfile(ctx context.Context, userId string) (*model.Profile, bool) {
	_, span := r.tracer.Start(ctx, "RedisProfileCache.GetProfile")
	defer span.End()

	value, err := r.cli.Get(constructProfileKey(userId)).Bytes()
	if err != nil {
		if err != redis.Nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, false
	}

	var profile model.Profile
	if err := cbor.Unmarshal(value, &profile); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false
	}

	return &profile, true
}

func (r *RedisProfileCache) PostProfile(ctx context.Context, profile *model.Profile) error {
	_, span := r.tracer.Start(ctx, "RedisProfileCache.PostProfile")
	defer span.End()

	cached := *profile
	cached.IsFollowing = false

	value, err := cbor.Marshal(cached)
	if err != nil {
		return err
	}

	return r.cli.Set(constructProfileKey(profile.ID), value, r.ttl).Err()
}

func (r *RedisProfileCache) DeleteProfiles(ctx context.Context, userIds ...string) error {
	_, span := r.tracer.Start(ctx, "RedisProfileCache.DeleteProfiles")
	defer span.End()

	if len(userIds) == 0 {
		return nil
	}

	keys := make([]string, len(userIds))
	for i, id := range userIds {
		keys[i] = constructProfileKey(id)
	}

	return r.cli.Del(keys...).Err()
}

const (
	cacheProfile = "profile:%s"
)

func constructProfileKey(id string) string {
	return fmt.Sprintf(cacheProfile, id)
}
