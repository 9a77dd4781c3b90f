package repository

import (
	"context"

	"feed/model"
)

// ProfileCache holds viewer-independent profile aggregates.
type ProfileCache interface {
	GetProfile(ctx context.Context, userId string) (*model.Profile, bool)
	PostProfile(ctx context.Context, profile *model.Profile) error
	DeleteProfiles(ctx context.Context, userIds ...string) error
}

// NoProfileCache is used when no cache is configured.
type NoProfileCache struct{}

func (NoProfileCache) GetProfile(context.Context, string) (*model.Profile, bool) { return nil, false }

func (NoProfileCache) PostProfile(context.Context, *model.Profile) error { return nil }

func (NoProfileCache) DeleteProfiles(context.Context, ...string) error { return nil }
