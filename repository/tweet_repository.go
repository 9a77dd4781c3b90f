package repository

import (
	"context"
	"errors"

	"feed/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrLikeExists   = errors.New("like already exists")
	ErrFollowExists = errors.New("follow already exists")
)

type TweetRepository interface {
	SaveUser(ctx context.Context, user *model.User) error
	FindUser(ctx context.Context, userId string) (*model.User, error)
	SaveTweet(ctx context.Context, tweet *model.Tweet) error
	FindTweet(ctx context.Context, tweetId string) (*model.Tweet, error)
	// GetFeedTweets returns at most limit tweets of the query population that
	// come strictly after cursor, ordered by (CreatedAt desc, ID desc).
	// LikedByMe is computed for viewerId; an empty viewerId leaves it false.
	GetFeedTweets(ctx context.Context, query model.FeedQuery, cursor *model.Cursor, limit int, viewerId string) ([]model.Tweet, error)
	// SaveLike returns ErrLikeExists when the (user, tweet) pair is already liked.
	SaveLike(ctx context.Context, like *model.Like) error
	// DeleteLike reports whether a like row was removed.
	DeleteLike(ctx context.Context, like *model.Like) (bool, error)
	CountLikes(ctx context.Context, tweetId string) (int, error)
}

type ProfileRepository interface {
	FindUser(ctx context.Context, userId string) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error
	// GetProfile returns the viewer-independent part of a profile.
	GetProfile(ctx context.Context, userId string) (*model.Profile, error)
	IsFollowing(ctx context.Context, followerId string, followeeId string) (bool, error)
	SaveFollow(ctx context.Context, follow *model.Follow) error
	DeleteFollow(ctx context.Context, follow *model.Follow) (bool, error)
}

// Repository is what a store of record provides to the services.
type Repository interface {
	TweetRepository
	ProfileRepository
	Close() error
}
