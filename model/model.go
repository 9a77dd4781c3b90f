package model

import (
	"time"
)

// Info from JWT token
type AuthUser struct {
	ID    string
	Name  string
	Image string
	Role  string
	Exp   time.Time
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Tweet as delivered to a viewer. LikeCount and LikedByMe are derived on
// read and never stored with the tweet.
type Tweet struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	LikeCount int       `json:"likeCount"`
	LikedByMe bool      `json:"likedByMe"`
	User      User      `json:"user"`
}

type NewTweet struct {
	Content string `json:"content" validate:"required,max=280"`
}

type Like struct {
	UserID  string `json:"userId" validate:"required"`
	TweetID string `json:"tweetId" validate:"required"`
}

type ToggleLikeResult struct {
	Added bool `json:"added"`
}

type Follow struct {
	FollowerID string
	FolloweeID string
}

type ToggleFollowResult struct {
	Added bool `json:"addedFollow"`
}

// FeedQuery selects the population a feed is paged over. An empty
// AuthorID means the global timeline.
type FeedQuery struct {
	AuthorID string `json:"authorId,omitempty"`
}

func (q FeedQuery) Key() string {
	if q.AuthorID == "" {
		return "global"
	}
	return "user:" + q.AuthorID
}

type FeedParams struct {
	Cursor   string `validate:"omitempty,max=512"`
	Limit    int    `validate:"gte=0,lte=1000"`
	AuthorID string `validate:"omitempty,max=128"`
}

type Page struct {
	Tweets     []Tweet `json:"tweets"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// Profile is the aggregate returned by profile lookups. IsFollowing is
// relative to the viewer.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Image          string `json:"image,omitempty"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	TweetsCount    int    `json:"tweetsCount"`
	IsFollowing    bool   `json:"isFollowing"`
}
