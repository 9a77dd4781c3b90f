package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"feed/model"
)

type countingReconciler struct {
	mu    sync.Mutex
	calls []bool
}

func (r *countingReconciler) ApplyLikeDelta(tweetId string, added bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, added)
	return 1
}

type fakeLikeAPI struct {
	results []bool
	err     error
}

func (a *fakeLikeAPI) ToggleLike(ctx context.Context, tweetId string) (*model.ToggleLikeResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	added := a.results[0]
	a.results = a.results[1:]
	return &model.ToggleLikeResult{Added: added}, nil
}

func TestToggleReconcilesOncePerResponse(t *testing.T) {
	api := &fakeLikeAPI{results: []bool{true, false}}
	reconciler := &countingReconciler{}
	toggler := NewLikeToggler(api, reconciler)
	ctx := context.Background()

	result, err := toggler.Toggle(ctx, "x")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.Added {
		t.Fatalf("expected added=true")
	}
	if len(reconciler.calls) != 1 || !reconciler.calls[0] {
		t.Fatalf("expected one reconciliation with added=true, got %v", reconciler.calls)
	}

	if _, err := toggler.Toggle(ctx, "x"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(reconciler.calls) != 2 || reconciler.calls[1] {
		t.Fatalf("expected a second reconciliation with added=false, got %v", reconciler.calls)
	}
}

func TestFailedToggleLeavesCacheUntouched(t *testing.T) {
	cache := NewFeedCache()
	gen := cache.Reset(globalFeed)
	cache.Append(globalFeed, gen, page("", tweet("x", 3, false)))

	toggler := NewLikeToggler(&fakeLikeAPI{err: errors.New("unavailable")}, cache)
	if _, err := toggler.Toggle(context.Background(), "x"); err == nil {
		t.Fatalf("expected the error to surface")
	}

	x := findTweet(t, cache.Tweets(globalFeed), "x")
	if x.LikeCount != 3 || x.LikedByMe {
		t.Fatalf("expected 3/false, got %d/%v", x.LikeCount, x.LikedByMe)
	}
}

func TestOutOfOrderResponsesApplyEachOutcome(t *testing.T) {
	cache := NewFeedCache()
	gen := cache.Reset(globalFeed)
	cache.Append(globalFeed, gen, page("", tweet("x", 3, false)))

	// two toggles raced on the server: the first added, the second
	// removed, and the removal arrived first
	toggler := NewLikeToggler(&fakeLikeAPI{results: []bool{false, true}}, cache)
	ctx := context.Background()

	if _, err := toggler.Toggle(ctx, "x"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	x := findTweet(t, cache.Tweets(globalFeed), "x")
	if x.LikeCount != 2 || x.LikedByMe {
		t.Fatalf("expected 2/false after the removal, got %d/%v", x.LikeCount, x.LikedByMe)
	}

	if _, err := toggler.Toggle(ctx, "x"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	x = findTweet(t, cache.Tweets(globalFeed), "x")
	if x.LikeCount != 3 || !x.LikedByMe {
		t.Fatalf("expected 3/true after the addition, got %d/%v", x.LikeCount, x.LikedByMe)
	}
}
