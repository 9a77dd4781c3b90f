package client

import (
	"context"

	"feed/model"
)

// LikeReconciler applies a confirmed like toggle to held pages.
type LikeReconciler interface {
	ApplyLikeDelta(tweetId string, added bool) int
}

// LikeToggler is the call site of the like toggle. Each successful
// response is reconciled exactly once with the server's added value; a
// failed toggle leaves the cache untouched.
type LikeToggler struct {
	api        LikeAPI
	reconciler LikeReconciler
}

func NewLikeToggler(api LikeAPI, reconciler LikeReconciler) *LikeToggler {
	return &LikeToggler{
		api:        api,
		reconciler: reconciler,
	}
}

func (t *LikeToggler) Toggle(ctx context.Context, tweetId string) (*model.ToggleLikeResult, error) {
	result, err := t.api.ToggleLike(ctx, tweetId)
	if err != nil {
		return nil, err
	}

	t.reconciler.ApplyLikeDelta(tweetId, result.Added)
	return result, nil
}
