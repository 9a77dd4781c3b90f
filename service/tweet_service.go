package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/app_errors"
	"feed/clock"
	"feed/model"
	"feed/repository"
)

type TweetService struct {
	tweetRepository repository.TweetRepository
	profileCounters *ProfileCounters
	pager           *Pager
	clock           clock.Clock
	tracer          trace.Tracer
}

func NewTweetService(tweetRepository repository.TweetRepository, profileCounters *ProfileCounters, pager *Pager, clock clock.Clock, tracer trace.Tracer) *TweetService {
	return &TweetService{
		tweetRepository: tweetRepository,
		profileCounters: profileCounters,
		pager:           pager,
		clock:           clock,
		tracer:          tracer,
	}
}

func (s *TweetService) CreateTweet(ctx context.Context, newTweet model.NewTweet) (*model.Tweet, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.CreateTweet")
	defer span.End()

	authUser, ok := model.AuthUserFrom(serviceCtx)
	if !ok {
		return nil, app_errors.Unauthorized()
	}

	author, err := saveViewer(serviceCtx, s.tweetRepository, authUser)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	t := model.Tweet{
		ID:        uuid.New().String(),
		Content:   newTweet.Content,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Millisecond),
		User:      author,
	}

	err = s.tweetRepository.SaveTweet(serviceCtx, &t)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	s.profileCounters.Invalidate(serviceCtx, span, author.ID)

	return &t, nil
}

func (s *TweetService) InfiniteFeed(ctx context.Context, query model.FeedQuery, cursor string, limit int) (*model.Page, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.InfiniteFeed")
	defer span.End()

	page, appErr := s.pager.FetchPage(serviceCtx, query, cursor, limit, model.ViewerID(serviceCtx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		return nil, appErr
	}

	return page, nil
}

// ToggleLike removes the viewer's like if there is one and adds it
// otherwise. Delete goes first so that a racing request that already
// inserted the row is seen as a conflict on our insert, and a conflict
// is reported as liked rather than surfaced.
func (s *TweetService) ToggleLike(ctx context.Context, tweetId string) (*model.ToggleLikeResult, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "TweetService.ToggleLike")
	defer span.End()

	authUser, ok := model.AuthUserFrom(serviceCtx)
	if !ok {
		return nil, app_errors.Unauthorized()
	}
	span.SetAttributes(attribute.String("tweet", tweetId))

	_, err := s.tweetRepository.FindTweet(serviceCtx, tweetId)
	if errors.Is(err, repository.ErrNotFound) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.NotFound("tweet not found")
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	_, err = saveViewer(serviceCtx, s.tweetRepository, authUser)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	like := model.Like{UserID: authUser.ID, TweetID: tweetId}

	deleted, err := s.tweetRepository.DeleteLike(serviceCtx, &like)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}
	if deleted {
		return &model.ToggleLikeResult{Added: false}, nil
	}

	err = s.tweetRepository.SaveLike(serviceCtx, &like)
	if err != nil && !errors.Is(err, repository.ErrLikeExists) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	return &model.ToggleLikeResult{Added: true}, nil
}
