package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/app_errors"
	"feed/model"
	"feed/repository"
)

// Pager serves a feed population in fixed-size pages ordered by
// (CreatedAt desc, ID desc). It asks the store for one row more than the
// page size; the extra row only signals that another page exists.
type Pager struct {
	tweetRepository repository.TweetRepository
	tracer          trace.Tracer
	defaultLimit    int
	maxLimit        int
}

func NewPager(tweetRepository repository.TweetRepository, tracer trace.Tracer, defaultLimit int, maxLimit int) *Pager {
	return &Pager{
		tweetRepository: tweetRepository,
		tracer:          tracer,
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
	}
}

func (p *Pager) limit(requested int) int {
	switch {
	case requested <= 0:
		return p.defaultLimit
	case requested > p.maxLimit:
		return p.maxLimit
	default:
		return requested
	}
}

// FetchPage returns the page after cursor (from the top when cursor is
// empty). An empty page with no NextCursor means the population is
// exhausted.
func (p *Pager) FetchPage(ctx context.Context, query model.FeedQuery, cursor string, limit int, viewerId string) (*model.Page, *app_errors.AppError) {
	pagerCtx, span := p.tracer.Start(ctx, "Pager.FetchPage")
	defer span.End()

	limit = p.limit(limit)
	span.SetAttributes(
		attribute.String("feed", query.Key()),
		attribute.Int("limit", limit),
	)

	if query.AuthorID != "" {
		_, err := p.tweetRepository.FindUser(pagerCtx, query.AuthorID)
		if errors.Is(err, repository.ErrNotFound) {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.NotFound("author not found")
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.Internal(err)
		}
	}

	var after *model.Cursor
	if cursor != "" {
		c, err := model.DecodeCursor(cursor)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.BadRequest(err.Error())
		}
		after = &c
	}

	tweets, err := p.tweetRepository.GetFeedTweets(pagerCtx, query, after, limit+1, viewerId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	page := &model.Page{Tweets: tweets}
	if page.Tweets == nil {
		page.Tweets = []model.Tweet{}
	}
	if len(tweets) > limit {
		page.Tweets = tweets[:limit]
		page.NextCursor = model.CursorAfter(page.Tweets[limit-1]).Encode()
	}

	return page, nil
}
