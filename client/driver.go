package client

import (
	"context"
	"sync"

	"feed/model"
)

type PageAPI interface {
	InfiniteFeed(ctx context.Context, query model.FeedQuery, cursor string, limit int) (*model.Page, error)
}

type LikeAPI interface {
	ToggleLike(ctx context.Context, tweetId string) (*model.ToggleLikeResult, error)
}

// FeedAPI is the part of the feed service a consumer talks to.
type FeedAPI interface {
	PageAPI
	LikeAPI
}

type State int

const (
	Idle State = iota
	Fetching
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ScrollDriver fills one cache entry page by page as the consumer nears
// the end of what it has rendered. At most one fetch is in flight; once
// a page arrives without a cursor the driver stays Exhausted until
// Refresh.
type ScrollDriver struct {
	api   PageAPI
	cache *FeedCache
	query model.FeedQuery
	limit int

	mu         sync.Mutex
	state      State
	cursor     string
	generation uint64
	closed     bool
}

func NewScrollDriver(api PageAPI, cache *FeedCache, query model.FeedQuery, limit int) *ScrollDriver {
	return &ScrollDriver{
		api:        api,
		cache:      cache,
		query:      query,
		limit:      limit,
		generation: cache.Reset(query),
	}
}

func (d *ScrollDriver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *ScrollDriver) Query() model.FeedQuery {
	return d.query
}

// NearEnd is the proximity signal. It fetches the next page unless a
// fetch is already running or the feed is exhausted, and reports whether
// a page was appended. A failed fetch leaves the driver Idle so the
// signal can simply be sent again.
func (d *ScrollDriver) NearEnd(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.closed || d.state != Idle {
		d.mu.Unlock()
		return false, nil
	}
	d.state = Fetching
	cursor, generation := d.cursor, d.generation
	d.mu.Unlock()

	page, err := d.api.InfiniteFeed(ctx, d.query, cursor, d.limit)

	d.mu.Lock()
	defer d.mu.Unlock()

	if generation != d.generation {
		// reset or closed while in flight; the response belongs to a
		// cache entry that no longer exists
		return false, nil
	}
	if err != nil {
		d.state = Idle
		return false, err
	}
	if !d.cache.Append(d.query, generation, *page) {
		d.state = Idle
		return false, nil
	}

	d.cursor = page.NextCursor
	if page.NextCursor == "" {
		d.state = Exhausted
	} else {
		d.state = Idle
	}
	return true, nil
}

// Refresh rebuilds the entry from the top of the feed. A fetch still in
// flight from before the refresh is discarded when it returns.
func (d *ScrollDriver) Refresh(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false, nil
	}
	d.generation = d.cache.Reset(d.query)
	d.cursor = ""
	d.state = Idle
	d.mu.Unlock()

	return d.NearEnd(ctx)
}

// Close tears the view down and drops its cache entry.
func (d *ScrollDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.generation = 0
	d.cache.Drop(d.query)
}
