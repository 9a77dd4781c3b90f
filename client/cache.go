// Package client holds the consumer side of the feed: fetched pages kept
// per query, the infinite scroll state machine that fills them, and the
// like toggle call site that patches them.
package client

import (
	"sync"

	"feed/model"
)

// ApplyLikeDelta patches every occurrence of tweetId in pages with the
// confirmed toggle outcome and returns how many it patched. It is not
// idempotent: each confirmed response must be applied exactly once.
func ApplyLikeDelta(pages []model.Page, tweetId string, added bool) int {
	patched := 0
	for p := range pages {
		tweets := pages[p].Tweets
		for i := range tweets {
			if tweets[i].ID != tweetId {
				continue
			}
			if added {
				tweets[i].LikeCount++
			} else if tweets[i].LikeCount > 0 {
				tweets[i].LikeCount--
			}
			tweets[i].LikedByMe = added
			patched++
		}
	}
	return patched
}

type feedEntry struct {
	pages      []model.Page
	generation uint64
}

func (e *feedEntry) lastTweet() (model.Tweet, bool) {
	for i := len(e.pages) - 1; i >= 0; i-- {
		if tweets := e.pages[i].Tweets; len(tweets) > 0 {
			return tweets[len(tweets)-1], true
		}
	}
	return model.Tweet{}, false
}

// FeedCache is the set of feed entries a consumer currently holds, one
// per query. Pages are kept in fetch order.
type FeedCache struct {
	mu             sync.Mutex
	entries        map[string]*feedEntry
	lastGeneration uint64
}

func NewFeedCache() *FeedCache {
	return &FeedCache{
		entries: make(map[string]*feedEntry),
	}
}

// Reset empties the entry for query, creating it if needed, and returns
// the generation appends must present.
func (c *FeedCache) Reset(query model.FeedQuery) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastGeneration++
	c.entries[query.Key()] = &feedEntry{generation: c.lastGeneration}
	return c.lastGeneration
}

// Drop discards the entry for query. Later appends and like patches for
// it are ignored.
func (c *FeedCache) Drop(query model.FeedQuery) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, query.Key())
}

// Append adds page to the end of the entry. It returns false, storing
// nothing, when the entry is gone, was reset after generation was issued,
// or when the page does not start after the last tweet already held.
func (c *FeedCache) Append(query model.FeedQuery, generation uint64, page model.Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[query.Key()]
	if !ok || entry.generation != generation {
		return false
	}
	if last, ok := entry.lastTweet(); ok && len(page.Tweets) > 0 {
		if !model.CursorAfter(last).Precedes(page.Tweets[0]) {
			return false
		}
	}

	tweets := make([]model.Tweet, len(page.Tweets))
	copy(tweets, page.Tweets)
	entry.pages = append(entry.pages, model.Page{Tweets: tweets, NextCursor: page.NextCursor})
	return true
}

// Pages returns a copy of the pages held for query.
func (c *FeedCache) Pages(query model.FeedQuery) []model.Page {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[query.Key()]
	if !ok {
		return nil
	}

	pages := make([]model.Page, len(entry.pages))
	for i, page := range entry.pages {
		tweets := make([]model.Tweet, len(page.Tweets))
		copy(tweets, page.Tweets)
		pages[i] = model.Page{Tweets: tweets, NextCursor: page.NextCursor}
	}
	return pages
}

// Tweets returns the tweets held for query across all its pages.
func (c *FeedCache) Tweets(query model.FeedQuery) []model.Tweet {
	var tweets []model.Tweet
	for _, page := range c.Pages(query) {
		tweets = append(tweets, page.Tweets...)
	}
	return tweets
}

// ApplyLikeDelta patches the tweet in every entry, since the same tweet
// may be held by more than one query at once.
func (c *FeedCache) ApplyLikeDelta(tweetId string, added bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	patched := 0
	for _, entry := range c.entries {
		patched += ApplyLikeDelta(entry.pages, tweetId, added)
	}
	return patched
}
