package service

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"feed/model"
	"feed/repository/sqlite"
)

var noopTracer = trace.NewNoopTracerProvider().Tracer("test")

func newTestStore(t *testing.T) *sqlite.SQLiteTweetRepository {
	t.Helper()

	repo, err := sqlite.NewSQLiteTweetRepository(noopTracer, filepath.Join(t.TempDir(), "feed.db"), 4)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func seedUser(t *testing.T, repo *sqlite.SQLiteTweetRepository, id string) {
	t.Helper()

	if err := repo.SaveUser(context.Background(), &model.User{ID: id, Name: "name of " + id}); err != nil {
		t.Fatalf("save user %s: %v", id, err)
	}
}

func seedTweet(t *testing.T, repo *sqlite.SQLiteTweetRepository, id string, userId string, ms int64) {
	t.Helper()

	err := repo.SaveTweet(context.Background(), &model.Tweet{
		ID:        id,
		Content:   "content of " + id,
		CreatedAt: time.UnixMilli(ms).UTC(),
		User:      model.User{ID: userId},
	})
	if err != nil {
		t.Fatalf("save tweet %s: %v", id, err)
	}
}

func asViewer(id string) context.Context {
	return model.WithAuthUser(context.Background(), model.AuthUser{ID: id, Name: "name of " + id})
}

func TestFetchPageVisitsEveryTweetOnce(t *testing.T) {
	repo := newTestStore(t)
	pager := NewPager(repo, noopTracer, 10, 50)
	ctx := context.Background()

	seedUser(t, repo, "u1")
	for i := 0; i < 25; i++ {
		// pairs share a timestamp so the id tie-break is exercised
		seedTweet(t, repo, fmt.Sprintf("t%02d", i), "u1", int64(1000+i/2))
	}

	var seen []string
	cursor := ""
	for pages := 0; ; pages++ {
		if pages > 3 {
			t.Fatalf("expected 3 pages, still paging")
		}
		page, appErr := pager.FetchPage(ctx, model.FeedQuery{}, cursor, 10, "")
		if appErr != nil {
			t.Fatalf("fetch page: %v", appErr)
		}
		for _, tweet := range page.Tweets {
			seen = append(seen, tweet.ID)
		}
		if page.NextCursor == "" {
			break
		}
		if len(page.Tweets) != 10 {
			t.Fatalf("expected a full page before the last, got %d", len(page.Tweets))
		}
		cursor = page.NextCursor
	}

	if len(seen) != 25 {
		t.Fatalf("expected 25 tweets, got %d: %v", len(seen), seen)
	}
	for i, id := range seen {
		if want := fmt.Sprintf("t%02d", 24-i); id != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, id)
		}
	}
}

func TestFetchPageEmptyPopulation(t *testing.T) {
	pager := NewPager(newTestStore(t), noopTracer, 10, 50)

	page, appErr := pager.FetchPage(context.Background(), model.FeedQuery{}, "", 10, "")
	if appErr != nil {
		t.Fatalf("fetch page: %v", appErr)
	}
	if page.Tweets == nil || len(page.Tweets) != 0 {
		t.Fatalf("expected an empty non-nil page, got %v", page.Tweets)
	}
	if page.NextCursor != "" {
		t.Fatalf("expected no cursor, got %q", page.NextCursor)
	}
}

func TestFetchPageTieBreakOnEqualTimestamps(t *testing.T) {
	repo := newTestStore(t)
	pager := NewPager(repo, noopTracer, 10, 50)
	ctx := context.Background()

	seedTweet(t, repo, "t1", "u1", 1000)
	seedTweet(t, repo, "t2", "u1", 1000)

	first, appErr := pager.FetchPage(ctx, model.FeedQuery{}, "", 1, "")
	if appErr != nil {
		t.Fatalf("first page: %v", appErr)
	}
	if len(first.Tweets) != 1 || first.Tweets[0].ID != "t2" || first.NextCursor == "" {
		t.Fatalf("expected [t2] with a cursor, got %v %q", first.Tweets, first.NextCursor)
	}

	second, appErr := pager.FetchPage(ctx, model.FeedQuery{}, first.NextCursor, 1, "")
	if appErr != nil {
		t.Fatalf("second page: %v", appErr)
	}
	if len(second.Tweets) != 1 || second.Tweets[0].ID != "t1" {
		t.Fatalf("expected [t1], got %v", second.Tweets)
	}
	if second.NextCursor != "" {
		t.Fatalf("expected no cursor after the last tweet, got %q", second.NextCursor)
	}

	after := model.CursorAfter(second.Tweets[0]).Encode()
	third, appErr := pager.FetchPage(ctx, model.FeedQuery{}, after, 1, "")
	if appErr != nil {
		t.Fatalf("third page: %v", appErr)
	}
	if len(third.Tweets) != 0 || third.NextCursor != "" {
		t.Fatalf("expected an empty page with no cursor, got %v %q", third.Tweets, third.NextCursor)
	}
}

func TestFetchPageFiltersByAuthor(t *testing.T) {
	repo := newTestStore(t)
	pager := NewPager(repo, noopTracer, 10, 50)

	seedUser(t, repo, "u1")
	seedUser(t, repo, "u2")
	seedTweet(t, repo, "a", "u1", 1000)
	seedTweet(t, repo, "b", "u2", 2000)
	seedTweet(t, repo, "c", "u1", 3000)

	page, appErr := pager.FetchPage(context.Background(), model.FeedQuery{AuthorID: "u1"}, "", 10, "")
	if appErr != nil {
		t.Fatalf("fetch page: %v", appErr)
	}
	if len(page.Tweets) != 2 || page.Tweets[0].ID != "c" || page.Tweets[1].ID != "a" {
		t.Fatalf("expected [c a], got %v", page.Tweets)
	}
}

func TestFetchPageUnknownAuthor(t *testing.T) {
	pager := NewPager(newTestStore(t), noopTracer, 10, 50)

	_, appErr := pager.FetchPage(context.Background(), model.FeedQuery{AuthorID: "ghost"}, "", 10, "")
	if appErr == nil || appErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", appErr)
	}
}

func TestFetchPageMalformedCursor(t *testing.T) {
	pager := NewPager(newTestStore(t), noopTracer, 10, 50)

	_, appErr := pager.FetchPage(context.Background(), model.FeedQuery{}, "not a cursor", 10, "")
	if appErr == nil || appErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", appErr)
	}
}

func TestFetchPageClampsLimit(t *testing.T) {
	repo := newTestStore(t)
	pager := NewPager(repo, noopTracer, 3, 5)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		seedTweet(t, repo, fmt.Sprintf("t%d", i), "u1", int64(1000+i))
	}

	page, appErr := pager.FetchPage(ctx, model.FeedQuery{}, "", 0, "")
	if appErr != nil {
		t.Fatalf("default limit: %v", appErr)
	}
	if len(page.Tweets) != 3 {
		t.Fatalf("expected the default of 3, got %d", len(page.Tweets))
	}

	page, appErr = pager.FetchPage(ctx, model.FeedQuery{}, "", 100, "")
	if appErr != nil {
		t.Fatalf("large limit: %v", appErr)
	}
	if len(page.Tweets) != 5 || page.NextCursor == "" {
		t.Fatalf("expected 5 tweets and a cursor, got %d %q", len(page.Tweets), page.NextCursor)
	}
}

func TestFetchPageReportsViewerLikes(t *testing.T) {
	repo := newTestStore(t)
	pager := NewPager(repo, noopTracer, 10, 50)
	ctx := context.Background()

	seedTweet(t, repo, "t1", "u1", 1000)
	seedTweet(t, repo, "t2", "u1", 2000)
	for _, userId := range []string{"v1", "v2"} {
		if err := repo.SaveLike(ctx, &model.Like{UserID: userId, TweetID: "t1"}); err != nil {
			t.Fatalf("save like: %v", err)
		}
	}

	page, appErr := pager.FetchPage(ctx, model.FeedQuery{}, "", 10, "v1")
	if appErr != nil {
		t.Fatalf("fetch page: %v", appErr)
	}
	t2, t1 := page.Tweets[0], page.Tweets[1]
	if t1.LikeCount != 2 || !t1.LikedByMe {
		t.Fatalf("expected t1 2/true, got %d/%v", t1.LikeCount, t1.LikedByMe)
	}
	if t2.LikeCount != 0 || t2.LikedByMe {
		t.Fatalf("expected t2 0/false, got %d/%v", t2.LikeCount, t2.LikedByMe)
	}

	page, appErr = pager.FetchPage(ctx, model.FeedQuery{}, "", 10, "")
	if appErr != nil {
		t.Fatalf("anonymous fetch: %v", appErr)
	}
	if page.Tweets[1].LikedByMe {
		t.Fatalf("expected anonymous viewers to see likedByMe=false")
	}
}
