package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"go.opentelemetry.io/otel/trace"

	"feed/clock"
	"feed/model"
	"feed/repository"
	"feed/repository/sqlite"
	"feed/service"
)

var (
	noopTracer = trace.NewNoopTracerProvider().Tracer("test")
	testSecret = []byte("test-secret")
)

func newTestRouter(t *testing.T) (http.Handler, *sqlite.SQLiteTweetRepository) {
	t.Helper()

	repo, err := sqlite.NewSQLiteTweetRepository(noopTracer, filepath.Join(t.TempDir(), "feed.db"), 4)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	pager := service.NewPager(repo, noopTracer, 10, 50)
	counters := service.NewProfileCounters(repository.NoProfileCache{})
	tweetService := service.NewTweetService(repo, counters, pager, clock.Real(), noopTracer)
	profileService := service.NewProfileService(repo, counters, noopTracer)

	router := NewRouter(
		NewTweetController(tweetService, noopTracer),
		NewProfileController(profileService, noopTracer),
		noopTracer,
		testSecret,
	)
	return router, repo
}

func bearer(t *testing.T, userId string) string {
	t.Helper()

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"userId": userId,
		"name":   "name of " + userId,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func serve(router http.Handler, method string, target string, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func authHeader(t *testing.T, userId string) http.Header {
	t.Helper()
	return http.Header{"Authorization": []string{bearer(t, userId)}}
}

func TestCreateTweetThenReadFeed(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodPost, "/tweets/", `{"content":"hello"}`, authHeader(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("create tweet: %d %s", rec.Code, rec.Body.String())
	}
	var created model.Tweet
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode tweet: %v", err)
	}

	rec = serve(router, http.MethodGet, "/tweets/feed?authorId=u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: %d %s", rec.Code, rec.Body.String())
	}
	var page model.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Tweets) != 1 || page.Tweets[0].ID != created.ID || page.NextCursor != "" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestCreateTweetValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		header http.Header
		code   int
	}{
		{"anonymous", `{"content":"hello"}`, nil, http.StatusUnauthorized},
		{"empty content", `{"content":""}`, authHeader(t, "u1"), http.StatusBadRequest},
		{"too long", `{"content":"` + strings.Repeat("x", 281) + `"}`, authHeader(t, "u1"), http.StatusBadRequest},
		{"unknown field", `{"content":"hi","extra":1}`, authHeader(t, "u1"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/tweets/", tt.body, tt.header)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestFeedETag(t *testing.T) {
	router, repo := newTestRouter(t)
	err := repo.SaveTweet(context.Background(), &model.Tweet{ID: "t1", Content: "hi", CreatedAt: time.UnixMilli(1000), User: model.User{ID: "u1"}})
	if err != nil {
		t.Fatalf("save tweet: %v", err)
	}

	rec := serve(router, http.MethodGet, "/tweets/feed", "", nil)
	etag := rec.Header().Get("ETag")
	if rec.Code != http.StatusOK || etag == "" {
		t.Fatalf("expected 200 with an ETag, got %d %q", rec.Code, etag)
	}

	rec = serve(router, http.MethodGet, "/tweets/feed", "", http.Header{"If-None-Match": []string{etag}})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}

	// a like changes the body, so the old tag no longer matches
	rec = serve(router, http.MethodPut, "/tweets/t1/like", "", authHeader(t, "v1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle like: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(router, http.MethodGet, "/tweets/feed", "", http.Header{"If-None-Match": []string{etag}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after a like, got %d", rec.Code)
	}
}

func TestFeedErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"unknown author", "/tweets/feed?authorId=ghost", http.StatusNotFound},
		{"bad cursor", "/tweets/feed?cursor=garbage", http.StatusBadRequest},
		{"bad limit", "/tweets/feed?limit=ten", http.StatusBadRequest},
		{"negative limit", "/tweets/feed?limit=-1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodGet, tt.target, "", nil)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestToggleLikeAuth(t *testing.T) {
	router, repo := newTestRouter(t)
	err := repo.SaveTweet(context.Background(), &model.Tweet{ID: "t1", Content: "hi", CreatedAt: time.UnixMilli(1000), User: model.User{ID: "u1"}})
	if err != nil {
		t.Fatalf("save tweet: %v", err)
	}

	rec := serve(router, http.MethodPut, "/tweets/t1/like", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	rec = serve(router, http.MethodPut, "/tweets/t1/like", "", http.Header{"Authorization": []string{"Bearer garbage"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with a bad token, got %d", rec.Code)
	}

	rec = serve(router, http.MethodPut, "/tweets/t1/like", "", authHeader(t, "v1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle like: %d %s", rec.Code, rec.Body.String())
	}
	var result model.ToggleLikeResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.Added {
		t.Fatalf("expected added=true")
	}

	rec = serve(router, http.MethodPut, "/tweets/missing/like", "", authHeader(t, "v1"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown tweet, got %d", rec.Code)
	}
}

func TestViewerDependentResponsesArePrivate(t *testing.T) {
	router, repo := newTestRouter(t)
	if err := repo.SaveUser(context.Background(), &model.User{ID: "u1", Name: "one"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	err := repo.SaveTweet(context.Background(), &model.Tweet{ID: "t1", Content: "hi", CreatedAt: time.UnixMilli(1000), User: model.User{ID: "u1"}})
	if err != nil {
		t.Fatalf("save tweet: %v", err)
	}

	for _, target := range []string{"/tweets/feed", "/profiles/u1"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(router, http.MethodGet, target, "", authHeader(t, "v1"))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Cache-Control"); got != "private" {
				t.Fatalf("expected Cache-Control private, got %q", got)
			}
			if got := rec.Header().Get("Vary"); got != "Authorization" {
				t.Fatalf("expected Vary Authorization, got %q", got)
			}

			header := authHeader(t, "v1")
			header.Set("If-None-Match", rec.Header().Get("ETag"))
			rec = serve(router, http.MethodGet, target, "", header)
			if rec.Code != http.StatusNotModified {
				t.Fatalf("expected 304, got %d", rec.Code)
			}
			if got := rec.Header().Get("Vary"); got != "Authorization" {
				t.Fatalf("expected Vary on the 304 too, got %q", got)
			}
		})
	}
}

func TestProfileRoutes(t *testing.T) {
	router, repo := newTestRouter(t)
	if err := repo.SaveUser(context.Background(), &model.User{ID: "u1", Name: "one"}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	rec := serve(router, http.MethodPut, "/profiles/u1/follow", "", authHeader(t, "v1"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"addedFollow":true`) {
		t.Fatalf("follow: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/profiles/u1", "", authHeader(t, "v1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("get profile: %d %s", rec.Code, rec.Body.String())
	}
	var profile model.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.FollowersCount != 1 || !profile.IsFollowing {
		t.Fatalf("unexpected profile %+v", profile)
	}

	rec = serve(router, http.MethodGet, "/profiles/ghost", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
