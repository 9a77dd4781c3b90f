package controller

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/controller/json"
	"feed/model"
	"feed/service"
)

type TweetController struct {
	tweetService *service.TweetService
	tracer       trace.Tracer
	validator    *validator.Validate
}

func NewTweetController(tweetService *service.TweetService, tracer trace.Tracer) *TweetController {
	return &TweetController{
		tweetService,
		tracer,
		validator.New(),
	}
}

func (c *TweetController) CreateTweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.CreateTweet")
	defer span.End()

	tweet, err := json.DecodeJson[model.NewTweet](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vErr := c.validator.Struct(tweet)
	if vErr != nil {
		span.SetStatus(codes.Error, vErr.Error())
		http.Error(w, vErr.Error(), http.StatusBadRequest)
		return
	}

	newTweet, appErr := c.tweetService.CreateTweet(ctx, tweet)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	json.EncodeJson(w, newTweet)
}

func (c *TweetController) InfiniteFeed(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.InfiniteFeed")
	defer span.End()

	query := req.URL.Query()
	params := model.FeedParams{
		Cursor:   query.Get("cursor"),
		AuthorID: query.Get("authorId"),
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return
		}
		params.Limit = n
	}

	vErr := c.validator.Struct(params)
	if vErr != nil {
		span.SetStatus(codes.Error, vErr.Error())
		http.Error(w, vErr.Error(), http.StatusBadRequest)
		return
	}

	page, appErr := c.tweetService.InfiniteFeed(ctx, model.FeedQuery{AuthorID: params.AuthorID}, params.Cursor, params.Limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	privateToViewer(w)
	json.EncodeJsonWithETag(w, req, page)
}

func (c *TweetController) ToggleLike(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.ToggleLike")
	defer span.End()

	id := mux.Vars(req)["id"]

	result, appErr := c.tweetService.ToggleLike(ctx, id)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	json.EncodeJson(w, result)
}
