package service

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"feed/app_errors"
	"feed/model"
	"feed/rpc"
)

type gRPCTweetService struct {
	tracer         trace.Tracer
	tweetService   *TweetService
	profileService *ProfileService
}

func NewgRPCTweetService(tracer trace.Tracer, tweetService *TweetService, profileService *ProfileService) *gRPCTweetService {
	return &gRPCTweetService{
		tracer:         tracer,
		tweetService:   tweetService,
		profileService: profileService,
	}
}

func (s *gRPCTweetService) InfiniteFeed(ctx context.Context, req *rpc.InfiniteFeedRequest) (*model.Page, error) {
	serviceCtx, span := s.tracer.Start(ctx, "gRPCTweetService.InfiniteFeed")
	defer span.End()

	page, appErr := s.tweetService.InfiniteFeed(serviceCtx, model.FeedQuery{AuthorID: req.AuthorID}, req.Cursor, req.Limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		return nil, toStatus(appErr)
	}

	return page, nil
}

func (s *gRPCTweetService) ToggleLike(ctx context.Context, req *rpc.ToggleLikeRequest) (*model.ToggleLikeResult, error) {
	serviceCtx, span := s.tracer.Start(ctx, "gRPCTweetService.ToggleLike")
	defer span.End()

	result, appErr := s.tweetService.ToggleLike(serviceCtx, req.TweetID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		return nil, toStatus(appErr)
	}

	return result, nil
}

func (s *gRPCTweetService) GetProfile(ctx context.Context, req *rpc.GetProfileRequest) (*model.Profile, error) {
	serviceCtx, span := s.tracer.Start(ctx, "gRPCTweetService.GetProfile")
	defer span.End()

	profile, appErr := s.profileService.GetProfile(serviceCtx, req.UserID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		return nil, toStatus(appErr)
	}

	return profile, nil
}

func toStatus(appErr *app_errors.AppError) error {
	code := grpccodes.Internal
	switch appErr.Code {
	case http.StatusBadRequest:
		code = grpccodes.InvalidArgument
	case http.StatusUnauthorized:
		code = grpccodes.Unauthenticated
	case http.StatusForbidden:
		code = grpccodes.PermissionDenied
	case http.StatusNotFound:
		code = grpccodes.NotFound
	case http.StatusServiceUnavailable:
		code = grpccodes.Unavailable
	}
	return status.Error(code, appErr.Message)
}
