package service

import (
	"context"
	"errors"
	"log"
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/app_errors"
	"feed/model"
	"feed/repository"
)

type ProfileService struct {
	profileRepository repository.ProfileRepository
	profileCounters   *ProfileCounters
	tracer            trace.Tracer
}

func NewProfileService(profileRepository repository.ProfileRepository, profileCounters *ProfileCounters, tracer trace.Tracer) *ProfileService {
	return &ProfileService{
		profileRepository: profileRepository,
		profileCounters:   profileCounters,
		tracer:            tracer,
	}
}

// GetProfile serves counters from the cache when it can. IsFollowing is
// looked up for every request since it depends on the viewer.
func (s *ProfileService) GetProfile(ctx context.Context, userId string) (*model.Profile, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "ProfileService.GetProfile")
	defer span.End()

	profile, epoch, ok := s.profileCounters.Get(serviceCtx, userId)
	if !ok {
		var err error
		profile, err = s.profileRepository.GetProfile(serviceCtx, userId)
		if errors.Is(err, repository.ErrNotFound) {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.NotFound("profile not found")
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.Internal(err)
		}
		if err := s.profileCounters.Fill(serviceCtx, profile, epoch); err != nil {
			span.RecordError(err)
			log.Printf("failed to cache profile %s: %v", userId, err)
		}
	}

	profile.IsFollowing = false
	if viewerId := model.ViewerID(serviceCtx); viewerId != "" && viewerId != userId {
		following, err := s.profileRepository.IsFollowing(serviceCtx, viewerId, userId)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, app_errors.Internal(err)
		}
		profile.IsFollowing = following
	}

	return profile, nil
}

func (s *ProfileService) ToggleFollow(ctx context.Context, userId string) (*model.ToggleFollowResult, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "ProfileService.ToggleFollow")
	defer span.End()

	authUser, ok := model.AuthUserFrom(serviceCtx)
	if !ok {
		return nil, app_errors.Unauthorized()
	}
	if authUser.ID == userId {
		return nil, &app_errors.AppError{Code: http.StatusBadRequest, Message: "cannot follow yourself"}
	}

	_, err := s.profileRepository.FindUser(serviceCtx, userId)
	if errors.Is(err, repository.ErrNotFound) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.NotFound("profile not found")
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	_, err = saveViewer(serviceCtx, s.profileRepository, authUser)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	follow := model.Follow{FollowerID: authUser.ID, FolloweeID: userId}
	defer s.profileCounters.Invalidate(serviceCtx, span, authUser.ID, userId)

	deleted, err := s.profileRepository.DeleteFollow(serviceCtx, &follow)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}
	if deleted {
		return &model.ToggleFollowResult{Added: false}, nil
	}

	err = s.profileRepository.SaveFollow(serviceCtx, &follow)
	if err != nil && !errors.Is(err, repository.ErrFollowExists) {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal(err)
	}

	return &model.ToggleFollowResult{Added: true}, nil
}
