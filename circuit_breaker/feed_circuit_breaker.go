package circuit_breaker

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"feed/app_errors"
	"feed/model"
	"feed/rpc"
)

// FeedCircuitBreaker is the client's view of the feed service. Transport
// failures count against the breaker; answers such as NotFound do not.
type FeedCircuitBreaker struct {
	circuitBreaker *gobreaker.CircuitBreaker
	client         rpc.TweetServiceClient
	token          string
	tracer         trace.Tracer
}

func NewFeedCircuitBreaker(tracer trace.Tracer, client rpc.TweetServiceClient, token string) *FeedCircuitBreaker {
	return &FeedCircuitBreaker{
		circuitBreaker: CircuitBreaker(),
		client:         client,
		token:          token,
		tracer:         tracer,
	}
}

func CircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        "FeedService",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Printf("Circuit Breaker '%s' changed from '%s' to '%s'\n", name, from, to)
			},
		},
	)
}

type answer struct {
	value interface{}
	err   *app_errors.AppError
}

func (cb *FeedCircuitBreaker) outgoing(ctx context.Context) context.Context {
	if cb.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", cb.token)
}

func (cb *FeedCircuitBreaker) execute(span trace.Span, call func() (interface{}, error)) (interface{}, error) {
	execute, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		response, err := call()
		if err != nil {
			appErr := fromStatus(err)
			if appErr.Code >= http.StatusInternalServerError {
				return nil, appErr
			}
			return answer{err: appErr}, nil
		}
		return answer{value: response}, nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if appErr, ok := err.(*app_errors.AppError); ok {
			return nil, appErr
		}
		return nil, &app_errors.AppError{Code: http.StatusServiceUnavailable, Message: err.Error()}
	}

	a := execute.(answer)
	if a.err != nil {
		span.SetStatus(codes.Error, a.err.Error())
		return nil, a.err
	}
	return a.value, nil
}

func (cb *FeedCircuitBreaker) InfiniteFeed(ctx context.Context, query model.FeedQuery, cursor string, limit int) (*model.Page, error) {
	cbCtx, span := cb.tracer.Start(ctx, "FeedCircuitBreaker.InfiniteFeed")
	defer span.End()

	cbCtx = cb.outgoing(cbCtx)
	value, err := cb.execute(span, func() (interface{}, error) {
		return cb.client.InfiniteFeed(cbCtx, &rpc.InfiniteFeedRequest{AuthorID: query.AuthorID, Cursor: cursor, Limit: limit})
	})
	if err != nil {
		return nil, err
	}

	return value.(*model.Page), nil
}

func (cb *FeedCircuitBreaker) ToggleLike(ctx context.Context, tweetId string) (*model.ToggleLikeResult, error) {
	cbCtx, span := cb.tracer.Start(ctx, "FeedCircuitBreaker.ToggleLike")
	defer span.End()

	cbCtx = cb.outgoing(cbCtx)
	value, err := cb.execute(span, func() (interface{}, error) {
		return cb.client.ToggleLike(cbCtx, &rpc.ToggleLikeRequest{TweetID: tweetId})
	})
	if err != nil {
		return nil, err
	}

	return value.(*model.ToggleLikeResult), nil
}

func (cb *FeedCircuitBreaker) GetProfile(ctx context.Context, userId string) (*model.Profile, error) {
	cbCtx, span := cb.tracer.Start(ctx, "FeedCircuitBreaker.GetProfile")
	defer span.End()

	cbCtx = cb.outgoing(cbCtx)
	value, err := cb.execute(span, func() (interface{}, error) {
		return cb.client.GetProfile(cbCtx, &rpc.GetProfileRequest{UserID: userId})
	})
	if err != nil {
		return nil, err
	}

	return value.(*model.Profile), nil
}

// statusClientClosedRequest reports a call the caller gave up on. It stays
// below 500 so that abandoned calls never trip the breaker.
const statusClientClosedRequest = 499

func fromStatus(err error) *app_errors.AppError {
	s, _ := status.FromError(err)
	if errors.Is(err, context.Canceled) {
		s = status.New(grpccodes.Canceled, err.Error())
	}

	code := http.StatusInternalServerError
	switch s.Code() {
	case grpccodes.Canceled:
		code = statusClientClosedRequest
	case grpccodes.InvalidArgument:
		code = http.StatusBadRequest
	case grpccodes.Unauthenticated:
		code = http.StatusUnauthorized
	case grpccodes.PermissionDenied:
		code = http.StatusForbidden
	case grpccodes.NotFound:
		code = http.StatusNotFound
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded:
		code = http.StatusServiceUnavailable
	}

	return &app_errors.AppError{Code: code, Message: s.Message()}
}
