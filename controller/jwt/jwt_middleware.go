package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"feed/model"
)

var errInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 token and returns the user it names.
// A "Bearer " prefix is accepted.
func ParseToken(tokenString string, secret []byte) (model.AuthUser, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return model.AuthUser{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.AuthUser{}, errInvalidToken
	}

	userId, _ := claims["userId"].(string)
	if userId == "" {
		return model.AuthUser{}, errInvalidToken
	}

	authUser := model.AuthUser{ID: userId}
	authUser.Name, _ = claims["name"].(string)
	authUser.Image, _ = claims["image"].(string)
	authUser.Role, _ = claims["role"].(string)
	if exp, ok := claims["exp"].(float64); ok {
		authUser.Exp = time.Unix(int64(exp), 0)
	}

	return authUser, nil
}

// ExtractJWTUserMiddleware puts the token's user into the request context.
// Requests without a token continue anonymously; a bad token is rejected.
func ExtractJWTUserMiddleware(tracer trace.Tracer, secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			newCtx, span := tracer.Start(r.Context(), "ExtractJWTUserMiddleware")
			defer span.End()

			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				next.ServeHTTP(w, r.WithContext(newCtx))
				return
			}

			_, parseSpan := tracer.Start(newCtx, "jwt.Parse")
			authUser, err := ParseToken(tokenString, secret)
			parseSpan.End()

			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				http.Error(w, "Invalid token", http.StatusForbidden)
				return
			}

			span.SetAttributes(attribute.String("user", authUser.ID))

			next.ServeHTTP(w, r.WithContext(model.WithAuthUser(newCtx, authUser)))
		})
	}
}

// UnaryServerInterceptor does for gRPC what ExtractJWTUserMiddleware does
// for HTTP, reading the token from the "authorization" metadata key.
func UnaryServerInterceptor(tracer trace.Tracer, secret []byte) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 || values[0] == "" {
			return handler(ctx, req)
		}

		_, span := tracer.Start(ctx, "jwt.UnaryServerInterceptor")
		authUser, err := ParseToken(values[0], secret)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return nil, status.Error(grpccodes.PermissionDenied, "invalid token")
		}
		span.SetAttributes(attribute.String("user", authUser.ID))
		span.End()

		return handler(model.WithAuthUser(ctx, authUser), req)
	}
}
