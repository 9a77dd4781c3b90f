package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"

	"feed/controller/jwt"
	"feed/tracing"
)

func NewRouter(tweetController *TweetController, profileController *ProfileController, tracer trace.Tracer, secret []byte) *mux.Router {
	router := mux.NewRouter()
	router.StrictSlash(true)
	router.Use(
		tracing.ExtractTraceInfoMiddleware,
		jwt.ExtractJWTUserMiddleware(tracer, secret),
	)

	router.HandleFunc("/tweets/", tweetController.CreateTweet).Methods("POST")
	router.HandleFunc("/tweets/feed", tweetController.InfiniteFeed).Methods("GET")
	router.HandleFunc("/tweets/{id}/like", tweetController.ToggleLike).Methods("PUT")
	router.HandleFunc("/profiles/{id}", profileController.GetProfile).Methods("GET")
	router.HandleFunc("/profiles/{id}/follow", profileController.ToggleFollow).Methods("PUT")

	return router
}

// privateToViewer marks a response whose body depends on the caller's
// token, so shared caches neither store it nor hand it to another viewer.
func privateToViewer(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "private")
	w.Header().Add("Vary", "Authorization")
}
