package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feed/controller/json"
	"feed/service"
)

type ProfileController struct {
	profileService *service.ProfileService
	tracer         trace.Tracer
}

func NewProfileController(profileService *service.ProfileService, tracer trace.Tracer) *ProfileController {
	return &ProfileController{
		profileService,
		tracer,
	}
}

func (c *ProfileController) GetProfile(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "ProfileController.GetProfile")
	defer span.End()

	id := mux.Vars(req)["id"]

	profile, appErr := c.profileService.GetProfile(ctx, id)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	privateToViewer(w)
	json.EncodeJsonWithETag(w, req, profile)
}

func (c *ProfileController) ToggleFollow(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "ProfileController.ToggleFollow")
	defer span.End()

	id := mux.Vars(req)["id"]

	result, appErr := c.profileService.ToggleFollow(ctx, id)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		http.Error(w, appErr.Message, appErr.Code)
		return
	}

	json.EncodeJson(w, result)
}
