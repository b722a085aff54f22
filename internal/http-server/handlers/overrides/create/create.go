package create

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type OverrideCreator interface {
	CreateOverride(ctx context.Context, practitionerID string, req *api.OverrideRequest) (*api.OverrideResponse, error)
}

type Request struct {
	api.OverrideRequest
}

type Response struct {
	response.Response
	Override *api.OverrideResponse `json:"override,omitempty"`
}

func New(log *slog.Logger, creator OverrideCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.overrides.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practitionerID := chi.URLParam(r, "id")

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		override, err := creator.CreateOverride(r.Context(), practitionerID, &req.OverrideRequest)

		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			log.Error("Invalid request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid override", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST),
				"an available override needs a slot duration and ordered, non-overlapping ranges"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("practitioner not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "practitioner not found"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("override already exists for date")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "an override already exists for this date"))
			return
		}

		if err != nil {
			log.Error("Failed to create override", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create override"))
			return
		}

		log.Info("Override created", slog.String("id", override.ID), slog.String("date", override.Date))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Override: override,
		})
	}
}
