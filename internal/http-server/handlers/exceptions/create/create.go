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

type ExceptionCreator interface {
	CreateException(ctx context.Context, practitionerID string, req *api.ExceptionRequest) (*api.ExceptionResponse, error)
}

type Request struct {
	api.ExceptionRequest
}

type Response struct {
	response.Response
	Exception *api.ExceptionResponse `json:"exception,omitempty"`
}

func New(log *slog.Logger, creator ExceptionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.create.New"

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

		exception, err := creator.CreateException(r.Context(), practitionerID, &req.ExceptionRequest)

		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			log.Error("Invalid request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid exception", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST),
				"exception must be either unavailable or carry an ordered block_start and block_end"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("practitioner not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "practitioner not found"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("exception already exists for the date", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "an exception already exists for this date"))
			return
		}

		if err != nil {
			log.Error("Failed to create exception", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create exception"))
			return
		}

		log.Info("Exception created", slog.String("id", exception.ID), slog.String("date", exception.Date))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{
			Exception: exception,
		})
	}
}
