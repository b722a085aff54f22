package release

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
)

type HoldReleaser interface {
	ReleaseHold(ctx context.Context, id string) (*api.HoldResponse, error)
}

type Response struct {
	response.Response
	Hold *api.HoldResponse `json:"hold,omitempty"`
}

func New(log *slog.Logger, releaser HoldReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.holds.release.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		hold, err := releaser.ReleaseHold(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if errors.Is(err, response.ErrInvalidState) {
			log.Error("hold is not active")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.INVALID_STATE), "only active holds can be released"))
			return
		}

		if err != nil {
			log.Error("Failed to release hold", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to release hold"))
			return
		}

		log.Info("Hold released", slog.String("id", id))
		render.JSON(w, r, Response{
			Hold: hold,
		})
	}
}
