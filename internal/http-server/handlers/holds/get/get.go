package get

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

type HoldGetter interface {
	GetHold(ctx context.Context, id string) (*api.HoldResponse, error)
}

type Response struct {
	response.Response
	Hold *api.HoldResponse `json:"hold,omitempty"`
}

func New(log *slog.Logger, getter HoldGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.holds.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		hold, err := getter.GetHold(r.Context(), id)

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get hold", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get hold"))
			return
		}

		log.Info("Hold retrieved", slog.String("id", hold.ID))
		render.JSON(w, r, Response{
			Hold: hold,
		})
	}
}
