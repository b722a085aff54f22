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

type OverrideLister interface {
	ListOverrides(ctx context.Context, practitionerID, from, to string) ([]api.OverrideResponse, error)
}

type Response struct {
	response.Response
	Overrides []api.OverrideResponse `json:"overrides"`
}

func New(log *slog.Logger, lister OverrideLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.overrides.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practitionerID := chi.URLParam(r, "id")
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")

		overrides, err := lister.ListOverrides(r.Context(), practitionerID, from, to)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid date range", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "from and to must be ordered YYYY-MM-DD dates"))
			return
		}

		if err != nil {
			log.Error("Failed to list overrides", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list overrides"))
			return
		}

		log.Info("Overrides retrieved", slog.Int("count", len(overrides)))

		render.JSON(w, r, Response{
			Overrides: overrides,
		})
	}
}
