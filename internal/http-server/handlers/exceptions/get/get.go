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

type ExceptionLister interface {
	ListExceptions(ctx context.Context, practitionerID, from, to string) ([]api.ExceptionResponse, error)
}

type Response struct {
	response.Response
	Exceptions []api.ExceptionResponse `json:"exceptions"`
}

func New(log *slog.Logger, lister ExceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.exceptions.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practitionerID := chi.URLParam(r, "id")
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")

		exceptions, err := lister.ListExceptions(r.Context(), practitionerID, from, to)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid date range", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "from and to must be ordered YYYY-MM-DD dates"))
			return
		}

		if err != nil {
			log.Error("Failed to list exceptions", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list exceptions"))
			return
		}

		log.Info("Exceptions retrieved", slog.Int("count", len(exceptions)))

		render.JSON(w, r, Response{
			Exceptions: exceptions,
		})
	}
}
