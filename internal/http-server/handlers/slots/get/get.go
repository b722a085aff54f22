package get

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type SlotGetter interface {
	GetAvailableSlots(ctx context.Context, practitionerID string, from, to time.Time, modality string) ([]api.SlotResponse, error)
}

type Response struct {
	response.Response
	Slots []api.SlotResponse `json:"slots"`
}

// New serves the available slots of a practitioner. from and to accept RFC 3339 instants or
// YYYY-MM-DD dates, which are read as midnight in loc. Ranges longer than maxDays are refused;
// maxDays <= 0 disables the limit.
func New(log *slog.Logger, getter SlotGetter, loc *time.Location, maxDays int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practitionerID := chi.URLParam(r, "id")
		query := r.URL.Query()

		from, err := parseBound(query.Get("from"), loc)
		if err != nil {
			log.Error("Invalid from", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "from must be an RFC 3339 instant or a YYYY-MM-DD date"))
			return
		}

		to, err := parseBound(query.Get("to"), loc)
		if err != nil {
			log.Error("Invalid to", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "to must be an RFC 3339 instant or a YYYY-MM-DD date"))
			return
		}

		if maxDays > 0 && to.Sub(from) > time.Duration(maxDays)*24*time.Hour {
			log.Error("Range too long", slog.Time("from", from), slog.Time("to", to))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST),
				fmt.Sprintf("range must not span more than %d days", maxDays)))
			return
		}

		slots, err := getter.GetAvailableSlots(r.Context(), practitionerID, from, to, query.Get("modality"))

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid range", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "to must not be before from"))
			return
		}

		if err != nil {
			log.Error("Failed to compute slots", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to compute slots"))
			return
		}

		log.Info("Slots retrieved", slog.String("practitioner_id", practitionerID), slog.Int("count", len(slots)))

		render.JSON(w, r, Response{
			Slots: slots,
		})
	}
}

func parseBound(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing value")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return t, nil
}
