package get

import (
	"booking-service/api"
	"booking-service/pkg/response"
	"booking-service/pkg/sl"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type WeeklyRuleLister interface {
	ListWeeklyRules(ctx context.Context, practitionerID string) ([]api.WeeklyRuleResponse, error)
}

type Response struct {
	response.Response
	Rules []api.WeeklyRuleResponse `json:"rules"`
}

func New(log *slog.Logger, lister WeeklyRuleLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practitionerID := chi.URLParam(r, "id")

		rules, err := lister.ListWeeklyRules(r.Context(), practitionerID)
		if err != nil {
			log.Error("Failed to list weekly rules", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to list weekly rules"))
			return
		}

		log.Info("Weekly rules retrieved", slog.Int("count", len(rules)))

		render.JSON(w, r, Response{
			Rules: rules,
		})
	}
}
