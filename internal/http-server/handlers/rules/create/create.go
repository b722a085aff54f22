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

type WeeklyRuleCreator interface {
	CreateWeeklyRule(ctx context.Context, practitionerID string, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error)
}

type Request struct {
	api.WeeklyRuleRequest
}

type Response struct {
	response.Response
	Rule *api.WeeklyRuleResponse `json:"rule,omitempty"`
}

func New(log *slog.Logger, creator WeeklyRuleCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rules.create.New"

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

		log.Debug("Request body decoded", slog.Any("request", req))

		rule, err := creator.CreateWeeklyRule(r.Context(), practitionerID, &req.WeeklyRuleRequest)

		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			log.Error("Invalid request", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid rule", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "start_time must be before end_time"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("practitioner not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "practitioner not found"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Error("rule overlaps another rule", sl.Err(err))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "rule overlaps another rule on the same weekday"))
			return
		}

		if err != nil {
			log.Error("Failed to create weekly rule", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create weekly rule"))
			return
		}

		log.Info("Weekly rule created", slog.String("id", rule.ID))

		w.WriteHeader(http.StatusCreated)
		responseOK(w, r, rule)
	}
}

func responseOK(w http.ResponseWriter, r *http.Request, rule *api.WeeklyRuleResponse) {
	render.JSON(w, r, Response{
		Rule: rule,
	})
}
