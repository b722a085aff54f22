package service

import (
	"booking-service/api"
	"booking-service/internal/availability"
	"booking-service/internal/models"
	"booking-service/pkg/response"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Slots

func (s *Service) GetAvailableSlots(ctx context.Context, practitionerID string, from, to time.Time, modality string) ([]api.SlotResponse, error) {
	const op = "service.GetAvailableSlots"

	slots, err := s.engine.GetAvailableSlots(ctx, practitionerID, from, to, modality)
	if err != nil {
		if errors.Is(err, availability.ErrInvalidRange) {
			return nil, fmt.Errorf("%s: %w: %w", op, response.ErrBadRequest, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		result = append(result, api.SlotResponse{
			Start:         slot.Start,
			End:           slot.End,
			Modality:      slot.Modality,
			LocationLabel: slot.LocationLabel,
		})
	}

	return result, nil
}

// Weekly rules

func (s *Service) CreateWeeklyRule(ctx context.Context, practitionerID string, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error) {
	const op = "service.CreateWeeklyRule"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.store.GetPractitioner(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rule := &models.WeeklyRule{
		ID:             newID(),
		PractitionerID: practitionerID,
	}
	applyWeeklyRule(rule, req)

	if err := s.checkWeeklyRule(ctx, op, rule); err != nil {
		return nil, err
	}

	if err := s.store.CreateWeeklyRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("weekly rule created",
		slog.String("op", op),
		slog.String("rule_id", rule.ID),
		slog.String("practitioner_id", practitionerID),
	)

	return toWeeklyRuleResponse(rule), nil
}

func (s *Service) ListWeeklyRules(ctx context.Context, practitionerID string) ([]api.WeeklyRuleResponse, error) {
	const op = "service.ListWeeklyRules"

	rules, err := s.store.ListWeeklyRules(ctx, practitionerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.WeeklyRuleResponse, 0, len(rules))
	for i := range rules {
		result = append(result, *toWeeklyRuleResponse(&rules[i]))
	}

	return result, nil
}

func (s *Service) UpdateWeeklyRule(ctx context.Context, id string, req *api.WeeklyRuleRequest) (*api.WeeklyRuleResponse, error) {
	const op = "service.UpdateWeeklyRule"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rule, err := s.store.GetWeeklyRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	applyWeeklyRule(rule, req)

	if err := s.checkWeeklyRule(ctx, op, rule); err != nil {
		return nil, err
	}

	if err := s.store.UpdateWeeklyRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toWeeklyRuleResponse(rule), nil
}

func (s *Service) DeleteWeeklyRule(ctx context.Context, id string) error {
	const op = "service.DeleteWeeklyRule"

	if err := s.store.DeleteWeeklyRule(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func applyWeeklyRule(rule *models.WeeklyRule, req *api.WeeklyRuleRequest) {
	rule.DayOfWeek = *req.DayOfWeek
	rule.StartTime = req.StartTime
	rule.EndTime = req.EndTime
	rule.SlotDurationMinutes = req.SlotDurationMinutes
	rule.BufferMinutes = req.BufferMinutes
	rule.Modality = req.Modality
	rule.LocationLabel = req.LocationLabel
}

// checkWeeklyRule rejects inverted ranges and ranges that overlap another rule of the same weekday.
func (s *Service) checkWeeklyRule(ctx context.Context, op string, rule *models.WeeklyRule) error {
	start, end, err := parseRange(rule.StartTime, rule.EndTime)
	if err != nil {
		return badRequest(op, err.Error())
	}

	existing, err := s.store.ListWeeklyRules(ctx, rule.PractitionerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, other := range existing {
		if other.ID == rule.ID || other.DayOfWeek != rule.DayOfWeek {
			continue
		}
		otherStart, otherEnd, err := parseRange(other.StartTime, other.EndTime)
		if err != nil {
			continue
		}
		if start.Before(otherEnd) && otherStart.Before(end) {
			return fmt.Errorf("%s: %w: overlaps rule %s", op, response.ErrConflict, other.ID)
		}
	}

	return nil
}

func parseRange(startStr, endStr string) (availability.TimeOfDay, availability.TimeOfDay, error) {
	start, err := availability.ParseTimeOfDay(startStr)
	if err != nil {
		return availability.TimeOfDay{}, availability.TimeOfDay{}, err
	}
	end, err := availability.ParseTimeOfDay(endStr)
	if err != nil {
		return availability.TimeOfDay{}, availability.TimeOfDay{}, err
	}
	if !start.Before(end) {
		return availability.TimeOfDay{}, availability.TimeOfDay{}, fmt.Errorf("start %s is not before end %s", startStr, endStr)
	}
	return start, end, nil
}

func toWeeklyRuleResponse(rule *models.WeeklyRule) *api.WeeklyRuleResponse {
	return &api.WeeklyRuleResponse{
		ID:                  rule.ID,
		PractitionerID:      rule.PractitionerID,
		DayOfWeek:           rule.DayOfWeek,
		StartTime:           rule.StartTime,
		EndTime:             rule.EndTime,
		SlotDurationMinutes: rule.SlotDurationMinutes,
		BufferMinutes:       rule.BufferMinutes,
		Modality:            rule.Modality,
		LocationLabel:       rule.LocationLabel,
	}
}

// Exceptions

func (s *Service) CreateException(ctx context.Context, practitionerID string, req *api.ExceptionRequest) (*api.ExceptionResponse, error) {
	const op = "service.CreateException"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, badRequest(op, err.Error())
	}

	hasBlock := req.BlockStart != nil || req.BlockEnd != nil

	switch {
	case req.IsUnavailable && hasBlock:
		return nil, badRequest(op, "a full-day exception cannot carry a block")
	case !req.IsUnavailable && !hasBlock:
		return nil, badRequest(op, "exception must be unavailable or carry a block")
	case !req.IsUnavailable:
		if req.BlockStart == nil || req.BlockEnd == nil {
			return nil, badRequest(op, "block_start and block_end go together")
		}
		if _, _, err := parseRange(*req.BlockStart, *req.BlockEnd); err != nil {
			return nil, badRequest(op, err.Error())
		}
	}

	if _, err := s.store.GetPractitioner(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exception := &models.ExceptionDate{
		ID:             newID(),
		PractitionerID: practitionerID,
		Date:           date.Time(),
		IsUnavailable:  req.IsUnavailable,
		BlockStart:     req.BlockStart,
		BlockEnd:       req.BlockEnd,
		Note:           req.Note,
	}

	if err := s.store.CreateException(ctx, exception); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return toExceptionResponse(exception), nil
}

func (s *Service) ListExceptions(ctx context.Context, practitionerID, from, to string) ([]api.ExceptionResponse, error) {
	const op = "service.ListExceptions"

	fromDate, toDate, err := parseDateRange(from, to)
	if err != nil {
		return nil, badRequest(op, err.Error())
	}

	exceptions, err := s.store.ListExceptions(ctx, practitionerID, fromDate.Time(), toDate.Time())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.ExceptionResponse, 0, len(exceptions))
	for i := range exceptions {
		result = append(result, *toExceptionResponse(&exceptions[i]))
	}

	return result, nil
}

func (s *Service) DeleteException(ctx context.Context, id string) error {
	const op = "service.DeleteException"

	if err := s.store.DeleteException(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func parseDateRange(from, to string) (availability.Date, availability.Date, error) {
	fromDate, err := availability.ParseDate(from)
	if err != nil {
		return availability.Date{}, availability.Date{}, err
	}
	toDate, err := availability.ParseDate(to)
	if err != nil {
		return availability.Date{}, availability.Date{}, err
	}
	if fromDate.After(toDate) {
		return availability.Date{}, availability.Date{}, fmt.Errorf("from %s is after to %s", from, to)
	}
	return fromDate, toDate, nil
}

func toExceptionResponse(e *models.ExceptionDate) *api.ExceptionResponse {
	return &api.ExceptionResponse{
		ID:             e.ID,
		PractitionerID: e.PractitionerID,
		Date:           availability.DateOf(e.Date).String(),
		IsUnavailable:  e.IsUnavailable,
		BlockStart:     e.BlockStart,
		BlockEnd:       e.BlockEnd,
		Note:           e.Note,
	}
}

// Overrides

func (s *Service) CreateOverride(ctx context.Context, practitionerID string, req *api.OverrideRequest) (*api.OverrideResponse, error) {
	const op = "service.CreateOverride"

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return nil, badRequest(op, err.Error())
	}

	if req.IsUnavailable {
		if len(req.Ranges) > 0 {
			return nil, badRequest(op, "an unavailable override cannot carry ranges")
		}
	} else {
		if req.SlotDurationMinutes < 1 {
			return nil, badRequest(op, "slot_duration_minutes is required for an available override")
		}
		if len(req.Ranges) == 0 {
			return nil, badRequest(op, "an available override needs at least one range")
		}
		if err := checkOverrideRanges(req.Ranges); err != nil {
			return nil, badRequest(op, err.Error())
		}
	}

	if _, err := s.store.GetPractitioner(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	override := &models.DateOverride{
		ID:                  newID(),
		PractitionerID:      practitionerID,
		Date:                date.Time(),
		IsUnavailable:       req.IsUnavailable,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferMinutes:       req.BufferMinutes,
		Ranges:              make([]models.OverrideRange, 0, len(req.Ranges)),
	}
	for _, r := range req.Ranges {
		override.Ranges = append(override.Ranges, models.OverrideRange{
			ID:            newID(),
			OverrideID:    override.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Modality:      r.Modality,
			LocationLabel: r.LocationLabel,
		})
	}

	if err := s.store.CreateOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("override created",
		slog.String("op", op),
		slog.String("override_id", override.ID),
		slog.String("date", req.Date),
	)

	return toOverrideResponse(override), nil
}

func (s *Service) ListOverrides(ctx context.Context, practitionerID, from, to string) ([]api.OverrideResponse, error) {
	const op = "service.ListOverrides"

	fromDate, toDate, err := parseDateRange(from, to)
	if err != nil {
		return nil, badRequest(op, err.Error())
	}

	overrides, err := s.store.ListOverrides(ctx, practitionerID, fromDate.Time(), toDate.Time())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.OverrideResponse, 0, len(overrides))
	for i := range overrides {
		result = append(result, *toOverrideResponse(&overrides[i]))
	}

	return result, nil
}

func (s *Service) DeleteOverride(ctx context.Context, id string) error {
	const op = "service.DeleteOverride"

	if err := s.store.DeleteOverride(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// checkOverrideRanges requires every range to be ordered and no two ranges to overlap.
func checkOverrideRanges(ranges []api.OverrideRangeRequest) error {
	type span struct{ start, end availability.TimeOfDay }

	spans := make([]span, 0, len(ranges))
	for _, r := range ranges {
		start, end, err := parseRange(r.StartTime, r.EndTime)
		if err != nil {
			return err
		}
		spans = append(spans, span{start, end})
	}

	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})

	for i := 1; i < len(spans); i++ {
		if spans[i].start.Before(spans[i-1].end) {
			return fmt.Errorf("ranges starting at %s and %s overlap", spans[i-1].start, spans[i].start)
		}
	}

	return nil
}

func toOverrideResponse(o *models.DateOverride) *api.OverrideResponse {
	ranges := make([]api.OverrideRangeResponse, 0, len(o.Ranges))
	for _, r := range o.Ranges {
		ranges = append(ranges, api.OverrideRangeResponse{
			ID:            r.ID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Modality:      r.Modality,
			LocationLabel: r.LocationLabel,
		})
	}

	return &api.OverrideResponse{
		ID:                  o.ID,
		PractitionerID:      o.PractitionerID,
		Date:                availability.DateOf(o.Date).String(),
		IsUnavailable:       o.IsUnavailable,
		SlotDurationMinutes: o.SlotDurationMinutes,
		BufferMinutes:       o.BufferMinutes,
		Ranges:              ranges,
	}
}
