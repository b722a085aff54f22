package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"booking-service/internal/models"
)

// ErrMalformedRule marks stored rule data that cannot produce valid slots.
var ErrMalformedRule = errors.New("malformed availability rule")

// DaySchedule is the source of truth governing one calendar date.
// It is one of Closed, OverrideSchedule or WeeklySchedule.
type DaySchedule interface {
	daySchedule()
}

type ClosedReason string

const (
	ClosedByOverride  ClosedReason = "override"
	ClosedByException ClosedReason = "exception"
	ClosedNoRule      ClosedReason = "no_rule"
)

type Closed struct {
	Reason ClosedReason
}

// Range is a civil time window tagged with what it offers.
type Range struct {
	Start         TimeOfDay
	End           TimeOfDay
	Modality      string
	LocationLabel string
}

type OverrideSchedule struct {
	Ranges       []Range
	SlotDuration time.Duration
	Buffer       time.Duration
}

// WeeklyRange is a weekly rule resolved for a date; every rule keeps its own duration and buffer.
type WeeklyRange struct {
	Range
	SlotDuration time.Duration
	Buffer       time.Duration
}

type WeeklySchedule struct {
	Rules        []WeeklyRange
	PartialBlock *Block
}

// Block is the partial-day block of an exception.
type Block struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (Closed) daySchedule()           {}
func (OverrideSchedule) daySchedule() {}
func (WeeklySchedule) daySchedule()   {}

// RuleSet is the rule snapshot of one practitioner.
type RuleSet struct {
	weekly     map[time.Weekday][]models.WeeklyRule
	exceptions map[Date]models.ExceptionDate
	overrides  map[Date]models.DateOverride
}

func NewRuleSet(weekly []models.WeeklyRule, exceptions []models.ExceptionDate, overrides []models.DateOverride) RuleSet {
	rs := RuleSet{
		weekly:     make(map[time.Weekday][]models.WeeklyRule),
		exceptions: make(map[Date]models.ExceptionDate, len(exceptions)),
		overrides:  make(map[Date]models.DateOverride, len(overrides)),
	}

	for _, r := range weekly {
		wd := time.Weekday(r.DayOfWeek)
		rs.weekly[wd] = append(rs.weekly[wd], r)
	}
	for _, e := range exceptions {
		day := DateOf(e.Date)
		// A full-day closure wins over any other exception on the same date.
		if prev, ok := rs.exceptions[day]; ok && (prev.IsUnavailable || !e.IsUnavailable) {
			continue
		}
		rs.exceptions[day] = e
	}
	for _, o := range overrides {
		rs.overrides[DateOf(o.Date)] = o
	}

	return rs
}

// Resolve decides which source governs day.
// Precedence is override, then exception, then weekly rules; a day with none is closed.
// A non-empty modality drops rules and ranges offering a different modality;
// rules without a modality match any filter.
func Resolve(day Date, rs RuleSet, modality string) (DaySchedule, error) {
	const op = "availability.Resolve"

	if o, ok := rs.overrides[day]; ok {
		if o.IsUnavailable {
			return Closed{Reason: ClosedByOverride}, nil
		}
		sched, err := resolveOverride(o, modality)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, day, err)
		}
		return sched, nil
	}

	exc, hasException := rs.exceptions[day]
	if hasException && exc.IsUnavailable {
		return Closed{Reason: ClosedByException}, nil
	}

	rules := rs.weekly[day.Weekday()]
	if len(rules) == 0 {
		return Closed{Reason: ClosedNoRule}, nil
	}

	sched := WeeklySchedule{}
	for _, r := range rules {
		wr, err := resolveWeeklyRule(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, day, err)
		}
		if !modalityMatches(wr.Modality, modality) {
			continue
		}
		sched.Rules = append(sched.Rules, wr)
	}
	if len(sched.Rules) == 0 {
		return Closed{Reason: ClosedNoRule}, nil
	}

	sort.SliceStable(sched.Rules, func(i, j int) bool {
		return sched.Rules[i].Start.Before(sched.Rules[j].Start)
	})

	if hasException && exc.HasPartialBlock() {
		block, err := parseRange(*exc.BlockStart, *exc.BlockEnd)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: exception %s: %w", op, day, exc.ID, err)
		}
		sched.PartialBlock = &Block{Start: block.Start, End: block.End}
	}

	return sched, nil
}

func resolveOverride(o models.DateOverride, modality string) (DaySchedule, error) {
	dur, buf, err := durations(o.SlotDurationMinutes, o.BufferMinutes)
	if err != nil {
		return nil, fmt.Errorf("override %s: %w", o.ID, err)
	}

	sched := OverrideSchedule{SlotDuration: dur, Buffer: buf}
	for _, or := range o.Ranges {
		rg, err := parseRange(or.StartTime, or.EndTime)
		if err != nil {
			return nil, fmt.Errorf("override %s range %s: %w", o.ID, or.ID, err)
		}
		rg.Modality = deref(or.Modality)
		rg.LocationLabel = deref(or.LocationLabel)

		if !modalityMatches(rg.Modality, modality) {
			continue
		}
		sched.Ranges = append(sched.Ranges, rg)
	}

	// An available override without usable ranges still replaces the weekly rule.
	if len(sched.Ranges) == 0 {
		return Closed{Reason: ClosedByOverride}, nil
	}

	sort.SliceStable(sched.Ranges, func(i, j int) bool {
		return sched.Ranges[i].Start.Before(sched.Ranges[j].Start)
	})

	return sched, nil
}

func resolveWeeklyRule(r models.WeeklyRule) (WeeklyRange, error) {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return WeeklyRange{}, fmt.Errorf("rule %s: day_of_week %d: %w", r.ID, r.DayOfWeek, ErrMalformedRule)
	}

	rg, err := parseRange(r.StartTime, r.EndTime)
	if err != nil {
		return WeeklyRange{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}
	rg.Modality = deref(r.Modality)
	rg.LocationLabel = deref(r.LocationLabel)

	dur, buf, err := durations(r.SlotDurationMinutes, r.BufferMinutes)
	if err != nil {
		return WeeklyRange{}, fmt.Errorf("rule %s: %w", r.ID, err)
	}

	return WeeklyRange{Range: rg, SlotDuration: dur, Buffer: buf}, nil
}

func parseRange(start, end string) (Range, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}
	if !s.Before(e) {
		return Range{}, fmt.Errorf("%w: end %s is not after start %s", ErrMalformedRule, e, s)
	}

	return Range{Start: s, End: e}, nil
}

func durations(slotMinutes, bufferMinutes int) (time.Duration, time.Duration, error) {
	if slotMinutes <= 0 {
		return 0, 0, fmt.Errorf("%w: slot duration %d", ErrMalformedRule, slotMinutes)
	}
	if bufferMinutes < 0 {
		return 0, 0, fmt.Errorf("%w: buffer %d", ErrMalformedRule, bufferMinutes)
	}
	return time.Duration(slotMinutes) * time.Minute, time.Duration(bufferMinutes) * time.Minute, nil
}

func modalityMatches(ruleModality, filter string) bool {
	return filter == "" || ruleModality == "" || ruleModality == filter
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
