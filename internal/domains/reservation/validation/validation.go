// Package validation holds the admission rules for a reservation request.
package validation

import (
	"fmt"
	"strings"
	"time"

	"roombook/config"
	"roombook/internal/domains/reservation/model"
)

const (
	DefaultMinDuration = 15 * time.Minute
	DefaultMaxDuration = 4 * time.Hour
	DefaultDailyQuota  = 5
)

type Request struct {
	RoomID      string
	RequesterID string
	Start       time.Time
	End         time.Time
	Description string
}

func (r Request) Interval() model.Interval {
	return model.Interval{Start: r.Start, End: r.End}
}

type Rules struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	DailyQuota  int
}

func DefaultRules() Rules {
	return Rules{
		MinDuration: DefaultMinDuration,
		MaxDuration: DefaultMaxDuration,
		DailyQuota:  DefaultDailyQuota,
	}
}

// RulesFromConfig reads SCHEDULING_* and falls back to the defaults for unset values.
func RulesFromConfig(cfg *config.Config) Rules {
	rules := DefaultRules()

	if cfg.Scheduling.MinDurationMinutes > 0 {
		rules.MinDuration = time.Duration(cfg.Scheduling.MinDurationMinutes) * time.Minute
	}

	if cfg.Scheduling.MaxDurationMinutes > 0 {
		rules.MaxDuration = time.Duration(cfg.Scheduling.MaxDurationMinutes) * time.Minute
	}

	if cfg.Scheduling.DailyQuota > 0 {
		rules.DailyQuota = cfg.Scheduling.DailyQuota
	}

	return rules
}

type Result struct {
	Reason  model.Reason
	Message string
}

func (r Result) OK() bool {
	return r.Reason == ""
}

// Err converts a failed result into the typed business error, nil when OK.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}

	return model.Reject(r.Reason, r.Message)
}

func fail(reason model.Reason, format string, args ...any) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validate applies the rules in a fixed order and stops at the first failure.
// dailyCount is the requester's non-rejected reservations on the start day, excluding req itself.
func (rules Rules) Validate(req Request, now time.Time, dailyCount int) Result {
	if missing := missingFields(req); len(missing) > 0 {
		return fail(model.ReasonMissingField, "missing required fields: %s", strings.Join(missing, ", "))
	}

	if req.Start.Before(now) {
		return fail(model.ReasonInPast, "reservation cannot start in the past")
	}

	if !req.End.After(req.Start) {
		return fail(model.ReasonEndBeforeStart, "end must be after start")
	}

	duration := req.End.Sub(req.Start)
	if duration < rules.MinDuration {
		return fail(model.ReasonDurationTooShort, "minimum duration is %s", rules.MinDuration)
	}

	if duration > rules.MaxDuration {
		return fail(model.ReasonDurationTooLong, "maximum duration is %s", rules.MaxDuration)
	}

	if dailyCount >= rules.DailyQuota {
		return fail(model.ReasonDailyQuotaExceeded, "daily limit of %d reservations reached", rules.DailyQuota)
	}

	return Result{}
}

func missingFields(req Request) []string {
	var missing []string

	if strings.TrimSpace(req.RoomID) == "" {
		missing = append(missing, "room")
	}

	if strings.TrimSpace(req.RequesterID) == "" {
		missing = append(missing, "requester")
	}

	if req.Start.IsZero() {
		missing = append(missing, "start")
	}

	if req.End.IsZero() {
		missing = append(missing, "end")
	}

	if strings.TrimSpace(req.Description) == "" {
		missing = append(missing, "description")
	}

	return missing
}
