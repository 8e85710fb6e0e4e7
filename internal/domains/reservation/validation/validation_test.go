package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/config"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/validation"
)

var now = time.Date(2030, 1, 10, 8, 0, 0, 0, time.UTC)

func request(start time.Time, duration time.Duration) validation.Request {
	return validation.Request{
		RoomID:      "room-1",
		RequesterID: "user-1",
		Start:       start,
		End:         start.Add(duration),
		Description: "sprint review",
	}
}

func TestRules_Validate(t *testing.T) {
	rules := validation.DefaultRules()
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name       string
		req        validation.Request
		dailyCount int
		reason     model.Reason
	}{
		{name: "valid", req: request(tomorrow, time.Hour)},
		{name: "exactly min", req: request(tomorrow, 15*time.Minute)},
		{name: "exactly max", req: request(tomorrow, 4*time.Hour)},
		{name: "starts now", req: request(now, time.Hour)},
		{name: "missing description", req: validation.Request{RoomID: "r", RequesterID: "u", Start: tomorrow, End: tomorrow.Add(time.Hour)}, reason: model.ReasonMissingField},
		{name: "blank description", req: validation.Request{RoomID: "r", RequesterID: "u", Start: tomorrow, End: tomorrow.Add(time.Hour), Description: "  "}, reason: model.ReasonMissingField},
		{name: "missing room", req: validation.Request{RequesterID: "u", Start: tomorrow, End: tomorrow.Add(time.Hour), Description: "d"}, reason: model.ReasonMissingField},
		{name: "missing times", req: validation.Request{RoomID: "r", RequesterID: "u", Description: "d"}, reason: model.ReasonMissingField},
		{name: "in past", req: request(now.Add(-time.Minute), time.Hour), reason: model.ReasonInPast},
		{name: "end equals start", req: request(tomorrow, 0), reason: model.ReasonEndBeforeStart},
		{name: "end before start", req: request(tomorrow, -time.Hour), reason: model.ReasonEndBeforeStart},
		{name: "14 minutes", req: request(tomorrow, 14*time.Minute), reason: model.ReasonDurationTooShort},
		{name: "4h01", req: request(tomorrow, 4*time.Hour+time.Minute), reason: model.ReasonDurationTooLong},
		{name: "quota reached", req: request(tomorrow, time.Hour), dailyCount: 5, reason: model.ReasonDailyQuotaExceeded},
		{name: "below quota", req: request(tomorrow, time.Hour), dailyCount: 4},
		{name: "past beats duration", req: request(now.Add(-time.Hour), 5*time.Hour), dailyCount: 9, reason: model.ReasonInPast},
		{name: "duration beats quota", req: request(tomorrow, 10*time.Minute), dailyCount: 9, reason: model.ReasonDurationTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := rules.Validate(tt.req, now, tt.dailyCount)

			assert.Equal(t, tt.reason, result.Reason)
			assert.Equal(t, tt.reason == "", result.OK())

			if tt.reason == "" {
				assert.NoError(t, result.Err())
			} else {
				assert.Equal(t, tt.reason, model.ReasonOf(result.Err()))
				assert.NotEmpty(t, result.Message)
			}
		})
	}
}

func TestRulesFromConfig(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, validation.DefaultRules(), validation.RulesFromConfig(cfg))

	cfg.Scheduling.MinDurationMinutes = 30
	cfg.Scheduling.MaxDurationMinutes = 120
	cfg.Scheduling.DailyQuota = 2

	rules := validation.RulesFromConfig(cfg)

	assert.Equal(t, 30*time.Minute, rules.MinDuration)
	assert.Equal(t, 2*time.Hour, rules.MaxDuration)
	assert.Equal(t, 2, rules.DailyQuota)
}
