package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/internal/domains/reservation/lifecycle"
	"roombook/internal/domains/reservation/model"
)

var (
	decidedAt = time.Date(2030, 2, 1, 9, 0, 0, 0, time.UTC)
	admin     = model.Actor{ID: "admin-1", Role: "admin"}
)

func pending() model.Reservation {
	return model.Reservation{ID: "r1", RoomID: "R", RequesterID: "u1", Status: model.StatusPending}
}

func TestCanTransition(t *testing.T) {
	all := []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusCancelled}
	allowed := map[[2]model.Status]bool{
		{model.StatusPending, model.StatusApproved}:   true,
		{model.StatusPending, model.StatusRejected}:   true,
		{model.StatusPending, model.StatusCancelled}:  true,
		{model.StatusApproved, model.StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]model.Status{from, to}], lifecycle.CanTransition(from, to), "%s -> %s", from, to)
		}
	}

	assert.Empty(t, lifecycle.Targets(model.StatusRejected))
	assert.Empty(t, lifecycle.Targets(model.StatusCancelled))
	assert.ElementsMatch(t, []model.Status{model.StatusCancelled}, lifecycle.Targets(model.StatusApproved))
}

func TestApply_Approve(t *testing.T) {
	original := pending()

	next, err := lifecycle.Apply(original, model.StatusApproved, lifecycle.Decision{Actor: admin, At: decidedAt, Comment: "ok"})

	assert.NoError(t, err)
	assert.Equal(t, model.StatusApproved, next.Status)
	assert.Equal(t, decidedAt, *next.DecidedAt)
	assert.Equal(t, "admin-1", *next.DecidedBy)
	assert.Equal(t, "ok", *next.DecisionComment)

	assert.Equal(t, model.StatusPending, original.Status)
	assert.Nil(t, original.DecidedAt)
}

func TestApply_RejectRequiresComment(t *testing.T) {
	next, err := lifecycle.Apply(pending(), model.StatusRejected, lifecycle.Decision{Actor: admin, At: decidedAt, Comment: "   "})

	assert.Equal(t, model.ReasonMissingField, model.ReasonOf(err))
	assert.Equal(t, model.StatusPending, next.Status)

	next, err = lifecycle.Apply(pending(), model.StatusRejected, lifecycle.Decision{Actor: admin, At: decidedAt, Comment: "room under maintenance"})

	assert.NoError(t, err)
	assert.Equal(t, model.StatusRejected, next.Status)
	assert.Equal(t, "room under maintenance", *next.DecisionComment)
	assert.NotNil(t, next.DecidedAt)
}

func TestApply_CancelApprovedClearsDecision(t *testing.T) {
	approved, err := lifecycle.Apply(pending(), model.StatusApproved, lifecycle.Decision{Actor: admin, At: decidedAt, Comment: "fine"})
	assert.NoError(t, err)

	cancelled, err := lifecycle.Apply(approved, model.StatusCancelled, lifecycle.Decision{Actor: model.Actor{ID: "u1"}, At: decidedAt.Add(time.Hour)})

	assert.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.DecidedAt)
	assert.Nil(t, cancelled.DecidedBy)
	assert.Equal(t, "fine", *cancelled.DecisionComment)
}

func TestApply_InvalidTransitionsLeaveReservationUnchanged(t *testing.T) {
	tests := []struct {
		from model.Status
		to   model.Status
	}{
		{from: model.StatusRejected, to: model.StatusApproved},
		{from: model.StatusRejected, to: model.StatusCancelled},
		{from: model.StatusCancelled, to: model.StatusApproved},
		{from: model.StatusApproved, to: model.StatusRejected},
		{from: model.StatusApproved, to: model.StatusApproved},
		{from: model.StatusPending, to: model.StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			res := pending()
			res.Status = tt.from

			next, err := lifecycle.Apply(res, tt.to, lifecycle.Decision{Actor: admin, At: decidedAt, Comment: "x"})

			assert.Equal(t, model.ReasonInvalidTransition, model.ReasonOf(err))
			assert.Equal(t, res, next)
		})
	}
}
