// Package lifecycle owns the reservation status machine.
//
//	PENDING  -> APPROVED | REJECTED | CANCELLED
//	APPROVED -> CANCELLED
//
// REJECTED and CANCELLED are terminal.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"roombook/internal/domains/reservation/model"
)

// Decision carries who is moving the reservation and why.
type Decision struct {
	Actor   model.Actor
	Comment string
	At      time.Time
}

type guard func(model.Reservation, Decision) error

type effect func(*model.Reservation, Decision)

type rule struct {
	from   model.Status
	to     model.Status
	guard  guard
	effect effect
}

var rules = []rule{
	{from: model.StatusPending, to: model.StatusApproved, effect: decide},
	{from: model.StatusPending, to: model.StatusRejected, guard: requireComment, effect: decide},
	{from: model.StatusPending, to: model.StatusCancelled, effect: cancel},
	{from: model.StatusApproved, to: model.StatusCancelled, effect: cancel},
}

func find(from, to model.Status) (rule, bool) {
	for _, r := range rules {
		if r.from == from && r.to == to {
			return r, true
		}
	}

	return rule{}, false
}

// CanTransition reports whether from -> to exists in the table, ignoring guards.
func CanTransition(from, to model.Status) bool {
	_, ok := find(from, to)

	return ok
}

// Targets lists the statuses reachable from from.
func Targets(from model.Status) []model.Status {
	var targets []model.Status

	for _, r := range rules {
		if r.from == from {
			targets = append(targets, r.to)
		}
	}

	return targets
}

// Apply returns a copy of res moved to status to. res itself is never modified.
func Apply(res model.Reservation, to model.Status, d Decision) (model.Reservation, error) {
	r, ok := find(res.Status, to)
	if !ok {
		return res, model.Reject(model.ReasonInvalidTransition, fmt.Sprintf("cannot move reservation from %s to %s", res.Status, to))
	}

	if r.guard != nil {
		if err := r.guard(res, d); err != nil {
			return res, err
		}
	}

	next := res
	next.Status = to

	if r.effect != nil {
		r.effect(&next, d)
	}

	return next, nil
}

func requireComment(_ model.Reservation, d Decision) error {
	if strings.TrimSpace(d.Comment) == "" {
		return model.Reject(model.ReasonMissingField, "a rejection reason is required")
	}

	return nil
}

func decide(r *model.Reservation, d Decision) {
	at := d.At
	by := d.Actor.ID

	r.DecidedAt = &at
	r.DecidedBy = &by

	if comment := strings.TrimSpace(d.Comment); comment != "" {
		r.DecisionComment = &comment
	}
}

// cancel clears the decision stamp so it is only present on APPROVED and REJECTED rows.
// The comment stays as history.
func cancel(r *model.Reservation, _ Decision) {
	r.DecidedAt = nil
	r.DecidedBy = nil
}
