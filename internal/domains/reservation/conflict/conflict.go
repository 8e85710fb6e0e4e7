// Package conflict decides whether a candidate interval collides with existing reservations.
// It is pure: callers load the candidate set, this package only compares.
package conflict

import (
	"slices"

	"roombook/internal/domains/reservation/model"
)

// Blocking lists the statuses that hold a slot. Pending requests never block each other.
var Blocking = []model.Status{model.StatusApproved}

type options struct {
	excludeID string
	statuses  []model.Status
	roomID    string
	requester string
}

type Option func(*options)

// ExcludeID skips the reservation being re-checked.
func ExcludeID(id string) Option {
	return func(o *options) { o.excludeID = id }
}

// WithStatuses overrides Blocking.
func WithStatuses(statuses ...model.Status) Option {
	return func(o *options) { o.statuses = statuses }
}

// SameRoom restricts the comparison to one room.
func SameRoom(roomID string) Option {
	return func(o *options) { o.roomID = roomID }
}

// SameRequester restricts the comparison to one requester across all rooms.
func SameRequester(requesterID string) Option {
	return func(o *options) { o.requester = requesterID }
}

func (o options) blocks(candidate model.Interval, r model.Reservation) bool {
	if o.excludeID != "" && r.ID == o.excludeID {
		return false
	}

	if o.roomID != "" && r.RoomID != o.roomID {
		return false
	}

	if o.requester != "" && r.RequesterID != o.requester {
		return false
	}

	if !slices.Contains(o.statuses, r.Status) {
		return false
	}

	return candidate.Overlaps(r.Interval())
}

func build(opts []Option) options {
	o := options{statuses: Blocking}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Find returns the first existing reservation that blocks candidate.
func Find(candidate model.Interval, existing []model.Reservation, opts ...Option) (model.Reservation, bool) {
	o := build(opts)

	for _, r := range existing {
		if o.blocks(candidate, r) {
			return r, true
		}
	}

	return model.Reservation{}, false
}

// All returns every existing reservation that blocks candidate, in input order.
func All(candidate model.Interval, existing []model.Reservation, opts ...Option) []model.Reservation {
	o := build(opts)

	var blocking []model.Reservation

	for _, r := range existing {
		if o.blocks(candidate, r) {
			blocking = append(blocking, r)
		}
	}

	return blocking
}

func Conflicts(candidate model.Interval, existing []model.Reservation, opts ...Option) bool {
	_, found := Find(candidate, existing, opts...)

	return found
}

// Room checks candidate against approved reservations of its own room, ignoring itself.
func Room(candidate model.Reservation, existing []model.Reservation) (model.Reservation, bool) {
	return Find(candidate.Interval(), existing, SameRoom(candidate.RoomID), ExcludeID(candidate.ID))
}

// User checks candidate against the requester's approved reservations in any room.
func User(candidate model.Reservation, existing []model.Reservation) (model.Reservation, bool) {
	return Find(candidate.Interval(), existing, SameRequester(candidate.RequesterID), ExcludeID(candidate.ID))
}
