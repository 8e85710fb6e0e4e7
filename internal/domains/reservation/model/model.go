package model

import (
	"time"

	"roombook/shared/constant"
	"roombook/shared/model"
)

const (
	TableName  = "reservations"
	EntityName = "reservation"

	FieldID              = "id"
	FieldRoomID          = "room_id"
	FieldRequesterID     = "requester_id"
	FieldStartAt         = "start_at"
	FieldEndAt           = "end_at"
	FieldDescription     = "description"
	FieldStatus          = "status"
	FieldDecidedAt       = "decided_at"
	FieldDecidedBy       = "decided_by"
	FieldDecisionComment = "decision_comment"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}

	return false
}

// Terminal statuses accept no further transition.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Decided statuses carry decided_at and decided_by.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

type Reservation struct {
	ID              string     `db:"id"`
	RoomID          string     `db:"room_id"`
	RequesterID     string     `db:"requester_id"`
	StartAt         time.Time  `db:"start_at"`
	EndAt           time.Time  `db:"end_at"`
	Description     string     `db:"description"`
	Status          Status     `db:"status"`
	DecidedAt       *time.Time `db:"decided_at"`
	DecidedBy       *string    `db:"decided_by"`
	DecisionComment *string    `db:"decision_comment"`
	model.Metadata
}

func (r Reservation) Interval() Interval {
	return Interval{Start: r.StartAt, End: r.EndAt}
}

func (r Reservation) Exists() bool {
	return r.ID != ""
}

// Interval is half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps treats touching endpoints as free.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Actor is the caller identity passed into decisions. Authentication happens upstream.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == constant.RoleAdmin
}

type TemporalLabel string

const (
	TemporalUpcoming TemporalLabel = "upcoming"
	TemporalActive   TemporalLabel = "active"
	TemporalFinished TemporalLabel = "finished"
)

// Temporal derives a display label for approved reservations. It is never persisted.
func (r Reservation) Temporal(now time.Time) TemporalLabel {
	if r.Status != StatusApproved {
		return ""
	}

	switch {
	case now.Before(r.StartAt):
		return TemporalUpcoming
	case now.Before(r.EndAt):
		return TemporalActive
	default:
		return TemporalFinished
	}
}
