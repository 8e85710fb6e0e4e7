package model

import (
	"roombook/shared/failure"
)

// Reason is the machine-readable cause of a business rejection.
type Reason string

const (
	ReasonMissingField       Reason = "MISSING_FIELD"
	ReasonInPast             Reason = "IN_PAST"
	ReasonEndBeforeStart     Reason = "END_BEFORE_START"
	ReasonDurationTooShort   Reason = "DURATION_TOO_SHORT"
	ReasonDurationTooLong    Reason = "DURATION_TOO_LONG"
	ReasonDailyQuotaExceeded Reason = "DAILY_QUOTA_EXCEEDED"
	ReasonRoomUnavailable    Reason = "ROOM_UNAVAILABLE"

	ReasonRoomConflict Reason = "ROOM_CONFLICT"
	ReasonUserConflict Reason = "USER_CONFLICT"

	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonInvalidTransition Reason = "INVALID_TRANSITION"
	ReasonForbidden         Reason = "FORBIDDEN"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindState
	KindAuthorization
)

func (r Reason) Kind() Kind {
	switch r {
	case ReasonRoomConflict, ReasonUserConflict:
		return KindConflict
	case ReasonNotFound, ReasonInvalidTransition:
		return KindState
	case ReasonForbidden:
		return KindAuthorization
	default:
		return KindValidation
	}
}

// Reject builds the typed business error for reason.
func Reject(reason Reason, msg string) error {
	var err error

	switch reason {
	case ReasonRoomConflict, ReasonUserConflict:
		err = failure.Conflict(msg)
	case ReasonNotFound:
		err = failure.NotFound(msg)
	case ReasonInvalidTransition:
		err = failure.UnprocessableEntity(msg)
	case ReasonForbidden:
		err = failure.Forbidden(msg)
	default:
		err = failure.BadRequestFromString(msg)
	}

	return failure.WithReason(err, string(reason)) // nolint:wrapcheck
}

// ReasonOf extracts the reason of a business rejection, or "" for any other error.
func ReasonOf(err error) Reason {
	return Reason(failure.GetReason(err))
}
