package failure_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"roombook/shared/failure"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{name: "bad request", err: failure.BadRequest(errors.New("validation failed")), code: http.StatusBadRequest, message: "validation failed"},
		{name: "bad request from string", err: failure.BadRequestFromString("bad"), code: http.StatusBadRequest, message: "bad"},
		{name: "unauthorized", err: failure.Unauthorized("token expired"), code: http.StatusUnauthorized, message: "token expired"},
		{name: "internal", err: failure.InternalError(errors.New("db down")), code: http.StatusInternalServerError, message: "db down"},
		{name: "not found", err: failure.NotFound("reservation not found"), code: http.StatusNotFound, message: "reservation not found"},
		{name: "conflict", err: failure.Conflict("room taken"), code: http.StatusConflict, message: "room taken"},
		{name: "forbidden", err: failure.Forbidden("admins only"), code: http.StatusForbidden, message: "admins only"},
		{name: "unprocessable", err: failure.UnprocessableEntity("not allowed now"), code: http.StatusUnprocessableEntity, message: "not allowed now"},
		{name: "unimplemented", err: failure.Unimplemented("Export"), code: http.StatusNotImplemented, message: "Export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f *failure.Failure

			assert.ErrorAs(t, tt.err, &f)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.message, f.Error())
		})
	}
}

func TestNilInputs(t *testing.T) {
	assert.NoError(t, failure.BadRequest(nil))
	assert.NoError(t, failure.InternalError(nil))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected int
	}{
		{name: "failure", input: &failure.Failure{Code: http.StatusBadRequest}, expected: http.StatusBadRequest},
		{name: "wrapped failure", input: fmt.Errorf("ctx: %w", failure.Conflict("x")), expected: http.StatusConflict},
		{name: "plain error", input: errors.New("boom"), expected: http.StatusInternalServerError},
		{name: "nil", input: nil, expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, failure.GetCode(tt.input))
		})
	}
}

func TestWithReason(t *testing.T) {
	err := failure.WithReason(failure.Conflict("room taken"), "ROOM_CONFLICT")

	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, "ROOM_CONFLICT", failure.GetReason(err))
	assert.Equal(t, "ROOM_CONFLICT", failure.GetReason(fmt.Errorf("wrapped: %w", err)))

	plain := errors.New("io timeout")
	assert.Same(t, plain, failure.WithReason(plain, "ROOM_CONFLICT"))
	assert.Empty(t, failure.GetReason(plain))
}

func TestIsFailure(t *testing.T) {
	assert.True(t, failure.IsFailure(failure.ForbiddenError))
	assert.True(t, failure.IsFailure(fmt.Errorf("x: %w", failure.NotFound("y"))))
	assert.False(t, failure.IsFailure(errors.New("plain")))
}
