package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"roombook/shared/failure"
)

func newRecorded(t *testing.T) (Otel, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	ot := &otelImpl{provider: trace.NewTracerProvider(trace.WithSpanProcessor(recorder))}

	t.Cleanup(func() { _ = ot.Shutdown(context.Background()) })

	return ot, recorder
}

func endSpan(ot Otel, err error) {
	_, scope := ot.NewScope(context.Background(), "test", "test.op")
	scope.TraceIfError(err)
	scope.End()
}

func TestScope_TraceIfError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantEvent  bool
	}{
		{name: "no error", wantStatus: codes.Unset},
		{name: "server error", err: errors.New("connection reset"), wantStatus: codes.Error},
		{name: "internal failure", err: failure.InternalError(errors.New("boom")), wantStatus: codes.Error},
		{
			name:       "business rejection",
			err:        failure.WithReason(failure.Conflict("room already booked"), "ROOM_CONFLICT"),
			wantStatus: codes.Unset,
			wantEvent:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ot, recorder := newRecorded(t)

			endSpan(ot, tt.err)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)

			events := spans[0].Events()
			if !tt.wantEvent {
				for _, event := range events {
					assert.NotEqual(t, eventRejected, event.Name)
				}

				return
			}

			require.Len(t, events, 1)
			assert.Equal(t, eventRejected, events[0].Name)
			assert.Contains(t, events[0].Attributes, attribute.Int(attrRejectCode, 409))
			assert.Contains(t, events[0].Attributes, attribute.String(attrRejectReason, "ROOM_CONFLICT"))
		})
	}
}

func TestToAttribute(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("WIB", 7*60*60))

	tests := []struct {
		name  string
		value any
		want  attribute.KeyValue
	}{
		{name: "bool", value: true, want: attribute.Bool("k", true)},
		{name: "string", value: "v", want: attribute.String("k", "v")},
		{name: "int", value: 3, want: attribute.Int("k", 3)},
		{name: "int64", value: int64(3), want: attribute.Int64("k", 3)},
		{name: "float64", value: 1.5, want: attribute.Float64("k", 1.5)},
		{name: "strings", value: []string{"a", "b"}, want: attribute.StringSlice("k", []string{"a", "b"})},
		{name: "time in utc", value: at, want: attribute.String("k", "2026-03-02T02:00:00Z")},
		{name: "duration", value: 90 * time.Second, want: attribute.String("k", "1m30s")},
		{name: "other", value: struct{ N int }{1}, want: attribute.String("k", "{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toAttribute("k", tt.value))
		})
	}
}
