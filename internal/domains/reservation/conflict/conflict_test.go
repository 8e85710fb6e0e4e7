package conflict_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"roombook/internal/domains/reservation/conflict"
	"roombook/internal/domains/reservation/model"
)

var day = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

func hm(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func reservation(id, room, requester string, start, end time.Time, status model.Status) model.Reservation {
	return model.Reservation{ID: id, RoomID: room, RequesterID: requester, StartAt: start, EndAt: end, Status: status}
}

func TestConflicts_Symmetric(t *testing.T) {
	pairs := []struct {
		name string
		a, b model.Interval
	}{
		{name: "overlap", a: model.Interval{Start: hm(9, 0), End: hm(10, 0)}, b: model.Interval{Start: hm(9, 30), End: hm(10, 30)}},
		{name: "touching", a: model.Interval{Start: hm(9, 0), End: hm(10, 0)}, b: model.Interval{Start: hm(10, 0), End: hm(11, 0)}},
		{name: "nested", a: model.Interval{Start: hm(8, 0), End: hm(12, 0)}, b: model.Interval{Start: hm(9, 0), End: hm(9, 15)}},
		{name: "apart", a: model.Interval{Start: hm(8, 0), End: hm(9, 0)}, b: model.Interval{Start: hm(13, 0), End: hm(14, 0)}},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			ab := conflict.Conflicts(p.a, []model.Reservation{reservation("x", "R", "u", p.b.Start, p.b.End, model.StatusApproved)})
			ba := conflict.Conflicts(p.b, []model.Reservation{reservation("y", "R", "u", p.a.Start, p.a.End, model.StatusApproved)})

			assert.Equal(t, ab, ba)
		})
	}
}

func TestConflicts_TouchingEndpointsAreFree(t *testing.T) {
	existing := []model.Reservation{reservation("a", "R", "u1", hm(9, 0), hm(10, 0), model.StatusApproved)}

	assert.False(t, conflict.Conflicts(model.Interval{Start: hm(10, 0), End: hm(11, 0)}, existing))
	assert.False(t, conflict.Conflicts(model.Interval{Start: hm(8, 0), End: hm(9, 0)}, existing))
	assert.True(t, conflict.Conflicts(model.Interval{Start: hm(9, 59), End: hm(11, 0)}, existing))
}

func TestConflicts_OnlyBlockingStatuses(t *testing.T) {
	candidate := model.Interval{Start: hm(9, 0), End: hm(10, 0)}

	for _, status := range []model.Status{model.StatusPending, model.StatusRejected, model.StatusCancelled} {
		existing := []model.Reservation{reservation("a", "R", "u1", hm(9, 0), hm(10, 0), status)}

		assert.False(t, conflict.Conflicts(candidate, existing), status)
		assert.True(t, conflict.Conflicts(candidate, existing, conflict.WithStatuses(status)), status)
	}
}

func TestRoom(t *testing.T) {
	existing := []model.Reservation{
		reservation("self", "R", "u1", hm(9, 0), hm(10, 0), model.StatusApproved),
		reservation("other-room", "S", "u2", hm(9, 0), hm(10, 0), model.StatusApproved),
	}

	candidate := reservation("self", "R", "u1", hm(9, 30), hm(10, 30), model.StatusPending)

	_, found := conflict.Room(candidate, existing)
	assert.False(t, found)

	existing = append(existing, reservation("blocker", "R", "u3", hm(10, 15), hm(11, 0), model.StatusApproved))

	blocker, found := conflict.Room(candidate, existing)
	assert.True(t, found)
	assert.Equal(t, "blocker", blocker.ID)
}

func TestUser(t *testing.T) {
	existing := []model.Reservation{
		reservation("a", "S", "u1", hm(9, 0), hm(10, 0), model.StatusApproved),
		reservation("b", "T", "u2", hm(9, 0), hm(10, 0), model.StatusApproved),
	}

	_, found := conflict.User(reservation("", "R", "u1", hm(9, 30), hm(10, 30), model.StatusPending), existing)
	assert.True(t, found)

	_, found = conflict.User(reservation("", "R", "u3", hm(9, 30), hm(10, 30), model.StatusPending), existing)
	assert.False(t, found)
}

func TestAll(t *testing.T) {
	existing := []model.Reservation{
		reservation("a", "R", "u1", hm(9, 0), hm(10, 0), model.StatusApproved),
		reservation("b", "R", "u2", hm(10, 0), hm(11, 0), model.StatusApproved),
		reservation("c", "R", "u3", hm(9, 30), hm(9, 45), model.StatusPending),
		reservation("d", "S", "u4", hm(9, 30), hm(9, 45), model.StatusApproved),
	}

	blocking := conflict.All(model.Interval{Start: hm(9, 30), End: hm(10, 30)}, existing, conflict.SameRoom("R"))

	assert.Len(t, blocking, 2)
	assert.Equal(t, "a", blocking[0].ID)
	assert.Equal(t, "b", blocking[1].ID)

	assert.Empty(t, conflict.All(model.Interval{Start: hm(11, 0), End: hm(12, 0)}, existing))
}
