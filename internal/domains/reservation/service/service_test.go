package service_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roombook/config"
	"roombook/infras/otel/mocks"
	"roombook/internal/domains/reservation/event"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/service"
	"roombook/internal/domains/reservation/validation"
	roomMocks "roombook/internal/domains/room/mocks"
	roomModel "roombook/internal/domains/room/model"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	"roombook/shared/lock"
	"roombook/shared/timezone"
)

const (
	roomIDR       = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5b01"
	roomIDS       = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5b02"
	roomIDOff     = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5b03"
	roomIDBig     = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5b04"
	roomIDBusy    = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5b05"
	roomIDMissing = "9b2d6f0e-3c1a-4e7b-8d52-7a1f0c3e5bff"

	resID1        = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a01"
	resID2        = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a02"
	resIDApproved = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a03"
	resIDPending  = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a04"
	resIDExisting = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a05"
	resIDMine     = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1a06"
	resIDMissing  = "4d0e5c1a-7b2f-4c83-9a61-0f3e2b8d1aff"
)

var (
	now    = time.Date(2030, 1, 10, 8, 0, 0, 0, time.UTC)
	admin  = model.Actor{ID: "admin-1", Role: "admin"}
	member = model.Actor{ID: "user-1", Role: "member"}
	other  = model.Actor{ID: "user-2", Role: "member"}

	roomR = roomModel.Room{ID: roomIDR, Name: "R", Capacity: 10, RoomType: "meeting", Available: true}
	roomS = roomModel.Room{ID: roomIDS, Name: "S", Capacity: 4, RoomType: "huddle", Available: true}
)

// at returns 2030-01-11 hh:mm UTC, one day after now.
func at(hour, minute int) time.Time {
	return time.Date(2030, 1, 11, hour, minute, 0, 0, time.UTC)
}

func reservation(id, roomID, requesterID string, start, end time.Time, status model.Status) model.Reservation {
	return model.Reservation{
		ID:          id,
		RoomID:      roomID,
		RequesterID: requesterID,
		StartAt:     start,
		EndAt:       end,
		Description: "weekly sync",
		Status:      status,
	}
}

type fixture struct {
	svc       service.Scheduling
	repo      *memoryRepository
	rooms     *roomMocks.MockRoom
	cache     *memoryCache
	publisher *recordingPublisher
	cfg       *config.Config
}

func newFixture(t *testing.T, rows ...model.Reservation) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		repo:      newMemoryRepository(rows...),
		rooms:     roomMocks.NewMockRoom(ctrl),
		cache:     newMemoryCache(),
		publisher: &recordingPublisher{},
		cfg:       &config.Config{},
	}

	f.cfg.Cache.TTL = 60
	f.cfg.Scheduling.StrictCancel = true

	f.svc = service.New(
		f.repo,
		f.rooms,
		lock.NewLocal(mocks.NewOtel()),
		f.publisher,
		f.cache,
		timezone.ClockFunc(func() time.Time { return now }),
		f.cfg,
		mocks.NewOtel(),
	)

	return f
}

func (f *fixture) withRooms(rooms ...roomModel.Room) *fixture {
	f.rooms.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter gDto.FilterGroup, _ ...string) (roomModel.Room, error) {
			id := filter.Filters[0].(gDto.Filter).Value
			for _, room := range rooms {
				if room.ID == id {
					return room, nil
				}
			}

			return roomModel.Room{}, nil
		}).
		AnyTimes()

	return f
}

func request(roomID, requesterID string, start, end time.Time) validation.Request {
	return validation.Request{
		RoomID:      roomID,
		RequesterID: requesterID,
		Start:       start,
		End:         end,
		Description: "planning",
	}
}

func TestRequestReservation_CreatesPending(t *testing.T) {
	f := newFixture(t).withRooms(roomR)

	res, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(9, 0), at(10, 0)))

	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, now, res.CreatedAt)
	assert.Nil(t, res.DecidedAt)
	assert.Equal(t, res, f.repo.get(res.ID))

	assert.Eventually(t, func() bool {
		return len(f.publisher.types()) == 1 && f.publisher.types()[0] == event.TypeRequested
	}, time.Second, 5*time.Millisecond)
}

func TestRequestReservation_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		rows   []model.Reservation
		req    validation.Request
		reason model.Reason
	}{
		{
			name:   "missing description",
			req:    validation.Request{RoomID: roomR.ID, RequesterID: member.ID, Start: at(9, 0), End: at(10, 0)},
			reason: model.ReasonMissingField,
		},
		{
			name:   "in the past",
			req:    request(roomR.ID, member.ID, now.Add(-time.Hour), now),
			reason: model.ReasonInPast,
		},
		{
			name:   "end before start",
			req:    request(roomR.ID, member.ID, at(10, 0), at(9, 0)),
			reason: model.ReasonEndBeforeStart,
		},
		{
			name:   "14 minutes",
			req:    request(roomR.ID, member.ID, at(9, 0), at(9, 14)),
			reason: model.ReasonDurationTooShort,
		},
		{
			name:   "4 hours 1 minute",
			req:    request(roomR.ID, member.ID, at(9, 0), at(13, 1)),
			reason: model.ReasonDurationTooLong,
		},
		{
			name:   "unknown room",
			req:    request(roomIDMissing, member.ID, at(9, 0), at(10, 0)),
			reason: model.ReasonNotFound,
		},
		{
			name:   "room disabled",
			req:    request(roomIDOff, member.ID, at(9, 0), at(10, 0)),
			reason: model.ReasonRoomUnavailable,
		},
		{
			name: "requester already approved elsewhere",
			rows: []model.Reservation{
				reservation(resIDMine, roomS.ID, member.ID, at(9, 30), at(10, 30), model.StatusApproved),
			},
			req:    request(roomR.ID, member.ID, at(9, 0), at(10, 0)),
			reason: model.ReasonUserConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disabled := roomModel.Room{ID: roomIDOff, Name: "Off", Capacity: 5, Available: false}
			f := newFixture(t, tt.rows...).withRooms(roomR, roomS, disabled)

			res, err := f.svc.RequestReservation(context.Background(), tt.req)

			assert.Equal(t, tt.reason, model.ReasonOf(err))
			assert.False(t, res.Exists())
			assert.Len(t, f.repo.all(), len(tt.rows))
		})
	}
}

func TestRequestReservation_DurationBounds(t *testing.T) {
	f := newFixture(t).withRooms(roomR)

	_, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(9, 0), at(9, 15)))
	assert.NoError(t, err)

	_, err = f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(10, 0), at(14, 0)))
	assert.NoError(t, err)
}

func TestRequestReservation_DailyQuota(t *testing.T) {
	seed := func(status model.Status) []model.Reservation {
		rows := make([]model.Reservation, 5)
		for i := range rows {
			rows[i] = reservation(fmt.Sprintf("seed-%d", i), roomS.ID, member.ID, at(8+i, 0), at(8+i, 30), status)
		}

		return rows
	}

	tests := []struct {
		name   string
		rows   []model.Reservation
		reason model.Reason
	}{
		{name: "five pending", rows: seed(model.StatusPending), reason: model.ReasonDailyQuotaExceeded},
		{name: "five approved", rows: seed(model.StatusApproved), reason: model.ReasonDailyQuotaExceeded},
		{name: "five rejected", rows: seed(model.StatusRejected)},
		{name: "four pending", rows: seed(model.StatusPending)[:4]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rows...).withRooms(roomR, roomS)

			_, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(16, 0), at(17, 0)))

			assert.Equal(t, tt.reason, model.ReasonOf(err))
		})
	}
}

func TestRequestReservation_QuotaHoldsUnderConcurrency(t *testing.T) {
	f := newFixture(t).withRooms(roomR)

	const attempts = 12

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		reasons  []model.Reason
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			start := at(8, 0).Add(time.Duration(i) * 30 * time.Minute)
			_, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, start, start.Add(15*time.Minute)))

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				accepted++
			} else {
				reasons = append(reasons, model.ReasonOf(err))
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Len(t, reasons, attempts-5)

	for _, reason := range reasons {
		assert.Equal(t, model.ReasonDailyQuotaExceeded, reason)
	}
}

func TestRequestReservation_InfrastructureError(t *testing.T) {
	f := newFixture(t).withRooms(roomR)
	f.repo.err = errDatabase

	_, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(9, 0), at(10, 0)))

	assert.ErrorIs(t, err, errDatabase)
	assert.Empty(t, model.ReasonOf(err))
}

func TestScenario_RoomRApprovedOverlap(t *testing.T) {
	existing := reservation(resIDExisting, roomR.ID, "user-9", at(9, 0), at(10, 0), model.StatusApproved)
	f := newFixture(t, existing).withRooms(roomR)

	pending, err := f.svc.RequestReservation(context.Background(), request(roomR.ID, member.ID, at(9, 30), at(10, 30)))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, pending.Status)

	_, err = f.svc.Decide(context.Background(), pending.ID, admin, true, "")

	assert.Equal(t, model.ReasonRoomConflict, model.ReasonOf(err))
	assert.Equal(t, model.StatusPending, f.repo.get(pending.ID).Status)
	assert.Nil(t, f.repo.get(pending.ID).DecidedAt)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		row     model.Reservation
		actor   model.Actor
		approve bool
		comment string
		reason  model.Reason
		status  model.Status
	}{
		{
			name:    "approve pending",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending),
			actor:   admin,
			approve: true,
			status:  model.StatusApproved,
		},
		{
			name:    "reject with comment",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending),
			actor:   admin,
			comment: "projector broken",
			status:  model.StatusRejected,
		},
		{
			name:   "reject without comment",
			row:    reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending),
			actor:  admin,
			reason: model.ReasonMissingField,
			status: model.StatusPending,
		},
		{
			name:    "member cannot decide",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending),
			actor:   member,
			approve: true,
			reason:  model.ReasonForbidden,
			status:  model.StatusPending,
		},
		{
			name:    "approve rejected",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusRejected),
			actor:   admin,
			approve: true,
			reason:  model.ReasonInvalidTransition,
			status:  model.StatusRejected,
		},
		{
			name:    "approve cancelled",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusCancelled),
			actor:   admin,
			approve: true,
			reason:  model.ReasonInvalidTransition,
			status:  model.StatusCancelled,
		},
		{
			name:    "approve approved",
			row:     reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusApproved),
			actor:   admin,
			approve: true,
			reason:  model.ReasonInvalidTransition,
			status:  model.StatusApproved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.row)

			res, err := f.svc.Decide(context.Background(), tt.row.ID, tt.actor, tt.approve, tt.comment)

			assert.Equal(t, tt.reason, model.ReasonOf(err))

			stored := f.repo.get(tt.row.ID)
			assert.Equal(t, tt.status, stored.Status)

			if tt.reason != "" {
				assert.Equal(t, tt.row, stored)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, stored, res)
			assert.Equal(t, now, *stored.DecidedAt)
			assert.Equal(t, admin.ID, *stored.DecidedBy)
		})
	}
}

func TestDecide_NotFound(t *testing.T) {
	for _, id := range []string{resIDMissing, "not-a-uuid", ""} {
		t.Run(id, func(t *testing.T) {
			f := newFixture(t)
			f.repo.err = errDatabase

			_, err := f.svc.Decide(context.Background(), id, admin, true, "")

			if id == resIDMissing {
				assert.ErrorIs(t, err, errDatabase)

				return
			}

			assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))
			assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
		})
	}

	f := newFixture(t)

	_, err := f.svc.Decide(context.Background(), resIDMissing, admin, true, "")

	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	f := newFixture(t).withRooms(roomR)
	f.repo.err = errDatabase

	_, err := f.svc.Cancel(context.Background(), "abc", member)
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))

	_, err = f.svc.Modify(context.Background(), "abc", member, at(9, 0), at(10, 0), "")
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))

	_, err = f.svc.Duplicate(context.Background(), "abc", member, at(9, 0))
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))

	_, err = f.svc.Get(context.Background(), "abc", admin)
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))

	_, err = f.svc.Availability(context.Background(), "room-1", model.Interval{Start: at(9, 0), End: at(10, 0)})
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))
}

func TestDecide_ExclusionViolationIsRoomConflict(t *testing.T) {
	row := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)
	f := newFixture(t, row)
	f.repo.statusErr = model.Reject(model.ReasonRoomConflict, "room already has an approved reservation in this interval")

	_, err := f.svc.Decide(context.Background(), row.ID, admin, true, "")

	assert.Equal(t, model.ReasonRoomConflict, model.ReasonOf(err))
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, model.StatusPending, f.repo.get(row.ID).Status)
	assert.Nil(t, f.repo.get(row.ID).DecidedAt)
	assert.Empty(t, f.publisher.types())
}

func TestDecide_CancelledContextLeavesNoPartialState(t *testing.T) {
	row := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)
	f := newFixture(t, row)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Decide(ctx, row.ID, admin, true, "")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, row, f.repo.get(row.ID))
}

func TestDecide_ConcurrentApprovalsApproveExactlyOne(t *testing.T) {
	const n = 25

	rows := make([]model.Reservation, n)
	for i := range rows {
		start := at(9, 0).Add(time.Duration(i) * time.Minute)
		rows[i] = reservation(fmt.Sprintf("4d0e5c1a-7b2f-4c83-9a61-%012d", i), roomR.ID, fmt.Sprintf("user-%d", i), start, start.Add(time.Hour), model.StatusPending)
	}

	f := newFixture(t, rows...)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		approved  int
		conflicts int
	)

	for _, row := range rows {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Decide(context.Background(), row.ID, admin, true, "")

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				approved++
			case model.ReasonOf(err) == model.ReasonRoomConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, n-1, conflicts)

	var stored []model.Reservation

	for _, r := range f.repo.all() {
		if r.Status == model.StatusApproved {
			stored = append(stored, r)
		}
	}

	assert.Len(t, stored, 1)
}

func TestCancel(t *testing.T) {
	pending := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)
	started := reservation(resID1, roomR.ID, member.ID, now.Add(-time.Minute), now.Add(time.Hour), model.StatusApproved)
	decidedAt := now.Add(-time.Hour)
	decidedBy := admin.ID
	started.DecidedAt = &decidedAt
	started.DecidedBy = &decidedBy

	tests := []struct {
		name   string
		row    model.Reservation
		actor  model.Actor
		strict bool
		reason model.Reason
	}{
		{name: "requester cancels pending", row: pending, actor: member, strict: true},
		{name: "admin cancels pending", row: pending, actor: admin, strict: true},
		{name: "stranger cannot cancel", row: pending, actor: other, strict: true, reason: model.ReasonForbidden},
		{name: "strict blocks started approved for requester", row: started, actor: member, strict: true, reason: model.ReasonInvalidTransition},
		{name: "lenient allows started approved for requester", row: started, actor: member},
		{name: "admin cancels started approved", row: started, actor: admin, strict: true},
		{
			name:   "already cancelled",
			row:    reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusCancelled),
			actor:  member,
			reason: model.ReasonInvalidTransition,
		},
		{
			name:   "rejected is terminal",
			row:    reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusRejected),
			actor:  admin,
			reason: model.ReasonInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.row)
			f.cfg.Scheduling.StrictCancel = tt.strict

			_, err := f.svc.Cancel(context.Background(), tt.row.ID, tt.actor)

			assert.Equal(t, tt.reason, model.ReasonOf(err))

			stored := f.repo.get(tt.row.ID)

			if tt.reason != "" {
				assert.Equal(t, tt.row, stored)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, model.StatusCancelled, stored.Status)
			assert.Nil(t, stored.DecidedAt)
			assert.Nil(t, stored.DecidedBy)
		})
	}
}

func TestModify(t *testing.T) {
	tests := []struct {
		name   string
		rows   []model.Reservation
		actor  model.Actor
		start  time.Time
		end    time.Time
		reason model.Reason
	}{
		{
			name:  "pending moves",
			rows:  []model.Reservation{reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)},
			actor: member,
			start: at(11, 0),
			end:   at(12, 0),
		},
		{
			name:  "future approved moves onto its own old slot",
			rows:  []model.Reservation{reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusApproved)},
			actor: member,
			start: at(9, 30),
			end:   at(10, 30),
		},
		{
			name: "approved neighbour blocks",
			rows: []model.Reservation{
				reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusApproved),
				reservation(resID2, roomR.ID, other.ID, at(10, 0), at(11, 0), model.StatusApproved),
			},
			actor:  member,
			start:  at(9, 30),
			end:    at(10, 30),
			reason: model.ReasonRoomConflict,
		},
		{
			name: "touching neighbour is fine",
			rows: []model.Reservation{
				reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusApproved),
				reservation(resID2, roomR.ID, other.ID, at(10, 0), at(11, 0), model.StatusApproved),
			},
			actor: member,
			start: at(8, 0),
			end:   at(10, 0),
		},
		{
			name:   "started approved is frozen",
			rows:   []model.Reservation{reservation(resID1, roomR.ID, member.ID, now.Add(-time.Minute), now.Add(time.Hour), model.StatusApproved)},
			actor:  admin,
			start:  at(9, 0),
			end:    at(10, 0),
			reason: model.ReasonInvalidTransition,
		},
		{
			name:   "rejected is frozen",
			rows:   []model.Reservation{reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusRejected)},
			actor:  member,
			start:  at(11, 0),
			end:    at(12, 0),
			reason: model.ReasonInvalidTransition,
		},
		{
			name:   "too long",
			rows:   []model.Reservation{reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)},
			actor:  member,
			start:  at(9, 0),
			end:    at(14, 0),
			reason: model.ReasonDurationTooLong,
		},
		{
			name:   "stranger",
			rows:   []model.Reservation{reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)},
			actor:  other,
			start:  at(11, 0),
			end:    at(12, 0),
			reason: model.ReasonForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.rows...)
			before := f.repo.get(resID1)

			res, err := f.svc.Modify(context.Background(), resID1, tt.actor, tt.start, tt.end, "")

			assert.Equal(t, tt.reason, model.ReasonOf(err))

			stored := f.repo.get(resID1)

			if tt.reason != "" {
				assert.Equal(t, before, stored)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.start, stored.StartAt)
			assert.Equal(t, tt.end, stored.EndAt)
			assert.Equal(t, before.Status, stored.Status)
			assert.Equal(t, before.Description, stored.Description)
			assert.Equal(t, stored.StartAt, res.StartAt)
		})
	}
}

func TestModify_QuotaExcludesItself(t *testing.T) {
	rows := make([]model.Reservation, 5)
	for i := range rows {
		rows[i] = reservation(fmt.Sprintf("r%d", i+1), roomR.ID, member.ID, at(8+i, 0), at(8+i, 30), model.StatusPending)
	}

	f := newFixture(t, rows...)

	_, err := f.svc.Modify(context.Background(), resID1, member, at(15, 0), at(15, 30), "moved")

	assert.NoError(t, err)
	assert.Equal(t, "moved", f.repo.get(resID1).Description)
}

func TestDuplicate(t *testing.T) {
	source := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 30), model.StatusApproved)
	f := newFixture(t, source).withRooms(roomR)

	copied, err := f.svc.Duplicate(context.Background(), source.ID, member, at(14, 0))

	require.NoError(t, err)
	assert.NotEqual(t, source.ID, copied.ID)
	assert.Equal(t, model.StatusPending, copied.Status)
	assert.Equal(t, at(15, 30), copied.EndAt)
	assert.Equal(t, "weekly sync (copy)", copied.Description)

	_, err = f.svc.Duplicate(context.Background(), source.ID, other, at(14, 0))
	assert.Equal(t, model.ReasonForbidden, model.ReasonOf(err))
}

func TestAvailability(t *testing.T) {
	f := newFixture(t,
		reservation(resIDApproved, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusApproved),
		reservation(resIDPending, roomR.ID, other.ID, at(10, 0), at(11, 0), model.StatusPending),
	).withRooms(roomR)

	res, err := f.svc.Availability(context.Background(), roomR.ID, model.Interval{Start: at(9, 30), End: at(10, 30)})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Len(t, res.Blocking, 1)
	assert.Equal(t, resIDApproved, res.Blocking[0].ID)

	res, err = f.svc.Availability(context.Background(), roomR.ID, model.Interval{Start: at(10, 0), End: at(11, 0)})
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Empty(t, res.Blocking)

	_, err = f.svc.Availability(context.Background(), roomR.ID, model.Interval{Start: at(11, 0), End: at(10, 0)})
	assert.Equal(t, model.ReasonEndBeforeStart, model.ReasonOf(err))

	_, err = f.svc.Availability(context.Background(), roomIDMissing, model.Interval{Start: at(10, 0), End: at(11, 0)})
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))
}

func TestSuggestRooms(t *testing.T) {
	big := roomModel.Room{ID: roomIDBig, Name: "Big", Capacity: 20, Available: true, Equipment: []string{"projector", "whiteboard"}}
	busy := roomModel.Room{ID: roomIDBusy, Name: "Busy", Capacity: 12, Available: true, Equipment: []string{"projector"}}

	f := newFixture(t, reservation(resIDApproved, busy.ID, other.ID, at(9, 0), at(10, 0), model.StatusApproved))

	f.rooms.EXPECT().
		FindCandidates(gomock.Any(), 8, gomock.Any()).
		Return([]roomModel.Room{busy, big, roomS}, nil)

	res, err := f.svc.SuggestRooms(context.Background(), service.SuggestQuery{
		Interval:  model.Interval{Start: at(9, 30), End: at(10, 30)},
		Attendees: 8,
		Equipment: []string{" Projector "},
	})

	require.NoError(t, err)
	require.Len(t, res.Rooms, 1)
	assert.Equal(t, big.ID, res.Rooms[0].ID)
}

func TestStats(t *testing.T) {
	active := reservation("active", roomR.ID, member.ID, now.Add(-30*time.Minute), now.Add(30*time.Minute), model.StatusApproved)
	finished := reservation("finished", roomR.ID, member.ID, now.Add(-3*time.Hour), now.Add(-time.Hour), model.StatusApproved)
	upcoming := reservation("upcoming", roomR.ID, member.ID, at(9, 0), at(9, 30), model.StatusApproved)

	f := newFixture(t,
		active, finished, upcoming,
		reservation(resIDPending, roomR.ID, member.ID, at(11, 0), at(12, 0), model.StatusPending),
		reservation("x", roomR.ID, member.ID, at(12, 0), at(13, 0), model.StatusRejected),
		reservation("c", roomR.ID, member.ID, at(13, 0), at(14, 0), model.StatusCancelled),
		reservation("theirs", roomR.ID, other.ID, at(13, 0), at(14, 0), model.StatusApproved),
	)

	stats, err := f.svc.Stats(context.Background(), member.ID)

	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.Upcoming)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Completed)
	assert.InDelta(t, 3.5, stats.Hours, 0.001)
}

func TestGet(t *testing.T) {
	row := reservation(resID1, roomR.ID, member.ID, now.Add(-10*time.Minute), now.Add(20*time.Minute), model.StatusApproved)
	f := newFixture(t, row)

	res, err := f.svc.Get(context.Background(), row.ID, member)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", res.Status)
	assert.Equal(t, string(model.TemporalActive), res.Temporal)

	_, err = f.svc.Get(context.Background(), row.ID, other)
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))

	_, err = f.svc.Get(context.Background(), row.ID, admin)
	assert.NoError(t, err)

	_, err = f.svc.Get(context.Background(), resIDMissing, admin)
	assert.Equal(t, model.ReasonNotFound, model.ReasonOf(err))
}

func TestGet_ServedFromCacheAndInvalidatedOnChange(t *testing.T) {
	row := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)
	f := newFixture(t, row)

	key := "reservation:get:" + resID1

	_, err := f.svc.Get(context.Background(), row.ID, admin)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.cache.has(key) }, time.Second, 5*time.Millisecond)

	_, err = f.svc.Decide(context.Background(), row.ID, admin, true, "")
	require.NoError(t, err)

	assert.False(t, f.cache.has(key))

	res, err := f.svc.Get(context.Background(), row.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", res.Status)
}

func TestGet_ReadCacheTTLIsBounded(t *testing.T) {
	tests := []struct {
		name     string
		cacheTTL int
		limit    int
		want     int
	}{
		{name: "limit below cache ttl", cacheTTL: 3600, limit: 30, want: 30},
		{name: "cache ttl below limit", cacheTTL: 10, limit: 30, want: 10},
		{name: "no limit", cacheTTL: 3600, want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending)
			f := newFixture(t, row)
			f.cfg.Cache.TTL = tt.cacheTTL
			f.cfg.Scheduling.ReadCacheTTL = tt.limit

			_, err := f.svc.Get(context.Background(), row.ID, admin)
			require.NoError(t, err)

			key := "reservation:get:" + resID1

			assert.Eventually(t, func() bool { return f.cache.has(key) }, time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.want, f.cache.ttl(key))
		})
	}
}

func TestGetAll(t *testing.T) {
	f := newFixture(t,
		reservation(resID1, roomR.ID, member.ID, at(9, 0), at(10, 0), model.StatusPending),
		reservation(resID2, roomR.ID, other.ID, at(10, 0), at(11, 0), model.StatusApproved),
	)

	params := gDto.QueryParams{Page: 1, Limit: 10}

	res, err := f.svc.GetAll(context.Background(), params, gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalData)
	assert.Equal(t, 1, res.TotalPage)
	assert.Len(t, res.Reservations, 2)
	assert.Equal(t, string(model.TemporalUpcoming), res.Reservations[1].Temporal)
}
