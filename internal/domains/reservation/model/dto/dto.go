package dto

import (
	"time"

	"roombook/internal/domains/reservation/model"
	roomDto "roombook/internal/domains/room/model/dto"
	"roombook/shared"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	"roombook/shared/timezone"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type CreateReservationRequest struct {
	RoomID      string `json:"room_id"     validate:"required,uuid"`
	Start       string `json:"start"       validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	End         string `json:"end"         validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Description string `json:"description" validate:"required,max=500"`
}

// Interval parses Start and End in the application timezone.
func (c *CreateReservationRequest) Interval() (model.Interval, error) {
	return ParseInterval(c.Start, c.End)
}

type DecideRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comment  string `json:"comment"  validate:"omitempty,max=500"`
}

func (d *DecideRequest) Approve() bool {
	return d.Decision == DecisionApprove
}

type ModifyReservationRequest struct {
	Start       string `json:"start"       validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	End         string `json:"end"         validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

func (m *ModifyReservationRequest) Interval() (model.Interval, error) {
	return ParseInterval(m.Start, m.End)
}

type DuplicateReservationRequest struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func ParseInterval(start, end string) (model.Interval, error) {
	s, err := timezone.Parse(constant.DateFormat, start)
	if err != nil {
		return model.Interval{}, failure.BadRequestFromString("start must be an RFC3339 timestamp") // nolint:wrapcheck
	}

	e, err := timezone.Parse(constant.DateFormat, end)
	if err != nil {
		return model.Interval{}, failure.BadRequestFromString("end must be an RFC3339 timestamp") // nolint:wrapcheck
	}

	return model.Interval{Start: s, End: e}, nil
}

type ReservationResponse struct {
	ID              string `json:"id"`
	RoomID          string `json:"room_id"`
	RequesterID     string `json:"requester_id"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	Temporal        string `json:"temporal,omitempty"`
	DecidedAt       string `json:"decided_at,omitempty"`
	DecidedBy       string `json:"decided_by,omitempty"`
	DecisionComment string `json:"decision_comment,omitempty"`
	gDto.Metadata
}

// FromModel renders res as seen at now. The temporal label is derived, never stored.
func (r *ReservationResponse) FromModel(res model.Reservation, now time.Time) {
	r.ID = res.ID
	r.RoomID = res.RoomID
	r.RequesterID = res.RequesterID
	r.Start = timezone.Format(res.StartAt, constant.DateFormat)
	r.End = timezone.Format(res.EndAt, constant.DateFormat)
	r.Description = res.Description
	r.Status = string(res.Status)
	r.Temporal = string(res.Temporal(now))

	if res.DecidedAt != nil {
		r.DecidedAt = timezone.Format(*res.DecidedAt, constant.DateFormat)
	}

	if res.DecidedBy != nil {
		r.DecidedBy = *res.DecidedBy
	}

	if res.DecisionComment != nil {
		r.DecisionComment = *res.DecisionComment
	}

	r.Metadata.FromModel(res.Metadata)
}

type GetReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	TotalPage    int                   `json:"total_page"`
	TotalData    int                   `json:"total_data"`
}

func (r *GetReservationsResponse) FromModels(models []model.Reservation, totalData, limit int, now time.Time) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Reservations = make([]ReservationResponse, len(models))
	for i, mod := range models {
		r.Reservations[i].FromModel(mod, now)
	}
}

type AvailabilityResponse struct {
	RoomID    string                `json:"room_id"`
	Start     string                `json:"start"`
	End       string                `json:"end"`
	Available bool                  `json:"available"`
	Blocking  []ReservationResponse `json:"blocking"`
}

type SuggestRoomsResponse struct {
	Rooms []roomDto.RoomResponse `json:"rooms"`
}

type StatsResponse struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Approved  int     `json:"approved"`
	Rejected  int     `json:"rejected"`
	Cancelled int     `json:"cancelled"`
	Upcoming  int     `json:"upcoming"`
	Active    int     `json:"active"`
	Completed int     `json:"completed"`
	Hours     float64 `json:"hours"`
}
