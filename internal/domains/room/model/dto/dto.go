package dto

import (
	"slices"
	"strings"

	"roombook/internal/domains/room/model"
	"roombook/shared"
	gDto "roombook/shared/dto"
	gModel "roombook/shared/model"
	"roombook/shared/timezone"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CreateRoomRequest struct {
	Name      string   `json:"name"      validate:"required,max=100"`
	Capacity  int      `json:"capacity"  validate:"required,min=1"`
	RoomType  string   `json:"room_type" validate:"required,slug,max=50"`
	Available *bool    `json:"available" validate:"omitempty"`
	Equipment []string `json:"equipment" validate:"omitempty,dive,slug,max=50"`
}

func (c *CreateRoomRequest) ToModel(user string) model.Room {
	available := true
	if c.Available != nil {
		available = *c.Available
	}

	now := timezone.Now()

	return model.Room{
		ID:        uuid.NewString(),
		Name:      c.Name,
		Capacity:  c.Capacity,
		RoomType:  c.RoomType,
		Available: available,
		Equipment: NormalizeEquipment(c.Equipment),
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
}

type UpdateRoomRequest struct {
	Name      string   `db:"name"      json:"name"      validate:"omitempty,max=100"`
	Capacity  *int     `db:"capacity"  json:"capacity"  validate:"omitempty,min=1"`
	RoomType  string   `db:"room_type" json:"room_type" validate:"omitempty,slug,max=50"`
	Available *bool    `db:"available" json:"available" validate:"omitempty"`
	Equipment []string `json:"equipment" validate:"omitempty,dive,slug,max=50"`
}

type SetAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// SuggestRoomsRequest asks for available rooms that fit a group and an interval.
type SuggestRoomsRequest struct {
	Start     string   `json:"start"     validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	End       string   `json:"end"       validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Attendees int      `json:"attendees" validate:"omitempty,min=1"`
	Equipment []string `json:"equipment" validate:"omitempty,dive,slug"`
}

// NormalizeEquipment lowercases, trims and dedupes tags so equipment behaves as a set.
func NormalizeEquipment(tags []string) pq.StringArray {
	out := pq.StringArray{}

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}

		out = append(out, tag)
	}

	slices.Sort(out)

	return out
}

type RoomResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	RoomType  string   `json:"room_type"`
	Available bool     `json:"available"`
	Equipment []string `json:"equipment"`
	gDto.Metadata
}

func (r *RoomResponse) FromModel(model model.Room) {
	r.ID = model.ID
	r.Name = model.Name
	r.Capacity = model.Capacity
	r.RoomType = model.RoomType
	r.Available = model.Available
	r.Equipment = []string(model.Equipment)
	r.Metadata.FromModel(model.Metadata)
}

type GetRoomsResponse struct {
	Rooms     []RoomResponse `json:"rooms"`
	TotalPage int            `json:"total_page"`
	TotalData int            `json:"total_data"`
}

func (r *GetRoomsResponse) FromModels(models []model.Room, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Rooms = make([]RoomResponse, len(models))
	for i, mod := range models {
		r.Rooms[i].FromModel(mod)
	}
}
