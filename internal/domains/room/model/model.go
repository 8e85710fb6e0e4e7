package model

import (
	"slices"

	"roombook/shared/model"

	"github.com/lib/pq"
)

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldID        = "id"
	FieldName      = "name"
	FieldCapacity  = "capacity"
	FieldRoomType  = "room_type"
	FieldAvailable = "available"
	FieldEquipment = "equipment"
)

type Room struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Capacity  int            `db:"capacity"`
	RoomType  string         `db:"room_type"`
	Available bool           `db:"available"`
	Equipment pq.StringArray `db:"equipment"`
	model.Metadata
}

func (r Room) Exists() bool {
	return r.ID != ""
}

// HasEquipment reports whether the room carries every requested tag.
func (r Room) HasEquipment(tags ...string) bool {
	for _, tag := range tags {
		if !slices.Contains(r.Equipment, tag) {
			return false
		}
	}

	return true
}
