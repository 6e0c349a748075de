package domain

import (
	"database/sql"
	"time"
)

// Room room domain model (rooms table)
type Room struct {
	RoomID         string         `db:"room_id"`
	OrganizationID string         `db:"organization_id"`
	FloorID        sql.NullString `db:"floor_id"` // NULL for direct rooms
	Name           string         `db:"name"`
	// CodeSeq last ordinal handed out for inventory codes in this room.
	// Only ever increases; deleted equipment never gives its ordinal back.
	CodeSeq   int       `db:"code_seq"`
	CreatedAt time.Time `db:"created_at"`
}

// IsDirect reports whether the room hangs straight off its organization.
func (r *Room) IsDirect() bool {
	return !r.FloorID.Valid
}

func (r *Room) ToJSON() map[string]any {
	out := map[string]any{
		"room_id":         r.RoomID,
		"organization_id": r.OrganizationID,
		"floor_id":        nil,
		"name":            r.Name,
		"code_seq":        r.CodeSeq,
		"created_at":      r.CreatedAt.Format(time.RFC3339),
	}
	if r.FloorID.Valid {
		out["floor_id"] = r.FloorID.String
	}
	return out
}

// RoomListItem row of list_rooms: id, name and the floor name when the room has one.
type RoomListItem struct {
	RoomID    string         `db:"room_id"`
	Name      string         `db:"name"`
	FloorID   sql.NullString `db:"floor_id"`
	FloorName sql.NullString `db:"floor_name"`
}

func (r *RoomListItem) ToJSON() map[string]any {
	out := map[string]any{
		"room_id":    r.RoomID,
		"name":       r.Name,
		"floor_id":   nil,
		"floor_name": nil,
	}
	if r.FloorID.Valid {
		out["floor_id"] = r.FloorID.String
	}
	if r.FloorName.Valid {
		out["floor_name"] = r.FloorName.String
	}
	return out
}
