package domain

import "time"

// TransferHistory one room-to-room move of an equipment item (transfer_history table)
// Rows are insert-only. They disappear only when the equipment is deleted or when a
// cascade removes one of the rooms they reference.
type TransferHistory struct {
	HistoryID     string    `db:"history_id"`
	EquipmentID   string    `db:"equipment_id"`
	Seq           int       `db:"seq"` // 1-based position in the equipment's log
	FromRoomID    string    `db:"from_room_id"`
	ToRoomID      string    `db:"to_room_id"`
	OldCode       string    `db:"old_code"`
	NewCode       string    `db:"new_code"`
	TransferredAt time.Time `db:"transferred_at"`
	Notes         string    `db:"notes"`
	// FromRoomName / ToRoomName are filled by the service for display (not stored)
	FromRoomName string `db:"-"`
	ToRoomName   string `db:"-"`
}

func (h *TransferHistory) ToJSON() map[string]any {
	return map[string]any{
		"history_id":     h.HistoryID,
		"equipment_id":   h.EquipmentID,
		"seq":            h.Seq,
		"from_room_id":   h.FromRoomID,
		"from_room_name": h.FromRoomName,
		"to_room_id":     h.ToRoomID,
		"to_room_name":   h.ToRoomName,
		"old_code":       h.OldCode,
		"new_code":       h.NewCode,
		"transferred_at": h.TransferredAt.Format(time.RFC3339),
		"notes":          h.Notes,
	}
}
