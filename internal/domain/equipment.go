package domain

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultEquipmentStatus = "Active"

// Equipment equipment domain model (equipment table)
// InvCode is owned by the service layer: it is written on creation and on transfer only.
type Equipment struct {
	EquipmentID  string              `db:"equipment_id"`
	InvCode      string              `db:"inv_code"`
	Name         string              `db:"name"`     // NOT NULL
	Category     string              `db:"category"` // NOT NULL
	Brand        string              `db:"brand"`
	Model        string              `db:"model"`
	SerialNumber string              `db:"serial_number"`
	Color        string              `db:"color"`
	PurchaseDate sql.NullTime        `db:"purchase_date"`
	Price        decimal.NullDecimal `db:"price"`
	Status       string              `db:"status"` // default 'Active'
	QuantityNote string              `db:"quantity_note"`
	UserNote     string              `db:"user_note"`
	Description  string              `db:"description"`
	RoomID       string              `db:"room_id"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func (e *Equipment) ToJSON() map[string]any {
	out := map[string]any{
		"equipment_id":  e.EquipmentID,
		"inv_code":      e.InvCode,
		"name":          e.Name,
		"category":      e.Category,
		"brand":         e.Brand,
		"model":         e.Model,
		"serial_number": e.SerialNumber,
		"color":         e.Color,
		"purchase_date": nil,
		"price":         nil,
		"status":        e.Status,
		"quantity_note": e.QuantityNote,
		"user_note":     e.UserNote,
		"description":   e.Description,
		"room_id":       e.RoomID,
		"created_at":    e.CreatedAt.Format(time.RFC3339),
		"updated_at":    e.UpdatedAt.Format(time.RFC3339),
	}
	if e.PurchaseDate.Valid {
		out["purchase_date"] = e.PurchaseDate.Time.Format("2006-01-02")
	}
	if e.Price.Valid {
		out["price"] = e.Price.Decimal.String()
	}
	return out
}

// EquipmentCard equipment plus the resolved names of where it currently sits.
// Used by the detail endpoint, the label renderer and the export.
type EquipmentCard struct {
	Equipment        *Equipment
	OrganizationID   string
	OrganizationName string
	FloorName        string // empty for direct rooms
	RoomName         string
}

func (c *EquipmentCard) ToJSON() map[string]any {
	out := c.Equipment.ToJSON()
	out["organization_id"] = c.OrganizationID
	out["organization_name"] = c.OrganizationName
	out["room_name"] = c.RoomName
	out["floor_name"] = nil
	if c.FloorName != "" {
		out["floor_name"] = c.FloorName
	}
	return out
}
