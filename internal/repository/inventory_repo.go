package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"

	"github.com/shopspring/decimal"
)

// InventoryReader read side of the inventory store. Lookups of a single row return
// an error wrapping domain.ErrNotFound when the id does not resolve.
type InventoryReader interface {
	// Organization / Floor
	GetOrganization(ctx context.Context, organizationID string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]*domain.Organization, error)
	GetFloor(ctx context.Context, floorID string) (*domain.Floor, error)
	ListFloors(ctx context.Context, organizationID string) ([]*domain.Floor, error)

	// Room
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRoomsByOrganization(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error)
	ListDirectRooms(ctx context.Context, organizationID string) ([]*domain.RoomListItem, error)
	ListRoomsByFloor(ctx context.Context, floorID string) ([]*domain.RoomListItem, error)

	// Equipment
	GetEquipment(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	ListEquipmentByRoom(ctx context.Context, roomID string) ([]*domain.Equipment, error)
	CountEquipmentInRoom(ctx context.Context, roomID string) (int, error)
	// InvCodeExists reports whether another equipment row (not excludeEquipmentID) holds code.
	InvCodeExists(ctx context.Context, code string, excludeEquipmentID string) (bool, error)

	// TransferHistory, newest first
	ListTransferHistory(ctx context.Context, equipmentID string) ([]*domain.TransferHistory, error)
}

// InventoryWriter write side, only reachable inside a transaction.
type InventoryWriter interface {
	CreateOrganization(ctx context.Context, org *domain.Organization) (string, error)
	DeleteOrganization(ctx context.Context, organizationID string) error

	CreateFloor(ctx context.Context, floor *domain.Floor) (string, error)
	DeleteFloors(ctx context.Context, floorIDs []string) (int64, error)

	CreateRoom(ctx context.Context, room *domain.Room) (string, error)
	// NextRoomSeq increments the room's code counter and returns the new value.
	NextRoomSeq(ctx context.Context, roomID string) (int, error)
	// RaiseRoomSeq makes sure the counter is at least atLeast.
	RaiseRoomSeq(ctx context.Context, roomID string, atLeast int) error
	DeleteRooms(ctx context.Context, roomIDs []string) (int64, error)

	CreateEquipment(ctx context.Context, eq *domain.Equipment) (string, error)
	UpdateEquipment(ctx context.Context, equipmentID string, patch EquipmentPatch) error
	SetEquipmentRoom(ctx context.Context, equipmentID, roomID string) error
	SetEquipmentCode(ctx context.Context, equipmentID, invCode string) error
	DeleteEquipment(ctx context.Context, equipmentID string) error
	DeleteEquipmentByRooms(ctx context.Context, roomIDs []string) (int64, error)

	// InsertTransferHistory appends a row; Seq is assigned per equipment.
	InsertTransferHistory(ctx context.Context, h *domain.TransferHistory) (string, error)
	DeleteTransferHistoryByEquipment(ctx context.Context, equipmentID string) (int64, error)
	// DeleteTransferHistoryByRooms removes rows whose source OR destination is in roomIDs.
	DeleteTransferHistoryByRooms(ctx context.Context, roomIDs []string) (int64, error)
}

// InventoryTx a unit of work. Everything done through it commits or rolls back together.
type InventoryTx interface {
	InventoryReader
	InventoryWriter
}

// InventoryRepository inventory store.
// WithTx runs fn in a transaction: a nil return commits, any error rolls back.
type InventoryRepository interface {
	InventoryReader
	WithTx(ctx context.Context, fn func(tx InventoryTx) error) error
	Close() error
}

// EquipmentPatch partial update; nil fields are left untouched.
// InvCode and RoomID are deliberately absent: they only change through transfer.
type EquipmentPatch struct {
	Name         *string
	Category     *string
	Brand        *string
	Model        *string
	SerialNumber *string
	Color        *string
	PurchaseDate *sql.NullTime
	Price        *decimal.NullDecimal
	Status       *string
	QuantityNote *string
	UserNote     *string
	Description  *string
	UpdatedAt    time.Time
}

// IsEmpty true when no descriptive field is set.
func (p EquipmentPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Brand == nil && p.Model == nil &&
		p.SerialNumber == nil && p.Color == nil && p.PurchaseDate == nil && p.Price == nil &&
		p.Status == nil && p.QuantityNote == nil && p.UserNote == nil && p.Description == nil
}

// Apply copies the set fields onto eq.
func (p EquipmentPatch) Apply(eq *domain.Equipment) {
	if p.Name != nil {
		eq.Name = *p.Name
	}
	if p.Category != nil {
		eq.Category = *p.Category
	}
	if p.Brand != nil {
		eq.Brand = *p.Brand
	}
	if p.Model != nil {
		eq.Model = *p.Model
	}
	if p.SerialNumber != nil {
		eq.SerialNumber = *p.SerialNumber
	}
	if p.Color != nil {
		eq.Color = *p.Color
	}
	if p.PurchaseDate != nil {
		eq.PurchaseDate = *p.PurchaseDate
	}
	if p.Price != nil {
		eq.Price = *p.Price
	}
	if p.Status != nil {
		eq.Status = *p.Status
	}
	if p.QuantityNote != nil {
		eq.QuantityNote = *p.QuantityNote
	}
	if p.UserNote != nil {
		eq.UserNote = *p.UserNote
	}
	if p.Description != nil {
		eq.Description = *p.Description
	}
	if !p.UpdatedAt.IsZero() {
		eq.UpdatedAt = p.UpdatedAt
	}
}
