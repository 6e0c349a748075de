package service

import (
	"context"
	"fmt"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
)

// OrdinalPolicy decides the room-scoped ordinal of a new inventory code.
type OrdinalPolicy string

const (
	// OrdinalCounter increments Room.CodeSeq; ordinals are never handed out twice.
	OrdinalCounter OrdinalPolicy = "counter"
	// OrdinalOccupancy uses the number of items in the room. Ordinals can repeat
	// after deletions, in which case the uniqueness check reports ErrConflict.
	OrdinalOccupancy OrdinalPolicy = "occupancy"
)

func ParseOrdinalPolicy(s string) (OrdinalPolicy, error) {
	switch OrdinalPolicy(s) {
	case "", OrdinalCounter:
		return OrdinalCounter, nil
	case OrdinalOccupancy:
		return OrdinalOccupancy, nil
	default:
		return "", fmt.Errorf("%w: unknown ordinal policy %q", domain.ErrValidation, s)
	}
}

// forNewItem ordinal for an item about to be inserted into roomID.
func (p OrdinalPolicy) forNewItem(ctx context.Context, tx repository.InventoryTx, roomID string) (int, error) {
	if p == OrdinalOccupancy {
		n, err := tx.CountEquipmentInRoom(ctx, roomID)
		if err != nil {
			return 0, err
		}
		return n + 1, nil
	}
	return tx.NextRoomSeq(ctx, roomID)
}

// forMovedItem ordinal for an item already reassigned to roomID.
func (p OrdinalPolicy) forMovedItem(ctx context.Context, tx repository.InventoryTx, roomID string) (int, error) {
	if p == OrdinalOccupancy {
		return tx.CountEquipmentInRoom(ctx, roomID)
	}
	return tx.NextRoomSeq(ctx, roomID)
}
