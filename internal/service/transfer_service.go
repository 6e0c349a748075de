package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/invcode"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"

	"go.uber.org/zap"
)

// TransferService 设备调拨服务接口
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error)
	History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error)
}

type transferService struct {
	repo   repository.InventoryRepository
	policy OrdinalPolicy
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewTransferService 创建 TransferService 实例
func NewTransferService(repo repository.InventoryRepository, policy OrdinalPolicy, pub events.Publisher, logger *zap.Logger) TransferService {
	if pub == nil {
		pub = events.Nop{}
	}
	if policy == "" {
		policy = OrdinalCounter
	}
	return &transferService{
		repo:   repo,
		policy: policy,
		events: pub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type TransferRequest struct {
	EquipmentID string // 必填
	ToRoomID    string // 必填
	Notes       string
}

type TransferResponse struct {
	HistoryID    string `json:"history_id"`
	OldCode      string `json:"old_code"`
	NewCode      string `json:"new_code"`
	FromRoomID   string `json:"from_room_id"`
	FromRoomName string `json:"from_room_name"`
	ToRoomID     string `json:"to_room_id"`
	ToRoomName   string `json:"to_room_name"`
	Summary      string `json:"summary"`
}

type HistoryRequest struct {
	EquipmentID string // 必填
}

type HistoryResponse struct {
	Items []*domain.TransferHistory `json:"items"`
}

// Transfer moves the equipment, gives it a code derived from the destination and
// appends a history row. Either all three happen or none does.
func (s *transferService) Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}
	if req.ToRoomID == "" {
		return nil, fmt.Errorf("%w: destination room is required", domain.ErrValidation)
	}

	resp := &TransferResponse{ToRoomID: req.ToRoomID}
	var eqName, orgID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		eq, err := tx.GetEquipment(ctx, req.EquipmentID)
		if err != nil {
			return err
		}
		to, err := tx.GetRoom(ctx, req.ToRoomID)
		if err != nil {
			return err
		}
		if eq.RoomID == to.RoomID {
			return fmt.Errorf("%w: equipment is already in room %s", domain.ErrNoOp, to.Name)
		}
		from, err := tx.GetRoom(ctx, eq.RoomID)
		if err != nil {
			return err
		}
		org, err := tx.GetOrganization(ctx, to.OrganizationID)
		if err != nil {
			return err
		}
		eqName, orgID = eq.Name, org.OrganizationID
		resp.OldCode = eq.InvCode
		resp.FromRoomID, resp.FromRoomName = from.RoomID, from.Name
		resp.ToRoomName = to.Name

		if err := tx.SetEquipmentRoom(ctx, eq.EquipmentID, to.RoomID); err != nil {
			return err
		}
		ordinal, err := s.policy.forMovedItem(ctx, tx, to.RoomID)
		if err != nil {
			return err
		}
		newCode, err := invcode.Generate(org.Name, to.Name, ordinal)
		if err != nil {
			return err
		}
		if err := ensureCodeFree(ctx, tx, newCode, eq.EquipmentID); err != nil {
			return err
		}
		if err := tx.SetEquipmentCode(ctx, eq.EquipmentID, newCode); err != nil {
			return err
		}
		resp.NewCode = newCode

		resp.HistoryID, err = tx.InsertTransferHistory(ctx, &domain.TransferHistory{
			EquipmentID:   eq.EquipmentID,
			FromRoomID:    from.RoomID,
			ToRoomID:      to.RoomID,
			OldCode:       resp.OldCode,
			NewCode:       newCode,
			TransferredAt: s.now(),
			Notes:         strings.TrimSpace(req.Notes),
		})
		return err
	})
	if err != nil {
		s.logger.Error("Transfer failed",
			zap.String("equipment_id", req.EquipmentID),
			zap.String("to_room_id", req.ToRoomID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to transfer equipment: %w", err)
	}

	resp.Summary = fmt.Sprintf("Moved %s from %s to %s", eqName, resp.FromRoomName, resp.ToRoomName)
	publish(ctx, s.events, s.logger, events.New(events.EquipmentTransferred, map[string]any{
		"equipment_id":    req.EquipmentID,
		"organization_id": orgID,
		"history_id":      resp.HistoryID,
		"from_room_id":    resp.FromRoomID,
		"to_room_id":      resp.ToRoomID,
		"old_code":        resp.OldCode,
		"new_code":        resp.NewCode,
	}))
	return resp, nil
}

// History newest first. Room names are filled when the rooms still exist.
func (s *transferService) History(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}
	if _, err := s.repo.GetEquipment(ctx, req.EquipmentID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListTransferHistory(ctx, req.EquipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer history: %w", err)
	}

	names := map[string]string{}
	roomName := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		n := ""
		if room, err := s.repo.GetRoom(ctx, id); err == nil {
			n = room.Name
		}
		names[id] = n
		return n
	}
	for _, h := range items {
		h.FromRoomName = roomName(h.FromRoomID)
		h.ToRoomName = roomName(h.ToRoomID)
	}
	return &HistoryResponse{Items: items}, nil
}
