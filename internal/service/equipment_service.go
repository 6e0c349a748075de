package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/invcode"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EquipmentService 设备管理服务接口
type EquipmentService interface {
	Create(ctx context.Context, req CreateEquipmentRequest) (*CreateEquipmentResponse, error)
	Update(ctx context.Context, req UpdateEquipmentRequest) (*UpdateEquipmentResponse, error)
	Delete(ctx context.Context, req DeleteEquipmentRequest) (*DeleteEquipmentResponse, error)
	Get(ctx context.Context, req GetEquipmentRequest) (*domain.EquipmentCard, error)
	ListByRoom(ctx context.Context, req ListEquipmentRequest) (*ListEquipmentResponse, error)
}

type equipmentService struct {
	repo   repository.InventoryRepository
	policy OrdinalPolicy
	events events.Publisher
	logger *zap.Logger
}

// NewEquipmentService 创建 EquipmentService 实例
func NewEquipmentService(repo repository.InventoryRepository, policy OrdinalPolicy, pub events.Publisher, logger *zap.Logger) EquipmentService {
	if pub == nil {
		pub = events.Nop{}
	}
	if policy == "" {
		policy = OrdinalCounter
	}
	return &equipmentService{
		repo:   repo,
		policy: policy,
		events: pub,
		logger: logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type CreateEquipmentRequest struct {
	OrganizationID string // 必填
	RoomID         string // 必填，必须属于 OrganizationID
	Name           string // 必填
	Category       string // 必填
	Brand          string
	Model          string
	SerialNumber   string
	Color          string
	PurchaseDate   *time.Time
	Price          *decimal.Decimal
	Status         string // 默认 Active
	QuantityNote   string
	UserNote       string
	Description    string
	// InvCode pre-assigned code (bulk import). Accepted only when it parses and its
	// prefixes match the target organization and room; empty means generate.
	InvCode string
}

type CreateEquipmentResponse struct {
	EquipmentID string `json:"equipment_id"`
	InvCode     string `json:"inv_code"`
}

// UpdateEquipmentRequest nil fields are left as they are. The code and room are not editable here.
type UpdateEquipmentRequest struct {
	EquipmentID  string // 必填
	Name         *string
	Category     *string
	Brand        *string
	Model        *string
	SerialNumber *string
	Color        *string
	PurchaseDate *time.Time
	ClearDate    bool // set purchase_date to NULL
	Price        *decimal.Decimal
	ClearPrice   bool // set price to NULL
	Status       *string
	QuantityNote *string
	UserNote     *string
	Description  *string
}

type UpdateEquipmentResponse struct {
	Equipment *domain.Equipment
}

type DeleteEquipmentRequest struct {
	EquipmentID string // 必填
}

type DeleteEquipmentResponse struct {
	Success       bool  `json:"success"`
	HistoryPurged int64 `json:"history_purged"`
}

type GetEquipmentRequest struct {
	EquipmentID string // 必填
}

type ListEquipmentRequest struct {
	RoomID string // 必填
}

type ListEquipmentResponse struct {
	Items []*domain.Equipment `json:"items"`
}

// ============================================
// 实现
// ============================================

func (s *equipmentService) Create(ctx context.Context, req CreateEquipmentRequest) (*CreateEquipmentResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	if req.RoomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}

	eq := &domain.Equipment{
		Name:         name,
		Category:     category,
		Brand:        strings.TrimSpace(req.Brand),
		Model:        strings.TrimSpace(req.Model),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Color:        strings.TrimSpace(req.Color),
		Status:       strings.TrimSpace(req.Status),
		QuantityNote: strings.TrimSpace(req.QuantityNote),
		UserNote:     strings.TrimSpace(req.UserNote),
		Description:  strings.TrimSpace(req.Description),
		RoomID:       req.RoomID,
	}
	if eq.Status == "" {
		eq.Status = domain.DefaultEquipmentStatus
	}
	if req.PurchaseDate != nil {
		eq.PurchaseDate = sql.NullTime{Time: dateOnly(*req.PurchaseDate), Valid: true}
	}
	if req.Price != nil {
		eq.Price = decimal.NewNullDecimal(*req.Price)
	}

	var orgName, roomName string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		org, err := tx.GetOrganization(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		if room.OrganizationID != org.OrganizationID {
			return fmt.Errorf("%w: room %s does not belong to organization %s", domain.ErrValidation, room.Name, org.Name)
		}
		orgName, roomName = org.Name, room.Name

		if req.InvCode != "" {
			code, err := acceptPresetCode(ctx, tx, strings.TrimSpace(req.InvCode), org, room)
			if err != nil {
				return err
			}
			eq.InvCode = code
		} else {
			ordinal, err := s.policy.forNewItem(ctx, tx, room.RoomID)
			if err != nil {
				return err
			}
			if eq.InvCode, err = invcode.Generate(org.Name, room.Name, ordinal); err != nil {
				return err
			}
			if err := ensureCodeFree(ctx, tx, eq.InvCode, ""); err != nil {
				return err
			}
		}

		_, err = tx.CreateEquipment(ctx, eq)
		return err
	})
	if err != nil {
		s.logger.Error("CreateEquipment failed",
			zap.String("organization_id", req.OrganizationID),
			zap.String("room_id", req.RoomID),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}

	publish(ctx, s.events, s.logger, events.New(events.EquipmentCreated, map[string]any{
		"equipment_id":      eq.EquipmentID,
		"inv_code":          eq.InvCode,
		"name":              eq.Name,
		"room_id":           eq.RoomID,
		"room_name":         roomName,
		"organization_id":   req.OrganizationID,
		"organization_name": orgName,
	}))
	return &CreateEquipmentResponse{EquipmentID: eq.EquipmentID, InvCode: eq.InvCode}, nil
}

// acceptPresetCode validates an imported code against the target location and
// moves the room counter past its ordinal so generated codes never collide with it.
func acceptPresetCode(ctx context.Context, tx repository.InventoryTx, code string, org *domain.Organization, room *domain.Room) (string, error) {
	parsed, err := invcode.Parse(code)
	if err != nil {
		return "", err
	}
	if parsed.OrgPrefix != invcode.Prefix(org.Name) || parsed.RoomPrefix != invcode.Prefix(room.Name) {
		return "", fmt.Errorf("%w: inventory code %s does not match %s / %s", domain.ErrValidation, code, org.Name, room.Name)
	}
	if err := ensureCodeFree(ctx, tx, code, ""); err != nil {
		return "", err
	}
	if err := tx.RaiseRoomSeq(ctx, room.RoomID, parsed.Ordinal); err != nil {
		return "", err
	}
	return parsed.String(), nil
}

func ensureCodeFree(ctx context.Context, tx repository.InventoryReader, code, equipmentID string) error {
	taken, err := tx.InvCodeExists(ctx, code, equipmentID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: inventory code %s already exists", domain.ErrConflict, code)
	}
	return nil
}

func (s *equipmentService) Update(ctx context.Context, req UpdateEquipmentRequest) (*UpdateEquipmentResponse, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}

	patch := repository.EquipmentPatch{
		Brand:        trimmed(req.Brand),
		Model:        trimmed(req.Model),
		SerialNumber: trimmed(req.SerialNumber),
		Color:        trimmed(req.Color),
		QuantityNote: trimmed(req.QuantityNote),
		UserNote:     trimmed(req.UserNote),
		Description:  trimmed(req.Description),
		UpdatedAt:    time.Now().UTC(),
	}
	for _, f := range []struct {
		in    *string
		out   **string
		field string
	}{
		{req.Name, &patch.Name, "name"},
		{req.Category, &patch.Category, "category"},
		{req.Status, &patch.Status, "status"},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", domain.ErrValidation, f.field)
		}
		*f.out = &v
	}
	switch {
	case req.ClearDate:
		patch.PurchaseDate = &sql.NullTime{}
	case req.PurchaseDate != nil:
		patch.PurchaseDate = &sql.NullTime{Time: dateOnly(*req.PurchaseDate), Valid: true}
	}
	switch {
	case req.ClearPrice:
		patch.Price = &decimal.NullDecimal{}
	case req.Price != nil:
		v := decimal.NewNullDecimal(*req.Price)
		patch.Price = &v
	}

	var updated *domain.Equipment
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		if _, err := tx.GetEquipment(ctx, req.EquipmentID); err != nil {
			return err
		}
		if err := tx.UpdateEquipment(ctx, req.EquipmentID, patch); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetEquipment(ctx, req.EquipmentID)
		return err
	})
	if err != nil {
		s.logger.Error("UpdateEquipment failed", zap.String("equipment_id", req.EquipmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to update equipment: %w", err)
	}
	return &UpdateEquipmentResponse{Equipment: updated}, nil
}

func (s *equipmentService) Delete(ctx context.Context, req DeleteEquipmentRequest) (*DeleteEquipmentResponse, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}

	var eq *domain.Equipment
	var purged int64
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		var err error
		if eq, err = tx.GetEquipment(ctx, req.EquipmentID); err != nil {
			return err
		}
		if purged, err = tx.DeleteTransferHistoryByEquipment(ctx, eq.EquipmentID); err != nil {
			return err
		}
		return tx.DeleteEquipment(ctx, eq.EquipmentID)
	})
	if err != nil {
		s.logger.Error("DeleteEquipment failed", zap.String("equipment_id", req.EquipmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to delete equipment: %w", err)
	}

	publish(ctx, s.events, s.logger, events.New(events.EquipmentDeleted, map[string]any{
		"equipment_id": eq.EquipmentID,
		"inv_code":     eq.InvCode,
		"room_id":      eq.RoomID,
	}))
	return &DeleteEquipmentResponse{Success: true, HistoryPurged: purged}, nil
}

func (s *equipmentService) Get(ctx context.Context, req GetEquipmentRequest) (*domain.EquipmentCard, error) {
	if req.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipment_id is required", domain.ErrValidation)
	}
	eq, err := s.repo.GetEquipment(ctx, req.EquipmentID)
	if err != nil {
		return nil, err
	}
	return loadCard(ctx, s.repo, eq)
}

func (s *equipmentService) ListByRoom(ctx context.Context, req ListEquipmentRequest) (*ListEquipmentResponse, error) {
	if req.RoomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrValidation)
	}
	if _, err := s.repo.GetRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListEquipmentByRoom(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return &ListEquipmentResponse{Items: items}, nil
}

// loadCard resolves the names of the equipment's room, floor and organization.
func loadCard(ctx context.Context, r repository.InventoryReader, eq *domain.Equipment) (*domain.EquipmentCard, error) {
	room, err := r.GetRoom(ctx, eq.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room: %w", err)
	}
	org, err := r.GetOrganization(ctx, room.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	card := &domain.EquipmentCard{
		Equipment:        eq,
		OrganizationID:   org.OrganizationID,
		OrganizationName: org.Name,
		RoomName:         room.Name,
	}
	if room.FloorID.Valid {
		floor, err := r.GetFloor(ctx, room.FloorID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve floor: %w", err)
		}
		card.FloorName = floor.Name
	}
	return card, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
