package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/store"

	"go.uber.org/zap"
)

// HierarchyService organization / floor / room 管理服务接口
type HierarchyService interface {
	// Organization
	CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*CreateOrganizationResponse, error)
	ListOrganizations(ctx context.Context) (*ListOrganizationsResponse, error)
	GetOrganization(ctx context.Context, req GetOrganizationRequest) (*GetOrganizationResponse, error)
	DeleteOrganization(ctx context.Context, req DeleteOrganizationRequest) (*DeleteContainerResponse, error)

	// Floor
	CreateFloor(ctx context.Context, req CreateFloorRequest) (*CreateFloorResponse, error)
	ListFloors(ctx context.Context, req ListFloorsRequest) (*ListFloorsResponse, error)
	DeleteFloor(ctx context.Context, req DeleteFloorRequest) (*DeleteContainerResponse, error)

	// Room
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error)
	ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error)
	ListDirectRooms(ctx context.Context, req ListDirectRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(ctx context.Context, req GetRoomRequest) (*GetRoomResponse, error)
	DeleteRoom(ctx context.Context, req DeleteRoomRequest) (*DeleteRoomResponse, error)
}

// hierarchyService 实现
type hierarchyService struct {
	repo   repository.InventoryRepository
	rooms  *store.RoomCache // nil: no cache
	events events.Publisher
	logger *zap.Logger
}

// NewHierarchyService 创建 HierarchyService 实例；rooms 与 pub 可为 nil
func NewHierarchyService(repo repository.InventoryRepository, rooms *store.RoomCache, pub events.Publisher, logger *zap.Logger) HierarchyService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &hierarchyService{
		repo:   repo,
		rooms:  rooms,
		events: pub,
		logger: logger,
	}
}

// ============================================
// 请求/响应结构
// ============================================

type CreateOrganizationRequest struct {
	Name      string // 必填
	HasFloors bool   // 创建后不可修改
}

type CreateOrganizationResponse struct {
	OrganizationID string `json:"organization_id"`
}

type ListOrganizationsResponse struct {
	Items []*domain.Organization `json:"items"`
}

type GetOrganizationRequest struct {
	OrganizationID string // 必填
}

// GetOrganizationResponse floored organizations carry Floors, the others DirectRooms.
type GetOrganizationResponse struct {
	Organization *domain.Organization
	Floors       []*domain.Floor
	DirectRooms  []*domain.RoomListItem
}

type DeleteOrganizationRequest struct {
	OrganizationID string // 必填
}

type CreateFloorRequest struct {
	OrganizationID string // 必填
	Name           string // 必填
}

type CreateFloorResponse struct {
	FloorID string `json:"floor_id"`
}

type ListFloorsRequest struct {
	OrganizationID string // 必填
}

type ListFloorsResponse struct {
	Items []*domain.Floor `json:"items"`
}

type DeleteFloorRequest struct {
	FloorID string // 必填
}

type CreateRoomRequest struct {
	OrganizationID string // 必填
	FloorID        string // floored organization: 必填；otherwise must be empty
	Name           string // 必填
}

type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}

// ListRoomsRequest FloorID wins when both are set.
type ListRoomsRequest struct {
	OrganizationID string
	FloorID        string
}

type ListRoomsResponse struct {
	Items []*domain.RoomListItem `json:"items"`
}

type ListDirectRoomsRequest struct {
	OrganizationID string // 必填
}

type GetRoomRequest struct {
	RoomID string // 必填
}

type GetRoomResponse struct {
	Room             *domain.Room
	OrganizationName string
	FloorName        string
	Equipment        []*domain.Equipment
}

type DeleteRoomRequest struct {
	RoomID string // 必填
	Force  bool   // delete even when the room still holds equipment
}

// DeleteRoomResponse Blocked means nothing was deleted because the room is not empty.
type DeleteRoomResponse struct {
	Blocked        bool  `json:"blocked"`
	EquipmentCount int   `json:"equipment_count"`
	Deleted        bool  `json:"deleted"`
	HistoryPurged  int64 `json:"history_purged"`
}

type DeleteContainerResponse struct {
	RoomsDeleted     int64 `json:"rooms_deleted"`
	EquipmentDeleted int64 `json:"equipment_deleted"`
	HistoryPurged    int64 `json:"history_purged"`
	FloorsDeleted    int64 `json:"floors_deleted"`
}

// ============================================
// Organization
// ============================================

func (s *hierarchyService) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*CreateOrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", domain.ErrValidation)
	}

	var orgID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		var err error
		orgID, err = tx.CreateOrganization(ctx, &domain.Organization{Name: name, HasFloors: req.HasFloors})
		return err
	})
	if err != nil {
		s.logger.Error("CreateOrganization failed", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return &CreateOrganizationResponse{OrganizationID: orgID}, nil
}

func (s *hierarchyService) ListOrganizations(ctx context.Context) (*ListOrganizationsResponse, error) {
	items, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return &ListOrganizationsResponse{Items: items}, nil
}

func (s *hierarchyService) GetOrganization(ctx context.Context, req GetOrganizationRequest) (*GetOrganizationResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	org, err := s.repo.GetOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	resp := &GetOrganizationResponse{Organization: org}
	if org.HasFloors {
		if resp.Floors, err = s.repo.ListFloors(ctx, org.OrganizationID); err != nil {
			return nil, fmt.Errorf("failed to list floors: %w", err)
		}
		return resp, nil
	}
	direct, err := s.ListDirectRooms(ctx, ListDirectRoomsRequest{OrganizationID: org.OrganizationID})
	if err != nil {
		return nil, err
	}
	resp.DirectRooms = direct.Items
	return resp, nil
}

// DeleteOrganization removes every floor, room, equipment item and history row of the organization.
func (s *hierarchyService) DeleteOrganization(ctx context.Context, req DeleteOrganizationRequest) (*DeleteContainerResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}

	resp := &DeleteContainerResponse{}
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		if _, err := tx.GetOrganization(ctx, req.OrganizationID); err != nil {
			return err
		}
		rooms, err := tx.ListRoomsByOrganization(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		counts, err := cascadeRooms(ctx, tx, roomIDs(rooms))
		if err != nil {
			return err
		}
		*resp = counts

		floors, err := tx.ListFloors(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		floorIDs := make([]string, 0, len(floors))
		for _, f := range floors {
			floorIDs = append(floorIDs, f.FloorID)
		}
		if resp.FloorsDeleted, err = tx.DeleteFloors(ctx, floorIDs); err != nil {
			return err
		}
		return tx.DeleteOrganization(ctx, req.OrganizationID)
	})
	if err != nil {
		s.logger.Error("DeleteOrganization failed", zap.String("organization_id", req.OrganizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to delete organization: %w", err)
	}

	s.invalidateRooms(ctx, req.OrganizationID)
	publish(ctx, s.events, s.logger, events.New(events.ContainerDeleted, map[string]any{
		"kind":              "organization",
		"id":                req.OrganizationID,
		"rooms_deleted":     resp.RoomsDeleted,
		"equipment_deleted": resp.EquipmentDeleted,
		"history_purged":    resp.HistoryPurged,
	}))
	return resp, nil
}

// ============================================
// Floor
// ============================================

func (s *hierarchyService) CreateFloor(ctx context.Context, req CreateFloorRequest) (*CreateFloorResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: floor name is required", domain.ErrValidation)
	}

	var floorID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		org, err := tx.GetOrganization(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		if !org.HasFloors {
			return fmt.Errorf("%w: organization %s does not use floors", domain.ErrValidation, org.Name)
		}
		floorID, err = tx.CreateFloor(ctx, &domain.Floor{OrganizationID: org.OrganizationID, Name: name})
		return err
	})
	if err != nil {
		s.logger.Error("CreateFloor failed",
			zap.String("organization_id", req.OrganizationID),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create floor: %w", err)
	}
	return &CreateFloorResponse{FloorID: floorID}, nil
}

func (s *hierarchyService) ListFloors(ctx context.Context, req ListFloorsRequest) (*ListFloorsResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	if _, err := s.repo.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListFloors(ctx, req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list floors: %w", err)
	}
	return &ListFloorsResponse{Items: items}, nil
}

// DeleteFloor removes the floor with its rooms, their equipment and every history row touching them.
func (s *hierarchyService) DeleteFloor(ctx context.Context, req DeleteFloorRequest) (*DeleteContainerResponse, error) {
	if req.FloorID == "" {
		return nil, fmt.Errorf("%w: floor_id is required", domain.ErrValidation)
	}

	resp := &DeleteContainerResponse{}
	var orgID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		floor, err := tx.GetFloor(ctx, req.FloorID)
		if err != nil {
			return err
		}
		orgID = floor.OrganizationID
		rooms, err := tx.ListRoomsByFloor(ctx, floor.FloorID)
		if err != nil {
			return err
		}
		counts, err := cascadeRooms(ctx, tx, roomIDs(rooms))
		if err != nil {
			return err
		}
		*resp = counts
		resp.FloorsDeleted, err = tx.DeleteFloors(ctx, []string{floor.FloorID})
		return err
	})
	if err != nil {
		s.logger.Error("DeleteFloor failed", zap.String("floor_id", req.FloorID), zap.Error(err))
		return nil, fmt.Errorf("failed to delete floor: %w", err)
	}

	s.invalidateRooms(ctx, orgID)
	publish(ctx, s.events, s.logger, events.New(events.ContainerDeleted, map[string]any{
		"kind":              "floor",
		"id":                req.FloorID,
		"organization_id":   orgID,
		"rooms_deleted":     resp.RoomsDeleted,
		"equipment_deleted": resp.EquipmentDeleted,
		"history_purged":    resp.HistoryPurged,
	}))
	return resp, nil
}

// ============================================
// Room
// ============================================

func (s *hierarchyService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", domain.ErrValidation)
	}

	var roomID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		org, err := tx.GetOrganization(ctx, req.OrganizationID)
		if err != nil {
			return err
		}
		room := &domain.Room{OrganizationID: org.OrganizationID, Name: name}
		switch {
		case org.HasFloors && req.FloorID == "":
			return fmt.Errorf("%w: organization %s requires a floor for every room", domain.ErrValidation, org.Name)
		case !org.HasFloors && req.FloorID != "":
			return fmt.Errorf("%w: organization %s does not use floors", domain.ErrValidation, org.Name)
		case org.HasFloors:
			floor, err := tx.GetFloor(ctx, req.FloorID)
			if err != nil {
				return err
			}
			if floor.OrganizationID != org.OrganizationID {
				return fmt.Errorf("%w: floor %s belongs to another organization", domain.ErrValidation, floor.FloorID)
			}
			room.FloorID = sql.NullString{String: floor.FloorID, Valid: true}
		}
		roomID, err = tx.CreateRoom(ctx, room)
		return err
	})
	if err != nil {
		s.logger.Error("CreateRoom failed",
			zap.String("organization_id", req.OrganizationID),
			zap.String("floor_id", req.FloorID),
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.invalidateRooms(ctx, req.OrganizationID)
	return &CreateRoomResponse{RoomID: roomID}, nil
}

func (s *hierarchyService) ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error) {
	if req.FloorID != "" {
		floor, err := s.repo.GetFloor(ctx, req.FloorID)
		if err != nil {
			return nil, err
		}
		items, err := s.cachedRooms(ctx, floor.OrganizationID, store.FloorRoomsKey(floor.OrganizationID, floor.FloorID), func() ([]*domain.RoomListItem, error) {
			return s.repo.ListRoomsByFloor(ctx, floor.FloorID)
		})
		if err != nil {
			return nil, err
		}
		return &ListRoomsResponse{Items: items}, nil
	}
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id or floor_id is required", domain.ErrValidation)
	}
	if _, err := s.repo.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	items, err := s.cachedRooms(ctx, req.OrganizationID, store.AllRoomsKey(req.OrganizationID), func() ([]*domain.RoomListItem, error) {
		return s.repo.ListRoomsByOrganization(ctx, req.OrganizationID)
	})
	if err != nil {
		return nil, err
	}
	return &ListRoomsResponse{Items: items}, nil
}

func (s *hierarchyService) ListDirectRooms(ctx context.Context, req ListDirectRoomsRequest) (*ListRoomsResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	if _, err := s.repo.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	items, err := s.cachedRooms(ctx, req.OrganizationID, store.DirectRoomsKey(req.OrganizationID), func() ([]*domain.RoomListItem, error) {
		return s.repo.ListDirectRooms(ctx, req.OrganizationID)
	})
	if err != nil {
		return nil, err
	}
	return &ListRoomsResponse{Items: items}, nil
}

func (s *hierarchyService) GetRoom(ctx context.Context, req GetRoomRequest) (*GetRoomResponse, error) {
	if req.RoomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrValidation)
	}
	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	org, err := s.repo.GetOrganization(ctx, room.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	resp := &GetRoomResponse{Room: room, OrganizationName: org.Name}
	if room.FloorID.Valid {
		floor, err := s.repo.GetFloor(ctx, room.FloorID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve floor: %w", err)
		}
		resp.FloorName = floor.Name
	}
	if resp.Equipment, err = s.repo.ListEquipmentByRoom(ctx, room.RoomID); err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return resp, nil
}

// DeleteRoom without Force refuses to touch a room that still holds equipment.
func (s *hierarchyService) DeleteRoom(ctx context.Context, req DeleteRoomRequest) (*DeleteRoomResponse, error) {
	if req.RoomID == "" {
		return nil, fmt.Errorf("%w: room_id is required", domain.ErrValidation)
	}

	resp := &DeleteRoomResponse{}
	var orgID string
	err := s.repo.WithTx(ctx, func(tx repository.InventoryTx) error {
		room, err := tx.GetRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		orgID = room.OrganizationID
		n, err := tx.CountEquipmentInRoom(ctx, room.RoomID)
		if err != nil {
			return err
		}
		resp.EquipmentCount = n
		if n > 0 && !req.Force {
			resp.Blocked = true
			return nil
		}
		counts, err := cascadeRooms(ctx, tx, []string{room.RoomID})
		if err != nil {
			return err
		}
		resp.Deleted = counts.RoomsDeleted == 1
		resp.HistoryPurged = counts.HistoryPurged
		return nil
	})
	if err != nil {
		s.logger.Error("DeleteRoom failed",
			zap.String("room_id", req.RoomID),
			zap.Bool("force", req.Force),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to delete room: %w", err)
	}
	if resp.Blocked {
		return resp, nil
	}

	s.invalidateRooms(ctx, orgID)
	publish(ctx, s.events, s.logger, events.New(events.ContainerDeleted, map[string]any{
		"kind":              "room",
		"id":                req.RoomID,
		"organization_id":   orgID,
		"equipment_deleted": resp.EquipmentCount,
		"history_purged":    resp.HistoryPurged,
	}))
	return resp, nil
}

// cascadeRooms deletes rooms in dependency order:
// history touching the rooms, history of their equipment, equipment, rooms.
func cascadeRooms(ctx context.Context, tx repository.InventoryTx, ids []string) (DeleteContainerResponse, error) {
	var out DeleteContainerResponse
	if len(ids) == 0 {
		return out, nil
	}

	purged, err := tx.DeleteTransferHistoryByRooms(ctx, ids)
	if err != nil {
		return out, err
	}
	out.HistoryPurged = purged

	for _, roomID := range ids {
		items, err := tx.ListEquipmentByRoom(ctx, roomID)
		if err != nil {
			return out, err
		}
		for _, eq := range items {
			n, err := tx.DeleteTransferHistoryByEquipment(ctx, eq.EquipmentID)
			if err != nil {
				return out, err
			}
			out.HistoryPurged += n
		}
	}

	if out.EquipmentDeleted, err = tx.DeleteEquipmentByRooms(ctx, ids); err != nil {
		return out, err
	}
	if out.RoomsDeleted, err = tx.DeleteRooms(ctx, ids); err != nil {
		return out, err
	}
	return out, nil
}

func roomIDs(items []*domain.RoomListItem) []string {
	ids := make([]string, 0, len(items))
	for _, r := range items {
		ids = append(ids, r.RoomID)
	}
	return ids
}

// cachedRooms 读取房间列表缓存；版本号在加载前读取，加载期间发生的失效会使回写作废
func (s *hierarchyService) cachedRooms(ctx context.Context, orgID, key string, load func() ([]*domain.RoomListItem, error)) ([]*domain.RoomListItem, error) {
	useCache := s.rooms != nil
	var version int64
	if useCache {
		v, err := s.rooms.Version(ctx, orgID)
		if err != nil {
			s.logger.Warn("Room cache version read failed", zap.String("organization_id", orgID), zap.Error(err))
			useCache = false
		}
		version = v
	}
	if useCache {
		items, err := s.rooms.Get(ctx, key, version)
		if err == nil {
			return items, nil
		}
		if !store.IsMiss(err) {
			s.logger.Warn("Room cache read failed", zap.String("key", key), zap.Error(err))
		}
	}
	items, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	if useCache {
		if err := s.rooms.Set(ctx, key, version, items); err != nil {
			s.logger.Warn("Room cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return items, nil
}

func (s *hierarchyService) invalidateRooms(ctx context.Context, orgID string) {
	if s.rooms == nil || orgID == "" {
		return
	}
	if err := s.rooms.InvalidateOrganization(ctx, orgID); err != nil {
		s.logger.Warn("Room cache invalidation failed", zap.String("organization_id", orgID), zap.Error(err))
	}
}
