package service

import (
	"context"
	"fmt"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/spreadsheet"

	"go.uber.org/zap"
)

// ExportService organization workbook export.
type ExportService interface {
	ExportOrganization(ctx context.Context, req ExportRequest) (*ExportResponse, error)
}

type exportService struct {
	repo   repository.InventoryRepository
	logger *zap.Logger
}

func NewExportService(repo repository.InventoryRepository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

type ExportRequest struct {
	OrganizationID string // 必填
}

type ExportResponse struct {
	FileName string
	Content  []byte
}

// ExportOrganization one sheet per room, rooms in listing order.
func (s *exportService) ExportOrganization(ctx context.Context, req ExportRequest) (*ExportResponse, error) {
	if req.OrganizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", domain.ErrValidation)
	}
	org, err := s.repo.GetOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.repo.ListRoomsByOrganization(ctx, org.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	sheets := make([]spreadsheet.RoomSheet, 0, len(rooms))
	for _, r := range rooms {
		items, err := s.repo.ListEquipmentByRoom(ctx, r.RoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to list equipment of room %s: %w", r.RoomID, err)
		}
		sheets = append(sheets, spreadsheet.RoomSheet{RoomName: r.Name, Equipment: items})
	}

	content, err := spreadsheet.ExportOrganization(sheets)
	if err != nil {
		s.logger.Error("ExportOrganization failed", zap.String("organization_id", org.OrganizationID), zap.Error(err))
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	return &ExportResponse{FileName: "inventory-" + spreadsheet.SheetName(org.Name, map[string]bool{}) + ".xlsx", Content: content}, nil
}
