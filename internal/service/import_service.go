package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/repository"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/spreadsheet"

	"go.uber.org/zap"
)

const (
	// ImportCategory category given to every imported item.
	ImportCategory = "Imported"
	// maxRowErrors number of row errors reported back.
	maxRowErrors = 10
)

// ImportService bulk equipment import from spreadsheets.
type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (*ImportResponse, error)
	ImportFile(ctx context.Context, req ImportFileRequest) (*ImportResponse, error)
}

type importService struct {
	repo      repository.InventoryRepository
	equipment EquipmentService
	logger    *zap.Logger
}

// NewImportService each row goes through equipment.Create in its own transaction.
func NewImportService(repo repository.InventoryRepository, equipment EquipmentService, logger *zap.Logger) ImportService {
	return &importService{repo: repo, equipment: equipment, logger: logger}
}

type ImportRequest struct {
	OrganizationID string // 必填
	RoomID         string // 必填
	Rows           []spreadsheet.EquipmentRow
}

type ImportFileRequest struct {
	OrganizationID string
	RoomID         string
	File           io.Reader
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResponse partial success is still success; Errors holds at most ten entries.
type ImportResponse struct {
	Total         int        `json:"total"`
	ImportedCount int        `json:"imported_count"`
	FailedCount   int        `json:"failed_count"`
	Errors        []RowError `json:"errors"`
	Codes         []string   `json:"codes"`
}

func (s *importService) ImportFile(ctx context.Context, req ImportFileRequest) (*ImportResponse, error) {
	if req.File == nil {
		return nil, fmt.Errorf("%w: file is required", domain.ErrValidation)
	}
	rows, err := spreadsheet.ParseEquipmentRows(req.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return s.Import(ctx, ImportRequest{OrganizationID: req.OrganizationID, RoomID: req.RoomID, Rows: rows})
}

// Import validates the target once, then creates row by row. A failing row is
// recorded and skipped; only a bad target aborts the batch.
func (s *importService) Import(ctx context.Context, req ImportRequest) (*ImportResponse, error) {
	if req.OrganizationID == "" || req.RoomID == "" {
		return nil, fmt.Errorf("%w: organization_id and room_id are required", domain.ErrValidation)
	}
	if _, err := s.repo.GetOrganization(ctx, req.OrganizationID); err != nil {
		return nil, err
	}
	room, err := s.repo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.OrganizationID != req.OrganizationID {
		return nil, fmt.Errorf("%w: room %s does not belong to organization %s", domain.ErrValidation, room.Name, req.OrganizationID)
	}

	resp := &ImportResponse{Total: len(req.Rows), Errors: []RowError{}, Codes: []string{}}
	for i, row := range req.Rows {
		line := row.Row
		if line == 0 {
			line = i + 2
		}
		if strings.TrimSpace(row.DeviceName) == "" {
			resp.fail(line, "device name is required")
			continue
		}
		created, err := s.equipment.Create(ctx, CreateEquipmentRequest{
			OrganizationID: req.OrganizationID,
			RoomID:         req.RoomID,
			Name:           row.DeviceName,
			Category:       ImportCategory,
			Brand:          row.Brand,
			Model:          row.Model,
			SerialNumber:   row.SerialNumber,
			Color:          row.Color,
			Status:         row.Status,
			QuantityNote:   row.QuantityNote,
			UserNote:       row.UserNote,
			InvCode:        row.InvCode,
		})
		if err != nil {
			resp.fail(line, rowMessage(err))
			continue
		}
		resp.ImportedCount++
		resp.Codes = append(resp.Codes, created.InvCode)
	}

	s.logger.Info("Import finished",
		zap.String("organization_id", req.OrganizationID),
		zap.String("room_id", req.RoomID),
		zap.Int("total", resp.Total),
		zap.Int("imported", resp.ImportedCount),
		zap.Int("failed", resp.FailedCount),
	)
	return resp, nil
}

func (r *ImportResponse) fail(row int, msg string) {
	r.FailedCount++
	if len(r.Errors) < maxRowErrors {
		r.Errors = append(r.Errors, RowError{Row: row, Message: msg})
	}
}

// rowMessage strips the service wrapping so the sheet author sees the cause.
func rowMessage(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}
