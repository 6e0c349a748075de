package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/render"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EquipmentHandler 设备管理 Handler（含调拨、历史、标签）
type EquipmentHandler struct {
	equipment service.EquipmentService
	transfer  service.TransferService
	logger    *zap.Logger
}

// NewEquipmentHandler 创建设备管理 Handler
func NewEquipmentHandler(equipment service.EquipmentService, transfer service.TransferService, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment, transfer: transfer, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *EquipmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const base = apiPrefix + "/equipment"
	path := strings.TrimSuffix(r.URL.Path, "/")
	sub := func(suffix string) string {
		if !strings.HasSuffix(path, suffix) {
			return ""
		}
		return pathID(strings.TrimSuffix(path, suffix), base+"/")
	}

	switch {
	case path == base && r.Method == http.MethodGet:
		h.ListEquipment(w, r)
	case path == base && r.Method == http.MethodPost:
		h.CreateEquipment(w, r)
	case sub("/transfer") != "" && r.Method == http.MethodPost:
		h.TransferEquipment(w, r, sub("/transfer"))
	case sub("/history") != "" && r.Method == http.MethodGet:
		h.GetHistory(w, r, sub("/history"))
	case sub("/label") != "" && r.Method == http.MethodGet:
		h.GetLabel(w, r, sub("/label"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodGet:
		h.GetEquipment(w, r, pathID(path, base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodPut:
		h.UpdateEquipment(w, r, pathID(path, base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodDelete:
		h.DeleteEquipment(w, r, pathID(path, base+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListEquipment ?room_id= 必填
func (h *EquipmentHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	resp, err := h.equipment.ListByRoom(r.Context(), service.ListEquipmentRequest{RoomID: r.URL.Query().Get("room_id")})
	if err != nil {
		writeError(w, h.logger, "ListEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": equipmentListJSON(resp.Items), "total": len(resp.Items)}))
}

type equipmentPayload struct {
	OrganizationID string          `json:"organization_id"`
	RoomID         string          `json:"room_id"`
	Name           *string         `json:"name"`
	Category       *string         `json:"category"`
	Brand          *string         `json:"brand"`
	Model          *string         `json:"model"`
	SerialNumber   *string         `json:"serial_number"`
	Color          *string         `json:"color"`
	PurchaseDate   json.RawMessage `json:"purchase_date"` // "YYYY-MM-DD" or null
	Price          json.RawMessage `json:"price"`         // number, numeric string or null
	Status         *string         `json:"status"`
	QuantityNote   *string         `json:"quantity_note"`
	UserNote       *string         `json:"user_note"`
	Description    *string         `json:"description"`
}

func (h *EquipmentHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var p equipmentPayload
	if err := readBodyJSON(r, 1<<20, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	date, _, err := parseDateField(p.PurchaseDate)
	if err != nil {
		writeError(w, h.logger, "CreateEquipment", err)
		return
	}
	price, _, err := parsePriceField(p.Price)
	if err != nil {
		writeError(w, h.logger, "CreateEquipment", err)
		return
	}

	resp, err := h.equipment.Create(r.Context(), service.CreateEquipmentRequest{
		OrganizationID: p.OrganizationID,
		RoomID:         p.RoomID,
		Name:           deref(p.Name),
		Category:       deref(p.Category),
		Brand:          deref(p.Brand),
		Model:          deref(p.Model),
		SerialNumber:   deref(p.SerialNumber),
		Color:          deref(p.Color),
		PurchaseDate:   date,
		Price:          price,
		Status:         deref(p.Status),
		QuantityNote:   deref(p.QuantityNote),
		UserNote:       deref(p.UserNote),
		Description:    deref(p.Description),
	})
	if err != nil {
		writeError(w, h.logger, "CreateEquipment", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// GetEquipment 设备详情，附带房间/楼层/组织名称
func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request, id string) {
	card, err := h.equipment.Get(r.Context(), service.GetEquipmentRequest{EquipmentID: id})
	if err != nil {
		writeError(w, h.logger, "GetEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(card.ToJSON()))
}

// UpdateEquipment absent fields stay as they are; purchase_date / price set to null are cleared.
func (h *EquipmentHandler) UpdateEquipment(w http.ResponseWriter, r *http.Request, id string) {
	var p equipmentPayload
	if err := readBodyJSON(r, 1<<20, &p); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	date, clearDate, err := parseDateField(p.PurchaseDate)
	if err != nil {
		writeError(w, h.logger, "UpdateEquipment", err)
		return
	}
	price, clearPrice, err := parsePriceField(p.Price)
	if err != nil {
		writeError(w, h.logger, "UpdateEquipment", err)
		return
	}

	resp, err := h.equipment.Update(r.Context(), service.UpdateEquipmentRequest{
		EquipmentID:  id,
		Name:         p.Name,
		Category:     p.Category,
		Brand:        p.Brand,
		Model:        p.Model,
		SerialNumber: p.SerialNumber,
		Color:        p.Color,
		PurchaseDate: date,
		ClearDate:    clearDate,
		Price:        price,
		ClearPrice:   clearPrice,
		Status:       p.Status,
		QuantityNote: p.QuantityNote,
		UserNote:     p.UserNote,
		Description:  p.Description,
	})
	if err != nil {
		writeError(w, h.logger, "UpdateEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp.Equipment.ToJSON()))
}

func (h *EquipmentHandler) DeleteEquipment(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.equipment.Delete(r.Context(), service.DeleteEquipmentRequest{EquipmentID: id})
	if err != nil {
		writeError(w, h.logger, "DeleteEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// TransferEquipment body: {"to_room_id": "...", "notes": "..."}
func (h *EquipmentHandler) TransferEquipment(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		ToRoomID string `json:"to_room_id"`
		Notes    string `json:"notes"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.transfer.Transfer(r.Context(), service.TransferRequest{
		EquipmentID: id,
		ToRoomID:    payload.ToRoomID,
		Notes:       payload.Notes,
	})
	if err != nil {
		writeError(w, h.logger, "TransferEquipment", err)
		return
	}
	writeJSON(w, http.StatusOK, Result[*service.TransferResponse]{
		Code:    ResultSuccess,
		Type:    "success",
		Message: resp.Summary,
		Result:  resp,
	})
}

// GetHistory newest first
func (h *EquipmentHandler) GetHistory(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.transfer.History(r.Context(), service.HistoryRequest{EquipmentID: id})
	if err != nil {
		writeError(w, h.logger, "GetHistory", err)
		return
	}
	out := make([]any, 0, len(resp.Items))
	for _, row := range resp.Items {
		out = append(out, row.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// GetLabel QR 标签文本（text/plain）
func (h *EquipmentHandler) GetLabel(w http.ResponseWriter, r *http.Request, id string) {
	card, err := h.equipment.Get(r.Context(), service.GetEquipmentRequest{EquipmentID: id})
	if err != nil {
		writeError(w, h.logger, "GetLabel", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(render.LabelText(card)))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseDateField returns (date, cleared, err). Absent field: (nil, false, nil).
func parseDateField(raw json.RawMessage) (*time.Time, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if isNull(raw) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("%w: purchase_date must be a YYYY-MM-DD string", domain.ErrValidation)
	}
	if strings.TrimSpace(s) == "" {
		return nil, true, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil, false, fmt.Errorf("%w: purchase_date must be a YYYY-MM-DD string", domain.ErrValidation)
	}
	return &t, false, nil
}

// parsePriceField returns (price, cleared, err). Absent field: (nil, false, nil).
func parsePriceField(raw json.RawMessage) (*decimal.Decimal, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if isNull(raw) || string(bytes.TrimSpace(raw)) == `""` {
		return nil, true, nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, false, fmt.Errorf("%w: price must be a number", domain.ErrValidation)
	}
	if d.IsNegative() {
		return nil, false, fmt.Errorf("%w: price cannot be negative", domain.ErrValidation)
	}
	return &d, false, nil
}
