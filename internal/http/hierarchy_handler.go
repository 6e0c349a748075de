package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/service"

	"go.uber.org/zap"
)

// ============================================
// Organizations
// ============================================

// OrganizationsHandler 组织管理 Handler（含按组织导出）
type OrganizationsHandler struct {
	hierarchy service.HierarchyService
	export    service.ExportService
	logger    *zap.Logger
}

func NewOrganizationsHandler(hierarchy service.HierarchyService, export service.ExportService, logger *zap.Logger) *OrganizationsHandler {
	return &OrganizationsHandler{hierarchy: hierarchy, export: export, logger: logger}
}

// ServeHTTP 实现 http.Handler 接口
func (h *OrganizationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const base = apiPrefix + "/organizations"
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == base && r.Method == http.MethodGet:
		h.ListOrganizations(w, r)
	case path == base && r.Method == http.MethodPost:
		h.CreateOrganization(w, r)
	case strings.HasSuffix(path, "/floors") && r.Method == http.MethodGet:
		h.ListFloors(w, r, pathID(strings.TrimSuffix(path, "/floors"), base+"/"))
	case strings.HasSuffix(path, "/export") && r.Method == http.MethodGet:
		h.Export(w, r, pathID(strings.TrimSuffix(path, "/export"), base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodGet:
		h.GetOrganization(w, r, pathID(path, base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodDelete:
		h.DeleteOrganization(w, r, pathID(path, base+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *OrganizationsHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	resp, err := h.hierarchy.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, h.logger, "ListOrganizations", err)
		return
	}
	out := make([]any, 0, len(resp.Items))
	for _, o := range resp.Items {
		out = append(out, o.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

func (h *OrganizationsHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name      string `json:"name"`
		HasFloors bool   `json:"has_floors"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.hierarchy.CreateOrganization(r.Context(), service.CreateOrganizationRequest{
		Name:      payload.Name,
		HasFloors: payload.HasFloors,
	})
	if err != nil {
		writeError(w, h.logger, "CreateOrganization", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// GetOrganization floored organizations list floors, the others their direct rooms.
func (h *OrganizationsHandler) GetOrganization(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.hierarchy.GetOrganization(r.Context(), service.GetOrganizationRequest{OrganizationID: id})
	if err != nil {
		writeError(w, h.logger, "GetOrganization", err)
		return
	}
	out := resp.Organization.ToJSON()
	if resp.Organization.HasFloors {
		floors := make([]any, 0, len(resp.Floors))
		for _, f := range resp.Floors {
			floors = append(floors, f.ToJSON())
		}
		out["floors"] = floors
	} else {
		out["rooms"] = roomListJSON(resp.DirectRooms)
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

func (h *OrganizationsHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.hierarchy.DeleteOrganization(r.Context(), service.DeleteOrganizationRequest{OrganizationID: id})
	if err != nil {
		writeError(w, h.logger, "DeleteOrganization", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *OrganizationsHandler) ListFloors(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resp, err := h.hierarchy.ListFloors(r.Context(), service.ListFloorsRequest{OrganizationID: id})
	if err != nil {
		writeError(w, h.logger, "ListFloors", err)
		return
	}
	out := make([]any, 0, len(resp.Items))
	for _, f := range resp.Items {
		out = append(out, f.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": out, "total": len(out)}))
}

// Export 组织设备导出（每个房间一个 sheet）
func (h *OrganizationsHandler) Export(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resp, err := h.export.ExportOrganization(r.Context(), service.ExportRequest{OrganizationID: id})
	if err != nil {
		writeError(w, h.logger, "ExportOrganization", err)
		return
	}
	writeXLSX(w, resp.FileName, resp.Content)
}

// ============================================
// Floors
// ============================================

type FloorsHandler struct {
	hierarchy service.HierarchyService
	logger    *zap.Logger
}

func NewFloorsHandler(hierarchy service.HierarchyService, logger *zap.Logger) *FloorsHandler {
	return &FloorsHandler{hierarchy: hierarchy, logger: logger}
}

func (h *FloorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const base = apiPrefix + "/floors"
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == base && r.Method == http.MethodPost:
		h.CreateFloor(w, r)
	case strings.HasSuffix(path, "/rooms") && r.Method == http.MethodGet:
		h.ListRooms(w, r, pathID(strings.TrimSuffix(path, "/rooms"), base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodDelete:
		h.DeleteFloor(w, r, pathID(path, base+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FloorsHandler) CreateFloor(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrganizationID string `json:"organization_id"`
		Name           string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.hierarchy.CreateFloor(r.Context(), service.CreateFloorRequest{
		OrganizationID: payload.OrganizationID,
		Name:           payload.Name,
	})
	if err != nil {
		writeError(w, h.logger, "CreateFloor", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *FloorsHandler) ListRooms(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resp, err := h.hierarchy.ListRooms(r.Context(), service.ListRoomsRequest{FloorID: id})
	if err != nil {
		writeError(w, h.logger, "ListRooms", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": roomListJSON(resp.Items), "total": len(resp.Items)}))
}

func (h *FloorsHandler) DeleteFloor(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.hierarchy.DeleteFloor(r.Context(), service.DeleteFloorRequest{FloorID: id})
	if err != nil {
		writeError(w, h.logger, "DeleteFloor", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// ============================================
// Rooms
// ============================================

type RoomsHandler struct {
	hierarchy service.HierarchyService
	logger    *zap.Logger
}

func NewRoomsHandler(hierarchy service.HierarchyService, logger *zap.Logger) *RoomsHandler {
	return &RoomsHandler{hierarchy: hierarchy, logger: logger}
}

func (h *RoomsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const base = apiPrefix + "/rooms"
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch {
	case path == base && r.Method == http.MethodGet:
		h.ListRooms(w, r)
	case path == base && r.Method == http.MethodPost:
		h.CreateRoom(w, r)
	case pathID(path, base+"/") != "" && r.Method == http.MethodGet:
		h.GetRoom(w, r, pathID(path, base+"/"))
	case pathID(path, base+"/") != "" && r.Method == http.MethodDelete:
		h.DeleteRoom(w, r, pathID(path, base+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListRooms ?floor_id= wins over ?organization_id=; ?direct=true lists rooms without a floor.
func (h *RoomsHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		resp *service.ListRoomsResponse
		err  error
	)
	if parseBool(q.Get("direct")) && q.Get("floor_id") == "" {
		resp, err = h.hierarchy.ListDirectRooms(r.Context(), service.ListDirectRoomsRequest{OrganizationID: q.Get("organization_id")})
	} else {
		resp, err = h.hierarchy.ListRooms(r.Context(), service.ListRoomsRequest{
			OrganizationID: q.Get("organization_id"),
			FloorID:        q.Get("floor_id"),
		})
	}
	if err != nil {
		writeError(w, h.logger, "ListRooms", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": roomListJSON(resp.Items), "total": len(resp.Items)}))
}

func (h *RoomsHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrganizationID string `json:"organization_id"`
		FloorID        string `json:"floor_id"`
		Name           string `json:"name"`
	}
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	resp, err := h.hierarchy.CreateRoom(r.Context(), service.CreateRoomRequest{
		OrganizationID: payload.OrganizationID,
		FloorID:        payload.FloorID,
		Name:           payload.Name,
	})
	if err != nil {
		writeError(w, h.logger, "CreateRoom", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *RoomsHandler) GetRoom(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.hierarchy.GetRoom(r.Context(), service.GetRoomRequest{RoomID: id})
	if err != nil {
		writeError(w, h.logger, "GetRoom", err)
		return
	}
	out := resp.Room.ToJSON()
	out["organization_name"] = resp.OrganizationName
	out["floor_name"] = nil
	if resp.FloorName != "" {
		out["floor_name"] = resp.FloorName
	}
	out["equipment"] = equipmentListJSON(resp.Equipment)
	writeJSON(w, http.StatusOK, Ok(out))
}

// DeleteRoom a non-empty room without ?force=true answers 409 with the equipment count.
func (h *RoomsHandler) DeleteRoom(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := h.hierarchy.DeleteRoom(r.Context(), service.DeleteRoomRequest{
		RoomID: id,
		Force:  parseBool(r.URL.Query().Get("force")),
	})
	if err != nil {
		writeError(w, h.logger, "DeleteRoom", err)
		return
	}
	if resp.Blocked {
		writeJSON(w, http.StatusConflict, Result[any]{
			Code:    ResultError,
			Type:    "warning",
			Message: fmt.Sprintf("room still holds %d equipment item(s); retry with force=true", resp.EquipmentCount),
			Result:  resp,
		})
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func roomListJSON(items []*domain.RoomListItem) []any {
	out := make([]any, 0, len(items))
	for _, r := range items {
		out = append(out, r.ToJSON())
	}
	return out
}

func equipmentListJSON(items []*domain.Equipment) []any {
	out := make([]any, 0, len(items))
	for _, e := range items {
		out = append(out, e.ToJSON())
	}
	return out
}
