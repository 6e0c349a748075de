package httpapi

import (
	"net/http"
	"strings"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/service"
	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/spreadsheet"

	"go.uber.org/zap"
)

// ImportHandler 设备批量导入 Handler
type ImportHandler struct {
	imports service.ImportService
	logger  *zap.Logger
}

func NewImportHandler(imports service.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{imports: imports, logger: logger}
}

func (h *ImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == apiPrefix+"/import" && r.Method == http.MethodPost:
		h.Import(w, r)
	case path == apiPrefix+"/import/template" && r.Method == http.MethodGet:
		h.GetTemplate(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// Import multipart field "file"; target from ?organization_id=&room_id= (form values also accepted).
// Partial success is still 200: failed rows are listed in the result.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB max
		writeJSON(w, http.StatusBadRequest, Fail("failed to parse form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("file not found in request"))
		return
	}
	defer file.Close()

	resp, err := h.imports.ImportFile(r.Context(), service.ImportFileRequest{
		OrganizationID: r.FormValue("organization_id"),
		RoomID:         r.FormValue("room_id"),
		File:           file,
	})
	if err != nil {
		writeError(w, h.logger, "Import", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetTemplate 获取导入模板
func (h *ImportHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := spreadsheet.ImportTemplate()
	if err != nil {
		writeError(w, h.logger, "ImportTemplate", err)
		return
	}
	writeXLSX(w, "equipment-import-template.xlsx", data)
}
