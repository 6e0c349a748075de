package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

const apiPrefix = "/api/v1"

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// InventoryAPI every handler of the inventory surface
type InventoryAPI struct {
	Organizations *OrganizationsHandler
	Floors        *FloorsHandler
	Rooms         *RoomsHandler
	Equipment     *EquipmentHandler
	Import        *ImportHandler
}

// RegisterInventoryRoutes 注册 /api/v1 下的全部路由
func (r *Router) RegisterInventoryRoutes(api *InventoryAPI) {
	r.Handle(apiPrefix+"/organizations", api.Organizations.ServeHTTP)
	r.Handle(apiPrefix+"/organizations/", api.Organizations.ServeHTTP)

	r.Handle(apiPrefix+"/floors", api.Floors.ServeHTTP)
	r.Handle(apiPrefix+"/floors/", api.Floors.ServeHTTP)

	r.Handle(apiPrefix+"/rooms", api.Rooms.ServeHTTP)
	r.Handle(apiPrefix+"/rooms/", api.Rooms.ServeHTTP)

	r.Handle(apiPrefix+"/equipment", api.Equipment.ServeHTTP)
	r.Handle(apiPrefix+"/equipment/", api.Equipment.ServeHTTP)

	r.Handle(apiPrefix+"/import", api.Import.ServeHTTP)
	r.Handle(apiPrefix+"/import/template", api.Import.ServeHTTP)
}

// RegisterHealthRoute ping 为 nil 时只报告进程存活
func (r *Router) RegisterHealthRoute(ping func(*http.Request) error) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if ping != nil {
			if err := ping(req); err != nil {
				r.logger.Warn("Health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, Fail("store unavailable"))
				return
			}
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}
