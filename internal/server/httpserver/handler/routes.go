package handler

import (
	"net/http"

	"github.com/yndnr/hotroute/internal/routing"
)

// handleRoutes handles GET /_hotroute/routes.
func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.src.Routes()
	modules := h.src.Modules()

	resp := RoutesResponse{
		Handlers: len(routes),
		Modules:  make([]ModuleInfo, 0, len(modules)),
		Watch:    h.src.WatchGroups(),
	}
	for _, m := range modules {
		info := ModuleInfo{RouteModule: *m, Routes: []RouteInfo{}}
		for i := m.Range.Start; i <= m.Range.End && i < len(routes); i++ {
			info.Routes = append(info.Routes, describe(i, routes[i]))
		}
		resp.Modules = append(resp.Modules, info)
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func describe(i int, rt routing.Route) RouteInfo {
	method := rt.Method
	if method == "" {
		method = routing.MethodAny
	}
	return RouteInfo{Index: i, Method: method, Pattern: rt.Pattern}
}
