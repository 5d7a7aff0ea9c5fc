package api

import (
	"net/http"
	"time"

	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/store"
)

// HealthHandler reports service health including the memory service's own
// health body.
type HealthHandler struct {
	store store.Store
	mem   Memory
}

func NewHealthHandler(st store.Store, mem Memory) *HealthHandler {
	return &HealthHandler{store: st, mem: mem}
}

// Check handles GET /health. A failing dependency yields 500 so
// status-code probes see the outage; the body names the failing
// component either way.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ok := true
	response := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if err := h.store.HealthPing(r.Context()); err != nil {
		ok = false
		response["store_error"] = err.Error()
	}

	if body, err := h.mem.Health(r.Context()); err != nil {
		ok = false
		response["memmachine_error"] = err.Error()
	} else {
		response["memmachine"] = body
	}

	response["ok"] = ok
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	respond.WriteJSON(w, status, response)
}
