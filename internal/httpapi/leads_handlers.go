package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/store"
)

type LeadsHandler struct {
	Store *store.DB
	Hub   *events.Hub
}

func (h LeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := store.ListOpts{Limit: 50000}
	if s := q.Get("status"); s != "" {
		if !domain.ValidStatus(domain.Status(s)) {
			WriteError(w, r, http.StatusBadRequest, "bad_status", "unknown status "+s)
			return
		}
		opts.Status = domain.Status(s)
	}
	if reg := q.Get("region"); reg != "" {
		if !domain.ValidRegion(domain.Region(reg)) {
			WriteError(w, r, http.StatusBadRequest, "bad_region", "unknown region "+reg)
			return
		}
		opts.Region = domain.Region(reg)
	}

	leads, err := h.Store.List(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, leads)
}

func (h LeadsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id, _, ok := leadPath(r.URL.Path)
	if !ok {
		http.Error(w, "invalid id", 400)
		return
	}
	lead, err := h.Store.Get(r.Context(), id)
	if err == store.ErrNotFound {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such lead")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, lead)
}

// ActionByPath handles POST /leads/{id}/applied, the manual override used
// when the operator applied outside the automated flow.
func (h LeadsHandler) ActionByPath(w http.ResponseWriter, r *http.Request) {
	id, action, ok := leadPath(r.URL.Path)
	if !ok || action != "applied" {
		http.Error(w, "invalid path", 400)
		return
	}

	if err := h.Store.ForceStatus(r.Context(), id, domain.StatusApplied, "marked applied manually"); err != nil {
		if err == store.ErrNotFound {
			WriteError(w, r, http.StatusNotFound, "not_found", "no such lead")
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, "lead_applied", 1, map[string]any{"id": id}))
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

// leadPath parses /leads/{id} and /leads/{id}/{action}.
func leadPath(path string) (id int64, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/leads/")
	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action, true
}
