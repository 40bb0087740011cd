package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"jobpilot/internal/aggregate"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/store"
)

type SearchHandler struct {
	Store        *store.DB
	SearchStatus *atomic.Value // httpapi.SearchStatus
	Hub          *events.Hub
	RunSearch    func(ctx context.Context, regions []domain.Region, role string) (aggregate.Summary, error)
}

func (h SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.SearchStatus.Load().(SearchStatus)
	writeJSON(w, st)
}

func (h SearchHandler) Run(w http.ResponseWriter, r *http.Request) {
	st := h.SearchStatus.Load().(SearchStatus)
	if st.Running {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	var regions []domain.Region
	for _, s := range r.URL.Query()["region"] {
		reg := domain.Region(s)
		if !domain.ValidRegion(reg) {
			WriteError(w, r, http.StatusBadRequest, "bad_region", "unknown region "+s)
			return
		}
		regions = append(regions, reg)
	}
	role := r.URL.Query().Get("role")

	h.SearchStatus.Store(SearchStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	go func() {
		// Detached from the request; a closed client must not abort a search.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		sum, err := h.RunSearch(ctx, regions, role)

		now := time.Now().Format(time.RFC3339)
		next := h.SearchStatus.Load().(SearchStatus)
		next.Running = false
		next.LastRunAt = now
		next.LastNew = sum.New
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.SearchStatus.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}
