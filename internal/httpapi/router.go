package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still wrap it in middleware.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Leads
	lh := LeadsHandler{Store: d.Store, Hub: d.Hub}
	mux.HandleFunc("/leads", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/leads/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  lh.GetByPath,     // /leads/{id}
		http.MethodPost: lh.ActionByPath,  // /leads/{id}/applied
	}))

	// Search
	sh := SearchHandler{
		Store:        d.Store,
		SearchStatus: d.SearchStatus,
		Hub:          d.Hub,
		RunSearch:    d.RunSearch,
	}
	mux.HandleFunc("/search/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))
	mux.HandleFunc("/search/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Run,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.HandleFunc("/healthz", HealthHandler{}.Health)

	return mux
}
