package httpapi

import (
	"context"
	"sync/atomic"

	"jobpilot/internal/aggregate"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/store"
)

type Deps struct {
	Store *store.DB

	Hub *events.Hub

	// SearchStatus stores httpapi.SearchStatus
	SearchStatus *atomic.Value

	// Search entrypoint (inject for testability)
	RunSearch func(ctx context.Context, regions []domain.Region, role string) (aggregate.Summary, error)
}
