// Package source defines the adapter contract every external job board
// implements. Adapters fail soft: a transient source failure is reported to
// the aggregator and skipped for the run, never fatal.
package source

import (
	"context"

	"jobpilot/internal/domain"
)

type Adapter interface {
	Name() string
	// Supports reports whether the adapter can serve the region at all, so
	// the aggregator can skip unsupported (adapter, region) pairs cheaply.
	Supports(region domain.Region) bool
	Search(ctx context.Context, region domain.Region, role string) ([]domain.Posting, error)
}
