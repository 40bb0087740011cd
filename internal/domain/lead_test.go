package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanAdvanceForwardOnly(t *testing.T) {
	assert.True(t, CanAdvance(StatusFound, StatusCoverReady))
	assert.True(t, CanAdvance(StatusCoverReady, StatusApplied))
	assert.True(t, CanAdvance(StatusApplied, StatusInterviewing))
	assert.True(t, CanAdvance(StatusInterviewing, StatusOffer))

	assert.False(t, CanAdvance(StatusApplied, StatusCoverReady))
	assert.False(t, CanAdvance(StatusCoverReady, StatusFound))
	assert.False(t, CanAdvance(StatusApplied, StatusApplied))
}

func TestCanAdvanceApplyFailedIsTerminalForAutomation(t *testing.T) {
	assert.True(t, CanAdvance(StatusCoverReady, StatusApplyFailed))
	// apply_failed and applied share a rank, neither replaces the other
	assert.False(t, CanAdvance(StatusApplyFailed, StatusApplied))
	assert.False(t, CanAdvance(StatusApplied, StatusApplyFailed))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusFound))
	assert.True(t, ValidStatus(StatusOffer))
	assert.False(t, ValidStatus(Status("bogus")))
}

func TestValidRegion(t *testing.T) {
	for _, r := range AllRegions {
		assert.True(t, ValidRegion(r))
	}
	assert.False(t, ValidRegion(Region("mars")))
}
