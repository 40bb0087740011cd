package domain

import "time"

// Status tracks a lead through the application lifecycle. Transitions move
// forward only; manual overrides through the status controller are the one
// exception.
type Status string

const (
	StatusFound        Status = "found"
	StatusCoverReady   Status = "cover_ready"
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusRejected     Status = "rejected"
	StatusOffer        Status = "offer"
	StatusApplyFailed  Status = "apply_failed"
)

// statusRank orders the automated pipeline. Manual-only statuses sit past
// applied so a mark never regresses an applied lead.
var statusRank = map[Status]int{
	StatusFound:        0,
	StatusCoverReady:   1,
	StatusApplied:      2,
	StatusApplyFailed:  2,
	StatusInterviewing: 3,
	StatusRejected:     3,
	StatusOffer:        4,
}

// CanAdvance reports whether moving from -> to is a forward transition.
func CanAdvance(from, to Status) bool {
	rf, ok1 := statusRank[from]
	rt, ok2 := statusRank[to]
	if !ok1 || !ok2 {
		return false
	}
	return rt > rf
}

func ValidStatus(s Status) bool {
	_, ok := statusRank[s]
	return ok
}

type Region string

const (
	RegionUK          Region = "uk"
	RegionUAE         Region = "uae"
	RegionIndia       Region = "india"
	RegionGermany     Region = "germany"
	RegionNetherlands Region = "netherlands"
	RegionRemote      Region = "remote"
)

var AllRegions = []Region{RegionUK, RegionUAE, RegionIndia, RegionGermany, RegionNetherlands, RegionRemote}

func ValidRegion(r Region) bool {
	for _, known := range AllRegions {
		if r == known {
			return true
		}
	}
	return false
}

// Posting is one raw result from a source adapter, before dedup.
type Posting struct {
	Source    string
	NativeID  string
	Title     string
	Company   string
	Location  string
	Region    Region
	URL       string
	Salary    string
	PostedAt  *time.Time
	RoleQuery string
	// Summary is a plain-text description excerpt; scoring input only,
	// not persisted.
	Summary string
}

// Lead is one deduplicated job posting tracked through the lifecycle.
type Lead struct {
	ID              int64     `json:"id"`
	Fingerprint     string    `json:"fingerprint"`
	Title           string    `json:"title"`
	Company         string    `json:"company"`
	Location        string    `json:"location"`
	Region          Region    `json:"region"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	Salary          string    `json:"salary,omitempty"`
	Score           int       `json:"score"`
	PostedAt        string    `json:"postedAt,omitempty"`
	FoundAt         time.Time `json:"foundAt"`
	Status          Status    `json:"status"`
	CoverLetterPath string    `json:"coverLetterPath,omitempty"`
	DraftPath       string    `json:"draftPath,omitempty"`
	ApplyAttempts   int       `json:"applyAttempts"`
	LastError       string    `json:"lastError,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}
