package store

import (
	"errors"
	"time"
)

var ErrRunNotFound = errors.New("run not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	SaveRun(run *Run) error
	SaveFindings(runID string, findings []Finding) error
	GetRun(id string) (*Run, error)
	ListRuns(query RunsQuery) (*RunsList, error)
	GetRunFindings(runID string, page, perPage int) (*FindingsPage, error)
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	Scenario string `json:"scenario,omitempty"`
	Page     int    `json:"page"`
	PerPage  int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// FindingsPage is one page of a run's findings, ordered by combo, kind and value.
type FindingsPage struct {
	Findings   []FindingWithDelta `json:"findings"`
	TotalCount int                `json:"totalCount"`
	Page       int                `json:"page"`
	PerPage    int                `json:"perPage"`
	TotalPages int                `json:"totalPages"`
}

// Run is one persisted verification run.
type Run struct {
	ID         string `json:"id" db:"id"`
	Scenario   string `json:"scenario" db:"scenario"`
	Mode       string `json:"mode" db:"mode"`
	Check      string `json:"check" db:"check_kind"`
	Base       uint64 `json:"base" db:"base"`
	CritChance uint64 `json:"crit_chance" db:"crit_chance"`
	CritDamage uint64 `json:"crit_damage" db:"crit_damage"`
	DHitChance uint64 `json:"dhit_chance" db:"dhit_chance"`

	SampleCount         int `json:"sample_count" db:"sample_count"`
	DistinctCount       int `json:"distinct_count" db:"distinct_count"`
	AnomalyCount        int `json:"anomaly_count" db:"anomaly_count"`
	HoleCount           int `json:"hole_count" db:"hole_count"`
	GapCount            int `json:"gap_count" db:"gap_count"`
	SuspiciousCount     int `json:"suspicious_count" db:"suspicious_count"`
	InvariantViolations int `json:"invariant_violations" db:"invariant_violations"`

	EngineVersion string    `json:"engine_version" db:"engine_version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// FindingKind classifies a persisted finding.
type FindingKind string

const (
	KindAnomaly   FindingKind = "anomaly"
	KindHole      FindingKind = "hole"
	KindGap       FindingKind = "gap"
	KindInvariant FindingKind = "invariant"
)

// Finding is a single anomaly, hole, gap or invariant violation.
type Finding struct {
	ID         int64       `json:"id" db:"id"`
	RunID      string      `json:"run_id" db:"run_id"`
	Combo      string      `json:"combo,omitempty" db:"combo"`
	Kind       FindingKind `json:"kind" db:"kind"`
	Value      uint64      `json:"value" db:"value"`
	Suspicious bool        `json:"suspicious,omitempty" db:"suspicious"`
	Detail     string      `json:"detail,omitempty" db:"detail"`
}

// FindingWithDelta carries the distance to the previous finding of the same
// combo and kind, which exposes the stride of truncation holes.
type FindingWithDelta struct {
	Finding
	DeltaValue *uint64 `json:"delta_value,omitempty"`
}
