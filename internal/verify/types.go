package verify

import (
	"fmt"
	"strings"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

// Check selects which verification pass runs.
type Check string

const (
	CheckRange Check = "range"
	CheckHoles Check = "holes"
	CheckAll   Check = "all"
)

// ParseCheck validates a check name.
func ParseCheck(s string) (Check, error) {
	switch c := Check(strings.ToLower(strings.TrimSpace(s))); c {
	case CheckRange, CheckHoles, CheckAll:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q (want range, holes or all)", ErrInvalidCheck, s)
	}
}

func (c Check) runsRange() bool { return c == CheckRange || c == CheckAll }
func (c Check) runsHoles() bool { return c == CheckHoles || c == CheckAll }

// Interval is an inclusive damage range.
type Interval struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (i Interval) Contains(v uint64) bool {
	return v >= i.Min && v <= i.Max
}

func (i Interval) String() string {
	return fmt.Sprintf("%d..=%d", i.Min, i.Max)
}

// Request describes one verification run.
type Request struct {
	Scenario string            `json:"scenario"`
	Mode     string            `json:"mode"`
	Check    Check             `json:"check"`
	Snapshot engine.Snapshot   `json:"snapshot"`
	Stat     engine.ActionStat `json:"stat"`
	Buff     engine.Buff       `json:"-"`
	Samples  []uint64          `json:"-"`
}

// Gap is an integer the staged formula skips between two adjacent outputs.
// Suspicious gaps were nevertheless observed, which contradicts the
// conjectured truncation order.
type Gap struct {
	Value      uint64 `json:"value"`
	Suspicious bool   `json:"suspicious,omitempty"`
}

// ComboResult holds everything computed for one crit × direct hit combo.
type ComboResult struct {
	Combo    string   `json:"combo"`
	Interval Interval `json:"interval"`
	Average  uint64   `json:"average"`

	ObservedCount int     `json:"observed_count"`
	ObservedMin   *uint64 `json:"observed_min,omitempty"`
	ObservedMax   *uint64 `json:"observed_max,omitempty"`

	Holes          []uint64 `json:"holes,omitempty"`
	Gaps           []Gap    `json:"gaps,omitempty"`
	SuspiciousGaps int      `json:"suspicious_gaps"`

	// Invariant is set when the sweep for this combo was stopped.
	Invariant string `json:"invariant,omitempty"`
}

// Summary aggregates findings across combos.
type Summary struct {
	SampleCount         int `json:"sample_count"`
	DistinctCount       int `json:"distinct_count"`
	Anomalies           int `json:"anomalies"`
	Holes               int `json:"holes"`
	Gaps                int `json:"gaps"`
	SuspiciousGaps      int `json:"suspicious_gaps"`
	InvariantViolations int `json:"invariant_violations"`
}

// Report is the full result of a verification run.
type Report struct {
	Scenario      string          `json:"scenario"`
	Mode          string          `json:"mode"`
	Check         Check           `json:"check"`
	Snapshot      engine.Snapshot `json:"snapshot"`
	Anomalies     []uint64        `json:"anomalies,omitempty"`
	RangeChecked  bool            `json:"range_checked"`
	Invariants    []string        `json:"invariants,omitempty"`
	Combos        []ComboResult   `json:"combos"`
	Summary       Summary         `json:"summary"`
	EngineVersion string          `json:"engine_version"`
}
