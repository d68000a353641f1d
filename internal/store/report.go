package store

import (
	"fmt"

	"github.com/MJE43/dot-verify-go/internal/verify"
)

// FromReport flattens a verification report into a run and its findings.
// The run ID is left empty so SaveRun assigns one.
func FromReport(r *verify.Report) (*Run, []Finding) {
	run := &Run{
		Scenario:            r.Scenario,
		Mode:                r.Mode,
		Check:               string(r.Check),
		Base:                r.Snapshot.Base,
		CritChance:          r.Snapshot.CritChance,
		CritDamage:          r.Snapshot.CritDamage,
		DHitChance:          r.Snapshot.DHitChance,
		SampleCount:         r.Summary.SampleCount,
		DistinctCount:       r.Summary.DistinctCount,
		AnomalyCount:        r.Summary.Anomalies,
		HoleCount:           r.Summary.Holes,
		GapCount:            r.Summary.Gaps,
		SuspiciousCount:     r.Summary.SuspiciousGaps,
		InvariantViolations: r.Summary.InvariantViolations,
		EngineVersion:       r.EngineVersion,
	}

	findings := make([]Finding, 0, r.Summary.Anomalies+r.Summary.Holes+r.Summary.Gaps+r.Summary.InvariantViolations)
	for _, x := range r.Anomalies {
		findings = append(findings, Finding{Kind: KindAnomaly, Value: x})
	}
	for _, res := range r.Combos {
		for _, x := range res.Holes {
			findings = append(findings, Finding{Combo: res.Combo, Kind: KindHole, Value: x})
		}
		for _, g := range res.Gaps {
			findings = append(findings, Finding{Combo: res.Combo, Kind: KindGap, Value: g.Value, Suspicious: g.Suspicious})
		}
		if res.Invariant != "" {
			findings = append(findings, Finding{Combo: res.Combo, Kind: KindInvariant, Detail: res.Invariant})
		}
	}
	return run, findings
}

// SaveReport persists a report and returns the stored run.
func SaveReport(db DB, r *verify.Report) (*Run, error) {
	run, findings := FromReport(r)
	if err := db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	for i := range findings {
		findings[i].RunID = run.ID
	}
	if err := db.SaveFindings(run.ID, findings); err != nil {
		return nil, fmt.Errorf("save findings for run %s: %w", run.ID, err)
	}
	return run, nil
}
