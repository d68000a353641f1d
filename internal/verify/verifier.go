package verify

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/sample"
)

// ReachableInterval bounds the damage a combo can produce over the roll domain.
// The evaluator is non-decreasing in the roll, so the endpoints bound every
// reachable value; Min > Max means that assumption broke.
func ReachableInterval(s engine.Snapshot, c engine.Combo, buff engine.Buff, stat engine.ActionStat) (Interval, error) {
	lo, err := engine.ComboDamage(s, engine.RollMin, c, buff, stat)
	if err != nil {
		return Interval{}, err
	}
	hi, err := engine.ComboDamage(s, engine.RollMax, c, buff, stat)
	if err != nil {
		return Interval{}, err
	}
	if lo > hi {
		return Interval{}, fmt.Errorf("%w: %s interval min %d > max %d", ErrInvariant, c, lo, hi)
	}
	return Interval{Min: lo, Max: hi}, nil
}

// Verifier diffs the formula's reachable values against an observed sample.
type Verifier struct {
	logger *log.Logger
}

// NewVerifier creates a verifier. A nil logger discards operational logs.
func NewVerifier(logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Verifier{logger: logger}
}

// Verify runs the selected checks. Anomalies, holes and gaps are results, not
// errors; an error means the inputs were unusable or a buff failed.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Report, error) {
	check, err := ParseCheck(string(req.Check))
	if err != nil {
		return nil, err
	}
	if len(req.Samples) == 0 {
		return nil, ErrEmptySample
	}
	if err := req.Snapshot.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	observed := sample.NewSet(req.Samples)

	report := &Report{
		Scenario:      req.Scenario,
		Mode:          req.Mode,
		Check:         check,
		Snapshot:      req.Snapshot,
		Combos:        make([]ComboResult, 0, len(engine.Combos)),
		EngineVersion: EngineVersion,
	}

	v.logger.Printf("verify_start scenario=%s mode=%s check=%s samples=%d distinct=%d",
		req.Scenario, req.Mode, check, len(req.Samples), observed.Len())

	valid := make([]bool, len(engine.Combos))
	for i, c := range engine.Combos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := ComboResult{Combo: c.String()}
		iv, err := ReachableInterval(req.Snapshot, c, req.Buff, req.Stat)
		if err != nil {
			if !isInvariant(err) {
				return nil, err
			}
			res.Invariant = err.Error()
			report.Invariants = append(report.Invariants, res.Invariant)
			v.logger.Printf("invariant_violation scenario=%s combo=%s err=%q", req.Scenario, c, err)
			report.Combos = append(report.Combos, res)
			continue
		}
		res.Interval = iv
		res.Average, err = engine.ComboDamage(req.Snapshot, engine.RollMid, c, req.Buff, req.Stat)
		if err != nil {
			return nil, err
		}
		valid[i] = true
		report.Combos = append(report.Combos, res)
	}

	if check.runsRange() {
		if allTrue(valid) {
			report.Anomalies = findAnomalies(observed, report.Combos)
			report.RangeChecked = true
		} else {
			v.logger.Printf("range_check_skipped scenario=%s reason=invalid_interval", req.Scenario)
		}
	}

	if check.runsHoles() {
		for i, c := range engine.Combos {
			if !valid[i] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			res := &report.Combos[i]
			if err := v.checkHoles(req, c, observed, res); err != nil {
				return nil, err
			}
			if res.Invariant != "" {
				report.Invariants = append(report.Invariants, res.Invariant)
				v.logger.Printf("invariant_violation scenario=%s combo=%s err=%q", req.Scenario, c, res.Invariant)
			}
		}
	}

	report.Summary = summarize(report, len(req.Samples), observed.Len())

	v.logger.Printf("verify_done scenario=%s check=%s anomalies=%d holes=%d gaps=%d suspicious=%d invariants=%d elapsed=%s",
		req.Scenario, check, report.Summary.Anomalies, report.Summary.Holes, report.Summary.Gaps,
		report.Summary.SuspiciousGaps, report.Summary.InvariantViolations, time.Since(start))

	return report, nil
}

// findAnomalies returns observed values outside every combo interval, ascending.
func findAnomalies(observed sample.Set, combos []ComboResult) []uint64 {
	var out []uint64
	for _, x := range observed.Sorted() {
		known := false
		for _, res := range combos {
			if res.Interval.Contains(x) {
				known = true
				break
			}
		}
		if !known {
			out = append(out, x)
		}
	}
	return out
}

// checkHoles fills the observed bounds, real holes and formula-level gaps for one combo.
func (v *Verifier) checkHoles(req Request, c engine.Combo, observed sample.Set, res *ComboResult) error {
	iv := res.Interval

	for x := range observed {
		if !iv.Contains(x) {
			continue
		}
		res.ObservedCount++
		if res.ObservedMin == nil || x < *res.ObservedMin {
			m := x
			res.ObservedMin = &m
		}
		if res.ObservedMax == nil || x > *res.ObservedMax {
			m := x
			res.ObservedMax = &m
		}
	}

	holes := make(map[uint64]struct{})
	for x := iv.Min; ; x++ {
		if !observed.Contains(x) {
			res.Holes = append(res.Holes, x)
			holes[x] = struct{}{}
		}
		if x == iv.Max {
			break
		}
	}

	// Sweeps every integer between the scaled endpoints, not only values some
	// roll actually produces. Overchecking only adds candidates.
	crit, dh := c.Outcomes()
	lo := engine.BaseRand(req.Snapshot, engine.RollMin)
	hi := engine.BaseRand(req.Snapshot, engine.RollMax)

	var prev uint64
	first := true
	for x := lo; x <= hi; x++ {
		p := engine.ApplyMultipliers(req.Snapshot, x, crit, dh)
		if req.Buff != nil {
			var err error
			if p, err = req.Buff.ModifyDamage(p, req.Stat); err != nil {
				return err
			}
		}
		if !first {
			if p < prev {
				res.Invariant = fmt.Errorf("%w: %s output fell from %d to %d at scaled value %d",
					ErrInvariant, c, prev, p, x).Error()
				return nil
			}
			for g := prev + 1; g < p; g++ {
				_, isHole := holes[g]
				res.Gaps = append(res.Gaps, Gap{Value: g, Suspicious: !isHole})
				if !isHole {
					res.SuspiciousGaps++
				}
			}
		}
		prev, first = p, false
	}
	return nil
}

func summarize(report *Report, sampleCount, distinct int) Summary {
	s := Summary{
		SampleCount:         sampleCount,
		DistinctCount:       distinct,
		Anomalies:           len(report.Anomalies),
		InvariantViolations: len(report.Invariants),
	}
	for _, res := range report.Combos {
		s.Holes += len(res.Holes)
		s.Gaps += len(res.Gaps)
		s.SuspiciousGaps += res.SuspiciousGaps
	}
	return s
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}
