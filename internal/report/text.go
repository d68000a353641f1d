package report

import (
	"fmt"
	"io"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

// printer keeps the first write error so rendering code can stay linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Text writes every anomaly, hole and gap to out, and interval bounds,
// observed extremes and per-combo flags to diag.
func Text(out, diag io.Writer, r *verify.Report) error {
	o := &printer{w: out}
	d := &printer{w: diag}

	s := r.Snapshot
	d.printf("scenario %s mode=%s check=%s engine=%s\n", r.Scenario, modeLabel(r.Mode), r.Check, r.EngineVersion)
	d.printf("snapshot base %d, crit %s %s, dhit %s %s\n",
		s.Base, Percent(s.CritChance), Ratio(s.CritDamage), Percent(s.DHitChance), Ratio(engine.DirectHitDamage))
	d.printf("crit multiplier %s (avg %s), dh multiplier %s (avg %s)\n",
		Multiplier(engine.CritMultiplier(s, engine.AlwaysHit)), Multiplier(engine.CritMultiplier(s, engine.Averaged)),
		Multiplier(engine.DirectHitMultiplier(s, engine.AlwaysHit)), Multiplier(engine.DirectHitMultiplier(s, engine.Averaged)))

	d.printf("\n")
	for _, res := range r.Combos {
		if intervalInvalid(res) {
			d.printf("ex %s range INVALID\n", res.Combo)
			continue
		}
		d.printf("ex %s range %s\n", res.Combo, res.Interval)
	}
	d.printf("\n")

	if r.RangeChecked {
		for _, x := range r.Anomalies {
			o.printf("found unknown value: %d\n", x)
		}
		if len(r.Anomalies) > 0 {
			d.printf("found %d unknown values\n\n", len(r.Anomalies))
		}
	} else if r.Check != verify.CheckHoles {
		d.printf("range check skipped: invalid interval\n\n")
	}

	if r.Check != verify.CheckRange {
		for _, res := range r.Combos {
			writeCombo(o, d, r, res)
		}
	}

	for _, inv := range r.Invariants {
		o.printf("INVARIANT VIOLATION: %s\n", inv)
		d.printf("INVARIANT VIOLATION: %s\n", inv)
	}

	sum := r.Summary
	d.printf("summary samples=%d distinct=%d anomalies=%d holes=%d gaps=%d suspicious=%d invariants=%d\n",
		sum.SampleCount, sum.DistinctCount, sum.Anomalies, sum.Holes, sum.Gaps, sum.SuspiciousGaps, sum.InvariantViolations)

	if o.err != nil {
		return o.err
	}
	return d.err
}

func writeCombo(o, d *printer, r *verify.Report, res verify.ComboResult) {
	if intervalInvalid(res) {
		return
	}

	d.printf("starting %s - ex avg %d, ex min %d, ex max %d, rl min %s, rl max %s\n",
		res.Combo, res.Average, res.Interval.Min, res.Interval.Max, optional(res.ObservedMin), optional(res.ObservedMax))
	if res.ObservedMin != nil {
		d.printf("checking range %d..=%d\n", *res.ObservedMin, *res.ObservedMax)
	}

	o.printf("start real range hole check (%s):\n", res.Combo)
	for _, x := range res.Holes {
		o.printf("    %d\n", x)
	}
	if len(res.Holes) > 0 {
		d.printf("found hole in range\n")
	}

	o.printf("starting expected %s hole check (%s):\n", modeLabel(r.Mode), res.Combo)
	for _, g := range res.Gaps {
		if g.Suspicious {
			o.printf("    %d !!!\n", g.Value)
		} else {
			o.printf("    %d\n", g.Value)
		}
	}
	if res.SuspiciousGaps > 0 {
		d.printf("found %d gaps that were observed\n", res.SuspiciousGaps)
	}
	if res.Invariant != "" {
		d.printf("sweep stopped: %s\n", res.Invariant)
	}
	d.printf("\n")
}

// intervalInvalid reports a combo whose endpoints were out of order, leaving
// no interval to check against.
func intervalInvalid(res verify.ComboResult) bool {
	return res.Invariant != "" && res.Interval == (verify.Interval{})
}

func optional(v *uint64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func modeLabel(mode string) string {
	if mode == "" {
		return "prebuff"
	}
	return mode
}
