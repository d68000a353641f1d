package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/report"
	"github.com/MJE43/dot-verify-go/internal/sample"
)

func main() {
	var s engine.Snapshot
	flag.Uint64Var(&s.Base, "base", 4500, "base damage")
	flag.Uint64Var(&s.CritChance, "cc", 400, "crit chance (per thousand)")
	flag.Uint64Var(&s.CritDamage, "cd", 1600, "crit damage (per thousand)")
	flag.Uint64Var(&s.DHitChance, "dhc", 200, "direct hit chance (per thousand)")
	roll := flag.Uint64("roll", engine.RollMin, "variance roll in [9500, 10500]")
	critName := flag.String("crit", "yes", "crit handling: no, yes, avg, force")
	dhName := flag.String("dh", "yes", "direct hit handling: no, yes, avg, force")
	flag.Parse()

	if err := s.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	crit, err := engine.ParseHitOutcome(*critName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	dh, err := engine.ParseHitOutcome(*dhName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cm := engine.CritMultiplier(s, crit)
	dm := engine.DirectHitMultiplier(s, dh)

	fmt.Printf("snapshot: base=%d crit=%s %s dhit=%s\n", s.Base, report.Percent(s.CritChance), report.Ratio(s.CritDamage), report.Percent(s.DHitChance))
	fmt.Printf("roll=%d crit=%s (%s) dh=%s (%s)\n\n", *roll, crit, report.Multiplier(cm), dh, report.Multiplier(dm))

	// Staged: truncate after every stage.
	x := engine.BaseRand(s, *roll)
	fmt.Printf("stage 1  base*roll/10000          = %d\n", x)
	afterCrit := x * cm / engine.MultiplierScale
	fmt.Printf("stage 2  *crit/1e6                = %d\n", afterCrit)
	staged := afterCrit * dm / engine.MultiplierScale
	fmt.Printf("stage 3  *dh/1e6                  = %d\n", staged)
	if staged != engine.TickDamage(s, *roll, crit, dh) {
		fmt.Println("WARNING: manual stages disagree with TickDamage")
	}

	// Deferred: one truncation at the end, computed exactly.
	exact := decimal.NewFromInt(int64(s.Base)).
		Mul(decimal.NewFromInt(int64(*roll))).Div(decimal.NewFromInt(engine.RollScale)).
		Mul(decimal.NewFromInt(int64(cm))).Div(decimal.NewFromInt(engine.MultiplierScale)).
		Mul(decimal.NewFromInt(int64(dm))).Div(decimal.NewFromInt(engine.MultiplierScale))
	deferred := exact.Floor()

	fmt.Printf("\nexact product                     = %s\n", exact.StringFixed(6))
	fmt.Printf("deferred truncation               = %s\n", deferred.String())
	fmt.Printf("staged loss vs exact              = %s\n", exact.Sub(decimal.NewFromInt(int64(staged))).StringFixed(6))
	if !deferred.Equal(decimal.NewFromInt(int64(staged))) {
		fmt.Println("staged and deferred orders differ at this roll")
	}

	fmt.Println("\nreachable values per combo:")
	for _, c := range engine.Combos {
		values, err := sample.Synthesize(s, nil, engine.AttackPower, c)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		set := sample.NewSet(values)
		lo, hi := values[0], values[len(values)-1]
		width := hi - lo + 1
		fmt.Printf("  %-3s %d..=%d  distinct=%d  unreachable=%d\n", c, lo, hi, set.Len(), width-uint64(set.Len()))
	}
}
