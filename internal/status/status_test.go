package status

import (
	"errors"
	"testing"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

func TestEffectModify(t *testing.T) {
	powerSurge := Effect{Name: "Power Surge", Duration: 30 * time.Second, OutNum: 110, OutDen: 100}

	tests := []struct {
		in   uint64
		want uint64
	}{
		{9450, 10395},
		{4275, 4702}, // 4702.5 truncates
		{0, 0},
		{9, 9},
	}

	for _, tt := range tests {
		if got := powerSurge.Modify(tt.in); got != tt.want {
			t.Errorf("Modify(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if got := (Effect{OutNum: 3}).Modify(100); got != 100 {
		t.Errorf("zero denominator should be identity, got %d", got)
	}
}

func TestSnapshotChainsSourceEffects(t *testing.T) {
	snap := Snapshot{
		Source: []Instance{
			{Effect: Effect{Name: "a", OutNum: 110, OutDen: 100}, Source: 1, Stack: 1, Time: 1},
			{Effect: Effect{Name: "b", OutNum: 105, OutDen: 100}, Source: 2, Stack: 3, Time: 9},
		},
		Target: []Instance{
			{Effect: Effect{Name: "ignored", OutNum: 200, OutDen: 100}},
		},
	}

	got, err := snap.ModifyDamage(1000, engine.AttackPower)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1000*110/100 = 1100; 1100*105/100 = 1155
	if got != 1155 {
		t.Errorf("ModifyDamage = %d, want 1155", got)
	}
}

func TestPercentNoOp(t *testing.T) {
	noop := Percent(100, 100)
	for _, d := range []uint64{0, 1, 4275, 9450, 123456789} {
		got, err := noop.ModifyDamage(d, engine.AttackPower)
		if err != nil || got != d {
			t.Errorf("ModifyDamage(%d) = %d, %v", d, got, err)
		}
	}
}

func TestParseRatio(t *testing.T) {
	num, den, err := ParseRatio(" 110 / 100 ")
	if err != nil || num != 110 || den != 100 {
		t.Fatalf("ParseRatio = %d/%d, %v", num, den, err)
	}

	for _, bad := range []string{"110", "a/100", "110/b", "110/0", ""} {
		if _, _, err := ParseRatio(bad); !errors.Is(err, ErrInvalidRatio) {
			t.Errorf("ParseRatio(%q) error = %v, want ErrInvalidRatio", bad, err)
		}
	}
}
