package engine

import (
	"errors"
	"testing"
)

var concrete = Snapshot{Base: 4500, CritChance: 400, CritDamage: 1600, DHitChance: 200}

type ratioBuff struct{ num, den uint64 }

func (b ratioBuff) ModifyDamage(damage uint64, _ ActionStat) (uint64, error) {
	return damage * b.num / b.den, nil
}

type failingBuff struct{}

func (failingBuff) ModifyDamage(uint64, ActionStat) (uint64, error) {
	return 0, errors.New("boom")
}

func TestConcreteScenario(t *testing.T) {
	if got := TickDamage(concrete, RollMid, NeverHit, NeverHit); got != 4500 {
		t.Errorf("midpoint no-bonus tick = %d, want 4500", got)
	}
	// 4500*10500/10000 = 4725; *1.6 = 7560; *1.25 = 9450
	if got := TickDamage(concrete, RollMax, AlwaysHit, AlwaysHit); got != 9450 {
		t.Errorf("max crit direct hit tick = %d, want 9450", got)
	}
	if got := TickDamage(concrete, RollMin, AlwaysHit, AlwaysHit); got != 8550 {
		t.Errorf("min crit direct hit tick = %d, want 8550", got)
	}
}

func TestBaseRand(t *testing.T) {
	tests := []struct {
		base uint64
		roll uint64
		want uint64
	}{
		{4500, 9500, 4275},
		{4500, 10000, 4500},
		{4500, 10500, 4725},
		{4501, 9500, 4275}, // 4275.95 truncates
		{1, 9999, 0},
		{0, 10500, 0},
	}

	for _, tt := range tests {
		if got := BaseRand(Snapshot{Base: tt.base}, tt.roll); got != tt.want {
			t.Errorf("BaseRand(%d, %d) = %d, want %d", tt.base, tt.roll, got, tt.want)
		}
	}
}

func TestMultipliers(t *testing.T) {
	tests := []struct {
		name string
		o    HitOutcome
		crit uint64
		dh   uint64
	}{
		{"never", NeverHit, 1000000, 1000000},
		{"always", AlwaysHit, 1600000, 1250000},
		// 1e6 + 600*400, 1e6 + 250*200
		{"averaged", Averaged, 1240000, 1050000},
		// 1600*(1000+600*400/1000), 1250*(1000+250*200/1000)
		{"forced", Forced, 1984000, 1312500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CritMultiplier(concrete, tt.o); got != tt.crit {
				t.Errorf("CritMultiplier = %d, want %d", got, tt.crit)
			}
			if got := DirectHitMultiplier(concrete, tt.o); got != tt.dh {
				t.Errorf("DirectHitMultiplier = %d, want %d", got, tt.dh)
			}
		})
	}
}

func TestStagedTruncationOrder(t *testing.T) {
	s := Snapshot{Base: 4400, CritChance: 400, CritDamage: 1600, DHitChance: 200}
	roll := uint64(9502)

	staged := TickDamage(s, roll, AlwaysHit, AlwaysHit)
	// Same product with a single division at the end.
	deferred := s.Base * roll * (CritMultiplier(s, AlwaysHit) / PercentScale) * (DirectHitMultiplier(s, AlwaysHit) / PercentScale) /
		(RollScale * MultiplierScale)

	if staged != 8360 {
		t.Errorf("staged tick = %d, want 8360", staged)
	}
	if deferred != 8361 {
		t.Errorf("deferred tick = %d, want 8361", deferred)
	}
}

func TestComboOutcomes(t *testing.T) {
	tests := []struct {
		combo Combo
		name  string
		crit  HitOutcome
		dh    HitOutcome
	}{
		{ComboNone, "nh", NeverHit, NeverHit},
		{ComboDirect, "dh", NeverHit, AlwaysHit},
		{ComboCrit, "ch", AlwaysHit, NeverHit},
		{ComboCritDirect, "cdh", AlwaysHit, AlwaysHit},
	}

	for _, tt := range tests {
		crit, dh := tt.combo.Outcomes()
		if crit != tt.crit || dh != tt.dh {
			t.Errorf("%s outcomes = (%s, %s), want (%s, %s)", tt.name, crit, dh, tt.crit, tt.dh)
		}
		if tt.combo.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.combo.String(), tt.name)
		}
		parsed, ok := ParseCombo(tt.name)
		if !ok || parsed != tt.combo {
			t.Errorf("ParseCombo(%q) = %v, %v", tt.name, parsed, ok)
		}
	}

	if _, ok := ParseCombo("xx"); ok {
		t.Error("ParseCombo accepted unknown name")
	}
}

func TestTickDamageWithBuff(t *testing.T) {
	t.Run("no-op buff matches unbuffed", func(t *testing.T) {
		noop := ratioBuff{100, 100}
		for _, c := range Combos {
			crit, dh := c.Outcomes()
			for roll := uint64(RollMin); roll <= RollMax; roll++ {
				got, err := TickDamageWithBuff(concrete, roll, crit, dh, noop, AttackPower)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if want := TickDamage(concrete, roll, crit, dh); got != want {
					t.Fatalf("%s roll %d: buffed %d != unbuffed %d", c, roll, got, want)
				}
			}
		}
	})

	t.Run("buff is the last stage", func(t *testing.T) {
		got, err := TickDamageWithBuff(concrete, RollMax, AlwaysHit, AlwaysHit, ratioBuff{110, 100}, AttackPower)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 9450 * 110 / 100
		if got != 10395 {
			t.Errorf("buffed tick = %d, want 10395", got)
		}
	})

	t.Run("nil buff", func(t *testing.T) {
		got, err := TickDamageWithBuff(concrete, RollMid, NeverHit, NeverHit, nil, AttackPower)
		if err != nil || got != 4500 {
			t.Errorf("got %d, %v; want 4500, nil", got, err)
		}
	})

	t.Run("buff error propagates", func(t *testing.T) {
		if _, err := ComboDamage(concrete, RollMid, ComboCrit, failingBuff{}, AttackPower); err == nil {
			t.Error("expected error from failing buff")
		}
	})
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Snapshot
		wantErr bool
	}{
		{"concrete", concrete, false},
		{"crit damage below identity", Snapshot{Base: 1, CritDamage: 999}, true},
		{"crit chance over 100%", Snapshot{Base: 1, CritDamage: 1400, CritChance: 1001}, true},
		{"dhit chance over 100%", Snapshot{Base: 1, CritDamage: 1400, DHitChance: 1001}, true},
		{"zero base", Snapshot{CritDamage: 1000}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSnapshot) {
				t.Errorf("expected ErrInvalidSnapshot, got %v", err)
			}
		})
	}
}

func TestParseNames(t *testing.T) {
	for _, o := range []HitOutcome{NeverHit, AlwaysHit, Averaged, Forced} {
		got, err := ParseHitOutcome(o.String())
		if err != nil || got != o {
			t.Errorf("ParseHitOutcome(%q) = %v, %v", o.String(), got, err)
		}
	}
	if _, err := ParseHitOutcome("maybe"); err == nil {
		t.Error("expected error for unknown outcome")
	}

	stat, err := ParseActionStat("attack_power")
	if err != nil || stat != AttackPower {
		t.Errorf("ParseActionStat = %v, %v", stat, err)
	}
	if _, err := ParseActionStat("luck"); err == nil {
		t.Error("expected error for unknown stat")
	}
}

func BenchmarkTickDamage(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TickDamage(concrete, RollMin+uint64(i%1001), AlwaysHit, AlwaysHit)
	}
}
