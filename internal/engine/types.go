package engine

import (
	"errors"
	"fmt"
)

// Fixed-point parameters of the tick damage pipeline.
const (
	// RollMin and RollMax bound the per-tick variance roll (inclusive), ±5% scaled by RollScale.
	RollMin   = 9500
	RollMax   = 10500
	RollMid   = 10000
	RollScale = 10000

	// MultiplierScale is the precision of crit and direct hit multipliers.
	MultiplierScale = 1000000

	// PercentScale is the fixed-point scale of chances and damage bonuses (per-thousand).
	PercentScale = 1000

	// DirectHitDamage is the fixed direct hit bonus, +25% at PercentScale.
	DirectHitDamage = 1250
)

var ErrInvalidSnapshot = errors.New("invalid damage snapshot")

// Snapshot is the damage state captured when a DoT is applied.
// Chances and CritDamage are per-thousand (400 = 40.0%, 1600 = x1.6).
type Snapshot struct {
	Base       uint64 `json:"base" yaml:"base"`
	CritChance uint64 `json:"crit_chance" yaml:"crit_chance"`
	CritDamage uint64 `json:"crit_damage" yaml:"crit_damage"`
	DHitChance uint64 `json:"dhit_chance" yaml:"dhit_chance"`
}

// Validate rejects snapshots the unsigned multiplier math cannot represent.
func (s Snapshot) Validate() error {
	if s.CritDamage < PercentScale {
		return fmt.Errorf("%w: crit_damage %d below %d", ErrInvalidSnapshot, s.CritDamage, PercentScale)
	}
	if s.CritChance > PercentScale {
		return fmt.Errorf("%w: crit_chance %d above %d", ErrInvalidSnapshot, s.CritChance, PercentScale)
	}
	if s.DHitChance > PercentScale {
		return fmt.Errorf("%w: dhit_chance %d above %d", ErrInvalidSnapshot, s.DHitChance, PercentScale)
	}
	return nil
}

// HitOutcome selects how one hit type (crit or direct hit) is handled.
type HitOutcome uint8

const (
	// NeverHit treats the tick as not having procced.
	NeverHit HitOutcome = iota
	// AlwaysHit treats the tick as having procced.
	AlwaysHit
	// Averaged blends hit and no-hit by the proc chance.
	Averaged
	// Forced always procs and compounds the multiplier with the chance.
	// Ticks can never be forced; kept for instant damage.
	Forced
)

func (o HitOutcome) String() string {
	switch o {
	case NeverHit:
		return "no"
	case AlwaysHit:
		return "yes"
	case Averaged:
		return "avg"
	case Forced:
		return "force"
	default:
		return fmt.Sprintf("HitOutcome(%d)", uint8(o))
	}
}

// ParseHitOutcome accepts the names produced by HitOutcome.String.
func ParseHitOutcome(name string) (HitOutcome, error) {
	for _, o := range []HitOutcome{NeverHit, AlwaysHit, Averaged, Forced} {
		if o.String() == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown hit outcome %q", name)
}

// Combo is one of the four crit × direct hit outcomes a tick can land as.
type Combo uint8

const (
	ComboNone Combo = iota
	ComboDirect
	ComboCrit
	ComboCritDirect
)

// Combos lists every tick combo in report order.
var Combos = [...]Combo{ComboNone, ComboDirect, ComboCrit, ComboCritDirect}

// Outcomes returns the crit and direct hit handling for the combo.
func (c Combo) Outcomes() (crit, dh HitOutcome) {
	switch c {
	case ComboDirect:
		return NeverHit, AlwaysHit
	case ComboCrit:
		return AlwaysHit, NeverHit
	case ComboCritDirect:
		return AlwaysHit, AlwaysHit
	default:
		return NeverHit, NeverHit
	}
}

// String returns the short report name (nh, dh, ch, cdh).
func (c Combo) String() string {
	switch c {
	case ComboNone:
		return "nh"
	case ComboDirect:
		return "dh"
	case ComboCrit:
		return "ch"
	case ComboCritDirect:
		return "cdh"
	default:
		return fmt.Sprintf("Combo(%d)", uint8(c))
	}
}

// ParseCombo maps a short report name back to its combo.
func ParseCombo(name string) (Combo, bool) {
	for _, c := range Combos {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// ActionStat tags which stat an action scales from. Buffs may key off it.
type ActionStat uint8

const (
	AttackPower ActionStat = iota
	MagicAttackPower
	HealingMagicPotency
)

func (a ActionStat) String() string {
	switch a {
	case AttackPower:
		return "attack_power"
	case MagicAttackPower:
		return "magic_attack_power"
	case HealingMagicPotency:
		return "healing_magic_potency"
	default:
		return fmt.Sprintf("ActionStat(%d)", uint8(a))
	}
}

// ParseActionStat accepts the names produced by ActionStat.String.
func ParseActionStat(name string) (ActionStat, error) {
	for _, a := range []ActionStat{AttackPower, MagicAttackPower, HealingMagicPotency} {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action stat %q", name)
}

// Buff is a final multiplicative stage applied to tick damage by a status effect.
// Implementations own their rounding.
type Buff interface {
	ModifyDamage(damage uint64, stat ActionStat) (uint64, error)
}
