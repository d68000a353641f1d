package engine

// BaseRand scales the snapshot base by a variance roll.
func BaseRand(s Snapshot, roll uint64) uint64 {
	return s.Base * roll / RollScale
}

// CritMultiplier returns the crit multiplier for the handling, scaled by MultiplierScale.
func CritMultiplier(s Snapshot, o HitOutcome) uint64 {
	return hitMultiplier(s.CritDamage, s.CritChance, o)
}

// DirectHitMultiplier returns the direct hit multiplier for the handling, scaled by MultiplierScale.
func DirectHitMultiplier(s Snapshot, o HitOutcome) uint64 {
	return hitMultiplier(DirectHitDamage, s.DHitChance, o)
}

func hitMultiplier(damage, chance uint64, o HitOutcome) uint64 {
	switch o {
	case Forced:
		return damage * (PercentScale + (damage-PercentScale)*chance/PercentScale)
	case Averaged:
		return MultiplierScale + (damage-PercentScale)*chance
	case AlwaysHit:
		return damage * PercentScale
	default:
		return MultiplierScale
	}
}

// ApplyMultipliers runs a pre-outcome scaled value through the crit and
// direct hit stages. Each stage truncates before the next one multiplies;
// merging the divisions changes which integers are reachable.
func ApplyMultipliers(s Snapshot, x uint64, crit, dh HitOutcome) uint64 {
	x = x * CritMultiplier(s, crit) / MultiplierScale
	x = x * DirectHitMultiplier(s, dh) / MultiplierScale
	return x
}

// TickDamage evaluates one DoT tick for a roll in [RollMin, RollMax].
func TickDamage(s Snapshot, roll uint64, crit, dh HitOutcome) uint64 {
	return ApplyMultipliers(s, BaseRand(s, roll), crit, dh)
}

// TickDamageWithBuff evaluates a tick and then applies buff as the last stage.
// A nil buff leaves the damage unchanged.
func TickDamageWithBuff(s Snapshot, roll uint64, crit, dh HitOutcome, buff Buff, stat ActionStat) (uint64, error) {
	d := TickDamage(s, roll, crit, dh)
	if buff == nil {
		return d, nil
	}
	return buff.ModifyDamage(d, stat)
}

// ComboDamage evaluates a tick for one of the four tick combos.
func ComboDamage(s Snapshot, roll uint64, c Combo, buff Buff, stat ActionStat) (uint64, error) {
	crit, dh := c.Outcomes()
	return TickDamageWithBuff(s, roll, crit, dh, buff, stat)
}
