// Package status models the status effects that modify outgoing DoT damage.
package status

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

var ErrInvalidRatio = errors.New("invalid damage ratio")

// ActorID identifies the actor a status instance came from.
type ActorID uint32

// Effect is a status effect definition. Outgoing damage is scaled by OutNum/OutDen.
type Effect struct {
	Name     string
	Duration time.Duration
	OutNum   uint64
	OutDen   uint64
}

// Modify applies the outgoing damage ratio with floor division.
func (e Effect) Modify(damage uint64) uint64 {
	if e.OutDen == 0 {
		return damage
	}
	return damage * e.OutNum / e.OutDen
}

// Instance is an effect applied to an actor. Source, Stack and Time are
// carried for callers; the damage math never reads them.
type Instance struct {
	Effect Effect
	Source ActorID
	Stack  uint8
	Time   uint32
}

// Snapshot is the set of statuses active when a DoT snapshots.
type Snapshot struct {
	Source []Instance
	Target []Instance
}

// ModifyDamage applies every source-side outgoing modifier in order.
func (s Snapshot) ModifyDamage(damage uint64, _ engine.ActionStat) (uint64, error) {
	for _, inst := range s.Source {
		damage = inst.Effect.Modify(damage)
	}
	return damage, nil
}

// Percent returns a single-effect snapshot scaling damage by num/den.
func Percent(num, den uint64) Snapshot {
	return Snapshot{
		Source: []Instance{{
			Effect: Effect{Name: fmt.Sprintf("%d/%d", num, den), OutNum: num, OutDen: den},
			Stack:  1,
		}},
	}
}

// ParseRatio parses "110/100" style ratios.
func ParseRatio(s string) (num, den uint64, err error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q has no '/'", ErrInvalidRatio, s)
	}
	num, err = strconv.ParseUint(strings.TrimSpace(left), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: numerator of %q: %v", ErrInvalidRatio, s, err)
	}
	den, err = strconv.ParseUint(strings.TrimSpace(right), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: denominator of %q: %v", ErrInvalidRatio, s, err)
	}
	if den == 0 {
		return 0, 0, fmt.Errorf("%w: %q has zero denominator", ErrInvalidRatio, s)
	}
	return num, den, nil
}
