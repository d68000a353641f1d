// Package scenario describes what a verification run checks: a damage
// snapshot, whether the buff stage applies, and where the observed ticks live.
package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/scripting"
	"github.com/MJE43/dot-verify-go/internal/status"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// Mode says whether observed ticks were logged before or after the buff stage.
type Mode string

const (
	ModePreBuff  Mode = "prebuff"
	ModePostBuff Mode = "postbuff"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePreBuff, ModePostBuff:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q (want prebuff or postbuff)", ErrInvalidScenario, s)
	}
}

// Scenario is one snapshot configuration to verify observed ticks against.
type Scenario struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Mode     Mode              `json:"mode"`
	Snapshot engine.Snapshot   `json:"snapshot"`
	Stat     engine.ActionStat `json:"stat"`

	// Statuses and BuffScript only take effect in post-buff mode.
	Statuses   []status.Instance `json:"-"`
	BuffScript string            `json:"buff_script,omitempty"`

	SamplesPath string `json:"samples_path,omitempty"`
}

// Validate checks the fields a verification run depends on.
func (s Scenario) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidScenario)
	}
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	if err := s.Snapshot.Validate(); err != nil {
		return fmt.Errorf("scenario %s: %w", s.ID, err)
	}
	return nil
}

// Buff returns the final damage stage for this scenario, or nil in pre-buff
// mode. Statuses apply first, then the script if one is set.
func (s Scenario) Buff(scriptTimeout time.Duration) (engine.Buff, error) {
	if s.Mode != ModePostBuff {
		return nil, nil
	}

	var stages chain
	if len(s.Statuses) > 0 {
		stages = append(stages, status.Snapshot{Source: s.Statuses})
	}
	if s.BuffScript != "" {
		b, err := scripting.NewBuff(s.BuffScript, scriptTimeout)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		stages = append(stages, b)
	}

	switch len(stages) {
	case 0:
		// Post-buff with nothing active is a no-op stage.
		return nil, nil
	case 1:
		return stages[0], nil
	default:
		return stages, nil
	}
}

type chain []engine.Buff

func (c chain) ModifyDamage(damage uint64, stat engine.ActionStat) (uint64, error) {
	var err error
	for _, b := range c {
		if damage, err = b.ModifyDamage(damage, stat); err != nil {
			return 0, err
		}
	}
	return damage, nil
}

// Resolver produces the damage snapshot an action would take for a stat.
type Resolver interface {
	Resolve(stat engine.ActionStat) (engine.Snapshot, error)
}

// StaticResolver returns the same literal snapshot for every stat.
type StaticResolver struct {
	Snapshot engine.Snapshot
}

func (r StaticResolver) Resolve(engine.ActionStat) (engine.Snapshot, error) {
	return r.Snapshot, nil
}

// New resolves a snapshot for stat and builds a validated scenario around it.
func New(id, name string, mode Mode, r Resolver, stat engine.ActionStat) (Scenario, error) {
	snap, err := r.Resolve(stat)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: resolve snapshot: %w", id, err)
	}
	s := Scenario{ID: id, Name: name, Mode: mode, Snapshot: snap, Stat: stat}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}
