package scenario

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/status"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Scenario)
)

// PowerSurge is the outgoing damage buff active in the built-in post-buff scenario.
var PowerSurge = status.Effect{
	Name:     "Power Surge",
	Duration: 30 * time.Second,
	OutNum:   110,
	OutDen:   100,
}

// DefaultSnapshot is the snapshot the built-in scenarios verify against.
var DefaultSnapshot = engine.Snapshot{Base: 4500, CritChance: 400, CritDamage: 1600, DHitChance: 200}

// Register adds or replaces a scenario.
func Register(s Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.ID] = s
	return nil
}

// Get retrieves a scenario by id.
func Get(id string) (Scenario, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[id]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	return s, nil
}

// List returns all registered scenarios ordered by id.
func List() []Scenario {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func init() {
	r := StaticResolver{Snapshot: DefaultSnapshot}

	pre, err := New("prebuff", "Snapshot without buffs", ModePreBuff, r, engine.AttackPower)
	if err != nil {
		panic(err)
	}
	post, err := New("postbuff", "Snapshot with Power Surge", ModePostBuff, r, engine.AttackPower)
	if err != nil {
		panic(err)
	}
	post.Statuses = []status.Instance{{Effect: PowerSurge, Stack: 1}}

	registry[pre.ID] = pre
	registry[post.ID] = post
}
