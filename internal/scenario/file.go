package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/status"
)

type fileDoc struct {
	Scenarios []fileScenario `yaml:"scenarios"`
}

type fileScenario struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Mode       string          `yaml:"mode"`
	Stat       string          `yaml:"stat"`
	Snapshot   engine.Snapshot `yaml:"snapshot"`
	Statuses   []fileStatus    `yaml:"statuses"`
	BuffScript string          `yaml:"buff_script"`
	Samples    string          `yaml:"samples"`
}

type fileStatus struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"`
	Out      string `yaml:"out"`
	Stack    uint8  `yaml:"stack"`
	Source   uint32 `yaml:"source"`
}

// Decode parses a scenarios document. Relative sample paths are resolved
// against baseDir.
func Decode(data []byte, baseDir string) ([]Scenario, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if len(doc.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: document lists no scenarios", ErrInvalidScenario)
	}

	out := make([]Scenario, 0, len(doc.Scenarios))
	for i, fs := range doc.Scenarios {
		s, err := fs.toScenario(baseDir)
		if err != nil {
			return nil, fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (fs fileScenario) toScenario(baseDir string) (Scenario, error) {
	mode, err := ParseMode(fs.Mode)
	if err != nil {
		return Scenario{}, err
	}
	stat := engine.AttackPower
	if fs.Stat != "" {
		if stat, err = engine.ParseActionStat(fs.Stat); err != nil {
			return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	}

	s, err := New(fs.ID, fs.Name, mode, StaticResolver{Snapshot: fs.Snapshot}, stat)
	if err != nil {
		return Scenario{}, err
	}
	s.BuffScript = fs.BuffScript
	if fs.Samples != "" {
		s.SamplesPath = fs.Samples
		if !filepath.IsAbs(s.SamplesPath) {
			s.SamplesPath = filepath.Join(baseDir, s.SamplesPath)
		}
	}

	for _, st := range fs.Statuses {
		inst, err := st.toInstance()
		if err != nil {
			return Scenario{}, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		s.Statuses = append(s.Statuses, inst)
	}

	// Compile the script now so a broken one fails at load, not mid-run.
	if _, err := s.Buff(0); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (st fileStatus) toInstance() (status.Instance, error) {
	num, den, err := status.ParseRatio(st.Out)
	if err != nil {
		return status.Instance{}, fmt.Errorf("status %q: %w", st.Name, err)
	}
	var dur time.Duration
	if st.Duration != "" {
		if dur, err = time.ParseDuration(st.Duration); err != nil {
			return status.Instance{}, fmt.Errorf("%w: status %q duration: %v", ErrInvalidScenario, st.Name, err)
		}
	}
	stack := st.Stack
	if stack == 0 {
		stack = 1
	}
	return status.Instance{
		Effect: status.Effect{Name: st.Name, Duration: dur, OutNum: num, OutDen: den},
		Source: status.ActorID(st.Source),
		Stack:  stack,
	}, nil
}

// LoadFile decodes a scenarios file and registers every scenario in it,
// replacing built-ins with the same id.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}
	scenarios, err := Decode(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scenarios %s: %w", path, err)
	}
	for _, s := range scenarios {
		if err := Register(s); err != nil {
			return nil, err
		}
	}
	return scenarios, nil
}
