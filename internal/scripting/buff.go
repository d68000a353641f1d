package scripting

import (
	"fmt"
	"time"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

// Buff is an engine.Buff backed by a script defining modify(damage, stat).
type Buff struct {
	vm     *VM
	source string
}

// NewBuff compiles source and checks that it defines modify().
func NewBuff(source string, callTimeout time.Duration) (*Buff, error) {
	vm := NewVM(callTimeout)
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	if !vm.HasModifyFunc() {
		return nil, fmt.Errorf("%w: script does not define modify(damage, stat)", ErrBuffScript)
	}
	return &Buff{vm: vm, source: source}, nil
}

// ModifyDamage implements engine.Buff.
func (b *Buff) ModifyDamage(damage uint64, stat engine.ActionStat) (uint64, error) {
	return b.vm.CallModify(damage, stat)
}

// Logs returns whatever the script logged.
func (b *Buff) Logs() []LogEntry {
	return b.vm.GetLogs()
}

// Source returns the script the buff was built from.
func (b *Buff) Source() string {
	return b.source
}
