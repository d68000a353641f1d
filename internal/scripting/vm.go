// Package scripting evaluates user-supplied damage buff functions in a sandboxed JS runtime.
package scripting

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/dot-verify-go/internal/engine"
)

var ErrBuffScript = errors.New("buff script error")

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and global function injection.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	callTimeout time.Duration
}

const (
	scriptInitTimeout  = 2 * time.Second
	defaultCallTimeout = 1 * time.Second

	modifyFuncName = "modify"
)

// NewVM creates a sandboxed goja runtime with global functions injected.
// A non-positive callTimeout falls back to one second.
func NewVM(callTimeout time.Duration) *VM {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		callTimeout: callTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// injectConstants exposes stat tags and fixed-point scales to scripts.
func injectConstants(rt *goja.Runtime) {
	rt.Set("ATTACK_POWER", engine.AttackPower.String())
	rt.Set("MAGIC_ATTACK_POWER", engine.MagicAttackPower.String())
	rt.Set("HEALING_MAGIC_POTENCY", engine.HealingMagicPotency.String())

	rt.Set("ROLL_MIN", engine.RollMin)
	rt.Set("ROLL_MAX", engine.RollMax)
	rt.Set("PERCENT_SCALE", engine.PercentScale)
}

// injectGlobalFunctions registers log and console.log and removes escape hatches.
func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// Math is already available in goja by default.
	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Execute runs script source once so it can define modify().
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(scriptInitTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("%w: execution: %v", ErrBuffScript, err)
		}
		return nil
	})
}

// HasModifyFunc reports whether the script defined modify().
func (vm *VM) HasModifyFunc() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := goja.AssertFunction(vm.runtime.Get(modifyFuncName))
	return ok
}

// CallModify calls modify(damage, stat) and returns its result as a damage value.
func (vm *VM) CallModify(damage uint64, stat engine.ActionStat) (uint64, error) {
	var out uint64
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		fn := vm.runtime.Get(modifyFuncName)
		if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
			return fmt.Errorf("%w: modify() is not defined", ErrBuffScript)
		}
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			return fmt.Errorf("%w: modify is not a function", ErrBuffScript)
		}

		result, err := callable(goja.Undefined(), vm.runtime.ToValue(damage), vm.runtime.ToValue(stat.String()))
		if err != nil {
			return fmt.Errorf("%w: modify(%d): %v", ErrBuffScript, damage, err)
		}
		v, err := toDamage(result)
		if err != nil {
			return fmt.Errorf("%w: modify(%d): %v", ErrBuffScript, damage, err)
		}
		out = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

func toDamage(v goja.Value) (uint64, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, errors.New("returned no value")
	}
	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("returned %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("returned negative damage %v", f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("returned non-integer damage %v", f)
	}
	if f > 1<<53 {
		return 0, fmt.Errorf("returned damage %v beyond exact integer range", f)
	}
	return uint64(f), nil
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		// Interrupt a runaway script execution.
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			vm.runtime.ClearInterrupt()
			if err != nil {
				return fmt.Errorf("%w: timed out: %v", ErrBuffScript, err)
			}
			return fmt.Errorf("%w: timed out", ErrBuffScript)
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("%w: timed out", ErrBuffScript)
		}
	}
}
