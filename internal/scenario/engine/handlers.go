package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/etpu-project/etpu-go/internal/scenario/loader"
	"github.com/etpu-project/etpu-go/pkg/accel"
	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/region"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

// Action names.
const (
	ActionCompose       = "compose"
	ActionWrite         = "write"
	ActionRead          = "read"
	ActionTick          = "tick"
	ActionReset         = "reset"
	ActionSoftReset     = "soft_reset"
	ActionExternalReset = "external_reset"
	ActionRefClock      = "ref_clock"
	ActionStatus        = "status"
	ActionExpectLEDs    = "expect_leds"
	ActionExpectGPIO    = "expect_gpio"
)

// Output keys.
const (
	KeyComposed   = "composed"
	KeyError      = "error"
	KeyStalled    = "stalled"
	KeyData       = "data"
	KeyLEDs       = "leds"
	KeyGPIO       = "gpio"
	KeyHold       = "hold"
	KeyInReset    = "in_reset"
	KeyLocked     = "locked"
	KeyCycle      = "cycle"
	KeyAuxCounter = "aux_counter"
	KeyAuxEnable  = "aux_enable"
	KeyAuxStatus  = "aux_status"
	KeyRegions    = "regions"
)

// Error kinds reported under KeyError.
const (
	ErrorNone                  = "none"
	ErrorBus                   = "bus_error"
	ErrorStalled               = "stalled"
	ErrorNoLock                = "no_lock"
	ErrorAborted               = "aborted"
	ErrorOverlap               = "overlap"
	ErrorUnsatisfiable         = "unsatisfiable_predicate"
	ErrorFrequencyConflict     = "frequency_conflict"
	ErrorUnachievableFrequency = "unachievable_frequency"
	ErrorInvalid               = "invalid"
)

func registerBuiltins(e *Engine) {
	e.RegisterHandler(ActionCompose, handleCompose)
	e.RegisterHandler(ActionWrite, handleWrite)
	e.RegisterHandler(ActionRead, handleRead)
	e.RegisterHandler(ActionTick, handleTick)
	e.RegisterHandler(ActionReset, handleReset)
	e.RegisterHandler(ActionSoftReset, handleSignal(func(s *soc.SoC, v bool) { s.SoftReset(v) }, "asserted"))
	e.RegisterHandler(ActionExternalReset, handleSignal(func(s *soc.SoC, v bool) { s.ExternalReset(v) }, "asserted"))
	e.RegisterHandler(ActionRefClock, handleSignal(func(s *soc.SoC, v bool) { s.SetReference(v) }, "present"))
	e.RegisterHandler(ActionStatus, handleStatus)
	e.RegisterHandler(ActionExpectLEDs, handleStatus)
	e.RegisterHandler(ActionExpectGPIO, handleStatus)
}

// ErrorKind classifies an error for scenario expectations.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, soc.ErrBusError):
		return ErrorBus
	case errors.Is(err, soc.ErrStalled):
		return ErrorStalled
	case errors.Is(err, clock.ErrNoLock):
		return ErrorNoLock
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorAborted
	case errors.Is(err, region.ErrOverlap):
		return ErrorOverlap
	case errors.Is(err, accel.ErrUnsatisfiablePredicate):
		return ErrorUnsatisfiable
	case errors.Is(err, clock.ErrFrequencyConflict):
		return ErrorFrequencyConflict
	case errors.Is(err, clock.ErrUnachievableFrequency):
		return ErrorUnachievableFrequency
	default:
		return ErrorInvalid
	}
}

// expectsFailure reports whether the step checks the error outcome itself.
func expectsFailure(step *loader.Step) bool {
	_, e := step.Expect[KeyError]
	_, s := step.Expect[KeyStalled]
	_, c := step.Expect[KeyComposed]
	return e || s || c
}

// outcome turns err into outputs, or fails the step when the scenario did
// not ask about errors.
func outcome(step *loader.Step, out map[string]any, err error) (map[string]any, error) {
	if err != nil && !expectsFailure(step) {
		return nil, err
	}
	out[KeyError] = ErrorKind(err)
	out[KeyStalled] = errors.Is(err, soc.ErrStalled)
	return out, nil
}

func handleCompose(_ context.Context, step *loader.Step, state *State) (map[string]any, error) {
	if fields, ok := step.Params["soc"].(map[string]any); ok {
		cfg, err := overlay(state.Config, fields)
		if err != nil {
			return outcome(step, map[string]any{KeyComposed: false}, err)
		}
		state.Config = cfg
	}
	state.soc = nil

	s, err := state.SoC()
	if err != nil {
		return outcome(step, map[string]any{KeyComposed: false}, err)
	}
	return outcome(step, map[string]any{
		KeyComposed: true,
		KeyRegions:  s.Regions().Len(),
	}, nil)
}

func handleWrite(ctx context.Context, step *loader.Step, state *State) (map[string]any, error) {
	s, err := state.SoC()
	if err != nil {
		return nil, err
	}
	addr, err := paramUint(step.Params, "addr", -1)
	if err != nil {
		return nil, err
	}
	data, err := paramUint(step.Params, "data", -1)
	if err != nil {
		return nil, err
	}
	sel, err := paramUint(step.Params, "select", int64(bus.SelectAll))
	if err != nil {
		return nil, err
	}
	err = s.Master().WriteMasked(ctx, addr, uint32(data), uint8(sel))
	return outcome(step, map[string]any{}, err)
}

func handleRead(ctx context.Context, step *loader.Step, state *State) (map[string]any, error) {
	s, err := state.SoC()
	if err != nil {
		return nil, err
	}
	addr, err := paramUint(step.Params, "addr", -1)
	if err != nil {
		return nil, err
	}
	data, err := s.Master().Read(ctx, addr)
	return outcome(step, map[string]any{KeyData: data}, err)
}

func handleTick(_ context.Context, step *loader.Step, state *State) (map[string]any, error) {
	s, err := state.SoC()
	if err != nil {
		return nil, err
	}
	n, err := paramUint(step.Params, "cycles", 1)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	s.Master().Do(func(s *soc.SoC) {
		s.Tick(int(n))
		out = statusOutputs(s)
	})
	return out, nil
}

func handleReset(ctx context.Context, step *loader.Step, state *State) (map[string]any, error) {
	s, err := state.SoC()
	if err != nil {
		return nil, err
	}
	n, err := paramUint(step.Params, "cycles", 1)
	if err != nil {
		return nil, err
	}
	err = s.Master().Reset(ctx, int(n))
	var out map[string]any
	s.Master().Do(func(s *soc.SoC) { out = statusOutputs(s) })
	return outcome(step, out, err)
}

func handleSignal(apply func(*soc.SoC, bool), param string) ActionHandler {
	return func(_ context.Context, step *loader.Step, state *State) (map[string]any, error) {
		s, err := state.SoC()
		if err != nil {
			return nil, err
		}
		v, ok := step.Params[param].(bool)
		if !ok {
			return nil, fmt.Errorf("param %q must be a boolean", param)
		}
		var out map[string]any
		s.Master().Do(func(s *soc.SoC) {
			apply(s, v)
			out = statusOutputs(s)
		})
		return out, nil
	}
}

func handleStatus(_ context.Context, _ *loader.Step, state *State) (map[string]any, error) {
	s, err := state.SoC()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	s.Master().Do(func(s *soc.SoC) { out = statusOutputs(s) })
	return out, nil
}

// statusOutputs samples the SoC's pins. The caller holds the master.
func statusOutputs(s *soc.SoC) map[string]any {
	out := map[string]any{
		KeyLEDs:    s.LEDs(),
		KeyGPIO:    s.GPIO(),
		KeyHold:    s.HoldCompanion(),
		KeyInReset: s.InReset(),
		KeyLocked:  s.Locked(),
		KeyCycle:   s.Cycle(),
	}
	if aux, ok := s.AcceleratorAux(); ok {
		out[KeyAuxCounter] = aux.Counter
		out[KeyAuxEnable] = aux.Enable
		out[KeyAuxStatus] = aux.Status
	}
	return out
}

// paramUint reads an unsigned parameter. def < 0 makes it required.
func paramUint(params map[string]any, key string, def int64) (uint64, error) {
	v, ok := params[key]
	if !ok {
		if def < 0 {
			return 0, fmt.Errorf("missing param %q", key)
		}
		return uint64(def), nil
	}
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("param %q must not be negative", key)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("param %q must be a whole number", key)
		}
		return uint64(n), nil
	case string:
		u, err := strconv.ParseUint(n, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("param %q: %w", key, err)
		}
		return u, nil
	default:
		return 0, fmt.Errorf("param %q has unsupported type %T", key, v)
	}
}
