package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/etpu-project/etpu-go/internal/scenario/loader"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

// Engine executes scenarios.
type Engine struct {
	config   *Config
	handlers map[string]ActionHandler
	checkers map[string]ExpectChecker
	mu       sync.RWMutex
}

// New returns an engine with the default configuration.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig returns an engine with the built-in actions registered.
func NewWithConfig(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{
		config:   config,
		handlers: make(map[string]ActionHandler),
		checkers: make(map[string]ExpectChecker),
	}
	e.RegisterChecker(CheckerNameDefault, defaultChecker)
	registerBuiltins(e)
	return e
}

// RegisterHandler registers an action handler.
func (e *Engine) RegisterHandler(action string, handler ActionHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = handler
}

// RegisterChecker registers an expectation checker for a key.
func (e *Engine) RegisterChecker(key string, checker ExpectChecker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkers[key] = checker
}

// Actions returns the registered action names in sorted order.
func (e *Engine) Actions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.handlers))
	for n := range e.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes one scenario against a freshly composed SoC.
func (e *Engine) Run(ctx context.Context, sc *loader.Scenario) *Result {
	result := &Result{Scenario: sc, StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	if sc.Skip {
		result.Skipped = true
		result.SkipReason = sc.SkipReason
		if result.SkipReason == "" {
			result.SkipReason = "skipped by scenario definition"
		}
		return result
	}

	timeout := e.config.DefaultTimeout
	if sc.Timeout != "" {
		if d, err := time.ParseDuration(sc.Timeout); err == nil {
			timeout = d
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg, err := scenarioConfig(sc)
	if err != nil {
		result.Error = fmt.Errorf("config: %w", err)
		return result
	}
	state := &State{
		Outputs: make(map[string]any),
		Config:  cfg,
		trace:   log.OrNoop(e.config.Trace),
		id:      sc.ID,
	}

	result.Passed = true
	for i := range sc.Steps {
		sr := e.executeStep(runCtx, &sc.Steps[i], i, state)
		result.StepResults = append(result.StepResults, sr)
		if !sr.Passed {
			result.Passed = false
			result.Error = sr.Error
			break
		}
	}
	return result
}

// RunSuite executes scenarios in order.
func (e *Engine) RunSuite(ctx context.Context, name string, scenarios []*loader.Scenario) *SuiteResult {
	start := time.Now()
	suite := &SuiteResult{SuiteName: name}

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		r := e.Run(ctx, sc)
		suite.Results = append(suite.Results, r)
		switch {
		case r.Skipped:
			suite.SkipCount++
		case r.Passed:
			suite.PassCount++
		default:
			suite.FailCount++
		}
		if !r.Passed && !r.Skipped && e.config.StopOnFirstFailure {
			break
		}
	}

	suite.Duration = time.Since(start)
	return suite
}

func (e *Engine) executeStep(ctx context.Context, step *loader.Step, index int, state *State) *StepResult {
	result := &StepResult{
		Step:          step,
		StepIndex:     index,
		ExpectResults: make(map[string]*ExpectResult),
		Output:        make(map[string]any),
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	e.mu.RLock()
	handler, exists := e.handlers[step.Action]
	e.mu.RUnlock()
	if !exists {
		result.Error = fmt.Errorf("unknown action: %s", step.Action)
		return result
	}

	outputs, err := handler(ctx, step, state)
	if err != nil {
		result.Error = fmt.Errorf("step %d (%s): %w", index+1, step.Action, err)
		return result
	}

	state.Outputs = make(map[string]any, len(outputs))
	for k, v := range outputs {
		state.Outputs[k] = v
		result.Output[k] = v
	}

	result.Passed = true
	for _, key := range sortedKeys(step.Expect) {
		er := e.checkExpectation(key, step.Expect[key], state)
		result.ExpectResults[key] = er
		if !er.Passed && result.Passed {
			result.Passed = false
			result.Error = fmt.Errorf("step %d (%s): expectation failed: %s - %s", index+1, step.Action, key, er.Message)
		}
	}
	return result
}

func (e *Engine) checkExpectation(key string, expected any, state *State) *ExpectResult {
	e.mu.RLock()
	checker, exists := e.checkers[key]
	if !exists {
		checker = e.checkers[CheckerNameDefault]
	}
	e.mu.RUnlock()
	return checker(key, expected, state)
}

// scenarioConfig resolves the SoC config: defaults, then the config file,
// then the inline soc fields.
func scenarioConfig(sc *loader.Scenario) (soc.Config, error) {
	cfg := soc.DefaultConfig()
	if sc.Config != "" {
		path := sc.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(sc.Dir, path)
		}
		loaded, err := soc.LoadConfig(path)
		if err != nil {
			return soc.Config{}, err
		}
		cfg = loaded
	}
	return overlay(cfg, sc.SoC)
}

func overlay(cfg soc.Config, fields map[string]any) (soc.Config, error) {
	if len(fields) == 0 {
		return cfg, nil
	}
	data, err := yaml.Marshal(fields)
	if err != nil {
		return soc.Config{}, err
	}
	return cfg.Overlay(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
