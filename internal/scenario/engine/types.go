// Package engine executes SoC scenarios.
package engine

import (
	"context"
	"time"

	"github.com/etpu-project/etpu-go/internal/scenario/loader"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario    *loader.Scenario
	Passed      bool
	Error       error
	StepResults []*StepResult
	Duration    time.Duration
	StartTime   time.Time
	EndTime     time.Time
	Skipped     bool
	SkipReason  string
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step          *loader.Step
	StepIndex     int
	Passed        bool
	Error         error
	ExpectResults map[string]*ExpectResult
	Duration      time.Duration
	Output        map[string]any
}

// ExpectResult is the result of checking one expectation.
type ExpectResult struct {
	Key      string
	Expected any
	Actual   any
	Passed   bool
	Message  string
}

// SuiteResult is the outcome of a set of scenarios.
type SuiteResult struct {
	SuiteName string
	Results   []*Result
	PassCount int
	FailCount int
	SkipCount int
	Duration  time.Duration
}

// ActionHandler performs a step and returns its outputs.
type ActionHandler func(ctx context.Context, step *loader.Step, state *State) (map[string]any, error)

// ExpectChecker checks one expectation against the step outputs.
type ExpectChecker func(key string, expected any, state *State) *ExpectResult

// State is the per-scenario execution state.
type State struct {
	// Outputs of the most recent step.
	Outputs map[string]any

	// Config the SoC is composed from.
	Config soc.Config

	soc   *soc.SoC
	trace log.Logger
	id    string
}

// SoC returns the composed SoC, composing it from Config on first use.
func (s *State) SoC() (*soc.SoC, error) {
	if s.soc != nil {
		return s.soc, nil
	}
	built, err := soc.Build(s.Config, soc.WithTrace(s.trace), soc.WithSessionID(s.id))
	if err != nil {
		return nil, err
	}
	s.soc = built
	return built, nil
}

// Config configures the engine.
type Config struct {
	// DefaultTimeout bounds a scenario without its own timeout.
	DefaultTimeout time.Duration

	// StopOnFirstFailure stops a suite after the first failed scenario.
	StopOnFirstFailure bool

	// Trace receives the SoC trace of every scenario, stamped with the
	// scenario ID as session.
	Trace log.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 30 * time.Second,
	}
}
