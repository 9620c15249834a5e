// Package loader reads SoC scenarios from YAML.
package loader

import "fmt"

// Scenario is one scripted run against a freshly composed SoC.
type Scenario struct {
	// ID is the unique scenario identifier (e.g., "SOC-ACC-001").
	ID string `yaml:"id"`

	// Name is a human-readable name.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Config is a SoC config file, relative to the scenario file.
	Config string `yaml:"config,omitempty"`

	// SoC holds inline config fields applied over the defaults, or over
	// Config when both are given.
	SoC map[string]any `yaml:"soc,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Timeout bounds the whole scenario (e.g., "5s").
	Timeout string `yaml:"timeout,omitempty"`

	// Tags for filtering.
	Tags []string `yaml:"tags,omitempty"`

	// Skip disables the scenario.
	Skip bool `yaml:"skip,omitempty"`

	// SkipReason explains Skip.
	SkipReason string `yaml:"skip_reason,omitempty"`

	// Dir is the directory the scenario was loaded from.
	Dir string `yaml:"-"`
}

// Step is a single action and its expected outcome.
type Step struct {
	// Action names the handler (e.g., "write", "read", "tick").
	Action string `yaml:"action"`

	// Params are the action's parameters.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect maps output keys to expected values.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Description explains the step.
	Description string `yaml:"description,omitempty"`
}

// LoadError provides details about a scenario loading error.
type LoadError struct {
	// File is the path that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
