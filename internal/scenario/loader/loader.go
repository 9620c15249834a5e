package loader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseScenario parses a scenario from YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	if sc.ID == "" {
		return nil, &LoadError{Message: "scenario ID is required"}
	}
	if len(sc.Steps) == 0 {
		return nil, &LoadError{Message: "scenario must have at least one step"}
	}
	for i, st := range sc.Steps {
		if st.Action == "" {
			return nil, &LoadError{Message: "step " + strconv.Itoa(i+1) + " has no action"}
		}
	}
	return &sc, nil
}

// LoadScenario loads a scenario from a file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	sc, err := ParseScenario(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	sc.Dir = filepath.Dir(path)
	return sc, nil
}

// LoadDirectory loads every .yaml or .yml scenario in dir, sorted by ID.
// SoC config files referenced by scenarios may live in the same directory;
// files without an id and steps are skipped as non-scenarios.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if !isScenario(path) {
			continue
		}
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}

	sort.Slice(scenarios, func(i, j int) bool { return scenarios[i].ID < scenarios[j].ID })
	return scenarios, nil
}

// isScenario reports whether the file has the top-level keys of a scenario.
func isScenario(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return true // let LoadScenario report it
	}
	var probe struct {
		ID    string `yaml:"id"`
		Steps []any  `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return true
	}
	return probe.ID != "" || probe.Steps != nil
}

// Filter returns the scenarios carrying any of the tags. No tags keeps all.
func Filter(scenarios []*Scenario, tags []string) []*Scenario {
	if len(tags) == 0 {
		return scenarios
	}
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*Scenario
	for _, sc := range scenarios {
		for _, t := range sc.Tags {
			if want[t] {
				out = append(out, sc)
				break
			}
		}
	}
	return out
}
