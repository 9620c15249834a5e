package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseScenario(t *testing.T) {
	data := []byte(`
id: T-1
name: write then read
soc:
  default_slave: stall
steps:
  - action: write
    params: {addr: 0x10000000, data: 5}
  - action: read
    params: {addr: 0x10000000}
    expect: {data: 5}
`)
	sc, err := ParseScenario(data)
	if err != nil {
		t.Fatalf("ParseScenario failed: %v", err)
	}
	if sc.ID != "T-1" || len(sc.Steps) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}
	if sc.SoC["default_slave"] != "stall" {
		t.Errorf("soc = %v", sc.SoC)
	}
	if got := sc.Steps[0].Params["addr"]; got != 0x10000000 {
		t.Errorf("addr = %v (%T)", got, got)
	}
	if got := sc.Steps[1].Expect["data"]; got != 5 {
		t.Errorf("expect data = %v", got)
	}
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "id: [unclosed"},
		{"missing id", "steps:\n  - action: tick\n"},
		{"no steps", "id: T-1\n"},
		{"step without action", "id: T-1\nsteps:\n  - params: {cycles: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.data))
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
		})
	}
}

func TestLoadScenarioSetsFileAndDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("id: X\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadScenario(path)
	var le *LoadError
	if !errors.As(err, &le) || le.File != path {
		t.Fatalf("error = %v", err)
	}

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("id: G\nsteps:\n  - action: tick\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(good)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if sc.Dir != dir {
		t.Errorf("Dir = %q, want %q", sc.Dir, dir)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadDirectory(t *testing.T) {
	scenarios, err := LoadDirectory(filepath.Join("..", "testdata"))
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if len(scenarios) != 6 {
		t.Fatalf("loaded %d scenarios, want 6", len(scenarios))
	}
	for i := 1; i < len(scenarios); i++ {
		if scenarios[i-1].ID >= scenarios[i].ID {
			t.Errorf("not sorted: %s before %s", scenarios[i-1].ID, scenarios[i].ID)
		}
	}
	for _, sc := range scenarios {
		if sc.ID == "" {
			t.Error("SoC config file loaded as scenario")
		}
	}
}

func TestFilter(t *testing.T) {
	scenarios := []*Scenario{
		{ID: "a", Tags: []string{"smoke"}},
		{ID: "b", Tags: []string{"clock"}},
		{ID: "c"},
	}
	if got := Filter(scenarios, nil); len(got) != 3 {
		t.Errorf("no tags kept %d", len(got))
	}
	got := Filter(scenarios, []string{"clock", "other"})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("Filter = %+v", got)
	}
}
