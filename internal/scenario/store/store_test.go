package store

import (
	"errors"
	"testing"
	"time"

	"github.com/etpu-project/etpu-go/internal/scenario/engine"
	"github.com/etpu-project/etpu-go/internal/scenario/loader"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func suite(name string) *engine.SuiteResult {
	pass := &engine.Result{
		Scenario: &loader.Scenario{ID: "S-1", Name: "passes"},
		Passed:   true,
		Duration: 3 * time.Millisecond,
		StepResults: []*engine.StepResult{{
			Step:   &loader.Step{Action: "read"},
			Passed: true,
			Output: map[string]any{"data": uint32(7)},
		}},
	}
	fail := &engine.Result{
		Scenario: &loader.Scenario{ID: "S-2", Name: "fails"},
		Error:    errors.New("step 1 (read): bus error"),
	}
	return &engine.SuiteResult{
		SuiteName: name,
		Results:   []*engine.Result{pass, fail},
		PassCount: 1,
		FailCount: 1,
		Duration:  1500 * time.Millisecond,
	}
}

func TestRecordAndGetRun(t *testing.T) {
	s := openStore(t)

	run, err := s.RecordSuite(suite("smoke"), "soc.yaml")
	if err != nil {
		t.Fatalf("RecordSuite failed: %v", err)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Suite != "smoke" || got.Config != "soc.yaml" {
		t.Errorf("run = %+v", got)
	}
	if got.PassCount != 1 || got.FailCount != 1 || got.TotalCount != 2 {
		t.Errorf("counts = %d/%d/%d", got.PassCount, got.FailCount, got.TotalCount)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got.Duration)
	}
	if d := got.CompletedAt.Sub(got.StartedAt); d != 1500*time.Millisecond {
		t.Errorf("CompletedAt - StartedAt = %v", d)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetRun("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun error = %v, want ErrRunNotFound", err)
	}
}

func TestGetResults(t *testing.T) {
	s := openStore(t)
	run, err := s.RecordSuite(suite("smoke"), "")
	if err != nil {
		t.Fatal(err)
	}

	results, err := s.GetResults(run.ID)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "S-1" || results[0].Status != "passed" {
		t.Errorf("first = %+v", results[0])
	}
	if results[1].Status != "failed" || results[1].Error == "" {
		t.Errorf("second = %+v", results[1])
	}
	if got := results[0].Steps[0].Outputs["data"]; got != float64(7) {
		t.Errorf("output data = %v (%T)", got, got)
	}
}

func TestListRunsAndCount(t *testing.T) {
	s := openStore(t)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := s.RecordSuite(suite(name), ""); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CountRuns()
	if err != nil || n != 3 {
		t.Fatalf("CountRuns = %d, %v", n, err)
	}

	runs, err := s.ListRuns(2, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Suite != "c" {
		t.Errorf("most recent = %q, want c", runs[0].Suite)
	}

	rest, err := s.ListRuns(10, 2)
	if err != nil || len(rest) != 1 || rest[0].Suite != "a" {
		t.Errorf("offset page = %+v, %v", rest, err)
	}
}

func TestFailingScenarios(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 2; i++ {
		if _, err := s.RecordSuite(suite("x"), ""); err != nil {
			t.Fatal(err)
		}
	}

	failing, err := s.FailingScenarios()
	if err != nil {
		t.Fatalf("FailingScenarios failed: %v", err)
	}
	if failing["S-2"] != 2 || failing["S-1"] != 0 {
		t.Errorf("failing = %v", failing)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	s := openStore(t)
	run, err := s.RecordSuite(suite("x"), "")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRun(run.ID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.GetRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run still present: %v", err)
	}
	results, err := s.GetResults(run.ID)
	if err != nil || len(results) != 0 {
		t.Errorf("results after delete = %v, %v", results, err)
	}
	if err := s.DeleteRun(run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second delete = %v", err)
	}
}
