package reporter_test

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/etpu-project/etpu-go/internal/scenario/engine"
	"github.com/etpu-project/etpu-go/internal/scenario/loader"
	"github.com/etpu-project/etpu-go/internal/scenario/reporter"
)

func result(id string, passed, skipped bool, err error) *engine.Result {
	step := &loader.Step{Action: "read"}
	return &engine.Result{
		Scenario:   &loader.Scenario{ID: id, Name: "scenario " + id},
		Passed:     passed,
		Skipped:    skipped,
		SkipReason: map[bool]string{true: "not wired"}[skipped],
		Error:      err,
		Duration:   20 * time.Millisecond,
		StepResults: []*engine.StepResult{{
			Step:   step,
			Passed: passed,
			Error:  err,
			ExpectResults: map[string]*engine.ExpectResult{
				"data": {Key: "data", Expected: 5, Actual: uint32(5), Passed: passed, Message: "data = 0x5"},
			},
			Output: map[string]any{"data": uint32(5)},
		}},
	}
}

func suite() *engine.SuiteResult {
	return &engine.SuiteResult{
		SuiteName: "smoke",
		Results: []*engine.Result{
			result("S-1", true, false, nil),
			result("S-2", false, false, errors.New("step 1 (read): bus error")),
			result("S-3", false, true, nil),
		},
		PassCount: 1,
		FailCount: 1,
		SkipCount: 1,
		Duration:  time.Second,
	}
}

func TestTextReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewTextReporter(&buf, true).ReportSuite(suite())
	out := buf.String()

	for _, want := range []string{
		"=== Suite: smoke ===",
		"[PASS] S-1 - scenario S-1",
		"[FAIL] S-2",
		"error: step 1 (read): bus error",
		"[SKIP] S-3",
		"skip: not wired",
		"data: data = 0x5",
		"Pass rate: 50.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextReporterQuiet(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewTextReporter(&buf, false).ReportScenario(result("S-1", true, false, nil))
	if strings.Contains(buf.String(), "data =") {
		t.Errorf("non-verbose output shows steps:\n%s", buf.String())
	}
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJSONReporter(&buf, false).ReportSuite(suite())

	var got reporter.JSONSuite
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got.Total != 3 || got.Passed != 1 || got.PassRate != 50 {
		t.Errorf("suite = %+v", got)
	}
	if got.Scenarios[1].Status != "failed" || got.Scenarios[1].Error == "" {
		t.Errorf("failed scenario = %+v", got.Scenarios[1])
	}
	if got.Scenarios[2].SkipReason != "not wired" {
		t.Errorf("skipped scenario = %+v", got.Scenarios[2])
	}
	if !got.Scenarios[0].Steps[0].Expects["data"].Passed {
		t.Error("expectation not carried")
	}
}

func TestJUnitReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter.NewJUnitReporter(&buf).ReportSuite(suite())

	var got struct {
		Tests    int `xml:"tests,attr"`
		Failures int `xml:"failures,attr"`
		Cases    []struct {
			Classname string    `xml:"classname,attr"`
			Failure   *struct{} `xml:"failure"`
			Skipped   *struct{} `xml:"skipped"`
		} `xml:"testcase"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid XML: %v\n%s", err, buf.String())
	}
	if got.Tests != 3 || got.Failures != 1 || len(got.Cases) != 3 {
		t.Fatalf("suite = %+v", got)
	}
	if got.Cases[1].Failure == nil || got.Cases[2].Skipped == nil || got.Cases[0].Failure != nil {
		t.Errorf("cases = %+v", got.Cases)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "json", "junit"} {
		if _, err := reporter.New(format, &bytes.Buffer{}, false); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := reporter.New("yaml", &bytes.Buffer{}, false); err == nil {
		t.Error("expected error for unknown format")
	}
}
