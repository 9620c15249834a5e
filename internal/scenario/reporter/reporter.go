// Package reporter formats scenario results.
package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/etpu-project/etpu-go/internal/scenario/engine"
)

// Reporter writes scenario results.
type Reporter interface {
	ReportSuite(result *engine.SuiteResult)
	ReportScenario(result *engine.Result)
}

// New returns the reporter for a format name: text, json or junit.
func New(format string, w io.Writer, verbose bool) (Reporter, error) {
	switch format {
	case "", "text":
		return NewTextReporter(w, verbose), nil
	case "json":
		return NewJSONReporter(w, verbose), nil
	case "junit":
		return NewJUnitReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func status(r *engine.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}

func passRate(s *engine.SuiteResult) float64 {
	total := s.PassCount + s.FailCount
	if total == 0 {
		return 0
	}
	return float64(s.PassCount) / float64(total) * 100
}

func expectKeys(m map[string]*engine.ExpectResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TextReporter writes human-readable results.
type TextReporter struct {
	w       io.Writer
	verbose bool
}

// NewTextReporter returns a text reporter. Verbose adds per-step detail.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{w: w, verbose: verbose}
}

// ReportSuite writes every scenario followed by a summary.
func (r *TextReporter) ReportSuite(result *engine.SuiteResult) {
	fmt.Fprintf(r.w, "\n=== Suite: %s ===\n\n", result.SuiteName)

	for _, sr := range result.Results {
		r.ReportScenario(sr)
	}

	fmt.Fprintf(r.w, "\n--- Summary ---\n")
	fmt.Fprintf(r.w, "Total:    %d\n", len(result.Results))
	fmt.Fprintf(r.w, "Passed:   %d\n", result.PassCount)
	fmt.Fprintf(r.w, "Failed:   %d\n", result.FailCount)
	fmt.Fprintf(r.w, "Skipped:  %d\n", result.SkipCount)
	if result.PassCount+result.FailCount > 0 {
		fmt.Fprintf(r.w, "Pass rate: %.1f%%\n", passRate(result))
	}
	fmt.Fprintf(r.w, "Duration: %s\n", result.Duration.Round(time.Millisecond))
}

// ReportScenario writes one scenario line, plus its steps when verbose.
func (r *TextReporter) ReportScenario(result *engine.Result) {
	sc := result.Scenario
	tag := map[string]string{"passed": "PASS", "failed": "FAIL", "skipped": "SKIP"}[status(result)]
	fmt.Fprintf(r.w, "[%s] %s - %s (%s)\n", tag, sc.ID, sc.Name, result.Duration.Round(time.Millisecond))

	if result.Skipped {
		fmt.Fprintf(r.w, "       skip: %s\n", result.SkipReason)
		return
	}
	if !result.Passed && result.Error != nil {
		fmt.Fprintf(r.w, "       error: %v\n", result.Error)
	}
	if !r.verbose {
		return
	}

	for _, st := range result.StepResults {
		mark := "ok"
		if !st.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(r.w, "    %2d. %-14s %s\n", st.StepIndex+1, st.Step.Action, mark)
		for _, key := range expectKeys(st.ExpectResults) {
			er := st.ExpectResults[key]
			mark := "ok"
			if !er.Passed {
				mark = "FAIL"
			}
			fmt.Fprintf(r.w, "        %-4s %s: %s\n", mark, key, er.Message)
		}
	}
}

// JSONReporter writes results as JSON documents.
type JSONReporter struct {
	w      io.Writer
	pretty bool
}

// NewJSONReporter returns a JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{w: w, pretty: pretty}
}

// JSONSuite is the JSON form of a suite result.
type JSONSuite struct {
	Suite     string         `json:"suite"`
	Duration  string         `json:"duration"`
	Total     int            `json:"total"`
	Passed    int            `json:"passed"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	PassRate  float64        `json:"pass_rate"`
	Scenarios []JSONScenario `json:"scenarios"`
}

// JSONScenario is the JSON form of a scenario result.
type JSONScenario struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Duration   string     `json:"duration"`
	Error      string     `json:"error,omitempty"`
	SkipReason string     `json:"skip_reason,omitempty"`
	Steps      []JSONStep `json:"steps,omitempty"`
}

// JSONStep is the JSON form of a step result.
type JSONStep struct {
	Index   int                   `json:"index"`
	Action  string                `json:"action"`
	Passed  bool                  `json:"passed"`
	Error   string                `json:"error,omitempty"`
	Expects map[string]JSONExpect `json:"expects,omitempty"`
	Outputs map[string]any        `json:"outputs,omitempty"`
}

// JSONExpect is the JSON form of an expectation result.
type JSONExpect struct {
	Passed   bool   `json:"passed"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Message  string `json:"message"`
}

// ReportSuite writes the suite as one JSON document.
func (r *JSONReporter) ReportSuite(result *engine.SuiteResult) {
	js := JSONSuite{
		Suite:     result.SuiteName,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Total:     len(result.Results),
		Passed:    result.PassCount,
		Failed:    result.FailCount,
		Skipped:   result.SkipCount,
		PassRate:  passRate(result),
		Scenarios: make([]JSONScenario, 0, len(result.Results)),
	}
	for _, sr := range result.Results {
		js.Scenarios = append(js.Scenarios, ToJSON(sr))
	}
	r.write(js)
}

// ReportScenario writes one scenario as a JSON document.
func (r *JSONReporter) ReportScenario(result *engine.Result) {
	r.write(ToJSON(result))
}

// ToJSON converts a scenario result to its JSON form.
func ToJSON(result *engine.Result) JSONScenario {
	js := JSONScenario{
		ID:         result.Scenario.ID,
		Name:       result.Scenario.Name,
		Status:     status(result),
		Duration:   result.Duration.Round(time.Millisecond).String(),
		SkipReason: result.SkipReason,
	}
	if result.Error != nil {
		js.Error = result.Error.Error()
	}

	for _, st := range result.StepResults {
		step := JSONStep{
			Index:   st.StepIndex,
			Action:  st.Step.Action,
			Passed:  st.Passed,
			Outputs: st.Output,
		}
		if st.Error != nil {
			step.Error = st.Error.Error()
		}
		if len(st.ExpectResults) > 0 {
			step.Expects = make(map[string]JSONExpect, len(st.ExpectResults))
			for key, er := range st.ExpectResults {
				step.Expects[key] = JSONExpect{
					Passed:   er.Passed,
					Expected: er.Expected,
					Actual:   er.Actual,
					Message:  er.Message,
				}
			}
		}
		js.Steps = append(js.Steps, step)
	}
	return js
}

func (r *JSONReporter) write(v any) {
	enc := json.NewEncoder(r.w)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(r.w, "{\"error\": %q}\n", err.Error())
	}
}

// JUnitReporter writes JUnit XML for CI systems.
type JUnitReporter struct {
	w io.Writer
}

// NewJUnitReporter returns a JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{w: w}
}

type junitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
	Failure   *junitMessage `xml:"failure,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// ReportSuite writes the suite as a testsuite element.
func (r *JUnitReporter) ReportSuite(result *engine.SuiteResult) {
	suite := junitSuite{
		Name:     result.SuiteName,
		Tests:    len(result.Results),
		Failures: result.FailCount,
		Skipped:  result.SkipCount,
		Time:     seconds(result.Duration),
	}
	for _, sr := range result.Results {
		tc := junitCase{
			Name:      sr.Scenario.Name,
			Classname: sr.Scenario.ID,
			Time:      seconds(sr.Duration),
		}
		switch {
		case sr.Skipped:
			tc.Skipped = &junitMessage{Message: sr.SkipReason}
		case !sr.Passed:
			msg := &junitMessage{Message: "failed"}
			if sr.Error != nil {
				msg.Message = sr.Error.Error()
			}
			for _, st := range sr.StepResults {
				if !st.Passed && st.Error != nil {
					msg.Body += fmt.Sprintf("step %d (%s): %v\n", st.StepIndex+1, st.Step.Action, st.Error)
				}
			}
			tc.Failure = msg
		}
		suite.Cases = append(suite.Cases, tc)
	}

	io.WriteString(r.w, xml.Header)
	enc := xml.NewEncoder(r.w)
	enc.Indent("", "  ")
	if err := enc.Encode(suite); err != nil {
		fmt.Fprintf(r.w, "<!-- %v -->\n", err)
		return
	}
	io.WriteString(r.w, "\n")
}

// ReportScenario writes a single scenario wrapped in its own suite.
func (r *JUnitReporter) ReportScenario(result *engine.Result) {
	suite := &engine.SuiteResult{
		SuiteName: result.Scenario.ID,
		Results:   []*engine.Result{result},
		Duration:  result.Duration,
	}
	switch status(result) {
	case "passed":
		suite.PassCount = 1
	case "skipped":
		suite.SkipCount = 1
	default:
		suite.FailCount = 1
	}
	r.ReportSuite(suite)
}
