/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package results holds the outcomes of test runs and their aggregation.
package results

import (
	"fmt"
	"time"

	t "github.com/tickharness/tickharness/pkg/types"
)

// Outcome of a single test.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Skipped
)

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "passed":
		*o = Passed
	case "failed":
		*o = Failed
	case "skipped":
		*o = Skipped
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// TestResult is produced exactly once per test unit and parameter.
type TestResult struct {
	Test      string    `json:"test"`
	Parameter t.ParamID `json:"parameter,omitempty"`
	Outcome   Outcome   `json:"outcome"`

	// Message is the failure message or skip reason.
	Message string `json:"message,omitempty"`

	// Duration is the simulation time between start and result.
	Duration t.Seconds `json:"duration"`
}

// Name returns the test name, qualified by the parameter if there is one.
func (r TestResult) Name() string {
	if r.Parameter.IsNone() {
		return r.Test
	}
	return fmt.Sprintf("%s[%s]", r.Test, r.Parameter)
}

// HasFailed returns true for failed tests, including timeouts.
func (r TestResult) HasFailed() bool {
	return r.Outcome == Failed
}

// WasSkipped returns true for skipped tests.
func (r TestResult) WasSkipped() bool {
	return r.Outcome == Skipped
}

// SuiteResult holds the results of all tests of one scene.
type SuiteResult struct {
	Scene     string       `json:"scene"`
	Timestamp time.Time    `json:"timestamp"`
	Tests     []TestResult `json:"tests"`
}

// NumFailed counts failed tests.
func (s SuiteResult) NumFailed() int {
	n := 0
	for _, r := range s.Tests {
		if r.HasFailed() {
			n++
		}
	}
	return n
}

// NumSkipped counts skipped tests.
func (s SuiteResult) NumSkipped() int {
	n := 0
	for _, r := range s.Tests {
		if r.WasSkipped() {
			n++
		}
	}
	return n
}

// NumPassed counts passed tests.
func (s SuiteResult) NumPassed() int {
	return len(s.Tests) - s.NumFailed() - s.NumSkipped()
}

// Duration sums the durations of all tests.
func (s SuiteResult) Duration() t.Seconds {
	var total t.Seconds
	for _, r := range s.Tests {
		total += r.Duration
	}
	return total
}

// Successful returns true if no test failed.
func (s SuiteResult) Successful() bool {
	return s.NumFailed() == 0
}

// ExitCode is 1 if any suite has a failed test, else 0.
func ExitCode(suites []SuiteResult) int {
	for _, s := range suites {
		if s.NumFailed() > 0 {
			return 1
		}
	}
	return 0
}

// Summary aggregates a run.
type Summary struct {
	Suites, Tests, Failed, Skipped int
}

// Summarize counts the tests of all suites.
func Summarize(suites []SuiteResult) Summary {
	sum := Summary{Suites: len(suites)}
	for _, s := range suites {
		sum.Tests += len(s.Tests)
		sum.Failed += s.NumFailed()
		sum.Skipped += s.NumSkipped()
	}
	return sum
}
