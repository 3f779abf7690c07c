/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status is a point in time snapshot of a run, for humans when a
// run hangs and for tools as JSON.
package status

import (
	"bytes"
	"fmt"

	"github.com/tickharness/tickharness/pkg/results"
	"github.com/tickharness/tickharness/pkg/types"
)

type Run struct {
	Tick   int64  `json:"tick"`
	State  string `json:"state"`
	Cursor int    `json:"cursor"`
	Scenes int    `json:"scenes"`

	Loaded  string `json:"loaded,omitempty"`
	Loading string `json:"loading,omitempty"`

	PendingEvents int `json:"pending_events"`

	Finished []results.SuiteResult `json:"finished"`
	Running  *Suite                `json:"running,omitempty"`
}

// Suite is the suite of the loaded scene, while it runs.
type Suite struct {
	Scene string               `json:"scene"`
	Done  []results.TestResult `json:"done"`
	Total int                  `json:"total"`

	Test    string        `json:"test,omitempty"`
	Param   types.ParamID `json:"param,omitempty"`
	Elapsed types.Seconds `json:"elapsed"`
	Timeout types.Seconds `json:"timeout"`
}

func cell(outcome results.Outcome) string {
	switch outcome {
	case results.Passed:
		return "|P"
	case results.Failed:
		return "|F"
	case results.Skipped:
		return "|S"
	default:
		return "| "
	}
}

func row(buffer *bytes.Buffer, tests []results.TestResult, width int) {
	for _, test := range tests {
		buffer.WriteString(cell(test.Outcome))
	}
	for i := len(tests); i < width; i++ {
		buffer.WriteString("| ")
	}
}

// Pretty renders one row per suite, one cell per test: P passed, F failed,
// S skipped, R running.
func (r *Run) Pretty() string {
	var buffer bytes.Buffer
	buffer.WriteString("===========================================\n")
	buffer.WriteString(fmt.Sprintf("Tick=%d, State=%s, Scene=%d/%d\n", r.Tick, r.State, r.Cursor+1, r.Scenes))
	buffer.WriteString("===========================================\n\n")

	switch {
	case r.Loading != "":
		buffer.WriteString(fmt.Sprintf("Loading %s, %d pending events\n\n", r.Loading, r.PendingEvents))
	case r.Loaded != "":
		buffer.WriteString(fmt.Sprintf("Loaded %s, %d pending events\n\n", r.Loaded, r.PendingEvents))
	}

	width := 0
	for _, s := range r.Finished {
		if len(s.Tests) > width {
			width = len(s.Tests)
		}
	}
	if r.Running != nil && r.Running.Total > width {
		width = r.Running.Total
	}

	buffer.WriteString("=== Suites ===\n")
	if len(r.Finished) == 0 && r.Running == nil {
		buffer.WriteString("None yet\n")
	}
	for _, s := range r.Finished {
		row(&buffer, s.Tests, width)
		buffer.WriteString(fmt.Sprintf("| %s (%d failed)\n", s.Scene, s.NumFailed()))
	}

	if rs := r.Running; rs != nil {
		for _, test := range rs.Done {
			buffer.WriteString(cell(test.Outcome))
		}
		cells := len(rs.Done)
		if rs.Test != "" {
			buffer.WriteString("|R")
			cells++
		}
		for ; cells < width; cells++ {
			buffer.WriteString("| ")
		}
		buffer.WriteString(fmt.Sprintf("| %s (running)\n", rs.Scene))

		if rs.Test != "" {
			name := results.TestResult{Test: rs.Test, Parameter: rs.Param}.Name()
			buffer.WriteString(fmt.Sprintf("\nRunning %s for %.3fs of %.3fs\n", name, rs.Elapsed.Float32(), rs.Timeout.Float32()))
		}
	}

	return buffer.String()
}
