/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package report persists finished suite results in machine readable form.
package report

import (
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/results"
)

// Writer turns the results of a whole run into some durable artifact.
// reportPath is the configured report directory and may be empty.
type Writer interface {
	WriteReport(suites []results.SuiteResult, reportPath string) error
}

// WriterSet is an ordered collection of writers which ignores duplicates.
type WriterSet struct {
	writers []Writer
}

func NewWriterSet(writers ...Writer) *WriterSet {
	ws := &WriterSet{}
	for _, w := range writers {
		ws.Add(w)
	}
	return ws
}

func (ws *WriterSet) Add(w Writer) {
	if w == nil {
		return
	}
	for _, existing := range ws.writers {
		if existing == w {
			return
		}
	}
	ws.writers = append(ws.writers, w)
}

func (ws *WriterSet) Writers() []Writer {
	return ws.writers
}

// WriteAll invokes every writer.  A failing writer is logged and does not
// prevent the remaining writers from running.  The number of failed writers
// is returned.
func (ws *WriterSet) WriteAll(suites []results.SuiteResult, reportPath string, logger logging.Logger) int {
	logger = logging.OrNil(logger)
	failed := 0
	for i, w := range ws.writers {
		if err := w.WriteReport(suites, reportPath); err != nil {
			logger.Log(logging.LevelError, "report writer failed", "writer", i, "error", err)
			failed++
		}
	}
	return failed
}
