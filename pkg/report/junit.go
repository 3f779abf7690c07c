/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/results"
)

// DefaultJUnitFile is the file name used below the report directory.
const DefaultJUnitFile = "junit-report.xml"

// JUnitWriter writes a JUnit style XML document.  When Path is empty the
// document goes to DefaultJUnitFile inside the report directory, and when
// that is empty too nothing is written.
type JUnitWriter struct {
	Path string

	// Name is the name attribute of the testsuites root element.
	Name string
}

func (w *JUnitWriter) target(reportPath string) string {
	if w.Path != "" {
		return w.Path
	}
	if reportPath == "" {
		return ""
	}
	return filepath.Join(reportPath, DefaultJUnitFile)
}

func (w *JUnitWriter) WriteReport(suites []results.SuiteResult, reportPath string) error {
	path := w.target(reportPath)
	if path == "" {
		return nil
	}

	data, err := w.Document(suites).WriteToBytes()
	if err != nil {
		return errors.WithMessage(err, "could not serialize junit document")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithMessagef(err, "could not create report directory for %s", path)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WithMessagef(err, "could not write %s", tmp)
	}

	return errors.WithMessagef(os.Rename(tmp, path), "could not move report into place at %s", path)
}

// Document renders the suites without touching the filesystem.
func (w *JUnitWriter) Document(suites []results.SuiteResult) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("testsuites")
	if w.Name != "" {
		root.CreateAttr("name", w.Name)
	}

	summary := results.Summarize(suites)
	root.CreateAttr("tests", fmt.Sprint(summary.Tests))
	root.CreateAttr("failures", fmt.Sprint(summary.Failed))
	root.CreateAttr("skipped", fmt.Sprint(summary.Skipped))
	var total float32
	for _, suite := range suites {
		total += suite.Duration().Float32()
	}
	root.CreateAttr("time", seconds(total))

	for _, suite := range suites {
		ts := root.CreateElement("testsuite")
		ts.CreateAttr("name", suite.Scene)
		ts.CreateAttr("tests", fmt.Sprint(len(suite.Tests)))
		ts.CreateAttr("failures", fmt.Sprint(suite.NumFailed()))
		ts.CreateAttr("skipped", fmt.Sprint(suite.NumSkipped()))
		ts.CreateAttr("time", seconds(suite.Duration().Float32()))
		if !suite.Timestamp.IsZero() {
			ts.CreateAttr("timestamp", suite.Timestamp.UTC().Format(time.RFC3339))
		}

		for _, test := range suite.Tests {
			tc := ts.CreateElement("testcase")
			tc.CreateAttr("name", test.Name())
			tc.CreateAttr("classname", suite.Scene)
			tc.CreateAttr("time", seconds(test.Duration.Float32()))

			switch test.Outcome {
			case results.Failed:
				failure := tc.CreateElement("failure")
				failure.CreateAttr("message", test.Message)
				failure.SetText(test.Message)
			case results.Skipped:
				tc.CreateElement("skipped").CreateAttr("message", test.Message)
			}
		}
	}

	doc.Indent(2)
	return doc
}

func seconds(s float32) string {
	return fmt.Sprintf("%.3f", s)
}
