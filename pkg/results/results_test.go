/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package results_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/results"
)

var _ = Describe("SuiteResult", func() {
	suite := results.SuiteResult{
		Scene: "Smoke",
		Tests: []results.TestResult{
			{Test: "Jump", Outcome: results.Passed, Duration: 1},
			{Test: "Run", Parameter: "fast", Outcome: results.Failed, Message: "too slow", Duration: 2},
			{Test: "Swim", Outcome: results.Skipped, Message: "no water"},
		},
	}

	It("counts outcomes", func() {
		Expect(suite.NumFailed()).To(Equal(1))
		Expect(suite.NumSkipped()).To(Equal(1))
		Expect(suite.NumPassed()).To(Equal(1))
		Expect(suite.Successful()).To(BeFalse())
		Expect(float64(suite.Duration())).To(BeNumerically("~", 3))
	})

	It("qualifies names by parameter", func() {
		Expect(suite.Tests[0].Name()).To(Equal("Jump"))
		Expect(suite.Tests[1].Name()).To(Equal("Run[fast]"))
	})

	It("derives the process exit code from all suites", func() {
		passing := results.SuiteResult{Scene: "Ok", Tests: []results.TestResult{{Test: "A"}}}
		Expect(results.ExitCode(nil)).To(Equal(0))
		Expect(results.ExitCode([]results.SuiteResult{passing})).To(Equal(0))
		Expect(results.ExitCode([]results.SuiteResult{passing, suite})).To(Equal(1))
	})

	It("summarizes a run", func() {
		Expect(results.Summarize([]results.SuiteResult{suite, suite})).To(Equal(results.Summary{
			Suites: 2, Tests: 6, Failed: 2, Skipped: 2,
		}))
	})
})

var _ = Describe("Outcome", func() {
	It("round trips through its text form", func() {
		for _, o := range []results.Outcome{results.Passed, results.Failed, results.Skipped} {
			text, err := o.MarshalText()
			Expect(err).NotTo(HaveOccurred())

			var decoded results.Outcome
			Expect(decoded.UnmarshalText(text)).To(Succeed())
			Expect(decoded).To(Equal(o))
		}
	})

	It("rejects unknown names", func() {
		var decoded results.Outcome
		Expect(decoded.UnmarshalText([]byte("flaky"))).To(MatchError(`unknown outcome "flaky"`))
	})
})
