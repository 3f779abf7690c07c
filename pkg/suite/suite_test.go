/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package suite_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/results"
	"github.com/tickharness/tickharness/pkg/suite"
	"github.com/tickharness/tickharness/pkg/types"
)

type scriptedUnit struct {
	suite.BaseUnit

	assume  func(*suite.Test)
	act     func(*suite.Test)
	assert  func(*suite.Test)
	arrange int
	asserts int
}

func (u *scriptedUnit) Assume(t *suite.Test) {
	if u.assume != nil {
		u.assume(t)
	}
}

func (u *scriptedUnit) Arrange(t *suite.Test) {
	u.arrange++
}

func (u *scriptedUnit) Act(t *suite.Test) {
	if u.act != nil {
		u.act(t)
		return
	}
	t.FinishAct()
}

func (u *scriptedUnit) Assert(t *suite.Test) {
	u.asserts++
	if u.assert != nil {
		u.assert(t)
	}
}

func hang(*suite.Test) {}

type provider struct {
	params []types.ParamID
}

func (p *provider) Name() string                { return "provider" }
func (p *provider) Parameters() []types.ParamID { return p.params }

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time {
	return fixedTime
}

func tickUntilDone(r *suite.Runner, delta types.Seconds, max int) int {
	for i := 1; i <= max; i++ {
		r.Tick(delta)
		if !r.IsRunning() {
			return i
		}
	}
	return max
}

var _ = Describe("Test", func() {
	var unit *scriptedUnit

	BeforeEach(func() {
		unit = &scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "Unit"}}
	})

	It("passes when Act finishes and Assert does not object", func() {
		test := suite.NewTest(unit, nil, nil)
		test.Run(types.NoParam)

		result, ok := test.Result()
		Expect(ok).To(BeTrue())
		Expect(result.Outcome).To(Equal(results.Passed))
		Expect(unit.arrange).To(Equal(1))
	})

	It("skips before any phase when a skip reason is set", func() {
		test := suite.NewTest(unit, nil, nil)
		test.SetSkipReason("not on this platform")
		test.Run(types.NoParam)

		result, _ := test.Result()
		Expect(result.Outcome).To(Equal(results.Skipped))
		Expect(result.Message).To(Equal("not on this platform"))
		Expect(unit.arrange).To(Equal(0))
	})

	It("stops after Assume produced a result", func() {
		unit.assume = func(t *suite.Test) { t.Fail("bad assumption") }
		test := suite.NewTest(unit, nil, nil)
		test.Run(types.NoParam)

		result, _ := test.Result()
		Expect(result.Outcome).To(Equal(results.Failed))
		Expect(unit.arrange).To(Equal(0))
		Expect(unit.asserts).To(Equal(0))
	})

	It("fails a timed out test and ignores a late FinishAct", func() {
		unit.act = hang
		buf := &bytes.Buffer{}
		test := suite.NewTest(unit, nil, logging.NewWriterLogger(logging.LevelDebug, buf))

		var seen []results.TestResult
		test.OnResult(func(r results.TestResult) { seen = append(seen, r) })

		test.Run(types.NoParam)
		Expect(test.HasResult()).To(BeFalse())

		test.Timeout()
		test.FinishAct()
		test.Pass()

		Expect(seen).To(HaveLen(1))
		Expect(seen[0].Outcome).To(Equal(results.Failed))
		Expect(seen[0].Message).To(Equal(suite.TimeoutMessage))
		Expect(test.HadTimeout()).To(BeTrue())
		Expect(unit.asserts).To(Equal(1))
		Expect(buf.String()).To(ContainSubstring("already has a result"))
	})

	It("keeps the first outcome when Assert reports several", func() {
		unit.assert = func(t *suite.Test) {
			t.Check(false, "first")
			t.Failf("second %d", 2)
			t.Skip("third")
		}
		test := suite.NewTest(unit, nil, nil)
		test.Run(types.NoParam)

		result, _ := test.Result()
		Expect(result.Outcome).To(Equal(results.Failed))
		Expect(result.Message).To(Equal("first"))
	})

	It("resets the latches for every parameter", func() {
		unit.act = hang
		test := suite.NewTest(unit, suite.MapPool{"a": 1, "b": 2}, nil)

		test.Run("a")
		test.Timeout()
		Expect(test.HadTimeout()).To(BeTrue())

		test.Run("b")
		Expect(test.HasResult()).To(BeFalse())
		Expect(test.HadTimeout()).To(BeFalse())

		value, ok := test.ResolveParameter()
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal(2))

		test.FinishAct()
		result, _ := test.Result()
		Expect(result.Outcome).To(Equal(results.Passed))
		Expect(result.Name()).To(Equal("Unit[b]"))
	})

	It("does not pass when Assert moved on to another parameter", func() {
		var test *suite.Test
		unit.assert = func(t *suite.Test) {
			if t.Parameter() == "a" {
				unit.act = hang
				t.Run("b")
			}
		}
		test = suite.NewTest(unit, nil, nil)
		test.Run("a")
		Expect(test.Parameter()).To(Equal(types.ParamID("b")))
		Expect(test.HasResult()).To(BeFalse())
	})
})

var _ = Describe("Runner", func() {
	var logBuffer *bytes.Buffer

	BeforeEach(func() {
		logBuffer = &bytes.Buffer{}
	})

	newRunner := func(units []suite.Unit, opts ...suite.RunnerOpt) *suite.Runner {
		opts = append(opts, suite.ClockOpt(fixedClock), suite.LoggerOpt(logging.NewWriterLogger(logging.LevelDebug, logBuffer)))
		return suite.NewRunner("Scene", units, opts...)
	}

	It("fails the suite when one of two units times out", func() {
		passing := &scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "Passing"}}
		hanging := &scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "Hanging", Timeout: 2}, act: hang}
		r := newRunner([]suite.Unit{passing, hanging})

		var finished []results.SuiteResult
		r.OnFinished(func(s results.SuiteResult) { finished = append(finished, s) })

		r.RunAll()
		Expect(r.IsRunning()).To(BeTrue())

		tickUntilDone(r, 0.5, 100)
		Expect(finished).To(HaveLen(1))

		result := finished[0]
		Expect(result.Scene).To(Equal("Scene"))
		Expect(result.Timestamp).To(Equal(fixedTime))
		Expect(result.Tests).To(HaveLen(2))
		Expect(result.NumFailed()).To(Equal(1))
		Expect(result.Tests[1].Message).To(Equal(suite.TimeoutMessage))
		Expect(float64(result.Tests[1].Duration)).To(BeNumerically("~", 2.5))
		Expect(results.ExitCode(finished)).To(Equal(1))
	})

	It("starts the next pair on the tick after a result", func() {
		var started []types.ParamID
		unit := &scriptedUnit{
			BaseUnit: suite.BaseUnit{UnitName: "Unit", Params: []types.ParamID{"a", "b"}},
			assume:   func(t *suite.Test) { started = append(started, t.Parameter()) },
		}
		r := newRunner([]suite.Unit{unit})

		r.RunAll()
		Expect(started).To(Equal([]types.ParamID{"a"}))

		r.Tick(0.1)
		Expect(started).To(Equal([]types.ParamID{"a", "b"}))
		Expect(r.IsRunning()).To(BeFalse())

		result, ok := r.Result()
		Expect(ok).To(BeTrue())
		Expect(result.Tests).To(HaveLen(2))
		Expect(result.Successful()).To(BeTrue())
	})

	It("finishes asynchronous units when they call FinishAct", func() {
		var pending *suite.Test
		unit := &scriptedUnit{
			BaseUnit: suite.BaseUnit{UnitName: "Async"},
			act:      func(t *suite.Test) { pending = t },
		}
		r := newRunner([]suite.Unit{unit})
		r.RunAll()

		r.Tick(1)
		r.Tick(1)
		Expect(r.IsRunning()).To(BeTrue())

		pending.FinishAct()
		Expect(r.IsRunning()).To(BeFalse())

		result, _ := r.Result()
		Expect(result.Tests[0].Outcome).To(Equal(results.Passed))
		Expect(float64(result.Tests[0].Duration)).To(BeNumerically("~", 2))
	})

	It("exposes the running test and the results so far", func() {
		first := &scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "First"}}
		second := &scriptedUnit{
			BaseUnit: suite.BaseUnit{UnitName: "Second", Params: []types.ParamID{"x"}},
			act:      hang,
		}
		r := newRunner([]suite.Unit{first, second})

		_, _, _, ok := r.Current()
		Expect(ok).To(BeFalse())

		r.RunAll()
		Expect(r.NumPairs()).To(Equal(2))
		Expect(r.Results()).To(HaveLen(1))
		_, _, _, ok = r.Current()
		Expect(ok).To(BeFalse())

		r.Tick(0.5)
		r.Tick(0.5)
		test, param, elapsed, ok := r.Current()
		Expect(ok).To(BeTrue())
		Expect(test.Unit().Name()).To(Equal("Second"))
		Expect(param).To(Equal(types.ParamID("x")))
		Expect(float64(elapsed)).To(BeNumerically("~", 0.5))
		Expect(r.Results()[0].Test).To(Equal("First"))
	})

	It("appends provider parameters and skips nil providers", func() {
		unit := &scriptedUnit{BaseUnit: suite.BaseUnit{
			UnitName:  "Unit",
			Params:    []types.ParamID{"own"},
			Providers: []suite.ParameterProvider{nil, &provider{params: []types.ParamID{"p1", "p2"}}},
		}}
		r := newRunner([]suite.Unit{unit})
		r.RunAll()
		tickUntilDone(r, 0.1, 10)

		result, _ := r.Result()
		var names []string
		for _, t := range result.Tests {
			names = append(names, t.Name())
		}
		Expect(names).To(Equal([]string{"Unit[own]", "Unit[p1]", "Unit[p2]"}))
		Expect(logBuffer.String()).To(ContainSubstring("invalid parameter provider"))
	})

	It("finishes right away without units", func() {
		r := newRunner(nil)
		r.RunAll()
		result, ok := r.Result()
		Expect(ok).To(BeTrue())
		Expect(result.Tests).To(BeEmpty())
	})

	It("fires its completion signal only once", func() {
		r := newRunner([]suite.Unit{&scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "U"}}})
		count := 0
		r.OnFinished(func(results.SuiteResult) { count++ })
		r.RunAll()
		r.RunAll()
		r.Tick(1)
		Expect(count).To(Equal(1))
	})

	It("uses the JUnit writer by default", func() {
		r := newRunner(nil)
		Expect(r.ReportWriters()).To(HaveLen(1))
		Expect(r.ReportWriters()[0]).To(BeAssignableToTypeOf(&report.JUnitWriter{}))
	})

	Describe("expected errors", func() {
		var (
			unit   *scriptedUnit
			r      *suite.Runner
			logger logging.Logger
		)

		BeforeEach(func() {
			unit = &scriptedUnit{BaseUnit: suite.BaseUnit{UnitName: "Unit"}, act: hang}
			r = newRunner([]suite.Unit{unit}, suite.ExpectedErrorsOpt(
				catalog.ExpectedError{Pattern: "^disk .* full$", Occurrences: 2},
				catalog.ExpectedError{Pattern: "boom"},
			))
			logger = r.ObserveLog(nil)
			r.RunAll()
		})

		It("passes when every pattern was seen as often as wanted", func() {
			logger.Log(logging.LevelError, "disk is full")
			logger.Log(logging.LevelWarn, "disk was full")
			logger.Log(logging.LevelError, "boom")
			logger.Log(logging.LevelInfo, "disk info full")
			r.Tests()[0].FinishAct()

			result, _ := r.Result()
			Expect(result.Tests).To(HaveLen(1))
			Expect(result.Successful()).To(BeTrue())
		})

		It("adds a failure for unmet expectations", func() {
			logger.Log(logging.LevelError, "disk is full")
			r.Tests()[0].FinishAct()

			result, _ := r.Result()
			Expect(result.Tests).To(HaveLen(3))
			Expect(result.Tests[1].Test).To(Equal(suite.ExpectedErrorsTest))
			Expect(result.Tests[1].Message).To(Equal(`expected error "^disk .* full$" seen 1 times, want 2`))
			Expect(result.Tests[2].Message).To(ContainSubstring("want at least once"))
		})

		It("takes expectations added before the suite runs", func() {
			r = newRunner([]suite.Unit{unit})
			logger = r.ObserveLog(nil)
			r.ExpectErrors(catalog.ExpectedError{Pattern: "late"})
			r.RunAll()
			r.Tests()[0].FinishAct()

			result, _ := r.Result()
			Expect(result.Tests).To(HaveLen(2))
			Expect(result.Tests[1].Message).To(Equal(`expected error "late" seen 0 times, want at least once`))
		})
	})
})
