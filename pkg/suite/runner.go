/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package suite runs the test units of one scene, one unit and parameter at
// a time, and aggregates their results.
package suite

import (
	"fmt"
	"regexp"
	"time"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/events"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/results"
	"github.com/tickharness/tickharness/pkg/types"
)

// ExpectedErrorsTest names the result reporting unmet expected errors.
const ExpectedErrorsTest = "ExpectedErrors"

type RunnerOpt interface{}

type poolOpt struct{ ParameterPool }

// PoolOpt sets the pool test parameters are resolved through.
func PoolOpt(pool ParameterPool) RunnerOpt {
	return poolOpt{pool}
}

type loggerOpt struct{ logging.Logger }

func LoggerOpt(logger logging.Logger) RunnerOpt {
	return loggerOpt{logger}
}

type clockOpt func() time.Time

// ClockOpt overrides the source of suite timestamps.
func ClockOpt(clock func() time.Time) RunnerOpt {
	return clockOpt(clock)
}

type writersOpt []report.Writer

// WritersOpt replaces the default JUnit report writer.
func WritersOpt(writers ...report.Writer) RunnerOpt {
	return writersOpt(writers)
}

type expectedErrorsOpt []catalog.ExpectedError

// ExpectedErrorsOpt lists log errors the scene must produce.  Their
// occurrences are counted from messages passing through ObserveLog.
func ExpectedErrorsOpt(expected ...catalog.ExpectedError) RunnerOpt {
	return expectedErrorsOpt(expected)
}

type pair struct {
	test  *Test
	param types.ParamID
}

type expectation struct {
	catalog.ExpectedError
	pattern *regexp.Regexp
	err     error
	seen    int
}

// Runner is the suite of one scene.
type Runner struct {
	scene   string
	pool    ParameterPool
	logger  logging.Logger
	clock   func() time.Time
	writers []report.Writer

	tests    []*Test
	expected []*expectation

	pairs        []pair
	next         int
	current      *pair
	elapsed      types.Seconds
	startPending bool
	running      bool

	results  []results.TestResult
	finished events.Signal[results.SuiteResult]
}

func NewRunner(scene string, units []Unit, opts ...RunnerOpt) *Runner {
	r := &Runner{
		scene:   scene,
		logger:  logging.NilLogger,
		clock:   time.Now,
		writers: []report.Writer{&report.JUnitWriter{}},
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case poolOpt:
			r.pool = v.ParameterPool
		case loggerOpt:
			r.logger = logging.OrNil(v.Logger)
		case clockOpt:
			r.clock = v
		case writersOpt:
			r.writers = v
		case expectedErrorsOpt:
			r.ExpectErrors(v...)
		}
	}

	r.logger = logging.Decorate(r.logger, "suite: ", "scene", scene)

	for _, unit := range units {
		test := NewTest(unit, r.pool, r.logger)
		test.OnResult(r.onResult(test))
		r.tests = append(r.tests, test)
	}

	return r
}

func (r *Runner) Scene() string {
	return r.scene
}

func (r *Runner) Tests() []*Test {
	return r.tests
}

// ReportWriters are the writers this suite wants its results written by.
func (r *Runner) ReportWriters() []report.Writer {
	return r.writers
}

// OnFinished registers a listener for the suite result.  Successful and
// failing suites fire the same signal.
func (r *Runner) OnFinished(listener func(results.SuiteResult)) {
	r.finished.Subscribe(listener)
}

func (r *Runner) IsRunning() bool {
	return r.running
}

// ExpectErrors adds log errors the scene must produce.  Messages logged
// before the suite runs are not counted.
func (r *Runner) ExpectErrors(expected ...catalog.ExpectedError) {
	for _, e := range expected {
		pattern, err := regexp.Compile(e.Pattern)
		r.expected = append(r.expected, &expectation{
			ExpectedError: e,
			pattern:       pattern,
			err:           err,
		})
	}
}

// NumPairs returns how many (unit, parameter) pairs RunAll scheduled.
func (r *Runner) NumPairs() int {
	return len(r.pairs)
}

// Results returns the results of the tests finished so far.
func (r *Runner) Results() []results.TestResult {
	return append([]results.TestResult(nil), r.results...)
}

// Current returns the test which is running, its parameter and how long it
// has been running.
func (r *Runner) Current() (*Test, types.ParamID, types.Seconds, bool) {
	if r.current == nil {
		return nil, types.NoParam, 0, false
	}
	return r.current.test, r.current.param, r.elapsed, true
}

// Result returns the suite result once the suite finished.
func (r *Runner) Result() (results.SuiteResult, bool) {
	return r.finished.Fired()
}

// ObserveLog returns a logger which counts messages matching the expected
// errors before passing them on to logger.
func (r *Runner) ObserveLog(logger logging.Logger) logging.Logger {
	return logging.Observe(logger, func(level logging.LogLevel, text string) {
		if !r.running || level < logging.LevelWarn {
			return
		}
		for _, e := range r.expected {
			if e.pattern != nil && e.pattern.MatchString(text) {
				e.seen++
			}
		}
	})
}

func (r *Runner) parameters(unit Unit) []types.ParamID {
	params := append([]types.ParamID(nil), unit.Parameters()...)
	for i, provider := range unit.ParameterProviders() {
		if provider == nil {
			r.logger.Log(logging.LevelError, "invalid parameter provider, skipping", "unit", unit.Name(), "index", i)
			continue
		}
		provided := provider.Parameters()
		params = append(params, provided...)
		r.logger.Log(logging.LevelDebug, "appended provided parameters", "unit", unit.Name(), "count", len(provided), "provider", provider.Name())
	}

	if len(params) == 0 {
		return []types.ParamID{types.NoParam}
	}
	return params
}

// RunAll starts the first test.  Further tests start on the tick after the
// previous one produced its result.  Calling RunAll more than once has no
// effect.
func (r *Runner) RunAll() {
	if r.running || r.pairs != nil {
		return
	}

	r.pairs = []pair{}
	for _, test := range r.tests {
		for _, param := range r.parameters(test.Unit()) {
			r.pairs = append(r.pairs, pair{test: test, param: param})
		}
	}

	r.running = true
	r.logger.Log(logging.LevelInfo, "running tests", "count", len(r.pairs))
	r.startNext()
}

func (r *Runner) startNext() {
	if r.next >= len(r.pairs) {
		r.finish()
		return
	}

	p := r.pairs[r.next]
	r.next++
	r.current = &p
	r.elapsed = 0
	r.logger.Log(logging.LevelDebug, "starting test", "unit", p.test.Unit().Name(), "param", p.param)
	p.test.Run(p.param)
}

// Tick advances the clock of the running test, timing it out once its
// timeout is exceeded, or starts the next test.
func (r *Runner) Tick(delta types.Seconds) {
	if !r.running {
		return
	}

	if r.current != nil {
		r.elapsed += delta
		if r.elapsed > r.current.test.Unit().TimeoutSeconds() {
			r.current.test.Timeout()
		}
		return
	}

	if r.startPending {
		r.startPending = false
		r.startNext()
	}
}

func (r *Runner) onResult(test *Test) func(results.TestResult) {
	return func(result results.TestResult) {
		if !r.running || r.current == nil || r.current.test != test {
			r.logger.Log(logging.LevelWarn, "ignoring result of test which is not running", "test", result.Name())
			return
		}

		result.Duration = r.elapsed
		r.results = append(r.results, result)
		r.current = nil

		r.logger.Log(logging.LevelInfo, "test finished", "test", result.Name(), "outcome", result.Outcome)

		if r.next < len(r.pairs) {
			r.startPending = true
			return
		}

		r.finish()
	}
}

func (r *Runner) finish() {
	r.running = false

	tests := r.results
	for _, e := range r.expected {
		if message, ok := e.unmet(); ok {
			tests = append(tests, results.TestResult{
				Test:    ExpectedErrorsTest,
				Outcome: results.Failed,
				Message: message,
			})
		}
	}

	suite := results.SuiteResult{
		Scene:     r.scene,
		Timestamp: r.clock(),
		Tests:     tests,
	}

	r.logger.Log(logging.LevelInfo, "suite finished", "tests", len(tests), "failed", suite.NumFailed())
	r.finished.Fire(suite)
}

func (e *expectation) unmet() (string, bool) {
	switch {
	case e.err != nil:
		return fmt.Sprintf("invalid expected error pattern %q: %s", e.Pattern, e.err), true
	case e.Occurrences == 0 && e.seen == 0:
		return fmt.Sprintf("expected error %q seen %d times, want at least once", e.Pattern, e.seen), true
	case e.Occurrences > 0 && e.seen != e.Occurrences:
		return fmt.Sprintf("expected error %q seen %d times, want %d", e.Pattern, e.seen, e.Occurrences), true
	}
	return "", false
}
