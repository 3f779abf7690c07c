/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package suite

import (
	"fmt"

	"github.com/tickharness/tickharness/pkg/events"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/results"
	"github.com/tickharness/tickharness/pkg/types"
)

// TimeoutMessage is the failure message of a test which did not finish its
// Act phase in time.
const TimeoutMessage = "The test had a timeout."

// Test drives one unit through its phases, one parameter at a time.  Every
// run produces exactly one result: the first of Pass, Fail or Skip wins, and
// later calls are ignored.
type Test struct {
	unit   Unit
	pool   ParameterPool
	logger logging.Logger

	param      types.ParamID
	hadTimeout bool
	skipReason string

	// result is replaced on every run, it latches the first outcome.
	result    *events.Signal[results.TestResult]
	listeners []func(results.TestResult)
}

func NewTest(unit Unit, pool ParameterPool, logger logging.Logger) *Test {
	return &Test{
		unit:   unit,
		pool:   pool,
		logger: logging.Decorate(logger, "test: ", "unit", unit.Name()),
		result: &events.Signal[results.TestResult]{},
	}
}

func (t *Test) Unit() Unit {
	return t.unit
}

// OnResult registers a listener for the results of all future runs.
func (t *Test) OnResult(listener func(results.TestResult)) {
	t.listeners = append(t.listeners, listener)
}

func (t *Test) broadcast(r results.TestResult) {
	for _, l := range t.listeners {
		l(r)
	}
}

// Parameter is the ID of the parameter of the current run.
func (t *Test) Parameter() types.ParamID {
	return t.param
}

// ResolveParameter looks the current parameter up in the pool.  It returns
// false for NoParam, without a pool, or when the pool no longer has it.
func (t *Test) ResolveParameter() (interface{}, bool) {
	if t.param.IsNone() || t.pool == nil {
		return nil, false
	}
	return t.pool.Resolve(t.param)
}

func (t *Test) HasResult() bool {
	_, fired := t.result.Fired()
	return fired
}

// Result returns the result of the current run, if there is one yet.
func (t *Test) Result() (results.TestResult, bool) {
	return t.result.Fired()
}

func (t *Test) HadTimeout() bool {
	return t.hadTimeout
}

// SetSkipReason marks the unit as skipped for all runs from now on.
func (t *Test) SetSkipReason(reason string) {
	t.skipReason = reason
}

// Run starts a run with param.  It returns once Act returned, which is not
// necessarily when the run has a result.
func (t *Test) Run(param types.ParamID) {
	t.param = param
	t.hadTimeout = false
	t.result = &events.Signal[results.TestResult]{}
	t.result.Subscribe(t.broadcast)

	if t.skipReason != "" {
		t.Skip(t.skipReason)
		return
	}

	t.unit.Assume(t)
	if t.HasResult() {
		return
	}

	t.unit.Arrange(t)
	t.unit.Act(t)
}

// FinishAct ends the Act phase and runs Assert.  The test passes unless
// Assert produced a result or started a run with another parameter.
func (t *Test) FinishAct() {
	if t.HasResult() {
		t.logger.Log(logging.LevelWarn, "test already has a result, this can happen after a timeout due to delays, otherwise FinishAct was called more than once",
			"param", t.param)
		return
	}

	active := t.param

	if t.hadTimeout {
		t.Fail(TimeoutMessage)
	}
	t.unit.Assert(t)

	if !t.HasResult() && active == t.param {
		t.Pass()
	}
}

// Timeout forces the Act phase to end, failing the run.
func (t *Test) Timeout() {
	t.logger.Log(logging.LevelWarn, "timed out", "after", t.unit.TimeoutSeconds())
	t.hadTimeout = true
	t.FinishAct()
}

func (t *Test) conclude(outcome results.Outcome, message string) bool {
	return t.result.Fire(results.TestResult{
		Test:      t.unit.Name(),
		Parameter: t.param,
		Outcome:   outcome,
		Message:   message,
	})
}

func (t *Test) Pass() {
	t.conclude(results.Passed, "")
}

func (t *Test) Fail(message string) {
	if t.conclude(results.Failed, message) {
		t.logger.Log(logging.LevelError, message, "param", t.param)
	}
}

func (t *Test) Failf(format string, args ...interface{}) {
	t.Fail(fmt.Sprintf(format, args...))
}

func (t *Test) Skip(reason string) {
	t.conclude(results.Skipped, reason)
}

// Check fails the run with message unless cond holds.
func (t *Test) Check(cond bool, message string) bool {
	if !cond {
		t.Fail(message)
	}
	return cond
}
