/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package suite

import (
	"github.com/tickharness/tickharness/pkg/types"
)

// DefaultTimeout is the time a unit may spend between Act and FinishAct.
const DefaultTimeout types.Seconds = 30

// Unit is a single test case.  It is driven through its phases once per
// parameter, each phase receiving the Test which tracks the current run.
type Unit interface {
	Name() string

	// Parameters lists the parameters the unit runs with.  A unit without
	// parameters runs exactly once, with NoParam.
	Parameters() []types.ParamID

	// ParameterProviders contribute further parameters, appended after the
	// unit's own.
	ParameterProviders() []ParameterProvider

	TimeoutSeconds() types.Seconds

	// Assume may skip or fail the test before anything happens.
	Assume(test *Test)

	// Arrange runs unless Assume produced a result.
	Arrange(test *Test)

	// Act must eventually call test.FinishAct, right away or on some later
	// tick.  A unit which never does is timed out.
	Act(test *Test)

	// Assert runs once, after Act finished or the timeout hit.  A unit which
	// neither fails nor skips here passes.
	Assert(test *Test)
}

// ParameterProvider contributes parameters to units it is attached to.
type ParameterProvider interface {
	Name() string
	Parameters() []types.ParamID
}

// ParameterPool owns the values behind parameter IDs.
type ParameterPool interface {
	Resolve(id types.ParamID) (interface{}, bool)
}

// MapPool is a ParameterPool backed by a map.
type MapPool map[types.ParamID]interface{}

func (mp MapPool) Resolve(id types.ParamID) (interface{}, bool) {
	v, ok := mp[id]
	return v, ok
}

// BaseUnit implements every phase as a no-op, with Act finishing right
// away.  Units embed it and override what they need.
type BaseUnit struct {
	UnitName  string
	Params    []types.ParamID
	Providers []ParameterProvider
	Timeout   types.Seconds
}

func (bu *BaseUnit) Name() string {
	return bu.UnitName
}

func (bu *BaseUnit) Parameters() []types.ParamID {
	return bu.Params
}

func (bu *BaseUnit) ParameterProviders() []ParameterProvider {
	return bu.Providers
}

func (bu *BaseUnit) TimeoutSeconds() types.Seconds {
	if bu.Timeout <= 0 {
		return DefaultTimeout
	}
	return bu.Timeout
}

func (bu *BaseUnit) Assume(*Test)  {}
func (bu *BaseUnit) Arrange(*Test) {}
func (bu *BaseUnit) Assert(*Test)  {}

func (bu *BaseUnit) Act(test *Test) {
	test.FinishAct()
}
