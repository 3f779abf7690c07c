/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine

import (
	"fmt"
	"math"
	"sort"

	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/suite"
	"github.com/tickharness/tickharness/pkg/types"
)

// ScriptedUnit is a test unit whose behavior is described by a UnitDef.
type ScriptedUnit struct {
	suite.BaseUnit

	def   UnitDef
	scene *scene

	run  int
	test *suite.Test
}

func newScriptedUnit(def UnitDef, s *scene) *ScriptedUnit {
	return &ScriptedUnit{
		BaseUnit: suite.BaseUnit{
			UnitName: def.Name,
			Params:   types.ParamIDSlice(def.Parameters),
			Timeout:  types.Seconds(def.Timeout),
		},
		def:   def,
		scene: s,
	}
}

func (su *ScriptedUnit) Def() UnitDef {
	return su.def
}

func (su *ScriptedUnit) Assume(test *suite.Test) {
	if su.def.Behavior == BehaviorSkip {
		test.Skip(su.message("skipped by script"))
	}
}

func (su *ScriptedUnit) Act(test *suite.Test) {
	su.run++
	su.test = test

	if su.def.LogError != "" {
		su.scene.logger.Log(logging.LevelError, su.def.LogError, "unit", su.def.Name)
	}

	switch su.def.Behavior {
	case BehaviorHang:
		return
	case BehaviorReplay:
		su.scene.engine.queue.InsertUnitStep(su, su.run, 1)
		return
	}

	if su.def.AfterTicks > 0 {
		su.scene.engine.queue.InsertUnitStep(su, su.run, su.def.AfterTicks)
		return
	}

	su.finish()
}

// step continues the Act phase of the given run.
func (su *ScriptedUnit) step(run int) {
	if run != su.run || su.test == nil || su.test.HasResult() {
		return
	}

	if su.def.Behavior == BehaviorReplay {
		player := su.scene.player
		if player == nil {
			su.test.Fail("scene has no replay")
			return
		}
		if !player.Done() {
			su.scene.engine.queue.InsertUnitStep(su, su.run, 1)
			return
		}
	}

	su.finish()
}

func (su *ScriptedUnit) finish() {
	if su.def.Behavior == BehaviorFail {
		su.test.Fail(su.message("failed by script"))
		return
	}
	su.test.FinishAct()
}

func (su *ScriptedUnit) Assert(test *suite.Test) {
	world := su.scene.world

	if ep := su.def.ExpectPosition; ep != nil {
		entity, ok := world.Entity(ep.Entity)
		if !test.Check(ok, fmt.Sprintf("entity %q not found", ep.Entity)) {
			return
		}
		tolerance := ep.Tolerance
		if tolerance <= 0 {
			tolerance = 0.5
		}
		got := entity.Position()
		near := math.Abs(float64(got.X-ep.Position.X)) <= float64(tolerance) &&
			math.Abs(float64(got.Y-ep.Position.Y)) <= float64(tolerance) &&
			math.Abs(float64(got.Z-ep.Position.Z)) <= float64(tolerance)
		if !test.Check(near, fmt.Sprintf("entity %q is at %+v, expected %+v", ep.Entity, got, ep.Position)) {
			return
		}
	}

	names := make([]string, 0, len(su.def.ExpectActions))
	for name := range su.def.ExpectActions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want, got := su.def.ExpectActions[name], world.Input().Received(name)
		if !test.Check(got == want, fmt.Sprintf("action %q received %d times, expected %d", name, got, want)) {
			return
		}
	}
}

func (su *ScriptedUnit) message(fallback string) string {
	if su.def.Message != "" {
		return su.def.Message
	}
	return fallback
}
