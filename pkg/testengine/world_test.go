/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/capture"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/testengine"
)

var _ = Describe("Clock", func() {
	It("scales time by the dilation", func() {
		clock := &testengine.Clock{Dilation: 0.5}
		Expect(clock.Advance(0.2)).To(BeNumerically("~", 0.1, 1e-6))
		Expect(clock.GameTime()).To(BeNumerically("~", 0.1, 1e-6))

		clock.SetPaused(true)
		Expect(clock.Paused()).To(BeTrue())
		clock.Advance(0.2)
		Expect(clock.GameTime()).To(BeNumerically("~", 0.1, 1e-6))
		Expect(clock.UnpausedTime()).To(BeNumerically("~", 0.2, 1e-6))
	})
})

var _ = Describe("World", func() {
	var world *testengine.World

	BeforeEach(func() {
		engine := testengine.New(parse(`
startScene: Arena
tickSeconds: 0.5
scenes:
  - name: Arena
    noPlayer: true
    entities:
      - name: Arena_Turret
        placed: true
        spin: {z: 90}
        components:
          - name: Base
          - name: Ghost
            unregistered: true
      - name: Spawned
`))
		var ok bool
		world, ok = engine.World()
		Expect(ok).To(BeTrue())
		engine.Step()
	})

	It("exposes its entities to recording", func() {
		Expect(world.Name()).To(Equal("Arena"))
		entities := world.Entities()
		Expect(entities).To(HaveLen(2))
		Expect(recording.ActorIdentity(entities[0])).To(Equal("Arena_Turret"))

		components, ok := recording.RecordableComponents(entities[0])
		Expect(ok).To(BeTrue())
		Expect(components).To(HaveLen(2))
		Expect(components[0].Registered()).To(BeTrue())
		Expect(components[1].Registered()).To(BeFalse())

		components, ok = recording.RecordableComponents(entities[1])
		Expect(ok).To(BeTrue())
		Expect(components).To(BeEmpty())
	})

	It("turns spinning entities", func() {
		turret, _ := world.Entity("Arena_Turret")
		components := turret.ComponentsToRecord()
		_, rotation := components[0].Transform()
		Expect(recording.QuatToEuler(rotation).Z).To(BeNumerically("~", 45, 1e-3))
	})

	It("teleports components", func() {
		turret, _ := world.Entity("Arena_Turret")
		base := turret.ComponentsToRecord()[0]
		base.SetTransform(recording.Vector{X: 7}, recording.IdentityQuat)
		Expect(turret.Position()).To(Equal(recording.Vector{X: 7}))
	})

	It("has no player input without a player", func() {
		var w capture.World = world
		_, ok := w.PlayerInput()
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Input", func() {
	It("passes input on to every observer", func() {
		engine := testengine.New(parse(`
startScene: Arena
scenes:
  - name: Arena
    actions: [Jump]
    axes: [Turn]
`))
		world, _ := engine.World()
		input, ok := world.PlayerInput()
		Expect(ok).To(BeTrue())
		Expect(input.ActionMappings()).To(Equal([]string{"Jump"}))
		Expect(input.AxisMappings()).To(Equal([]string{"Turn"}))

		var kinds []recording.InputEventKind
		var values []float32
		input.ObserveAction("Jump", func(kind recording.InputEventKind) { kinds = append(kinds, kind) })
		input.ObserveAction("Jump", func(kind recording.InputEventKind) { kinds = append(kinds, kind) })
		input.ObserveAxis("Turn", func(value float32) { values = append(values, value) })

		world.Input().InjectAction("Jump", recording.Released)
		world.Input().InjectAxis("Turn", -1)

		Expect(kinds).To(Equal([]recording.InputEventKind{recording.Released, recording.Released}))
		Expect(values).To(Equal([]float32{-1}))
		Expect(world.Input().Received("Jump")).To(Equal(1))
		Expect(world.Input().AxisValue("Turn")).To(Equal(float32(-1)))
	})
})
