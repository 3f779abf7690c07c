/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package recording_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/recording"
)

type entity struct {
	name, level string
	placed      bool
}

func (e *entity) Name() string      { return e.name }
func (e *entity) LevelName() string { return e.level }
func (e *entity) Placed() bool      { return e.placed }

type recordableEntity struct {
	entity
	components []recording.Component
}

func (r *recordableEntity) ComponentsToRecord() []recording.Component {
	return r.components
}

var _ = Describe("Rotation", func() {
	table.DescribeTable("converting Euler angles there and back",
		func(euler recording.Vector) {
			back := recording.QuatToEuler(recording.EulerToQuat(euler))
			Expect(back.X).To(BeNumerically("~", euler.X, 0.01))
			Expect(back.Y).To(BeNumerically("~", euler.Y, 0.01))
			Expect(back.Z).To(BeNumerically("~", euler.Z, 0.01))
		},
		table.Entry("identity", recording.Vector{}),
		table.Entry("mixed", recording.Vector{X: 10, Y: 20, Z: 30}),
		table.Entry("large yaw", recording.Vector{X: -45, Y: 60, Z: 170}),
		table.Entry("steep pitch", recording.Vector{X: 30, Y: -80, Z: -120}),
		table.Entry("pole", recording.Vector{Y: 90}),
	)

	It("maps the identity quaternion to zero angles", func() {
		e := recording.QuatToEuler(recording.IdentityQuat)
		Expect(e.X).To(BeNumerically("~", 0, 1e-6))
		Expect(e.Y).To(BeNumerically("~", 0, 1e-6))
		Expect(e.Z).To(BeNumerically("~", 0, 1e-6))
	})

	It("normalizes axes into the half open range", func() {
		Expect(recording.NormalizeAxis(270)).To(BeNumerically("~", -90, 1e-9))
		Expect(recording.NormalizeAxis(-180)).To(BeNumerically("~", 180, 1e-9))
		Expect(recording.NormalizeAxis(540)).To(BeNumerically("~", 180, 1e-9))
		Expect(recording.NormalizeAxis(45)).To(BeNumerically("~", 45, 1e-9))
	})
})

var _ = Describe("Quantize", func() {
	It("rounds to the nearest whole unit", func() {
		v := recording.Vector{X: 1.4, Y: -2.5, Z: 99.6}.Quantize()
		Expect(v).To(Equal(recording.Vector{X: 1, Y: -3, Z: 100}))
	})

	It("stays within half a unit", func() {
		for f := float32(-10); f < 10; f += 0.37 {
			Expect(float32(recording.QuantizeComponent(f))).To(BeNumerically("~", f, 0.5))
		}
	})
})

var _ = Describe("Entities", func() {
	It("qualifies placed actors by their level", func() {
		Expect(recording.ActorIdentity(&entity{name: "Door", level: "Castle", placed: true})).To(Equal("Castle_Door"))
		Expect(recording.ActorIdentity(&entity{name: "Castle_Door", level: "Castle", placed: true})).To(Equal("Castle_Door"))
		Expect(recording.ActorIdentity(&entity{name: "Pawn", level: "Castle"})).To(Equal("Pawn"))
	})

	It("detects the recording capability", func() {
		_, ok := recording.RecordableComponents(&entity{name: "Rock"})
		Expect(ok).To(BeFalse())

		components, ok := recording.RecordableComponents(&recordableEntity{})
		Expect(ok).To(BeTrue())
		Expect(components).To(BeEmpty())
	})

	It("builds save paths below the recorded data folder", func() {
		Expect(recording.SavePath("/data", "Castle", "Pawn")).To(Equal(filepath.Join("/data", "RecordedTestData", "Castle", "Pawn_Recording")))
	})

	It("knows when a stream is empty", func() {
		s := &recording.Stream{}
		Expect(s.Empty()).To(BeTrue())
		s.Axes = append(s.Axes, recording.AxisEvent{Name: []byte("MoveX")})
		Expect(s.Empty()).To(BeFalse())
	})
})
