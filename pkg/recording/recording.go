/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package recording holds the records produced while capturing player input
// and actor movement, and the world facing interfaces needed to produce and
// apply them.
package recording

import (
	"fmt"
	"path/filepath"
	"strings"

	t "github.com/tickharness/tickharness/pkg/types"
)

// InputEventKind is the edge of an action input.
type InputEventKind uint8

const (
	Pressed InputEventKind = iota
	Released
	Repeat
	DoubleClick
	Axis
)

func (k InputEventKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case Repeat:
		return "repeat"
	case DoubleClick:
		return "double-click"
	case Axis:
		return "axis"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type ActionEvent struct {
	Name []byte
	Kind InputEventKind
	Time t.Seconds
}

type AxisEvent struct {
	Name  []byte
	Value float32
	Time  t.Seconds
}

// ComponentFrame is the transform of one component.  Rotation holds Euler
// angles in degrees as (roll, pitch, yaw).
type ComponentFrame struct {
	Name     []byte
	Position Vector
	Rotation Vector
}

// ActorFrame is the snapshot of all recorded components of an actor in one
// tick.
type ActorFrame struct {
	Actor      []byte
	Components []ComponentFrame
	Time       t.Seconds
}

// Stream is everything captured for one owner.  Each sequence is ordered by
// non-decreasing time.
type Stream struct {
	Actions []ActionEvent
	Axes    []AxisEvent
	Actors  []ActorFrame
}

func (s *Stream) Empty() bool {
	return len(s.Actions) == 0 && len(s.Axes) == 0 && len(s.Actors) == 0
}

// Entity is anything living in the world.
type Entity interface {
	Name() string
	LevelName() string

	// Placed is true for entities that are part of the level itself rather
	// than spawned at runtime.
	Placed() bool
}

// Recordable is implemented by entities whose components take part in
// recording.
type Recordable interface {
	ComponentsToRecord() []Component
}

type Component interface {
	Name() string

	// Registered is false for components that are not part of the running
	// world, their transform is meaningless.
	Registered() bool

	Transform() (Vector, Quat)
	SetTransform(Vector, Quat)
}

// World is what the capture and replay engines see of the running
// simulation.
type World interface {
	Name() string

	// UnpausedTime keeps counting while the world is paused and is affected
	// by time dilation.
	UnpausedTime() t.Seconds

	Entities() []Entity
}

// RecordableComponents returns the components an entity wants recorded.  The
// boolean is false when the entity has no recording capability at all.
func RecordableComponents(e Entity) ([]Component, bool) {
	r, ok := e.(Recordable)
	if !ok {
		return nil, false
	}
	return r.ComponentsToRecord(), true
}

// ActorIdentity is the name a recorded actor is stored under.  Placed actors
// are prefixed with their level so equally named actors in different levels
// stay apart, unless the level is already part of the name.
func ActorIdentity(e Entity) string {
	name := e.Name()
	if !e.Placed() {
		return name
	}
	level := e.LevelName()
	if level == "" || strings.Contains(name, level) {
		return name
	}
	return level + "_" + name
}

// SavePath is where the recording of owner in world lives below root.
func SavePath(root, world, owner string) string {
	return filepath.Join(root, "RecordedTestData", world, owner+"_Recording")
}
