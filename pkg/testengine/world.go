/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine

import (
	"github.com/tickharness/tickharness/pkg/capture"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/types"
)

// Clock is the time of a world.  Every tick lasts the same real time, the
// world sees it scaled by the dilation.
type Clock struct {
	Dilation float32

	paused       bool
	gameTime     types.Seconds
	unpausedTime types.Seconds
}

// Advance moves the clock by one tick of delta real seconds and returns
// the world delta.  Game time stands still while paused, unpaused time does
// not.
func (c *Clock) Advance(delta float32) types.Seconds {
	worldDelta := types.Seconds(delta * c.Dilation)
	c.unpausedTime += worldDelta
	if !c.paused {
		c.gameTime += worldDelta
	}
	return worldDelta
}

func (c *Clock) SetPaused(paused bool) {
	c.paused = paused
}

func (c *Clock) Paused() bool {
	return c.paused
}

func (c *Clock) GameTime() types.Seconds {
	return c.gameTime
}

func (c *Clock) UnpausedTime() types.Seconds {
	return c.unpausedTime
}

// Component is a transform attached to an entity.
type Component struct {
	name       string
	registered bool
	position   recording.Vector
	rotation   recording.Quat
}

func (c *Component) Name() string {
	return c.name
}

func (c *Component) Registered() bool {
	return c.registered
}

func (c *Component) Transform() (recording.Vector, recording.Quat) {
	return c.position, c.rotation
}

func (c *Component) SetTransform(position recording.Vector, rotation recording.Quat) {
	c.position = position
	c.rotation = rotation
}

// Entity moves all its components together.  The first component is its
// root, its transform is the transform of the entity.
type Entity struct {
	name   string
	level  string
	placed bool

	velocity recording.Vector
	spin     recording.Vector
	axis     string
	speed    float32

	root       *Component
	components []recording.Component
}

func newEntity(def EntityDef, level string) *Entity {
	e := &Entity{
		name:     def.Name,
		level:    level,
		placed:   def.Placed,
		velocity: def.Velocity,
		spin:     def.Spin,
		axis:     def.Axis,
		speed:    def.Speed,
	}

	rotation := recording.EulerToQuat(def.Rotation)
	for _, cd := range def.Components {
		c := &Component{
			name:       cd.Name,
			registered: !cd.Unregistered,
			position:   def.Position,
			rotation:   rotation,
		}
		if e.root == nil {
			e.root = c
		}
		e.components = append(e.components, c)
	}

	if e.root == nil {
		e.root = &Component{
			name:       "Root",
			registered: true,
			position:   def.Position,
			rotation:   rotation,
		}
	}

	return e
}

func (e *Entity) Name() string {
	return e.name
}

func (e *Entity) LevelName() string {
	return e.level
}

func (e *Entity) Placed() bool {
	return e.placed
}

func (e *Entity) ComponentsToRecord() []recording.Component {
	return e.components
}

// Position is the position of the root component.
func (e *Entity) Position() recording.Vector {
	return e.root.position
}

func (e *Entity) move(delta float32, axisValue float32) {
	if delta == 0 {
		return
	}

	offset := recording.Vector{
		X: (e.velocity.X + axisValue*e.speed) * delta,
		Y: e.velocity.Y * delta,
		Z: e.velocity.Z * delta,
	}
	turn := recording.Vector{
		X: e.spin.X * delta,
		Y: e.spin.Y * delta,
		Z: e.spin.Z * delta,
	}

	for _, rc := range e.allComponents() {
		c := rc.(*Component)
		c.position = recording.Vector{
			X: c.position.X + offset.X,
			Y: c.position.Y + offset.Y,
			Z: c.position.Z + offset.Z,
		}
		if turn != (recording.Vector{}) {
			euler := recording.QuatToEuler(c.rotation)
			c.rotation = recording.EulerToQuat(recording.Vector{
				X: euler.X + turn.X,
				Y: euler.Y + turn.Y,
				Z: euler.Z + turn.Z,
			})
		}
	}
}

func (e *Entity) allComponents() []recording.Component {
	if len(e.components) == 0 {
		return []recording.Component{e.root}
	}
	return e.components
}

// Input is the player input system.  Observers see every action and axis
// value, scripted or injected, without consuming it.
type Input struct {
	actions []string
	axes    []string

	actionObservers map[string][]func(recording.InputEventKind)
	axisObservers   map[string][]func(float32)

	// Received counts the actions delivered per name.
	received map[string]int
	axis     map[string]float32
}

func newInput(actions, axes []string) *Input {
	return &Input{
		actions:         actions,
		axes:            axes,
		actionObservers: map[string][]func(recording.InputEventKind){},
		axisObservers:   map[string][]func(float32){},
		received:        map[string]int{},
		axis:            map[string]float32{},
	}
}

func (in *Input) ActionMappings() []string {
	return in.actions
}

func (in *Input) AxisMappings() []string {
	return in.axes
}

func (in *Input) ObserveAction(name string, observer func(kind recording.InputEventKind)) {
	in.actionObservers[name] = append(in.actionObservers[name], observer)
}

func (in *Input) ObserveAxis(name string, observer func(value float32)) {
	in.axisObservers[name] = append(in.axisObservers[name], observer)
}

func (in *Input) InjectAction(name string, kind recording.InputEventKind) {
	in.received[name]++
	for _, observer := range in.actionObservers[name] {
		observer(kind)
	}
}

func (in *Input) InjectAxis(name string, value float32) {
	in.axis[name] = value
	for _, observer := range in.axisObservers[name] {
		observer(value)
	}
}

// Received is the number of actions of the given name delivered so far.
func (in *Input) Received(name string) int {
	return in.received[name]
}

// AxisValue is the last value of the given axis.
func (in *Input) AxisValue(name string) float32 {
	return in.axis[name]
}

// World is a loaded scene.
type World struct {
	name     string
	clock    *Clock
	input    *Input
	noPlayer bool
	entities []*Entity
}

var _ capture.World = (*World)(nil)

func newWorld(def *SceneDef) *World {
	w := &World{
		name:     def.Name,
		clock:    &Clock{Dilation: def.Dilation},
		input:    newInput(def.Actions, def.Axes),
		noPlayer: def.NoPlayer,
	}
	for _, ed := range def.Entities {
		w.entities = append(w.entities, newEntity(ed, def.Name))
	}
	return w
}

func (w *World) Name() string {
	return w.name
}

func (w *World) UnpausedTime() types.Seconds {
	return w.clock.UnpausedTime()
}

func (w *World) Entities() []recording.Entity {
	entities := make([]recording.Entity, len(w.entities))
	for i, e := range w.entities {
		entities[i] = e
	}
	return entities
}

func (w *World) PlayerInput() (capture.Input, bool) {
	if w.noPlayer {
		return nil, false
	}
	return w.input, true
}

func (w *World) Clock() *Clock {
	return w.clock
}

func (w *World) Input() *Input {
	return w.input
}

// Entity returns the entity of the given name.
func (w *World) Entity(name string) (*Entity, bool) {
	for _, e := range w.entities {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// step advances the world by one tick of delta real seconds.
func (w *World) step(delta float32) types.Seconds {
	worldDelta := w.clock.Advance(delta)
	if w.clock.Paused() {
		return worldDelta
	}

	for _, e := range w.entities {
		var axisValue float32
		if e.axis != "" {
			axisValue = w.input.AxisValue(e.axis)
		}
		e.move(worldDelta.Float32(), axisValue)
	}
	return worldDelta
}
