/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package capture records player input and the transforms of recordable
// actors while a scene is running, and persists them for later replay.
package capture

import (
	"math"

	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/codec"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/savestore"
)

// AxisDeadband is the change an axis value needs relative to the last
// recorded value of the same axis before it is recorded again.
const AxisDeadband = 0.1

// Input is the player input system.  Observers must not consume the input
// they are handed, and must be called while the world is paused too.
type Input interface {
	ActionMappings() []string
	AxisMappings() []string
	ObserveAction(name string, observer func(kind recording.InputEventKind))
	ObserveAxis(name string, observer func(value float32))
}

type World interface {
	recording.World

	// PlayerInput returns false when there is no player to record.
	PlayerInput() (Input, bool)
}

type Recorder struct {
	world  World
	store  savestore.Store
	root   string
	logger logging.Logger
	opts   []codec.Opt

	savePath  string
	recording bool
	bound     bool

	stream     recording.Stream
	lastAction map[string]recording.InputEventKind
	lastAxis   map[string]float32
}

func NewRecorder(world World, store savestore.Store, root string, logger logging.Logger, opts ...codec.Opt) *Recorder {
	return &Recorder{
		world:      world,
		store:      store,
		root:       root,
		logger:     logging.OrNil(logger),
		opts:       opts,
		lastAction: map[string]recording.InputEventKind{},
		lastAxis:   map[string]float32{},
	}
}

// Start begins a new recording on behalf of owner.  Anything recorded before
// is discarded.
func (r *Recorder) Start(owner string) {
	r.savePath = recording.SavePath(r.root, r.world.Name(), owner)
	r.stream = recording.Stream{}
	r.lastAction = map[string]recording.InputEventKind{}
	r.lastAxis = map[string]float32{}
	r.bindInput()
	r.recording = true
	r.logger.Log(logging.LevelDebug, "started recording", "owner", owner, "path", r.savePath)
}

func (r *Recorder) bindInput() {
	if r.bound {
		return
	}

	input, ok := r.world.PlayerInput()
	if !ok {
		r.logger.Log(logging.LevelWarn, "found no player input, recording transforms only", "world", r.world.Name())
		return
	}

	for _, name := range input.ActionMappings() {
		name := name
		input.ObserveAction(name, func(kind recording.InputEventKind) {
			r.onAction(name, kind)
		})
	}

	for _, name := range input.AxisMappings() {
		name := name
		input.ObserveAxis(name, func(value float32) {
			r.onAxis(name, value)
		})
	}

	r.bound = true
}

func (r *Recorder) IsRecording() bool {
	return r.recording
}

// SavePath is empty until the first Start.
func (r *Recorder) SavePath() string {
	return r.savePath
}

// Stream returns what was recorded so far.  The result must not be modified.
func (r *Recorder) Stream() *recording.Stream {
	return &r.stream
}

func (r *Recorder) onAction(name string, kind recording.InputEventKind) {
	if !r.recording {
		return
	}

	if last, ok := r.lastAction[name]; ok && last == kind {
		return
	}

	r.lastAction[name] = kind
	r.stream.Actions = append(r.stream.Actions, recording.ActionEvent{
		Name: []byte(name),
		Kind: kind,
		Time: r.world.UnpausedTime(),
	})
}

func (r *Recorder) onAxis(name string, value float32) {
	if !r.recording {
		return
	}

	if last, ok := r.lastAxis[name]; ok && nearlyEqual(last, value) {
		return
	}

	r.lastAxis[name] = value
	r.stream.Axes = append(r.stream.Axes, recording.AxisEvent{
		Name:  []byte(name),
		Value: value,
		Time:  r.world.UnpausedTime(),
	})
}

func nearlyEqual(a, b float32) bool {
	return float32(math.Abs(float64(a-b))) <= AxisDeadband
}

// Tick snapshots the transforms of every registered component of every
// recordable entity.
func (r *Recorder) Tick() {
	if !r.recording {
		return
	}

	now := r.world.UnpausedTime()
	for _, entity := range r.world.Entities() {
		components, ok := recording.RecordableComponents(entity)
		if !ok {
			continue
		}

		var frames []recording.ComponentFrame
		for _, component := range components {
			if !component.Registered() {
				continue
			}

			position, rotation := component.Transform()
			frames = append(frames, recording.ComponentFrame{
				Name:     []byte(component.Name()),
				Position: position,
				Rotation: recording.QuatToEuler(rotation),
			})
		}

		if len(frames) == 0 {
			continue
		}

		r.stream.Actors = append(r.stream.Actors, recording.ActorFrame{
			Actor:      []byte(recording.ActorIdentity(entity)),
			Components: frames,
			Time:       now,
		})
	}
}

// Stop ends the recording without saving it.
func (r *Recorder) Stop() {
	r.recording = false
}

// Save encodes and stores the recording.  It does nothing if no recording
// was ever started.
func (r *Recorder) Save() error {
	if r.savePath == "" {
		return nil
	}

	blob, err := codec.Marshal(&r.stream, r.opts...)
	if err != nil {
		r.logger.Log(logging.LevelError, "failed to save recorded data", "path", r.savePath, "error", err)
		return errors.WithMessage(err, "could not encode recording")
	}

	if err := r.store.Save(r.savePath, blob); err != nil {
		r.logger.Log(logging.LevelError, "failed to save recorded data", "path", r.savePath, "error", err)
		return errors.WithMessagef(err, "could not save recording to %s", r.savePath)
	}

	r.logger.Log(logging.LevelInfo, "recorded data have been saved", "path", r.savePath,
		"actions", len(r.stream.Actions), "axes", len(r.stream.Axes), "frames", len(r.stream.Actors))
	return nil
}

// Close saves a recording which is still running and stops it.
func (r *Recorder) Close() error {
	if !r.recording {
		return nil
	}
	r.recording = false
	return r.Save()
}
