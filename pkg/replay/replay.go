/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package replay plays a capture back into a running world.  Input is
// injected as it was observed and recorded transforms are forced onto the
// matching components.
package replay

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/codec"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/savestore"
)

// Injector feeds synthetic input into the player input system.
type Injector interface {
	InjectAction(name string, kind recording.InputEventKind)
	InjectAxis(name string, value float32)
}

type Player struct {
	world    recording.World
	injector Injector
	store    savestore.Store
	root     string
	logger   logging.Logger

	savePath string
	playing  bool
	stream   recording.Stream

	actionIndex int
	axisIndex   int
	actorIndex  int
}

func NewPlayer(world recording.World, injector Injector, store savestore.Store, root string, logger logging.Logger) *Player {
	return &Player{
		world:    world,
		injector: injector,
		store:    store,
		root:     root,
		logger:   logging.OrNil(logger),
	}
}

// Load reads the recording of owner and starts playing it.  When the
// recording cannot be read the player still plays, with nothing to replay.
func (p *Player) Load(owner string) error {
	p.savePath = recording.SavePath(p.root, p.world.Name(), owner)
	p.stream = recording.Stream{}
	p.actionIndex, p.axisIndex, p.actorIndex = 0, 0, 0
	p.playing = true

	blob, err := p.store.Load(p.savePath)
	if savestore.IsNotFound(err) {
		p.logger.Log(logging.LevelInfo, "no recording to replay", "path", p.savePath)
		return err
	}
	if err != nil {
		p.logger.Log(logging.LevelWarn, "recording could not be loaded", "path", p.savePath, "error", err)
		return err
	}

	stream, err := codec.Unmarshal(blob)
	if err != nil {
		p.logger.Log(logging.LevelWarn, "recording could not be decoded", "path", p.savePath, "error", err)
		return errors.WithMessagef(err, "could not decode %s", p.savePath)
	}

	p.stream = *stream
	p.logger.Log(logging.LevelDebug, "loaded recording", "path", p.savePath,
		"actions", len(p.stream.Actions), "axes", len(p.stream.Axes), "frames", len(p.stream.Actors))
	return nil
}

func (p *Player) IsPlaying() bool {
	return p.playing
}

// Stream returns the loaded recording.  The result must not be modified.
func (p *Player) Stream() *recording.Stream {
	return &p.stream
}

// Done is true once every recorded event was replayed.
func (p *Player) Done() bool {
	return p.actionIndex >= len(p.stream.Actions) &&
		p.axisIndex >= len(p.stream.Axes) &&
		p.actorIndex >= len(p.stream.Actors)
}

// Tick injects at most one due action and one due axis value, then applies
// every due transform frame.
func (p *Player) Tick() {
	if !p.playing {
		return
	}

	now := p.world.UnpausedTime()

	if p.actionIndex < len(p.stream.Actions) {
		next := p.stream.Actions[p.actionIndex]
		if next.Time <= now {
			p.injector.InjectAction(string(next.Name), next.Kind)
			p.actionIndex++
		}
	}

	if p.axisIndex < len(p.stream.Axes) {
		next := p.stream.Axes[p.axisIndex]
		if next.Time <= now {
			p.injector.InjectAxis(string(next.Name), next.Value)
			p.axisIndex++
		}
	}

	for p.actorIndex < len(p.stream.Actors) && p.stream.Actors[p.actorIndex].Time <= now {
		p.apply(&p.stream.Actors[p.actorIndex])
		p.actorIndex++
	}
}

func (p *Player) apply(frame *recording.ActorFrame) {
	for _, entity := range p.world.Entities() {
		components, ok := recording.RecordableComponents(entity)
		if !ok || !bytes.Equal([]byte(recording.ActorIdentity(entity)), frame.Actor) {
			continue
		}

		for _, recorded := range frame.Components {
			for _, component := range components {
				if !component.Registered() || !bytes.Equal([]byte(component.Name()), recorded.Name) {
					continue
				}

				component.SetTransform(recorded.Position, recording.EulerToQuat(recorded.Rotation))
				break
			}
		}
	}
}
