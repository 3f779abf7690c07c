/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine

import (
	"bytes"
	"container/list"
	"fmt"
	"math/rand"

	"github.com/tickharness/tickharness/pkg/recording"
)

// Event is something the engine does at a given tick.  Exactly one of the
// pointer members is set.
type Event struct {
	Time int64

	SceneLoaded *EventSceneLoaded
	Action      *EventAction
	Axis        *EventAxis
	Pause       *EventPause
	UnitStep    *EventUnitStep
}

type EventSceneLoaded struct {
	Scene string
}

type EventAction struct {
	Name string
	Kind recording.InputEventKind
}

type EventAxis struct {
	Name  string
	Value float32
}

type EventPause struct {
	Paused bool
}

// EventUnitStep lets a scripted unit continue.  Steps of an earlier run of
// the unit are stale and ignored.
type EventUnitStep struct {
	Unit *ScriptedUnit
	Run  int
}

func (e *Event) kind() string {
	switch {
	case e.SceneLoaded != nil:
		return "SceneLoaded"
	case e.Action != nil:
		return "Action"
	case e.Axis != nil:
		return "Axis"
	case e.Pause != nil:
		return "Pause"
	case e.UnitStep != nil:
		return "UnitStep"
	default:
		panic("unexpected event type")
	}
}

type EventQueue struct {
	// List is a list of *Event messages, in order of time.
	List *list.List

	// FakeTime is the current tick according to this queue.
	FakeTime int64

	// Rand is a source of randomness for the manglers
	Rand *rand.Rand

	// Mangler is invoked on each event when it is first consumed
	Mangler Mangler

	// Mangled tracks which events have already been mangled to prevent loops
	Mangled map[*Event]struct{}
}

func NewEventQueue(seed int64, mangler Mangler) *EventQueue {
	return &EventQueue{
		List:    list.New(),
		Rand:    rand.New(rand.NewSource(seed)),
		Mangler: mangler,
		Mangled: map[*Event]struct{}{},
	}
}

// ConsumeDue advances FakeTime to now and removes and returns the next due
// event.  It returns nil once no more events are due.
func (l *EventQueue) ConsumeDue(now int64) *Event {
	if now < l.FakeTime {
		panic("attempted to modify the past")
	}
	l.FakeTime = now

	for {
		front := l.List.Front()
		if front == nil || front.Value.(*Event).Time > now {
			return nil
		}

		event := l.List.Remove(front).(*Event)

		_, ok := l.Mangled[event]
		if ok || l.Mangler == nil {
			delete(l.Mangled, event)
			return event
		}

		for _, mangled := range l.Mangler.Mangle(l.Rand.Int(), event) {
			l.Mangled[mangled] = struct{}{}
			l.InsertEvent(mangled)
		}
	}
}

func (l *EventQueue) InsertSceneLoaded(scene string, fromNow int64) {
	l.InsertEvent(&Event{
		SceneLoaded: &EventSceneLoaded{Scene: scene},
		Time:        l.FakeTime + fromNow,
	})
}

func (l *EventQueue) InsertAction(name string, kind recording.InputEventKind, fromNow int64) {
	l.InsertEvent(&Event{
		Action: &EventAction{Name: name, Kind: kind},
		Time:   l.FakeTime + fromNow,
	})
}

func (l *EventQueue) InsertAxis(name string, value float32, fromNow int64) {
	l.InsertEvent(&Event{
		Axis: &EventAxis{Name: name, Value: value},
		Time: l.FakeTime + fromNow,
	})
}

func (l *EventQueue) InsertPause(paused bool, fromNow int64) {
	l.InsertEvent(&Event{
		Pause: &EventPause{Paused: paused},
		Time:  l.FakeTime + fromNow,
	})
}

func (l *EventQueue) InsertUnitStep(unit *ScriptedUnit, run int, fromNow int64) {
	l.InsertEvent(&Event{
		UnitStep: &EventUnitStep{Unit: unit, Run: run},
		Time:     l.FakeTime + fromNow,
	})
}

// InsertEvent keeps the queue ordered by time, events of equal time in
// insertion order.
func (l *EventQueue) InsertEvent(event *Event) {
	if event.Time < l.FakeTime {
		panic("attempted to modify the past")
	}

	for el := l.List.Front(); el != nil; el = el.Next() {
		if el.Value.(*Event).Time > event.Time {
			l.List.InsertBefore(event, el)
			return
		}
	}

	l.List.PushBack(event)
}

// Clear drops every pending event.
func (l *EventQueue) Clear() {
	l.List.Init()
	l.Mangled = map[*Event]struct{}{}
}

func (l *EventQueue) Status() string {
	count := l.List.Len()
	if count == 0 {
		return "Empty EventQueue"
	}

	var buf bytes.Buffer
	i := 0
	for el := l.List.Front(); el != nil && i < 50; el = el.Next() {
		event := el.Value.(*Event)
		fmt.Fprintf(&buf, "[event_type=%s time=%d]\n", event.kind(), event.Time)
		i++
	}

	if count > i {
		fmt.Fprintf(&buf, "\n ... skipping %d entries ... \n", count-i)
	}
	fmt.Fprintf(&buf, "\nCompleted event queue summary of %d events\n", count)
	return buf.String()
}
