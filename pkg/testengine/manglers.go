/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine

import (
	"github.com/tickharness/tickharness/pkg/recording"
)

// Mangler rewrites an event as it becomes due.  The events it returns are
// queued again and delivered without further mangling, returning none drops
// the event.
type Mangler interface {
	Mangle(random int, event *Event) []*Event
}

type ManglerFunc func(random int, event *Event) []*Event

func (mf ManglerFunc) Mangle(random int, event *Event) []*Event {
	return mf(random, event)
}

type MangleMatcher interface {
	Matches(random int, event *Event) bool
}

type MatcherFunc func(random int, event *Event) bool

func (mf MatcherFunc) Matches(random int, event *Event) bool {
	return mf(random, event)
}

// Rule restricts a mangler to the events it selects.  Rules read as
//
//	For(MatchInput().OfAction("Jump").AtPercent(10)).Drop()
//
// which drops a tenth of the "Jump" actions.
type Rule struct {
	selects MangleMatcher
}

// For selects every event the matcher matches.
func For(matcher MangleMatcher) *Rule {
	return &Rule{selects: matcher}
}

// After selects every event from the first one the matcher matches on.
func After(matcher MangleMatcher) *Rule {
	seen := false
	return &Rule{selects: MatcherFunc(func(random int, event *Event) bool {
		seen = seen || matcher.Matches(random, event)
		return seen
	})}
}

// Until selects every event before the first one the matcher matches.
func Until(matcher MangleMatcher) *Rule {
	seen := false
	return &Rule{selects: MatcherFunc(func(random int, event *Event) bool {
		seen = seen || matcher.Matches(random, event)
		return !seen
	})}
}

// Then applies mangler to the selected events and passes the others on
// untouched.
func (r *Rule) Then(mangler Mangler) Mangler {
	return ManglerFunc(func(random int, event *Event) []*Event {
		if !r.selects.Matches(random, event) {
			return []*Event{event}
		}
		return mangler.Mangle(random, event)
	})
}

func (r *Rule) Drop() Mangler {
	return r.Then(ManglerFunc(func(int, *Event) []*Event {
		return nil
	}))
}

// Delay postpones the selected events by exactly ticks.
func (r *Rule) Delay(ticks int) Mangler {
	return r.Then(ManglerFunc(func(_ int, event *Event) []*Event {
		return []*Event{later(event, int64(ticks))}
	}))
}

// Jitter postpones the selected events by up to maxTicks.
func (r *Rule) Jitter(maxTicks int) Mangler {
	return r.Then(ManglerFunc(func(random int, event *Event) []*Event {
		return []*Event{later(event, int64(random%(maxTicks+1)))}
	}))
}

// Duplicate delivers the selected events once more, up to maxTicks later.
func (r *Rule) Duplicate(maxTicks int) Mangler {
	return r.Then(ManglerFunc(func(random int, event *Event) []*Event {
		return []*Event{event, later(event, int64(random%(maxTicks+1)))}
	}))
}

func later(event *Event, ticks int64) *Event {
	moved := *event
	moved.Time += ticks
	return &moved
}

// InputMatching matches scripted player input.  Every filter added narrows
// it down further.
type InputMatching struct {
	filters []MatcherFunc
}

func MatchInput() *InputMatching {
	return (&InputMatching{}).and(func(_ int, event *Event) bool {
		return event.Action != nil || event.Axis != nil
	})
}

func (im *InputMatching) and(filter MatcherFunc) *InputMatching {
	filters := make([]MatcherFunc, 0, len(im.filters)+1)
	filters = append(filters, im.filters...)
	return &InputMatching{filters: append(filters, filter)}
}

// OfAction matches the actions named, or every action if no name is given.
func (im *InputMatching) OfAction(names ...string) *InputMatching {
	return im.and(func(_ int, event *Event) bool {
		return event.Action != nil && named(event.Action.Name, names)
	})
}

// OfKind matches actions of the given kind.
func (im *InputMatching) OfKind(kind recording.InputEventKind) *InputMatching {
	return im.and(func(_ int, event *Event) bool {
		return event.Action != nil && event.Action.Kind == kind
	})
}

// OfAxis matches the axis values named, or every axis value if no name is
// given.
func (im *InputMatching) OfAxis(names ...string) *InputMatching {
	return im.and(func(_ int, event *Event) bool {
		return event.Axis != nil && named(event.Axis.Name, names)
	})
}

// AtPercent lets through roughly percent out of a hundred events.
func (im *InputMatching) AtPercent(percent int) *InputMatching {
	return im.and(func(random int, _ *Event) bool {
		return random%100 < percent
	})
}

func (im *InputMatching) Matches(random int, event *Event) bool {
	for _, filter := range im.filters {
		if !filter(random, event) {
			return false
		}
	}
	return true
}

func named(name string, names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
