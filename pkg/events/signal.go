/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package events provides single-fire broadcast signals used to announce
// asynchronous completion (a suite finishing, a run finishing) to listeners
// that registered beforehand.
package events

// Signal broadcasts a single value to all registered listeners, at most once.
// The zero value is ready to use.
type Signal[T any] struct {
	fired     bool
	value     T
	listeners []func(T)
}

// Subscribe registers a listener. Listeners registered after the signal
// fired are never invoked; use Fired to check for a missed signal.
func (s *Signal[T]) Subscribe(listener func(T)) {
	if listener == nil {
		return
	}
	s.listeners = append(s.listeners, listener)
}

// Fire invokes every listener with value, in registration order.
// Only the first call has an effect; it returns false on every later call.
func (s *Signal[T]) Fire(value T) bool {
	if s.fired {
		return false
	}

	s.fired = true
	s.value = value

	// Listeners may subscribe further listeners while being notified.
	listeners := make([]func(T), len(s.listeners))
	copy(listeners, s.listeners)
	for _, listener := range listeners {
		listener(value)
	}

	return true
}

// Fired returns whether the signal has fired, and the value it fired with.
func (s *Signal[T]) Fired() (T, bool) {
	return s.value, s.fired
}

// Len returns the number of registered listeners.
func (s *Signal[T]) Len() int {
	return len(s.listeners)
}
