// Package controller orchestrates the recording lifecycle: capture
// acquisition, the render loop, the countdown, chunk collection, and
// artifact finalization.
package controller

import (
	"fmt"
)

// State is the recorder lifecycle state consumed by the presentation layer.
type State int

const (
	StateInitializing State = iota
	StateReady
	StateRecording
	StateProcessing
	StateComplete
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// validTransitions enumerates the allowed state transitions. Processing is
// never skipped between Recording and Complete: the artifact must always
// finish encoding before it is offered.
var validTransitions = map[State][]State{
	StateInitializing: {StateReady, StateError},
	StateReady:        {StateRecording, StateError},
	StateRecording:    {StateProcessing, StateError},
	StateProcessing:   {StateComplete, StateError},
	StateComplete:     {StateReady},
	StateError:        {StateInitializing},
}

// Machine guards recorder state transitions. It is not safe for concurrent
// use; all transitions happen on the controller's event loop.
type Machine struct {
	state State
	err   error
}

// NewMachine returns a machine in the Initializing state.
func NewMachine() *Machine {
	return &Machine{state: StateInitializing}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the failure that moved the machine into the Error state, or
// nil when not in Error.
func (m *Machine) Err() error {
	return m.err
}

// CanTransition reports whether moving to the given state is allowed.
func (m *Machine) CanTransition(to State) bool {
	for _, allowed := range validTransitions[m.state] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the machine to the given state, rejecting transitions the
// lifecycle does not allow. Leaving the Error state clears the stored error.
func (m *Machine) Transition(to State) error {
	if !m.CanTransition(to) {
		return fmt.Errorf("invalid transition %s -> %s", m.state, to)
	}
	m.state = to
	if to != StateError {
		m.err = nil
	}
	return nil
}

// Fail moves the machine into the Error state carrying the cause.
func (m *Machine) Fail(cause error) error {
	if err := m.Transition(StateError); err != nil {
		return err
	}
	m.err = cause
	return nil
}
