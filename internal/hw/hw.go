// Package hw defines the hardware interface layer: per-joint read and
// write capabilities handed out by name, plus a simulated robot that
// implements them over a dynamics model.
package hw

import "errors"

// ErrNoHandle is wrapped by Robot implementations when a joint exposes
// no handle of the requested kind.
var ErrNoHandle = errors.New("hw: no handle for joint")

// StateHandle reads the live position and velocity of one joint.
type StateHandle interface {
	Name() string
	Position() float64
	Velocity() float64
}

// CommandHandle writes an effort command to one actuator.
type CommandHandle interface {
	Name() string
	SetCommand(effort float64)
}

// Robot hands out handles by joint name. A granted handle stays valid
// for the life of the robot; handle resolution may fail, handle use may
// not.
type Robot interface {
	CommandHandle(name string) (CommandHandle, error)
	StateHandle(name string) (StateHandle, error)
}
