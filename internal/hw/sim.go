package hw

import (
	"fmt"

	"github.com/armkit/gravcomp/internal/dynamics"
)

// SimRobot is a simulated robot: handles read from and write to latched
// buffers, and Step integrates an owned dynamics model under the last
// written efforts. The read→update→write→step sequencing is the
// caller's job, mirroring a real hardware cycle.
type SimRobot struct {
	plant *dynamics.Model
	names []string
	index map[string]int

	pos []float64 // latched by Read
	vel []float64
	cmd []float64 // latched by Write into tau
	tau []float64

	noState map[string]bool
	noCmd   map[string]bool

	// RK4 scratch on the (q, qd) state.
	q, qd, qdd             []float64
	k1q, k2q, k3q, k4q     []float64
	k1qd, k2qd, k3qd, k4qd []float64
	sq, sqd                []float64
}

// SimOption configures a SimRobot at construction.
type SimOption func(*SimRobot)

// WithoutStateHandles hides the named joints from state-handle
// resolution, modelling joints without live sensing.
func WithoutStateHandles(names ...string) SimOption {
	return func(r *SimRobot) {
		for _, n := range names {
			r.noState[n] = true
		}
	}
}

// WithoutCommandHandles hides the named joints from command-handle
// resolution, modelling unactuated joints.
func WithoutCommandHandles(names ...string) SimOption {
	return func(r *SimRobot) {
		for _, n := range names {
			r.noCmd[n] = true
		}
	}
}

// WithInitialPositions sets the plant's starting joint positions by
// name. Unknown names are ignored.
func WithInitialPositions(q map[string]float64) SimOption {
	return func(r *SimRobot) {
		for name, v := range q {
			if d := r.plant.GetDof(name); d != nil {
				d.SetPosition(v)
			}
		}
	}
}

// NewSim builds a simulated robot over the given plant model. The robot
// takes ownership of the model.
func NewSim(plant *dynamics.Model, opts ...SimOption) *SimRobot {
	n := plant.NumDofs()
	r := &SimRobot{
		plant:   plant,
		names:   make([]string, n),
		index:   make(map[string]int, n),
		pos:     make([]float64, n),
		vel:     make([]float64, n),
		cmd:     make([]float64, n),
		tau:     make([]float64, n),
		noState: make(map[string]bool),
		noCmd:   make(map[string]bool),
		q:       make([]float64, n),
		qd:      make([]float64, n),
		qdd:     make([]float64, n),
		k1q:     make([]float64, n),
		k2q:     make([]float64, n),
		k3q:     make([]float64, n),
		k4q:     make([]float64, n),
		k1qd:    make([]float64, n),
		k2qd:    make([]float64, n),
		k3qd:    make([]float64, n),
		k4qd:    make([]float64, n),
		sq:      make([]float64, n),
		sqd:     make([]float64, n),
	}
	for i, d := range plant.Dofs() {
		r.names[i] = d.Name()
		r.index[d.Name()] = i
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Read()
	return r
}

// Joints lists the plant's joint names in model order.
func (r *SimRobot) Joints() []string { return r.names }

func (r *SimRobot) CommandHandle(name string) (CommandHandle, error) {
	i, ok := r.index[name]
	if !ok || r.noCmd[name] {
		return nil, fmt.Errorf("%w: %q (command)", ErrNoHandle, name)
	}
	return &simCommandHandle{robot: r, name: name, i: i}, nil
}

func (r *SimRobot) StateHandle(name string) (StateHandle, error) {
	i, ok := r.index[name]
	if !ok || r.noState[name] {
		return nil, fmt.Errorf("%w: %q (state)", ErrNoHandle, name)
	}
	return &simStateHandle{robot: r, name: name, i: i}, nil
}

// Read latches the plant state into the buffers state handles read
// from.
func (r *SimRobot) Read() {
	r.plant.Positions(r.pos)
	r.plant.Velocities(r.vel)
}

// Write latches the last commanded efforts into the torques applied to
// the plant on the next Step.
func (r *SimRobot) Write() {
	copy(r.tau, r.cmd)
}

// Effort reports the currently applied effort for a joint, for tests
// and observers.
func (r *SimRobot) Effort(name string) float64 {
	return r.tau[r.index[name]]
}

// Snapshot copies the latched sensor readings and applied efforts into
// the given slices, each of which must have NumDofs length.
func (r *SimRobot) Snapshot(q, qd, tau []float64) {
	copy(q, r.pos)
	copy(qd, r.vel)
	copy(tau, r.tau)
}

// Step advances the plant by dt under the applied efforts, integrating
// the second-order joint dynamics with classical RK4.
func (r *SimRobot) Step(dt float64) error {
	r.plant.Positions(r.q)
	r.plant.Velocities(r.qd)
	n := len(r.q)

	if err := r.deriv(r.q, r.qd, r.k1q, r.k1qd); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r.sq[i] = r.q[i] + dt*0.5*r.k1q[i]
		r.sqd[i] = r.qd[i] + dt*0.5*r.k1qd[i]
	}
	if err := r.deriv(r.sq, r.sqd, r.k2q, r.k2qd); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r.sq[i] = r.q[i] + dt*0.5*r.k2q[i]
		r.sqd[i] = r.qd[i] + dt*0.5*r.k2qd[i]
	}
	if err := r.deriv(r.sq, r.sqd, r.k3q, r.k3qd); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		r.sq[i] = r.q[i] + dt*r.k3q[i]
		r.sqd[i] = r.qd[i] + dt*r.k3qd[i]
	}
	if err := r.deriv(r.sq, r.sqd, r.k4q, r.k4qd); err != nil {
		return err
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		r.q[i] += dt6 * (r.k1q[i] + 2*r.k2q[i] + 2*r.k3q[i] + r.k4q[i])
		r.qd[i] += dt6 * (r.k1qd[i] + 2*r.k2qd[i] + 2*r.k3qd[i] + r.k4qd[i])
	}
	r.plant.SetPositions(r.q)
	r.plant.SetVelocities(r.qd)
	return nil
}

// deriv evaluates (qdot, qddot) at the given state under the applied
// efforts.
func (r *SimRobot) deriv(q, qd, dq, dqd []float64) error {
	r.plant.SetPositions(q)
	r.plant.SetVelocities(qd)
	if err := r.plant.ForwardDynamics(r.tau, r.qdd); err != nil {
		return err
	}
	copy(dq, qd)
	copy(dqd, r.qdd)
	return nil
}

type simStateHandle struct {
	robot *SimRobot
	name  string
	i     int
}

func (h *simStateHandle) Name() string      { return h.name }
func (h *simStateHandle) Position() float64 { return h.robot.pos[h.i] }
func (h *simStateHandle) Velocity() float64 { return h.robot.vel[h.i] }

type simCommandHandle struct {
	robot *SimRobot
	name  string
	i     int
}

func (h *simCommandHandle) Name() string { return h.name }

func (h *simCommandHandle) SetCommand(effort float64) {
	h.robot.cmd[h.i] = effort
}
