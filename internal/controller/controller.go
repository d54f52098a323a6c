// Package controller implements a joint-space gravity compensation
// controller. Each control tick it injects sensed joint state into its
// dynamics model with zero acceleration, recomputes inverse dynamics,
// and writes the resulting generalized forces to its controlled joints,
// so the robot holds its pose with no external effort.
package controller

import (
	"github.com/edaniels/golog"

	"github.com/armkit/gravcomp/internal/dynamics"
	"github.com/armkit/gravcomp/internal/hw"
	"github.com/armkit/gravcomp/internal/params"
)

// Parameter keys read during Init.
const (
	// DescriptionParamKey names the parameter that holds the name of
	// the robot description parameter.
	DescriptionParamKey = "robot_description_parameter"

	// DefaultDescriptionParam is where the robot description lives when
	// DescriptionParamKey is unset.
	DefaultDescriptionParam = "/robot_description"

	// JointsKey holds the ordered list of controlled joint names.
	JointsKey = "joints"
)

// State is a controller lifecycle state.
type State int

const (
	Unconfigured State = iota
	Configured
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateBinding pairs a resolved state handle with the model DOF it
// feeds, so the tick path does no name lookup.
type stateBinding struct {
	handle hw.StateHandle
	dof    *dynamics.DOF
}

// Controller is a gravity compensation controller. It is configured
// once with Init, driven by Update once per control period while
// running, and owns its dynamics model exclusively. Controller is not
// safe for concurrent use; the owning framework guarantees sequential,
// non-overlapping invocations.
type Controller struct {
	logger golog.Logger
	state  State

	model      *dynamics.Model
	controlled *dynamics.Group

	cmdHandles    []hw.CommandHandle // controlled group order
	stateBindings []stateBinding     // model order, resolved DOFs only
}

func New(logger golog.Logger) *Controller {
	return &Controller{logger: logger, state: Unconfigured}
}

// State reports the controller's lifecycle state.
func (c *Controller) State() State { return c.state }

// Model returns the controller's dynamics model, nil before a
// successful Init. The model is owned by the controller; callers must
// not mutate it while the controller runs.
func (c *Controller) Model() *dynamics.Model { return c.model }

// Controlled returns the controlled DOF group, nil before a successful
// Init.
func (c *Controller) Controlled() *dynamics.Group { return c.controlled }

// Init binds the controller to a robot: it loads the dynamics model
// from the parameter store, resolves the configured joint list against
// it, and obtains a command handle per controlled DOF and a state
// handle per resolvable model DOF. Any failure other than a missing
// state handle aborts with a typed error and leaves the controller
// unconfigured with no partial state. Init is legal on an unconfigured
// or stopped controller.
func (c *Controller) Init(robot hw.Robot, store *params.Store) error {
	if c.state == Configured || c.state == Running {
		return ErrAlreadyConfigured
	}

	descParam := store.GetStringDefault(DescriptionParamKey, DefaultDescriptionParam)
	desc, ok := store.GetString(descParam)
	if !ok {
		return &ConfigError{Key: descParam}
	}

	c.logger.Infof("loading dynamics model from %q", descParam)
	model, err := dynamics.LoadModelString(desc)
	if err != nil {
		return &ModelError{Err: err}
	}

	jointNames, ok := store.GetStringList(JointsKey)
	if !ok {
		return &ConfigError{Key: JointsKey}
	}

	controlled := dynamics.NewGroup("controlled")
	for _, name := range jointNames {
		dof := model.GetDof(name)
		if dof == nil {
			return &UnknownDOFError{Name: name}
		}
		if err := controlled.AddDof(dof); err != nil {
			return &ConfigError{Key: JointsKey, Err: err}
		}
	}

	cmdHandles := make([]hw.CommandHandle, 0, controlled.NumDofs())
	for i := 0; i < controlled.NumDofs(); i++ {
		name := controlled.Dof(i).Name()
		handle, err := robot.CommandHandle(name)
		if err != nil {
			return &HandleError{Name: name, Err: err}
		}
		cmdHandles = append(cmdHandles, handle)
	}

	stateBindings := make([]stateBinding, 0, model.NumDofs())
	for _, dof := range model.Dofs() {
		handle, err := robot.StateHandle(dof.Name())
		if err != nil {
			c.logger.Warnf("no state handle for DOF %q; it will keep its default position, velocity, and acceleration", dof.Name())
			continue
		}
		stateBindings = append(stateBindings, stateBinding{handle: handle, dof: dof})
	}

	c.model = model
	c.controlled = controlled
	c.cmdHandles = cmdHandles
	c.stateBindings = stateBindings
	c.state = Configured
	c.logger.Infof("gravity compensation controller configured: %d controlled of %d model DOFs, %d sensed",
		controlled.NumDofs(), model.NumDofs(), len(stateBindings))
	return nil
}

// Start transitions a configured controller to running. All binding
// work already happened in Init.
func (c *Controller) Start() error {
	if c.state != Configured {
		return ErrNotConfigured
	}
	c.state = Running
	return nil
}

// Update executes one control tick: sensed state in, zero acceleration,
// one inverse dynamics pass, computed forces out. It performs no
// validation, no allocation and no I/O, and must only be called on a
// running controller, sequentially. The tick is a pure function of the
// current sensed state.
func (c *Controller) Update(t, dt float64) {
	for _, b := range c.stateBindings {
		b.dof.SetPosition(b.handle.Position())
		b.dof.SetVelocity(b.handle.Velocity())
		b.dof.SetAcceleration(0)
	}

	c.model.ComputeInverseDynamics()

	for i, handle := range c.cmdHandles {
		handle.SetCommand(c.controlled.Dof(i).Force())
	}
}

// Stop releases handle ownership and leaves the controller stopped; a
// stopped controller may be reinitialized.
func (c *Controller) Stop() error {
	if c.state != Running {
		return ErrNotRunning
	}
	c.cmdHandles = nil
	c.stateBindings = nil
	c.state = Stopped
	return nil
}
