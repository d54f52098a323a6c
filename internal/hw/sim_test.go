package hw

import (
	"errors"
	"math"
	"testing"

	"github.com/armkit/gravcomp/internal/dynamics"
)

const pendulumURDF = `<robot name="pendulum">
  <link name="base"/>
  <link name="bob">
    <inertial>
      <origin xyz="0.5 0 0"/>
      <mass value="1.0"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.02" iyz="0" izz="0.02"/>
    </inertial>
  </link>
  <joint name="pivot" type="revolute">
    <parent link="base"/>
    <child link="bob"/>
    <origin xyz="0 0 0.5"/>
    <axis xyz="0 1 0"/>
  </joint>
</robot>`

func newPendulumSim(t *testing.T, opts ...SimOption) *SimRobot {
	t.Helper()
	plant, err := dynamics.LoadModelString(pendulumURDF)
	if err != nil {
		t.Fatalf("load plant: %v", err)
	}
	return NewSim(plant, opts...)
}

func TestSimHandleResolution(t *testing.T) {
	r := newPendulumSim(t)

	sh, err := r.StateHandle("pivot")
	if err != nil {
		t.Fatalf("state handle: %v", err)
	}
	if sh.Name() != "pivot" {
		t.Errorf("state handle name: got %q", sh.Name())
	}
	ch, err := r.CommandHandle("pivot")
	if err != nil {
		t.Fatalf("command handle: %v", err)
	}
	if ch.Name() != "pivot" {
		t.Errorf("command handle name: got %q", ch.Name())
	}

	if _, err := r.StateHandle("nope"); !errors.Is(err, ErrNoHandle) {
		t.Errorf("unknown state handle: expected ErrNoHandle, got %v", err)
	}
	if _, err := r.CommandHandle("nope"); !errors.Is(err, ErrNoHandle) {
		t.Errorf("unknown command handle: expected ErrNoHandle, got %v", err)
	}
}

func TestSimHiddenHandles(t *testing.T) {
	r := newPendulumSim(t, WithoutStateHandles("pivot"))
	if _, err := r.StateHandle("pivot"); !errors.Is(err, ErrNoHandle) {
		t.Errorf("hidden state handle: expected ErrNoHandle, got %v", err)
	}
	if _, err := r.CommandHandle("pivot"); err != nil {
		t.Errorf("command handle must stay visible: %v", err)
	}

	r = newPendulumSim(t, WithoutCommandHandles("pivot"))
	if _, err := r.CommandHandle("pivot"); !errors.Is(err, ErrNoHandle) {
		t.Errorf("hidden command handle: expected ErrNoHandle, got %v", err)
	}
	if _, err := r.StateHandle("pivot"); err != nil {
		t.Errorf("state handle must stay visible: %v", err)
	}
}

func TestSimReadWriteLatch(t *testing.T) {
	r := newPendulumSim(t, WithInitialPositions(map[string]float64{"pivot": 0.25}))

	sh, err := r.StateHandle("pivot")
	if err != nil {
		t.Fatalf("state handle: %v", err)
	}
	if got := sh.Position(); got != 0.25 {
		t.Errorf("initial position not latched by NewSim: got %g", got)
	}

	ch, err := r.CommandHandle("pivot")
	if err != nil {
		t.Fatalf("command handle: %v", err)
	}
	ch.SetCommand(3.5)
	if got := r.Effort("pivot"); got != 0 {
		t.Errorf("command must not apply before Write, got %g", got)
	}
	r.Write()
	if got := r.Effort("pivot"); got != 3.5 {
		t.Errorf("Write must latch the command, got %g", got)
	}

	q := make([]float64, 1)
	qd := make([]float64, 1)
	tau := make([]float64, 1)
	r.Snapshot(q, qd, tau)
	if q[0] != 0.25 || qd[0] != 0 || tau[0] != 3.5 {
		t.Errorf("snapshot: got q=%g qd=%g tau=%g", q[0], qd[0], tau[0])
	}
}

func TestSimUnforcedPendulumFalls(t *testing.T) {
	// Horizontal pendulum with no applied effort swings down. Positive
	// rotation about the +Y pivot lowers the COM, so the angle grows.
	r := newPendulumSim(t)

	for i := 0; i < 100; i++ {
		if err := r.Step(0.001); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	r.Read()

	q := make([]float64, 1)
	qd := make([]float64, 1)
	tau := make([]float64, 1)
	r.Snapshot(q, qd, tau)
	if q[0] <= 0 {
		t.Errorf("pendulum did not fall: q=%g", q[0])
	}
	if qd[0] <= 0 {
		t.Errorf("pendulum did not accelerate downward: qd=%g", qd[0])
	}
}

func TestSimHoldsUnderExactGravityTorque(t *testing.T) {
	// Applying exactly the gravity torque from rest keeps the pendulum
	// still: every RK4 stage sees zero net acceleration.
	r := newPendulumSim(t, WithInitialPositions(map[string]float64{"pivot": 0.3}))

	// tau = -m g l cos(q) for the +Y axis with COM on +X.
	hold := -1.0 * 9.81 * 0.5 * math.Cos(0.3)
	ch, err := r.CommandHandle("pivot")
	if err != nil {
		t.Fatalf("command handle: %v", err)
	}
	ch.SetCommand(hold)
	r.Write()

	for i := 0; i < 200; i++ {
		if err := r.Step(0.005); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	r.Read()

	q := make([]float64, 1)
	qd := make([]float64, 1)
	tau := make([]float64, 1)
	r.Snapshot(q, qd, tau)
	if math.Abs(q[0]-0.3) > 1e-9 {
		t.Errorf("pendulum drifted under exact hold torque: q=%g", q[0])
	}
	if math.Abs(qd[0]) > 1e-9 {
		t.Errorf("pendulum gained speed under exact hold torque: qd=%g", qd[0])
	}
}

func TestSimJoints(t *testing.T) {
	r := newPendulumSim(t)
	joints := r.Joints()
	if len(joints) != 1 || joints[0] != "pivot" {
		t.Errorf("unexpected joints: %v", joints)
	}
}
