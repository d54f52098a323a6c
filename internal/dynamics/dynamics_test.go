package dynamics

import (
	"math"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const g = 9.81

// pendulumURDF is a single revolute joint about +Y with the center of
// mass a distance l out along +X, so the holding torque at angle q is
// -m*g*l*cos(q).
func pendulumURDF(m, l float64) string {
	return `<robot name="pendulum">
  <link name="base"/>
  <link name="arm">
    <inertial>
      <origin xyz="` + fmtF(l) + ` 0 0"/>
      <mass value="` + fmtF(m) + `"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.02" iyz="0" izz="0.02"/>
    </inertial>
  </link>
  <joint name="shoulder" type="revolute">
    <parent link="base"/>
    <child link="arm"/>
    <origin xyz="0 0 0.5"/>
    <axis xyz="0 1 0"/>
    <limit lower="-3.14" upper="3.14" effort="50"/>
  </joint>
</robot>`
}

const twoLinkURDF = `<robot name="twolink">
  <link name="base"/>
  <link name="upper">
    <inertial>
      <origin xyz="0.2 0 0"/>
      <mass value="2.0"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.03" iyz="0" izz="0.03"/>
    </inertial>
  </link>
  <link name="fore">
    <inertial>
      <origin xyz="0.15 0 0"/>
      <mass value="1.0"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.01" iyz="0" izz="0.01"/>
    </inertial>
  </link>
  <joint name="shoulder" type="revolute">
    <parent link="base"/>
    <child link="upper"/>
    <origin xyz="0 0 0.3"/>
    <axis xyz="0 1 0"/>
  </joint>
  <joint name="elbow" type="revolute">
    <parent link="upper"/>
    <child link="fore"/>
    <origin xyz="0.4 0 0"/>
    <axis xyz="0 1 0"/>
  </joint>
</robot>`

const armURDF = `<robot name="arm3">
  <link name="base"/>
  <link name="upper">
    <inertial>
      <origin xyz="0.2 0 0"/>
      <mass value="2.0"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.03" iyz="0" izz="0.03"/>
    </inertial>
  </link>
  <link name="fore">
    <inertial>
      <origin xyz="0.15 0 0"/>
      <mass value="1.0"/>
      <inertia ixx="0.001" ixy="0" ixz="0" iyy="0.01" iyz="0" izz="0.01"/>
    </inertial>
  </link>
  <link name="hand">
    <inertial>
      <origin xyz="0.05 0 0"/>
      <mass value="0.3"/>
      <inertia ixx="0.0005" ixy="0" ixz="0" iyy="0.001" iyz="0" izz="0.001"/>
    </inertial>
  </link>
  <joint name="shoulder" type="revolute">
    <parent link="base"/>
    <child link="upper"/>
    <origin xyz="0 0 0.3"/>
    <axis xyz="0 1 0"/>
  </joint>
  <joint name="elbow" type="revolute">
    <parent link="upper"/>
    <child link="fore"/>
    <origin xyz="0.4 0 0"/>
    <axis xyz="0 1 0"/>
  </joint>
  <joint name="wrist" type="revolute">
    <parent link="fore"/>
    <child link="hand"/>
    <origin xyz="0.3 0 0"/>
    <axis xyz="0 1 0"/>
  </joint>
</robot>`

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func loadModel(t *testing.T, doc string) *Model {
	t.Helper()
	m, err := LoadModelString(doc)
	if err != nil {
		t.Fatalf("loading model: %v", err)
	}
	return m
}

func TestFromURDFDofOrder(t *testing.T) {
	m := loadModel(t, armURDF)

	want := []string{"shoulder", "elbow", "wrist"}
	if m.NumDofs() != len(want) {
		t.Fatalf("expected %d dofs, got %d", len(want), m.NumDofs())
	}
	for i, d := range m.Dofs() {
		if d.Name() != want[i] {
			t.Errorf("dof %d: expected %q, got %q", i, want[i], d.Name())
		}
	}
}

func TestGetDof(t *testing.T) {
	m := loadModel(t, armURDF)

	if d := m.GetDof("elbow"); d == nil || d.Name() != "elbow" {
		t.Errorf("expected elbow dof, got %v", d)
	}
	if d := m.GetDof("gripper"); d != nil {
		t.Errorf("expected nil for unknown dof, got %q", d.Name())
	}
}

func TestFixedJointHasNoDof(t *testing.T) {
	doc := `<robot name="fixed">
  <link name="base"/>
  <link name="mount"/>
  <link name="arm">
    <inertial><mass value="1.0"/><inertia ixx="0.01" ixy="0" ixz="0" iyy="0.01" iyz="0" izz="0.01"/></inertial>
  </link>
  <joint name="mounting" type="fixed">
    <parent link="base"/>
    <child link="mount"/>
  </joint>
  <joint name="shoulder" type="revolute">
    <parent link="mount"/>
    <child link="arm"/>
    <axis xyz="0 1 0"/>
  </joint>
</robot>`
	m := loadModel(t, doc)
	if m.NumDofs() != 1 {
		t.Fatalf("expected 1 dof, got %d", m.NumDofs())
	}
	if m.GetDof("mounting") != nil {
		t.Error("fixed joint must not contribute a DOF")
	}
}

func TestFromURDFMultipleRoots(t *testing.T) {
	doc := `<robot name="broken">
  <link name="a"/>
  <link name="b"/>
</robot>`
	if _, err := LoadModelString(doc); err == nil {
		t.Fatal("expected error for disconnected links")
	}
}

func TestPendulumGravityTorque(t *testing.T) {
	const m, l = 1.5, 0.8
	model := loadModel(t, pendulumURDF(m, l))
	dof := model.GetDof("shoulder")

	for _, tc := range []struct {
		q    float64
		want float64
	}{
		{0, -m * g * l},
		{math.Pi / 2, 0},
		{-math.Pi / 2, 0},
		{math.Pi, m * g * l},
		{0.3, -m * g * l * math.Cos(0.3)},
	} {
		dof.SetPosition(tc.q)
		dof.SetVelocity(0)
		dof.SetAcceleration(0)
		model.ComputeInverseDynamics()

		if got := dof.Force(); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("q=%.3f: expected torque %.6f, got %.6f", tc.q, tc.want, got)
		}
	}
}

func TestTwoLinkGravityTorque(t *testing.T) {
	model := loadModel(t, twoLinkURDF)
	shoulder := model.GetDof("shoulder")
	elbow := model.GetDof("elbow")

	const (
		m1, c1 = 2.0, 0.2
		m2, c2 = 1.0, 0.15
		l1     = 0.4
	)

	q1, q2 := 0.4, -0.7
	shoulder.SetPosition(q1)
	elbow.SetPosition(q2)
	model.SetVelocities([]float64{0, 0})
	model.SetAccelerations([]float64{0, 0})
	model.ComputeInverseDynamics()

	wantElbow := -m2 * c2 * g * math.Cos(q1+q2)
	wantShoulder := -(m1*c1+m2*l1)*g*math.Cos(q1) + wantElbow

	if got := shoulder.Force(); math.Abs(got-wantShoulder) > 1e-9 {
		t.Errorf("shoulder: expected %.6f, got %.6f", wantShoulder, got)
	}
	if got := elbow.Force(); math.Abs(got-wantElbow) > 1e-9 {
		t.Errorf("elbow: expected %.6f, got %.6f", wantElbow, got)
	}
}

func TestInverseDynamicsIdempotent(t *testing.T) {
	model := loadModel(t, twoLinkURDF)
	model.SetPositions([]float64{0.5, -0.3})
	model.SetVelocities([]float64{0.8, -1.2})
	model.SetAccelerations([]float64{0, 0})

	model.ComputeInverseDynamics()
	first := []float64{model.Dofs()[0].Force(), model.Dofs()[1].Force()}

	model.ComputeInverseDynamics()
	for i, d := range model.Dofs() {
		if d.Force() != first[i] {
			t.Errorf("dof %d: forces differ across identical calls: %g vs %g", i, first[i], d.Force())
		}
	}
}

func TestMassMatrixAnalytic(t *testing.T) {
	model := loadModel(t, twoLinkURDF)

	const (
		m1, c1, i1 = 2.0, 0.2, 0.03
		m2, c2, i2 = 1.0, 0.15, 0.01
		l1         = 0.4
	)

	q2 := 0.6
	model.SetPositions([]float64{0.3, q2})
	model.SetVelocities([]float64{0.5, -0.4})

	massMat := mat.NewSymDense(2, nil)
	model.MassMatrix(massMat)

	want22 := m2*c2*c2 + i2
	want12 := m2*(c2*c2+l1*c2*math.Cos(q2)) + i2
	want11 := m1*c1*c1 + i1 + m2*(l1*l1+c2*c2+2*l1*c2*math.Cos(q2)) + i2

	for _, tc := range []struct {
		i, j int
		want float64
	}{
		{0, 0, want11}, {0, 1, want12}, {1, 1, want22},
	} {
		if got := massMat.At(tc.i, tc.j); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("M[%d][%d]: expected %.6f, got %.6f", tc.i, tc.j, tc.want, got)
		}
	}

	// Probing must not disturb the model's kinematic state.
	if model.Dofs()[1].Velocity() != -0.4 {
		t.Error("mass matrix computation changed DOF velocities")
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	model := loadModel(t, armURDF)

	q := []float64{0.4, -0.9, 0.2}
	qd := []float64{1.1, -0.5, 0.7}
	qddWant := []float64{-0.3, 0.8, -1.4}

	model.SetPositions(q)
	model.SetVelocities(qd)
	model.SetAccelerations(qddWant)
	model.ComputeInverseDynamics()

	tau := make([]float64, 3)
	for i, d := range model.Dofs() {
		tau[i] = d.Force()
	}

	model.SetPositions(q)
	model.SetVelocities(qd)
	qdd := make([]float64, 3)
	if err := model.ForwardDynamics(tau, qdd); err != nil {
		t.Fatalf("forward dynamics: %v", err)
	}

	for i := range qdd {
		if math.Abs(qdd[i]-qddWant[i]) > 1e-8 {
			t.Errorf("qdd[%d]: expected %.6f, got %.6f", i, qddWant[i], qdd[i])
		}
	}
}

func TestPrismaticGravity(t *testing.T) {
	doc := `<robot name="lift">
  <link name="base"/>
  <link name="carriage">
    <inertial><mass value="3.0"/><inertia ixx="0.01" ixy="0" ixz="0" iyy="0.01" iyz="0" izz="0.01"/></inertial>
  </link>
  <joint name="lift" type="prismatic">
    <parent link="base"/>
    <child link="carriage"/>
    <axis xyz="0 0 1"/>
    <limit lower="0" upper="1" effort="200"/>
  </joint>
</robot>`
	model := loadModel(t, doc)
	dof := model.GetDof("lift")

	dof.SetPosition(0.25)
	dof.SetVelocity(0)
	dof.SetAcceleration(0)
	model.ComputeInverseDynamics()

	// Holding a 3 kg carriage against gravity along +Z.
	want := 3.0 * g
	if got := dof.Force(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected lift force %.4f, got %.4f", want, got)
	}
}

func TestGroupOrderAndIndex(t *testing.T) {
	model := loadModel(t, armURDF)

	grp := NewGroup("controlled")
	for _, name := range []string{"wrist", "shoulder"} {
		if err := grp.AddDof(model.GetDof(name)); err != nil {
			t.Fatalf("adding %q: %v", name, err)
		}
	}

	if grp.NumDofs() != 2 {
		t.Fatalf("expected 2 dofs, got %d", grp.NumDofs())
	}
	if grp.Dof(0).Name() != "wrist" || grp.Dof(1).Name() != "shoulder" {
		t.Errorf("group order not preserved: %q, %q", grp.Dof(0).Name(), grp.Dof(1).Name())
	}
	if i, ok := grp.Index("shoulder"); !ok || i != 1 {
		t.Errorf("expected shoulder at index 1, got %d (%v)", i, ok)
	}
	if _, ok := grp.Index("elbow"); ok {
		t.Error("elbow must not be in the group")
	}
}

func TestGroupRejectsDuplicates(t *testing.T) {
	model := loadModel(t, armURDF)

	grp := NewGroup("controlled")
	if err := grp.AddDof(model.GetDof("elbow")); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := grp.AddDof(model.GetDof("elbow")); err == nil {
		t.Fatal("expected error adding the same DOF twice")
	}
}
