package dynamics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/armkit/gravcomp/internal/urdf"
)

type jointKind int

const (
	jointFixed jointKind = iota
	jointRevolute
	jointPrismatic
)

// DOF is one degree of freedom of a Model. Position, velocity and
// acceleration are inputs to inverse dynamics; force is its output.
type DOF struct {
	name         string
	position     float64
	velocity     float64
	acceleration float64
	force        float64
}

func (d *DOF) Name() string                { return d.name }
func (d *DOF) Position() float64           { return d.position }
func (d *DOF) SetPosition(q float64)       { d.position = q }
func (d *DOF) Velocity() float64           { return d.velocity }
func (d *DOF) SetVelocity(qd float64)      { d.velocity = qd }
func (d *DOF) Acceleration() float64       { return d.acceleration }
func (d *DOF) SetAcceleration(qdd float64) { d.acceleration = qdd }

// Force is the generalized force computed by the last call to
// ComputeInverseDynamics.
func (d *DOF) Force() float64 { return d.force }

// body is one rigid link attached to its parent by a single joint, in
// topological order (parent index < own index, -1 for the base).
type body struct {
	name      string
	parent    int
	kind      jointKind
	axis      mgl64.Vec3 // joint axis in the body frame
	originRot mgl64.Mat3 // fixed joint rotation, parent frame to body frame
	originPos mgl64.Vec3 // joint origin in the parent frame
	mass      float64
	com       mgl64.Vec3 // center of mass in the body frame
	inertia   mgl64.Mat3 // about the COM, in the body frame
	dof       int        // index into Model.dofs, -1 for fixed joints
}

// Model is a fixed-base rigid-body tree with named degrees of freedom.
// It is owned by a single goroutine; ComputeInverseDynamics mutates the
// per-DOF force fields in place.
type Model struct {
	name    string
	bodies  []body
	dofs    []*DOF
	byName  map[string]*DOF
	gravity mgl64.Vec3

	ws workspace
}

// workspace holds per-body intermediates so the recursion allocates
// nothing after construction.
type workspace struct {
	rot   []mgl64.Mat3 // body axes expressed in the parent frame
	pos   []mgl64.Vec3 // body origin in the parent frame
	omega []mgl64.Vec3
	alpha []mgl64.Vec3
	accel []mgl64.Vec3
	f     []mgl64.Vec3
	n     []mgl64.Vec3
}

// DefaultGravity is the standard gravity vector, -Z in the base frame.
var DefaultGravity = mgl64.Vec3{0, 0, -9.81}

// LoadModelString parses a URDF document and builds a model from it.
func LoadModelString(description string) (*Model, error) {
	robot, err := urdf.Parse([]byte(description))
	if err != nil {
		return nil, err
	}
	return FromURDF(robot)
}

// FromURDF builds a Model from a parsed robot description. The root
// link is welded to the world; every joint becomes one body, and every
// non-fixed joint contributes one DOF named after the joint. DOF order
// follows a breadth-first walk of the joint tree from the root.
func FromURDF(r *urdf.Robot) (*Model, error) {
	childOf := make(map[string]bool, len(r.Joints))
	byParent := make(map[string][]urdf.Joint)
	for _, j := range r.Joints {
		if childOf[j.Child.Link] {
			return nil, fmt.Errorf("dynamics: link %q has more than one parent joint", j.Child.Link)
		}
		childOf[j.Child.Link] = true
		byParent[j.Parent.Link] = append(byParent[j.Parent.Link], j)
	}

	var root string
	for _, l := range r.Links {
		if !childOf[l.Name] {
			if root != "" {
				return nil, fmt.Errorf("dynamics: robot %q has multiple root links (%q, %q)", r.Name, root, l.Name)
			}
			root = l.Name
		}
	}
	if root == "" {
		return nil, fmt.Errorf("dynamics: robot %q has no root link", r.Name)
	}

	links := make(map[string]*urdf.Link, len(r.Links))
	for i := range r.Links {
		links[r.Links[i].Name] = &r.Links[i]
	}

	m := &Model{
		name:    r.Name,
		byName:  make(map[string]*DOF),
		gravity: DefaultGravity,
	}

	// Breadth-first walk assigning body and DOF indices.
	bodyIndex := map[string]int{root: -1}
	queue := []string{root}
	for len(queue) > 0 {
		parentLink := queue[0]
		queue = queue[1:]
		for _, j := range byParent[parentLink] {
			b, err := newBody(j, links[j.Child.Link], bodyIndex[parentLink])
			if err != nil {
				return nil, err
			}
			if b.kind != jointFixed {
				dof := &DOF{name: j.Name}
				b.dof = len(m.dofs)
				m.dofs = append(m.dofs, dof)
				m.byName[j.Name] = dof
			}
			bodyIndex[j.Child.Link] = len(m.bodies)
			m.bodies = append(m.bodies, b)
			queue = append(queue, j.Child.Link)
		}
	}
	if len(m.bodies) != len(r.Joints) {
		return nil, fmt.Errorf("dynamics: robot %q joint graph is not a tree rooted at %q", r.Name, root)
	}

	n := len(m.bodies)
	m.ws = workspace{
		rot:   make([]mgl64.Mat3, n),
		pos:   make([]mgl64.Vec3, n),
		omega: make([]mgl64.Vec3, n),
		alpha: make([]mgl64.Vec3, n),
		accel: make([]mgl64.Vec3, n),
		f:     make([]mgl64.Vec3, n),
		n:     make([]mgl64.Vec3, n),
	}
	return m, nil
}

func newBody(j urdf.Joint, child *urdf.Link, parent int) (body, error) {
	b := body{name: child.Name, parent: parent, dof: -1}

	switch j.Type {
	case urdf.JointRevolute, urdf.JointContinuous:
		b.kind = jointRevolute
	case urdf.JointPrismatic:
		b.kind = jointPrismatic
	case urdf.JointFixed:
		b.kind = jointFixed
	}

	xyz, err := j.Origin.Translation()
	if err != nil {
		return body{}, fmt.Errorf("dynamics: joint %q: %w", j.Name, err)
	}
	rpy, err := j.Origin.RollPitchYaw()
	if err != nil {
		return body{}, fmt.Errorf("dynamics: joint %q: %w", j.Name, err)
	}
	b.originPos = mgl64.Vec3(xyz)
	b.originRot = rpyMat(rpy)

	axis, err := j.Axis.Vector()
	if err != nil {
		return body{}, fmt.Errorf("dynamics: joint %q: %w", j.Name, err)
	}
	b.axis = mgl64.Vec3(axis)
	if b.kind != jointFixed {
		if b.axis.Len() == 0 {
			return body{}, fmt.Errorf("dynamics: joint %q has a zero axis", j.Name)
		}
		b.axis = b.axis.Normalize()
	}

	if inr := child.Inertial; inr != nil {
		b.mass = inr.Mass.Value
		cxyz, err := inr.Origin.Translation()
		if err != nil {
			return body{}, fmt.Errorf("dynamics: link %q inertial: %w", child.Name, err)
		}
		crpy, err := inr.Origin.RollPitchYaw()
		if err != nil {
			return body{}, fmt.Errorf("dynamics: link %q inertial: %w", child.Name, err)
		}
		b.com = mgl64.Vec3(cxyz)

		i := inr.Inertia
		tensor := mgl64.Mat3{
			i.Ixx, i.Ixy, i.Ixz,
			i.Ixy, i.Iyy, i.Iyz,
			i.Ixz, i.Iyz, i.Izz,
		}
		rot := rpyMat(crpy)
		b.inertia = rot.Mul3(tensor).Mul3(rot.Transpose())
	}

	return b, nil
}

// rpyMat converts URDF roll/pitch/yaw (extrinsic X-Y-Z) to a rotation
// matrix, Rz(yaw)·Ry(pitch)·Rx(roll).
func rpyMat(rpy [3]float64) mgl64.Mat3 {
	return mgl64.AnglesToQuat(rpy[2], rpy[1], rpy[0], mgl64.ZYX).Mat4().Mat3()
}

func (m *Model) Name() string { return m.name }

// NumDofs reports the number of degrees of freedom; fixed joints do not
// count.
func (m *Model) NumDofs() int { return len(m.dofs) }

// Dofs returns the model's DOFs in model order. The slice is shared;
// callers must not reorder it.
func (m *Model) Dofs() []*DOF { return m.dofs }

// GetDof looks a DOF up by name, returning nil when no such DOF exists.
func (m *Model) GetDof(name string) *DOF { return m.byName[name] }

func (m *Model) Gravity() mgl64.Vec3     { return m.gravity }
func (m *Model) SetGravity(g mgl64.Vec3) { m.gravity = g }

// Positions copies the current joint positions into dst, which must
// have length NumDofs.
func (m *Model) Positions(dst []float64) {
	for i, d := range m.dofs {
		dst[i] = d.position
	}
}

// Velocities copies the current joint velocities into dst.
func (m *Model) Velocities(dst []float64) {
	for i, d := range m.dofs {
		dst[i] = d.velocity
	}
}

// SetPositions sets every joint position from q in model order.
func (m *Model) SetPositions(q []float64) {
	for i, d := range m.dofs {
		d.position = q[i]
	}
}

// SetVelocities sets every joint velocity from qd in model order.
func (m *Model) SetVelocities(qd []float64) {
	for i, d := range m.dofs {
		d.velocity = qd[i]
	}
}

// SetAccelerations sets every joint acceleration from qdd in model order.
func (m *Model) SetAccelerations(qdd []float64) {
	for i, d := range m.dofs {
		d.acceleration = qdd[i]
	}
}
