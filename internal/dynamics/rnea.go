package dynamics

import "github.com/go-gl/mathgl/mgl64"

// ComputeInverseDynamics runs a recursive Newton-Euler pass over the
// tree and stores, for every DOF, the generalized force required to
// realize the current accelerations given the current positions,
// velocities and gravity. It allocates nothing and must not be called
// concurrently with any other method of the model.
//
// Gravity enters through the standard base-acceleration substitution:
// the base is given a fictitious upward acceleration of -g, which
// yields the same joint forces as a true gravity field.
func (m *Model) ComputeInverseDynamics() {
	ws := &m.ws

	// Outward pass: joint transforms, then velocities and accelerations
	// propagated from the (stationary) base.
	for i := range m.bodies {
		b := &m.bodies[i]

		var q, qd, qdd float64
		if b.dof >= 0 {
			d := m.dofs[b.dof]
			q, qd, qdd = d.position, d.velocity, d.acceleration
		}

		rot := b.originRot
		pos := b.originPos
		switch b.kind {
		case jointRevolute:
			rot = rot.Mul3(mgl64.HomogRotate3D(q, b.axis).Mat3())
		case jointPrismatic:
			pos = pos.Add(b.originRot.Mul3x1(b.axis.Mul(q)))
		}
		ws.rot[i] = rot
		ws.pos[i] = pos

		var omegaP, alphaP, accelP mgl64.Vec3
		if b.parent >= 0 {
			omegaP = ws.omega[b.parent]
			alphaP = ws.alpha[b.parent]
			accelP = ws.accel[b.parent]
		} else {
			accelP = m.gravity.Mul(-1)
		}

		rt := rot.Transpose()
		omega := rt.Mul3x1(omegaP)
		alpha := rt.Mul3x1(alphaP)
		accel := rt.Mul3x1(accelP.Add(alphaP.Cross(pos)).Add(omegaP.Cross(omegaP.Cross(pos))))

		switch b.kind {
		case jointRevolute:
			zqd := b.axis.Mul(qd)
			alpha = alpha.Add(omega.Cross(zqd)).Add(b.axis.Mul(qdd))
			omega = omega.Add(zqd)
		case jointPrismatic:
			zqd := b.axis.Mul(qd)
			accel = accel.Add(omega.Cross(zqd).Mul(2)).Add(b.axis.Mul(qdd))
		}

		ws.omega[i] = omega
		ws.alpha[i] = alpha
		ws.accel[i] = accel

		// Net inertial wrench at the COM, stored for the inward pass.
		accelCOM := accel.Add(alpha.Cross(b.com)).Add(omega.Cross(omega.Cross(b.com)))
		force := accelCOM.Mul(b.mass)
		ws.f[i] = force
		ws.n[i] = b.inertia.Mul3x1(alpha).Add(omega.Cross(b.inertia.Mul3x1(omega))).Add(b.com.Cross(force))
	}

	// Inward pass: accumulate child wrenches into parents and project
	// onto each joint axis. Children carry higher indices, so by the
	// time a body is visited every child has already contributed.
	for i := len(m.bodies) - 1; i >= 0; i-- {
		b := &m.bodies[i]

		switch b.kind {
		case jointRevolute:
			m.dofs[b.dof].force = ws.n[i].Dot(b.axis)
		case jointPrismatic:
			m.dofs[b.dof].force = ws.f[i].Dot(b.axis)
		}

		if b.parent >= 0 {
			fp := ws.rot[i].Mul3x1(ws.f[i])
			np := ws.rot[i].Mul3x1(ws.n[i]).Add(ws.pos[i].Cross(fp))
			ws.f[b.parent] = ws.f[b.parent].Add(fp)
			ws.n[b.parent] = ws.n[b.parent].Add(np)
		}
	}
}
