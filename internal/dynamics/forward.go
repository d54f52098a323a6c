package dynamics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// MassMatrix fills dst with the joint-space inertia matrix at the
// current positions, by probing inverse dynamics one unit acceleration
// at a time. dst must be NumDofs square. Velocities and accelerations
// are restored before returning.
//
// This is simulation-side machinery; the controller's periodic path
// never calls it.
func (m *Model) MassMatrix(dst *mat.SymDense) {
	n := len(m.dofs)
	if dst.SymmetricDim() != n {
		panic(fmt.Sprintf("dynamics: mass matrix dimension %d, model has %d dofs", dst.SymmetricDim(), n))
	}

	savedVel := make([]float64, n)
	savedAcc := make([]float64, n)
	savedGrav := m.gravity
	for i, d := range m.dofs {
		savedVel[i] = d.velocity
		savedAcc[i] = d.acceleration
		d.velocity = 0
		d.acceleration = 0
	}
	m.gravity = mgl64.Vec3{}

	for i := 0; i < n; i++ {
		m.dofs[i].acceleration = 1
		m.ComputeInverseDynamics()
		m.dofs[i].acceleration = 0
		for j := i; j < n; j++ {
			dst.SetSym(i, j, m.dofs[j].force)
		}
	}

	m.gravity = savedGrav
	for i, d := range m.dofs {
		d.velocity = savedVel[i]
		d.acceleration = savedAcc[i]
	}
}

// ForwardDynamics computes the joint accelerations produced by the
// applied generalized forces tau at the current positions and
// velocities, writing them into qdd. Both slices must have length
// NumDofs. The model's DOF accelerations are left set to the result.
func (m *Model) ForwardDynamics(tau, qdd []float64) error {
	n := len(m.dofs)
	if len(tau) != n || len(qdd) != n {
		return fmt.Errorf("dynamics: forward dynamics needs %d forces and accelerations, got %d and %d", n, len(tau), len(qdd))
	}

	// Bias forces: inverse dynamics at zero acceleration captures
	// gravity, Coriolis and centrifugal terms.
	for _, d := range m.dofs {
		d.acceleration = 0
	}
	m.ComputeInverseDynamics()
	rhs := mat.NewVecDense(n, nil)
	for i, d := range m.dofs {
		rhs.SetVec(i, tau[i]-d.force)
	}

	massMat := mat.NewSymDense(n, nil)
	m.MassMatrix(massMat)

	var chol mat.Cholesky
	if !chol.Factorize(massMat) {
		return fmt.Errorf("dynamics: mass matrix is not positive definite at the current configuration")
	}
	sol := mat.NewVecDense(n, qdd)
	if err := chol.SolveVecTo(sol, rhs); err != nil {
		return fmt.Errorf("dynamics: solving for accelerations: %w", err)
	}

	m.SetAccelerations(qdd)
	return nil
}
