// Package dynamics models a robot as a fixed-base rigid-body tree with
// named degrees of freedom and computes its inverse and forward
// dynamics.
//
// A [Model] is built once from a parsed URDF and then owned by a single
// goroutine. [Model.ComputeInverseDynamics] is the hot path: it mutates
// the per-DOF force fields in place and allocates nothing, so a control
// loop can call it every tick. [Model.ForwardDynamics] and
// [Model.MassMatrix] exist for plant simulation and are not
// allocation-free.
//
// A [Group] selects an ordered subset of a model's DOFs, typically the
// joints a controller is authorized to command.
package dynamics
