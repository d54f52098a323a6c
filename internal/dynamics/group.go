package dynamics

import "fmt"

// Group is an ordered, named subset of a model's DOFs. Order is fixed
// at construction and serves as the canonical index for anything bound
// per controlled DOF.
type Group struct {
	name  string
	dofs  []*DOF
	index map[string]int
}

func NewGroup(name string) *Group {
	return &Group{
		name:  name,
		index: make(map[string]int),
	}
}

func (g *Group) Name() string { return g.name }

// AddDof appends a DOF to the group. Adding the same name twice is an
// error; the group's name→index map is bijective.
func (g *Group) AddDof(d *DOF) error {
	if _, ok := g.index[d.Name()]; ok {
		return fmt.Errorf("dynamics: group %q already contains DOF %q", g.name, d.Name())
	}
	g.index[d.Name()] = len(g.dofs)
	g.dofs = append(g.dofs, d)
	return nil
}

func (g *Group) NumDofs() int { return len(g.dofs) }

// Dof returns the i-th DOF in group order.
func (g *Group) Dof(i int) *DOF { return g.dofs[i] }

// Index returns the group-order index of the named DOF.
func (g *Group) Index(name string) (int, bool) {
	i, ok := g.index[name]
	return i, ok
}
