// Package urdf parses URDF robot descriptions into a structured form
// consumable by the dynamics package.
package urdf

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Joint types accepted by Parse. "fixed" joints contribute structure
// but no degree of freedom.
const (
	JointRevolute   = "revolute"
	JointContinuous = "continuous"
	JointPrismatic  = "prismatic"
	JointFixed      = "fixed"
)

type Robot struct {
	XMLName xml.Name `xml:"robot"`
	Name    string   `xml:"name,attr"`
	Links   []Link   `xml:"link"`
	Joints  []Joint  `xml:"joint"`
}

type Link struct {
	Name     string    `xml:"name,attr"`
	Inertial *Inertial `xml:"inertial"`
	Visuals  []Visual  `xml:"visual"`
}

type Inertial struct {
	Origin  *Origin `xml:"origin"`
	Mass    Mass    `xml:"mass"`
	Inertia Inertia `xml:"inertia"`
}

type Mass struct {
	Value float64 `xml:"value,attr"`
}

type Inertia struct {
	Ixx float64 `xml:"ixx,attr"`
	Ixy float64 `xml:"ixy,attr"`
	Ixz float64 `xml:"ixz,attr"`
	Iyy float64 `xml:"iyy,attr"`
	Iyz float64 `xml:"iyz,attr"`
	Izz float64 `xml:"izz,attr"`
}

type Visual struct {
	Geometry *Geometry `xml:"geometry"`
}

type Geometry struct {
	Mesh *Mesh `xml:"mesh"`
}

type Mesh struct {
	Filename string `xml:"filename,attr"`
}

type Joint struct {
	Name   string  `xml:"name,attr"`
	Type   string  `xml:"type,attr"`
	Origin *Origin `xml:"origin"`
	Parent Frame   `xml:"parent"`
	Child  Frame   `xml:"child"`
	Axis   *Axis   `xml:"axis"`
	Limit  *Limit  `xml:"limit"`
}

type Frame struct {
	Link string `xml:"link,attr"`
}

type Limit struct {
	Lower  float64 `xml:"lower,attr"`
	Upper  float64 `xml:"upper,attr"`
	Effort float64 `xml:"effort,attr"`
}

// Origin holds a pose as space-delimited "x y z" / "roll pitch yaw"
// strings, the raw URDF encoding.
type Origin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

// Translation parses the xyz attribute. A missing attribute is the zero
// vector.
func (o *Origin) Translation() ([3]float64, error) {
	if o == nil || o.XYZ == "" {
		return [3]float64{}, nil
	}
	return parseTriple(o.XYZ)
}

// RollPitchYaw parses the rpy attribute. A missing attribute is the
// identity rotation.
func (o *Origin) RollPitchYaw() ([3]float64, error) {
	if o == nil || o.RPY == "" {
		return [3]float64{}, nil
	}
	return parseTriple(o.RPY)
}

type Axis struct {
	XYZ string `xml:"xyz,attr"` // "x y z", unit vector in the joint frame
}

// Vector parses the axis attribute. URDF defaults to the x axis when no
// axis element is present.
func (a *Axis) Vector() ([3]float64, error) {
	if a == nil || a.XYZ == "" {
		return [3]float64{1, 0, 0}, nil
	}
	return parseTriple(a.XYZ)
}

func parseTriple(s string) ([3]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return [3]float64{}, fmt.Errorf("urdf: expected 3 values in %q, got %d", s, len(fields))
	}
	var out [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("urdf: bad number %q in %q", f, s)
		}
		out[i] = v
	}
	return out, nil
}

// Parse decodes a URDF document and validates its joint graph. Every
// joint must reference declared links and carry a supported type.
func Parse(data []byte) (*Robot, error) {
	var robot Robot
	if err := xml.Unmarshal(data, &robot); err != nil {
		return nil, fmt.Errorf("urdf: %w", err)
	}
	if len(robot.Links) == 0 {
		return nil, fmt.Errorf("urdf: robot %q has no links", robot.Name)
	}

	links := make(map[string]bool, len(robot.Links))
	for _, l := range robot.Links {
		if links[l.Name] {
			return nil, fmt.Errorf("urdf: duplicate link %q", l.Name)
		}
		links[l.Name] = true
	}

	joints := make(map[string]bool, len(robot.Joints))
	for _, j := range robot.Joints {
		switch j.Type {
		case JointRevolute, JointContinuous, JointPrismatic, JointFixed:
		default:
			return nil, fmt.Errorf("urdf: joint %q has unsupported type %q", j.Name, j.Type)
		}
		if joints[j.Name] {
			return nil, fmt.Errorf("urdf: duplicate joint %q", j.Name)
		}
		joints[j.Name] = true
		if !links[j.Parent.Link] {
			return nil, fmt.Errorf("urdf: joint %q references unknown parent link %q", j.Name, j.Parent.Link)
		}
		if !links[j.Child.Link] {
			return nil, fmt.Errorf("urdf: joint %q references unknown child link %q", j.Name, j.Child.Link)
		}
	}

	return &robot, nil
}

// MeshURIs lists every mesh reference in the description, in document
// order, without duplicates.
func (r *Robot) MeshURIs() []string {
	seen := make(map[string]bool)
	var uris []string
	for _, l := range r.Links {
		for _, v := range l.Visuals {
			if v.Geometry == nil || v.Geometry.Mesh == nil {
				continue
			}
			uri := v.Geometry.Mesh.Filename
			if uri == "" || seen[uri] {
				continue
			}
			seen[uri] = true
			uris = append(uris, uri)
		}
	}
	return uris
}

// ResolveAssets fetches every mesh reference through the retriever and
// reports the first failure. Mesh contents never affect dynamics; this
// exists so configuration problems surface before a controller is
// started.
func (r *Robot) ResolveAssets(ret Retriever) error {
	for _, uri := range r.MeshURIs() {
		if _, err := ret.Retrieve(uri); err != nil {
			return fmt.Errorf("urdf: resolving %q: %w", uri, err)
		}
	}
	return nil
}
