package model

import (
	"fmt"
	"math"
)

// Eps is the tolerance used for all coordinate comparisons. Coordinates read
// back from a MIP engine are snapped to this grid before use.
const Eps = 1e-6

// Axis identifies one of the three spatial axes.
type Axis int

const (
	AxisX Axis = iota // Container length
	AxisY             // Container width
	AxisZ             // Container height (gravity points towards z=0)
)

// Axes lists the axes in index order.
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// SettleOrder is the order in which items are projected towards the origin:
// down first, then inwards.
var SettleOrder = [3]Axis{AxisZ, AxisY, AxisX}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "z"
	}
}

// Others returns the two axes orthogonal to a, in cyclic order.
func (a Axis) Others() (Axis, Axis) {
	return (a + 1) % 3, (a + 2) % 3
}

// Vec3 is a point or an extent indexed by Axis.
type Vec3 [3]float64

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Volume returns the product of the components.
func (v Vec3) Volume() float64 {
	return v[0] * v[1] * v[2]
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Snap rounds every component to the Eps grid.
func (v Vec3) Snap() Vec3 {
	for k := range v {
		v[k] = math.Round(v[k]/Eps) * Eps
		if v[k] == 0 {
			v[k] = 0 // drop negative zero
		}
	}
	return v
}

// Negative reports whether any component is below zero.
func (v Vec3) Negative() bool {
	return v[0] < -Eps || v[1] < -Eps || v[2] < -Eps
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// Orientation maps an item's sorted dimensions (l <= w <= h) onto the x, y
// and z axes.
type Orientation int

const (
	OrientLWH Orientation = iota // x=l y=w z=h
	OrientLHW                    // x=l y=h z=w
	OrientWLH                    // x=w y=l z=h
	OrientWHL                    // x=w y=h z=l
	OrientHLW                    // x=h y=l z=w
	OrientHWL                    // x=h y=w z=l
)

// Orientations lists all orientations in the order the packer tries them.
var Orientations = [6]Orientation{OrientLWH, OrientLHW, OrientWLH, OrientWHL, OrientHLW, OrientHWL}

// orientationPerm[o][axis] is the index of the sorted dimension placed on axis.
var orientationPerm = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

func (o Orientation) String() string {
	switch o {
	case OrientLWH:
		return "LWH"
	case OrientLHW:
		return "LHW"
	case OrientWLH:
		return "WLH"
	case OrientWHL:
		return "WHL"
	case OrientHLW:
		return "HLW"
	case OrientHWL:
		return "HWL"
	default:
		return "unset"
	}
}

// Valid reports whether o is one of the six orientations.
func (o Orientation) Valid() bool {
	return o >= OrientLWH && o <= OrientHWL
}

// Perm returns, for each axis, the index of the sorted dimension mapped onto it.
func (o Orientation) Perm() [3]int {
	return orientationPerm[o]
}

// Apply permutes sorted dimensions into effective x, y, z extents.
func (o Orientation) Apply(dims Vec3) Vec3 {
	p := orientationPerm[o]
	return Vec3{dims[p[0]], dims[p[1]], dims[p[2]]}
}

// OrientationFromPerm returns the orientation whose permutation matches
// perm, or false if perm is not a permutation of 0..2.
func OrientationFromPerm(perm [3]int) (Orientation, bool) {
	for _, o := range Orientations {
		if orientationPerm[o] == perm {
			return o, true
		}
	}
	return -1, false
}

// Box is an axis-aligned cuboid given by its minimum corner and extent.
type Box struct {
	Min  Vec3 `json:"min"`
	Size Vec3 `json:"size"`
}

// Max returns the far corner.
func (b Box) Max() Vec3 {
	return b.Min.Add(b.Size)
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	return b.Size.Volume()
}

// Footprint returns the projection of the box onto the plane orthogonal to axis.
func (b Box) Footprint(axis Axis) Rect {
	a1, a2 := axis.Others()
	return Rect{X: b.Min[a1], Y: b.Min[a2], W: b.Size[a1], H: b.Size[a2]}
}

// Base returns the footprint on the floor plane.
func (b Box) Base() Rect {
	return Rect{X: b.Min[AxisX], Y: b.Min[AxisY], W: b.Size[AxisX], H: b.Size[AxisY]}
}

// Within reports whether b lies inside [0,limit] on every axis.
func (b Box) Within(limit Vec3) bool {
	if b.Min.Negative() {
		return false
	}
	max := b.Max()
	for k := range max {
		if max[k] > limit[k]+Eps {
			return false
		}
	}
	return true
}

// OverlapsOn reports whether the open intervals of a and b overlap on axis.
// A zero-length interval never overlaps anything.
func OverlapsOn(a, b Box, axis Axis) bool {
	if a.Size[axis] <= Eps || b.Size[axis] <= Eps {
		return false
	}
	return a.Min[axis] < b.Min[axis]+b.Size[axis]-Eps && b.Min[axis] < a.Min[axis]+a.Size[axis]-Eps
}

// Intersects reports whether two boxes overlap strictly on all three axes.
// Touching faces do not intersect.
func Intersects(a, b Box) bool {
	return OverlapsOn(a, b, AxisX) && OverlapsOn(a, b, AxisY) && OverlapsOn(a, b, AxisZ)
}

// Rect is an axis-aligned rectangle in a projection plane.
type Rect struct {
	X, Y, W, H float64
}

// Area returns the rectangle area.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// RectOverlapArea returns the overlap area of two rectangles, 0 if disjoint.
func RectOverlapArea(a, b Rect) float64 {
	w := math.Min(a.X+a.W, b.X+b.W) - math.Max(a.X, b.X)
	h := math.Min(a.Y+a.H, b.Y+b.H) - math.Max(a.Y, b.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Approx reports whether a and b are equal within Eps.
func Approx(a, b float64) bool {
	return math.Abs(a-b) <= Eps
}
