// Package pitch derives pitch geometry for gears and racks from their
// construction parameters. Everything here is a pure function of its inputs:
// a feature can be re-derived at any time from module and tooth count alone.
package pitch

import (
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Feature is a pitch descriptor: either a Circle (gear) or a Line (rack).
type Feature interface {
	pitchFeature() // marker method restricting implementations to this package
	// PitchModule returns the tooth-size module in mm.
	PitchModule() float64
}

// Circle is the pitch circle of a spur gear.
// Invariant: Diameter == Module*Teeth and Radius == Diameter/2.
type Circle struct {
	Radius   float64 `json:"radius"`
	Diameter float64 `json:"diameter"`
	Module   float64 `json:"module"`
	Teeth    int     `json:"teeth"`
}

func (Circle) pitchFeature() {}

// PitchModule returns the gear module.
func (c Circle) PitchModule() float64 { return c.Module }

// CircularPitch returns the arc length per tooth on the pitch circle.
func (c Circle) CircularPitch() float64 { return CircularPitch(c.Module) }

// Circumference returns the pitch circle circumference.
func (c Circle) Circumference() float64 { return c.CircularPitch() * float64(c.Teeth) }

// Line is the pitch line of a rack: a straight reference line along which a
// meshing gear's pitch circle rolls.
type Line struct {
	Point     r3.Vec  `json:"point"`
	Direction r3.Vec  `json:"direction"` // unit, along the rack
	Normal    r3.Vec  `json:"normal"`    // unit, from the rack toward its teeth
	Module    float64 `json:"module"`
}

func (Line) pitchFeature() {}

// PitchModule returns the rack module.
func (l Line) PitchModule() float64 { return l.Module }

// CircularPitch returns the tooth spacing along the pitch line.
func (l Line) CircularPitch() float64 { return CircularPitch(l.Module) }

// Default pitch line frame: racks run along +X with teeth facing +Y.
var (
	DefaultLineDirection = r3.Vec{X: 1}
	DefaultLineNormal    = r3.Vec{Y: 1}
)

// CircleFeatures returns the pitch circle for a gear of the given module and
// tooth count.
func CircleFeatures(module float64, teeth int) (Circle, error) {
	if err := kinerr.RequirePositive("module", module); err != nil {
		return Circle{}, err
	}
	if teeth <= 0 {
		return Circle{}, kinerr.Invalid("teeth", "must be positive, got %d", teeth)
	}
	d := module * float64(teeth)
	return Circle{
		Radius:   d / 2,
		Diameter: d,
		Module:   module,
		Teeth:    teeth,
	}, nil
}

// LineFeatures returns the pitch line of a rack in the default frame.
func LineFeatures(module float64) (Line, error) {
	return LineFeaturesAt(module, r3.Vec{}, DefaultLineDirection, DefaultLineNormal)
}

// LineFeaturesAt returns a pitch line through point. Direction and normal are
// normalized; they must be non-zero and perpendicular.
func LineFeaturesAt(module float64, point, direction, normal r3.Vec) (Line, error) {
	if err := kinerr.RequirePositive("module", module); err != nil {
		return Line{}, err
	}
	dn := r3.Norm(direction)
	nn := r3.Norm(normal)
	if dn == 0 || math.IsNaN(dn) {
		return Line{}, kinerr.Invalid("direction", "must be a non-zero vector")
	}
	if nn == 0 || math.IsNaN(nn) {
		return Line{}, kinerr.Invalid("normal", "must be a non-zero vector")
	}
	d := r3.Scale(1/dn, direction)
	n := r3.Scale(1/nn, normal)
	if math.Abs(r3.Dot(d, n)) > 1e-9 {
		return Line{}, kinerr.Invalid("normal", "must be perpendicular to direction")
	}
	return Line{Point: point, Direction: d, Normal: n, Module: module}, nil
}

// CircularPitch is the arc length per tooth: module*pi.
func CircularPitch(module float64) float64 {
	return module * math.Pi
}

// AngularPitchDegrees is the angle subtended by one tooth: 360/teeth.
func AngularPitchDegrees(teeth int) float64 {
	return 360 / float64(teeth)
}

// RollDistance returns the distance a pitch line travels when a pitch circle
// of the given radius rolls through degrees without slipping.
func RollDistance(radius, degrees float64) float64 {
	return Radians(degrees) * radius
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
