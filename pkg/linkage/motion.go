package linkage

import (
	"fmt"
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose6 is [x, y, z, rx, ry, rz]: position in mm, Euler angles in degrees.
type Pose6 [6]float64

// Position returns the linear part of the pose.
func (p Pose6) Position() r3.Vec { return r3.Vec{X: p[0], Y: p[1], Z: p[2]} }

// Rotation returns the Euler angles of the pose in degrees.
func (p Pose6) Rotation() r3.Vec { return r3.Vec{X: p[3], Y: p[4], Z: p[5]} }

// PoseOf assembles a pose from position and rotation.
func PoseOf(position, rotation r3.Vec) Pose6 {
	return Pose6{position.X, position.Y, position.Z, rotation.X, rotation.Y, rotation.Z}
}

// Motion is a body's declared start and end pose. Only the difference
// between the two is meaningful. An omitted initial pose is the origin.
type Motion struct {
	Initial Pose6 `json:"initial,omitempty"`
	Final   Pose6 `json:"final"`
}

func (m Motion) validate(name string) error {
	for i := range m.Initial {
		if err := kinerr.RequireFinite(fmt.Sprintf("%s.initial[%d]", name, i), m.Initial[i]); err != nil {
			return err
		}
		if err := kinerr.RequireFinite(fmt.Sprintf("%s.final[%d]", name, i), m.Final[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeltaPosition is final minus initial position.
func (m Motion) DeltaPosition() r3.Vec {
	return r3.Sub(m.Final.Position(), m.Initial.Position())
}

// DeltaRotation is the signed component-wise difference of the Euler
// angles. It is not wrapped: a declared 370 degree turn stays 370.
func (m Motion) DeltaRotation() r3.Vec {
	return r3.Sub(m.Final.Rotation(), m.Initial.Rotation())
}

// PositionAt interpolates the position affinely.
func (m Motion) PositionAt(progress float64) r3.Vec {
	return r3.Add(m.Initial.Position(), r3.Scale(progress, m.DeltaPosition()))
}

// AxisDelta is a motion's dominant axis and its signed magnitude.
type AxisDelta struct {
	Axis  string  `json:"axis"`
	Delta float64 `json:"delta"`
}

// dominant returns the axis of the largest component of v and the norm of
// v signed like that component.
func dominant(v r3.Vec) AxisDelta {
	axis, comp := "x", v.X
	if math.Abs(v.Y) > math.Abs(comp) {
		axis, comp = "y", v.Y
	}
	if math.Abs(v.Z) > math.Abs(comp) {
		axis, comp = "z", v.Z
	}
	n := r3.Norm(v)
	if comp < 0 {
		n = -n
	}
	return AxisDelta{Axis: axis, Delta: n}
}

// unit returns the unit vector of an axis name.
func unit(axis string) r3.Vec {
	switch axis {
	case "x":
		return r3.Vec{X: 1}
	case "y":
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}
