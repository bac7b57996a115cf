// Package alignment computes where two pitch features must sit to mesh and
// reports the expected placement for an existing pair.
//
// Gears mesh when their pitch circles touch: the center distance is the sum
// of the pitch radii plus any mesh gap. A gear meshes with a rack when its
// pitch circle touches the rack's pitch line, so the perpendicular distance
// from gear center to pitch line is the gear's pitch radius plus the gap.
// Two racks never mesh directly.
package alignment

import (
	"fmt"
	"math"
	"strconv"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis is the pitch axis along which a placement offset is applied.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// ParseAxis accepts "x", "y" or the empty string (defaults to y).
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "y", "Y":
		return AxisY, nil
	case "x", "X":
		return AxisX, nil
	}
	return "", kinerr.Invalid("pitchAxis", "must be \"x\" or \"y\", got %q", s)
}

// Unit returns the unit vector of the axis.
func (a Axis) Unit() r3.Vec {
	if a == AxisX {
		return r3.Vec{X: 1}
	}
	return r3.Vec{Y: 1}
}

// PairType classifies a pair of pitch features.
type PairType string

const (
	GearGear PairType = "gear-gear"
	GearRack PairType = "gear-rack"
	RackRack PairType = "rack-rack"
)

// Classify returns the pair type for two features.
func Classify(isRackA, isRackB bool) PairType {
	switch {
	case isRackA && isRackB:
		return RackRack
	case isRackA || isRackB:
		return GearRack
	default:
		return GearGear
	}
}

// PlacementRequest asks where target must go relative to reference.
type PlacementRequest struct {
	Target               string
	Reference            string
	TargetPitchRadius    float64
	ReferencePitchRadius float64
	TargetIsRack         bool
	ReferenceIsRack      bool
	Gap                  float64
	PitchAxis            Axis
}

// Placement is the offset of target's origin from reference's origin.
type Placement struct {
	Type     PairType
	Axis     Axis
	Distance float64 // signed, along Axis
	Offset   r3.Vec

	// TranslateExpression places target in script form.
	TranslateExpression string
	// Explanation is display text; nothing branches on it.
	Explanation string
}

// PositionRelative computes the pitch-aligned placement of target.
func PositionRelative(req PlacementRequest) (Placement, error) {
	axis := req.PitchAxis
	if axis == "" {
		axis = AxisY
	}
	if axis != AxisX && axis != AxisY {
		return Placement{}, kinerr.Invalid("pitchAxis", "must be \"x\" or \"y\", got %q", axis)
	}
	if err := kinerr.RequireFinite("gap", req.Gap); err != nil {
		return Placement{}, err
	}

	p := Placement{Type: Classify(req.TargetIsRack, req.ReferenceIsRack), Axis: axis}
	switch p.Type {
	case RackRack:
		return Placement{}, kinerr.New(kinerr.KindUnsupportedConfiguration, "",
			"two racks cannot mesh directly; place a gear between them")

	case GearGear:
		if err := kinerr.RequirePositive("targetPitchRadius", req.TargetPitchRadius); err != nil {
			return Placement{}, err
		}
		if err := kinerr.RequirePositive("referencePitchRadius", req.ReferencePitchRadius); err != nil {
			return Placement{}, err
		}
		p.Distance = req.TargetPitchRadius + req.ReferencePitchRadius + req.Gap
		p.Explanation = fmt.Sprintf(
			"Pitch circles touch when the center distance equals the sum of the pitch radii: "+
				"%s + %s + gap %s = %s mm along %s.",
			num(req.TargetPitchRadius), num(req.ReferencePitchRadius), num(req.Gap), num(p.Distance), axis)

	case GearRack:
		var gearRadius float64
		var field string
		if req.TargetIsRack {
			gearRadius, field = req.ReferencePitchRadius, "referencePitchRadius"
		} else {
			gearRadius, field = req.TargetPitchRadius, "targetPitchRadius"
		}
		if err := kinerr.RequirePositive(field, gearRadius); err != nil {
			return Placement{}, err
		}
		p.Distance = gearRadius + req.Gap
		if req.TargetIsRack {
			p.Distance = -p.Distance
			p.Explanation = fmt.Sprintf(
				"The rack pitch line must touch the gear pitch circle, so the rack sits %s mm "+
					"(pitch radius %s + gap %s) below the gear center along -%s.",
				num(-p.Distance), num(gearRadius), num(req.Gap), axis)
		} else {
			p.Explanation = fmt.Sprintf(
				"The gear pitch circle must touch the rack pitch line, so the gear center sits %s mm "+
					"(pitch radius %s + gap %s) above the pitch line along +%s.",
				num(p.Distance), num(gearRadius), num(req.Gap), axis)
		}
	}

	p.Offset = r3.Scale(p.Distance, axis.Unit())
	p.TranslateExpression = TranslateExpression(req.Target, req.Reference, p.Offset)
	return p, nil
}

// TranslateExpression returns the script form placing target at offset from
// reference.
func TranslateExpression(target, reference string, offset r3.Vec) string {
	return fmt.Sprintf("(place (part %q) :relative-to (part %q) :offset (vec3 %s %s %s))",
		target, reference, num(offset.X), num(offset.Y), num(offset.Z))
}

// num formats a float without trailing zeros and without negative zero.
func num(v float64) string {
	if v == 0 || math.Abs(v) < 1e-12 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
