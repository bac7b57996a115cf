package alignment

import (
	"fmt"
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// AlignmentRequest describes an existing pair of pitch features.
type AlignmentRequest struct {
	PitchRadiusA float64
	PitchRadiusB float64
	IsRackA      bool
	IsRackB      bool
	PitchAxis    Axis
}

// PitchMeshReport is the expected placement of a pair. Gear-gear reports
// carry ExpectedCenterDistance; gear-rack reports carry ExpectedDistance.
// The actual distance is not measured here.
type PitchMeshReport struct {
	Type                   PairType `json:"type"`
	ExpectedCenterDistance *float64 `json:"expectedCenterDistance,omitempty"`
	ExpectedDistance       *float64 `json:"expectedDistance,omitempty"`
	ExpectedOffsetVector   r3.Vec   `json:"expectedOffsetVector"`
	Description            string   `json:"description"`
	Valid                  bool     `json:"valid"`
}

// Expected returns whichever expected distance the report carries.
func (r PitchMeshReport) Expected() (float64, bool) {
	switch {
	case r.ExpectedCenterDistance != nil:
		return *r.ExpectedCenterDistance, true
	case r.ExpectedDistance != nil:
		return *r.ExpectedDistance, true
	}
	return 0, false
}

// CheckAlignment classifies the pair and reports its expected placement.
// Rack-rack pairs are reported as invalid rather than returned as an error.
func CheckAlignment(req AlignmentRequest) (PitchMeshReport, error) {
	axis := req.PitchAxis
	if axis == "" {
		axis = AxisY
	}
	if axis != AxisX && axis != AxisY {
		return PitchMeshReport{}, kinerr.Invalid("pitchAxis", "must be \"x\" or \"y\", got %q", axis)
	}

	r := PitchMeshReport{Type: Classify(req.IsRackA, req.IsRackB)}
	switch r.Type {
	case RackRack:
		r.Description = "Two racks cannot mesh directly; a gear must sit between them."
		return r, nil

	case GearGear:
		if err := kinerr.RequirePositive("pitchRadiusA", req.PitchRadiusA); err != nil {
			return PitchMeshReport{}, err
		}
		if err := kinerr.RequirePositive("pitchRadiusB", req.PitchRadiusB); err != nil {
			return PitchMeshReport{}, err
		}
		d := req.PitchRadiusA + req.PitchRadiusB
		r.ExpectedCenterDistance = &d
		r.ExpectedOffsetVector = r3.Scale(d, axis.Unit())
		r.Description = fmt.Sprintf(
			"Gear-gear mesh: centers %s mm apart along %s (pitch radii %s + %s).",
			num(d), axis, num(req.PitchRadiusA), num(req.PitchRadiusB))

	case GearRack:
		gearRadius, field := req.PitchRadiusA, "pitchRadiusA"
		if req.IsRackA {
			gearRadius, field = req.PitchRadiusB, "pitchRadiusB"
		}
		if err := kinerr.RequirePositive(field, gearRadius); err != nil {
			return PitchMeshReport{}, err
		}
		d := gearRadius
		r.ExpectedDistance = &d
		// Offset runs from A to B: rack below gear.
		sign := 1.0
		if req.IsRackB {
			sign = -1
		}
		r.ExpectedOffsetVector = r3.Scale(sign*d, axis.Unit())
		r.Description = fmt.Sprintf(
			"Gear-rack mesh: gear center %s mm from the rack pitch line along %s (gear pitch radius).",
			num(d), axis)
	}
	r.Valid = true
	return r, nil
}

// Residual compares a measured placement against a report.
type Residual struct {
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
	Residual float64 `json:"residual"` // actual - expected
	Within   bool    `json:"within"`
}

// ValidatePlacement projects actualOffset (from A to B) onto the report's
// expected direction and compares it with the expected distance. An offset
// pointing the wrong way projects negative. Invalid reports cannot be
// validated.
func ValidatePlacement(r PitchMeshReport, actualOffset r3.Vec, tolerance float64) (Residual, error) {
	if !r.Valid {
		return Residual{}, kinerr.New(kinerr.KindUnsupportedConfiguration, "",
			"%s pairs have no valid placement", r.Type)
	}
	expected, _ := r.Expected()
	var actual float64
	if n := r3.Norm(r.ExpectedOffsetVector); n > 0 {
		actual = r3.Dot(actualOffset, r3.Scale(1/n, r.ExpectedOffsetVector))
	}
	res := actual - expected
	return Residual{
		Expected: expected,
		Actual:   actual,
		Residual: res,
		Within:   math.Abs(res) <= math.Abs(tolerance),
	}, nil
}
