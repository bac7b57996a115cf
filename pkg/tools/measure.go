package tools

import (
	"context"

	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/pitch"
)

// MeasureInput is {module, teeth} for a gear or {module} for a rack.
type MeasureInput struct {
	Module float64 `json:"module" jsonschema:"tooth size module in mm"`
	Teeth  *int    `json:"teeth,omitempty" jsonschema:"tooth count; omit to measure a rack"`
}

// PitchCircle is the gear branch of measure_geometry.
type PitchCircle struct {
	Module        float64 `json:"module"`
	Teeth         int     `json:"teeth"`
	PitchDiameter float64 `json:"pitchDiameter"`
	PitchRadius   float64 `json:"pitchRadius"`
}

// PitchLine is the rack branch of measure_geometry.
type PitchLine struct {
	Module float64 `json:"module"`
}

// MeasureOutput carries the pitch feature and the library phase metadata.
type MeasureOutput struct {
	PitchCircle   *PitchCircle        `json:"pitchCircle,omitempty"`
	PitchLine     *PitchLine          `json:"pitchLine,omitempty"`
	PhaseMetadata *partlib.PhaseShift `json:"phaseMetadata,omitempty"`
	Failure
}

// MeasureGeometry derives the pitch feature of a gear or rack. The phase
// metadata is re-derived from the part library for the measured gear, or
// for the stock pinion at the given module when measuring a rack.
func (t *Toolbox) MeasureGeometry(_ context.Context, in MeasureInput) MeasureOutput {
	if err := kinerr.RequirePositive("module", in.Module); err != nil {
		return MeasureOutput{Failure: fail(err)}
	}

	var out MeasureOutput
	teeth := t.library.Pinion.Teeth
	if in.Teeth != nil {
		c, err := pitch.CircleFeatures(in.Module, *in.Teeth)
		if err != nil {
			return MeasureOutput{Failure: fail(err)}
		}
		out.PitchCircle = &PitchCircle{
			Module:        c.Module,
			Teeth:         c.Teeth,
			PitchDiameter: c.Diameter,
			PitchRadius:   c.Radius,
		}
		teeth = c.Teeth
	} else {
		l, err := pitch.LineFeatures(in.Module)
		if err != nil {
			return MeasureOutput{Failure: fail(err)}
		}
		out.PitchLine = &PitchLine{Module: l.Module}
	}

	shift, err := t.library.PhaseShiftFor(in.Module, teeth)
	if err != nil {
		return MeasureOutput{Failure: fail(err)}
	}
	out.PhaseMetadata = &shift
	return out
}
