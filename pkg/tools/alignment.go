package tools

import (
	"context"

	"github.com/chazu/cogwright/pkg/alignment"
	"github.com/chazu/cogwright/pkg/kinerr"
)

// Supported modes of the alignment tools.
const (
	PitchAligned = "pitch_aligned"
	PitchMesh    = "pitch_mesh"
)

// PositionInput asks where target must sit to mesh with reference.
type PositionInput struct {
	Alignment            string  `json:"alignment,omitempty" jsonschema:"alignment mode; only pitch_aligned is supported"`
	Target               string  `json:"target" jsonschema:"name of the part being placed"`
	Reference            string  `json:"reference" jsonschema:"name of the part it meshes with"`
	TargetPitchRadius    float64 `json:"targetPitchRadius,omitempty" jsonschema:"pitch radius of the target in mm; ignored for racks"`
	ReferencePitchRadius float64 `json:"referencePitchRadius,omitempty" jsonschema:"pitch radius of the reference in mm"`
	TargetIsRack         bool    `json:"targetIsRack,omitempty"`
	ReferenceIsRack      bool    `json:"referenceIsRack,omitempty"`
	Gap                  float64 `json:"gap,omitempty" jsonschema:"intentional radial clearance in mm"`
	PitchAxis            string  `json:"pitchAxis,omitempty" jsonschema:"x or y, default y"`
}

// PositionOutput is the script expression placing target.
type PositionOutput struct {
	TranslateExpression string  `json:"translateExpression,omitempty"`
	Explanation         string  `json:"explanation,omitempty"`
	Type                string  `json:"type,omitempty"`
	Distance            float64 `json:"distance,omitempty"`
	Offset              *Vec3   `json:"offset,omitempty"`
	Failure
}

// PositionRelative computes the pitch-aligned placement of target.
func (t *Toolbox) PositionRelative(_ context.Context, in PositionInput) PositionOutput {
	if in.Alignment != "" && in.Alignment != PitchAligned {
		return PositionOutput{Failure: fail(kinerr.New(kinerr.KindUnsupportedConfiguration, "alignment",
			"only %q is supported, got %q", PitchAligned, in.Alignment))}
	}
	axis, err := alignment.ParseAxis(in.PitchAxis)
	if err != nil {
		return PositionOutput{Failure: fail(err)}
	}
	p, err := alignment.PositionRelative(alignment.PlacementRequest{
		Target:               in.Target,
		Reference:            in.Reference,
		TargetPitchRadius:    in.TargetPitchRadius,
		ReferencePitchRadius: in.ReferencePitchRadius,
		TargetIsRack:         in.TargetIsRack,
		ReferenceIsRack:      in.ReferenceIsRack,
		Gap:                  in.Gap,
		PitchAxis:            axis,
	})
	if err != nil {
		return PositionOutput{Failure: fail(err)}
	}
	offset := vecOf(p.Offset)
	return PositionOutput{
		TranslateExpression: p.TranslateExpression,
		Explanation:         p.Explanation,
		Type:                string(p.Type),
		Distance:            p.Distance,
		Offset:              &offset,
	}
}

// AlignmentInput describes an existing pair of pitch features.
type AlignmentInput struct {
	CheckType    string  `json:"checkType,omitempty" jsonschema:"check mode; only pitch_mesh is supported"`
	PitchRadiusA float64 `json:"pitchRadiusA,omitempty" jsonschema:"pitch radius of part A in mm; ignored for racks"`
	PitchRadiusB float64 `json:"pitchRadiusB,omitempty" jsonschema:"pitch radius of part B in mm; ignored for racks"`
	IsRackA      bool    `json:"isRackA,omitempty"`
	IsRackB      bool    `json:"isRackB,omitempty"`
	PitchAxis    string  `json:"pitchAxis,omitempty" jsonschema:"x or y, default y"`
}

// PitchMeshReport is the expected placement of a pair.
type PitchMeshReport struct {
	Type                   string   `json:"type"`
	ExpectedCenterDistance *float64 `json:"expectedCenterDistance,omitempty"`
	ExpectedDistance       *float64 `json:"expectedDistance,omitempty"`
	ExpectedOffsetVector   Vec3     `json:"expectedOffsetVector"`
	Description            string   `json:"description"`
	Valid                  bool     `json:"valid"`
}

// AlignmentOutput wraps the report.
type AlignmentOutput struct {
	PitchMesh *PitchMeshReport `json:"pitchMesh,omitempty"`
	Failure
}

// CheckAlignment reports the expected placement of a pair. Rack-rack pairs
// come back as an invalid report, not an error.
func (t *Toolbox) CheckAlignment(_ context.Context, in AlignmentInput) AlignmentOutput {
	if in.CheckType != "" && in.CheckType != PitchMesh {
		return AlignmentOutput{Failure: fail(kinerr.New(kinerr.KindUnsupportedConfiguration, "checkType",
			"only %q is supported, got %q", PitchMesh, in.CheckType))}
	}
	axis, err := alignment.ParseAxis(in.PitchAxis)
	if err != nil {
		return AlignmentOutput{Failure: fail(err)}
	}
	r, err := alignment.CheckAlignment(alignment.AlignmentRequest{
		PitchRadiusA: in.PitchRadiusA,
		PitchRadiusB: in.PitchRadiusB,
		IsRackA:      in.IsRackA,
		IsRackB:      in.IsRackB,
		PitchAxis:    axis,
	})
	if err != nil {
		return AlignmentOutput{Failure: fail(err)}
	}
	return AlignmentOutput{PitchMesh: &PitchMeshReport{
		Type:                   string(r.Type),
		ExpectedCenterDistance: r.ExpectedCenterDistance,
		ExpectedDistance:       r.ExpectedDistance,
		ExpectedOffsetVector:   vecOf(r.ExpectedOffsetVector),
		Description:            r.Description,
		Valid:                  r.Valid,
	}}
}
