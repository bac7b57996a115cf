package tools_test

import (
	"context"
	"math"
	"testing"

	"github.com/chazu/cogwright/pkg/diagnostics"
	"github.com/chazu/cogwright/pkg/kernel/sdfx"
	"github.com/chazu/cogwright/pkg/linkage"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func newToolbox(opts ...tools.Option) *tools.Toolbox {
	return tools.New(append([]tools.Option{tools.WithKernel(sdfx.NewWithCells(40))}, opts...)...)
}

func TestMeasureGear(t *testing.T) {
	out := newToolbox().MeasureGeometry(context.Background(), tools.MeasureInput{Module: 1, Teeth: intp(20)})
	require.Nil(t, out.Error)
	require.NotNil(t, out.PitchCircle)
	assert.Nil(t, out.PitchLine)
	assert.Equal(t, 10.0, out.PitchCircle.PitchRadius)
	assert.Equal(t, 20.0, out.PitchCircle.PitchDiameter)

	require.NotNil(t, out.PhaseMetadata)
	assert.Equal(t, -4.5, out.PhaseMetadata.GearInitialToothPhaseOffsetDegrees)
	assert.InDelta(t, 0.25, out.PhaseMetadata.PitchFraction, 1e-12)
	assert.InDelta(t, math.Pi/4, out.PhaseMetadata.Mm, 1e-12)
}

func TestMeasureRack(t *testing.T) {
	out := newToolbox().MeasureGeometry(context.Background(), tools.MeasureInput{Module: 2})
	require.Nil(t, out.Error)
	assert.Nil(t, out.PitchCircle)
	require.NotNil(t, out.PitchLine)
	assert.Equal(t, 2.0, out.PitchLine.Module)

	// Phase metadata is that of the stock pinion at module 2.
	require.NotNil(t, out.PhaseMetadata)
	assert.InDelta(t, 2*math.Pi/4, out.PhaseMetadata.Mm, 1e-12)
}

func TestMeasureInvalid(t *testing.T) {
	tb := newToolbox()

	out := tb.MeasureGeometry(context.Background(), tools.MeasureInput{Module: 0, Teeth: intp(20)})
	require.NotNil(t, out.Error)
	assert.Equal(t, "InvalidParameter", out.Error.Kind)
	assert.Equal(t, "module", out.Error.Field)
	assert.Nil(t, out.PitchCircle)

	out = tb.MeasureGeometry(context.Background(), tools.MeasureInput{Module: 1, Teeth: intp(-3)})
	require.NotNil(t, out.Error)
	assert.Equal(t, "teeth", out.Error.Field)
}

func TestPositionRelative(t *testing.T) {
	tb := newToolbox()

	out := tb.PositionRelative(context.Background(), tools.PositionInput{
		Target: "pinion", Reference: "rack",
		TargetPitchRadius: 10, ReferenceIsRack: true,
	})
	require.Nil(t, out.Error)
	assert.Equal(t, `(place (part "pinion") :relative-to (part "rack") :offset (vec3 0 10 0))`, out.TranslateExpression)
	assert.Equal(t, "gear-rack", out.Type)
	require.NotNil(t, out.Offset)
	assert.Equal(t, tools.Vec3{Y: 10}, *out.Offset)

	out = tb.PositionRelative(context.Background(), tools.PositionInput{
		Target: "rack", Reference: "pinion",
		ReferencePitchRadius: 10, TargetIsRack: true,
	})
	require.Nil(t, out.Error)
	assert.Equal(t, tools.Vec3{Y: -10}, *out.Offset)
}

func TestPositionRelativeFailures(t *testing.T) {
	tb := newToolbox()
	tests := []struct {
		name  string
		in    tools.PositionInput
		kind  string
		field string
	}{
		{"rack-rack", tools.PositionInput{Target: "a", Reference: "b", TargetIsRack: true, ReferenceIsRack: true},
			"UnsupportedConfiguration", ""},
		{"alignment mode", tools.PositionInput{Alignment: "face_aligned", TargetPitchRadius: 1, ReferencePitchRadius: 1},
			"UnsupportedConfiguration", "alignment"},
		{"pitch axis", tools.PositionInput{TargetPitchRadius: 1, ReferencePitchRadius: 1, PitchAxis: "z"},
			"InvalidParameter", "pitchAxis"},
		{"missing radius", tools.PositionInput{TargetPitchRadius: 10},
			"InvalidParameter", "referencePitchRadius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tb.PositionRelative(context.Background(), tt.in)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.kind, out.Error.Kind)
			if tt.field != "" {
				assert.Equal(t, tt.field, out.Error.Field)
			}
			assert.Empty(t, out.TranslateExpression)
		})
	}
}

func TestCheckAlignment(t *testing.T) {
	tb := newToolbox()

	out := tb.CheckAlignment(context.Background(), tools.AlignmentInput{PitchRadiusA: 10, PitchRadiusB: 5, PitchAxis: "x"})
	require.Nil(t, out.Error)
	require.NotNil(t, out.PitchMesh)
	assert.True(t, out.PitchMesh.Valid)
	require.NotNil(t, out.PitchMesh.ExpectedCenterDistance)
	assert.Equal(t, 15.0, *out.PitchMesh.ExpectedCenterDistance)
	assert.Equal(t, tools.Vec3{X: 15}, out.PitchMesh.ExpectedOffsetVector)

	out = tb.CheckAlignment(context.Background(), tools.AlignmentInput{IsRackA: true, IsRackB: true})
	require.Nil(t, out.Error)
	require.NotNil(t, out.PitchMesh)
	assert.False(t, out.PitchMesh.Valid)
	assert.Nil(t, out.PitchMesh.ExpectedCenterDistance)
	assert.Nil(t, out.PitchMesh.ExpectedDistance)

	out = tb.CheckAlignment(context.Background(), tools.AlignmentInput{CheckType: "tooth_contact", PitchRadiusA: 1, PitchRadiusB: 1})
	require.NotNil(t, out.Error)
	assert.Equal(t, "checkType", out.Error.Field)
}

func reference() diagnostics.KinematicModel {
	return diagnostics.KinematicModel{
		Module:                       1,
		PinionTeeth:                  20,
		PinionRotationDegPerProgress: 360,
		RackTranslationMmPerProgress: 20 * math.Pi,
		GearCenterAxisPosition:       10,
	}
}

func TestCheckAnimationIntersections(t *testing.T) {
	tb := newToolbox()

	out := tb.CheckAnimationIntersections(context.Background(), reference())
	require.Nil(t, out.Error)
	assert.True(t, out.Pass)
	assert.Equal(t, 10.0, out.PitchModel.PitchRadius)
	assert.Equal(t, diagnostics.DefaultSamples, out.Phase.Samples)

	m := reference()
	m.GearCenterAxisPosition = 9
	out = tb.CheckAnimationIntersections(context.Background(), m)
	require.Nil(t, out.Error)
	assert.False(t, out.Pass)
	assert.True(t, out.RadialCheck.HasRadialIntersectionRisk)
}

func TestCheckAnimationIntersectionsDefaults(t *testing.T) {
	tb := newToolbox(tools.WithDiagnosticDefaults(11, 0.5))
	out := tb.CheckAnimationIntersections(context.Background(), reference())
	require.Nil(t, out.Error)
	assert.Equal(t, 11, out.Phase.Samples)
	assert.Equal(t, 0.5, out.Phase.Tolerance)

	m := reference()
	m.Samples = intp(21)
	out = tb.CheckAnimationIntersections(context.Background(), m)
	require.Nil(t, out.Error)
	assert.Equal(t, 21, out.Phase.Samples)
}

func TestCheckAnimationIntersectionsInvalid(t *testing.T) {
	m := reference()
	m.Module = -1
	out := newToolbox().CheckAnimationIntersections(context.Background(), m)
	require.NotNil(t, out.Error)
	assert.Equal(t, "InvalidParameter", out.Error.Kind)
	assert.Equal(t, "module", out.Error.Field)
}

// rolls half a turn of a 10 mm pitch radius: the stock pinion.
var (
	stockRack = linkage.Motion{Final: linkage.Pose6{10 * math.Pi, 0, 0, 0, 0, 0}}
	stockGear = linkage.Motion{
		Initial: linkage.Pose6{0, 10, 0, 0, 0, 0},
		Final:   linkage.Pose6{0, 10, 0, 0, 0, 180},
	}
)

func TestSolveLinkage(t *testing.T) {
	tb := newToolbox()

	out := tb.SolveLinkage(context.Background(), tools.LinkageInput{MotionA: stockRack, MotionB: stockGear})
	require.Nil(t, out.Error)
	assert.InDelta(t, 10, out.PitchRadius, 1e-9)
	assert.False(t, out.UsesIdler)
	assert.Len(t, out.Assembly, 2)
	assert.Nil(t, out.Solids)
	require.NotNil(t, out.Scene)
	assert.Len(t, out.Scene.Polygons, len(out.Assembly))

	// The rack strip hangs two modules below its pitch line at y=0 and the
	// pinion circle of radius 10 is centered at y=10.
	require.NotNil(t, out.SceneBounds)
	assert.InDelta(t, -2, out.SceneBounds.Min.Y, 1e-6)
	assert.InDelta(t, 20, out.SceneBounds.Max.Y, 0.01)

	// 4 mm over 50 degrees needs an idler.
	out = tb.SolveLinkage(context.Background(), tools.LinkageInput{
		MotionA: linkage.Motion{Final: linkage.Pose6{4, 0, 0, 0, 0, 0}},
		MotionB: linkage.Motion{Final: linkage.Pose6{0, 0, 0, 0, 0, 50}},
	})
	require.Nil(t, out.Error)
	assert.True(t, out.UsesIdler)
	assert.Len(t, out.Assembly, 3)
}

func TestSolveLinkageOptions(t *testing.T) {
	tb := newToolbox()
	rack := linkage.Motion{Final: linkage.Pose6{10.03 * math.Pi, 0, 0, 0, 0, 0}}
	gear := linkage.Motion{Final: linkage.Pose6{0, 0, 0, 0, 0, 180}}

	out := tb.SolveLinkage(context.Background(), tools.LinkageInput{MotionA: rack, MotionB: gear})
	require.Nil(t, out.Error)
	assert.Len(t, out.Assembly, 2)

	out = tb.SolveLinkage(context.Background(), tools.LinkageInput{
		MotionA: rack, MotionB: gear, RadiusTolerance: floatp(0.01), Progress: floatp(0.5),
	})
	require.Nil(t, out.Error)
	assert.Len(t, out.Assembly, 3)
	assert.Equal(t, 0.5, out.Progress)

	tight := newToolbox(tools.WithRadiusTolerance(0.01))
	out = tight.SolveLinkage(context.Background(), tools.LinkageInput{MotionA: rack, MotionB: gear})
	require.Nil(t, out.Error)
	assert.Len(t, out.Assembly, 3)
}

func TestSolveLinkageRenderSolids(t *testing.T) {
	out := newToolbox().SolveLinkage(context.Background(), tools.LinkageInput{
		MotionA: stockRack, MotionB: stockGear, Progress: floatp(0), RenderSolids: true,
	})
	require.Nil(t, out.Error)
	require.Len(t, out.Solids, len(out.Assembly))
	polygons := 0
	for i, s := range out.Solids {
		assert.False(t, s.IsEmpty(), "body %d", i)
		polygons += len(s.Polygons)
	}
	require.NotNil(t, out.Scene)
	assert.Len(t, out.Scene.Polygons, polygons)
}

func TestSolveLinkageFailure(t *testing.T) {
	still := linkage.Motion{}
	out := newToolbox().SolveLinkage(context.Background(), tools.LinkageInput{MotionA: still, MotionB: still})
	require.NotNil(t, out.Error)
	assert.NotEqual(t, "Unknown", out.Error.Kind)
	assert.Empty(t, out.Assembly)
}

const drive = `
(defparam teeth 20 :min 8 :max 60)
(defpart "pinion" (gear :module 1 :teeth teeth))
(defpart "rack" (rack :module 1 :teeth 21))

(assembly "drive"
  (place (part "rack") :at (vec3 0 0 0))
  (place (part "pinion") :at (vec3 0 (pitch-radius :module 1 :teeth teeth) 0))
  (mesh (part "pinion") (part "rack")))
`

func TestEvaluateScript(t *testing.T) {
	out := newToolbox().EvaluateScript(context.Background(), tools.ScriptInput{Source: drive})
	require.Nil(t, out.Error)
	assert.True(t, out.OK, "errors: %v", out.Errors)
	assert.Equal(t, 1, out.Meshes)
	require.Len(t, out.Params, 1)
	assert.Equal(t, "teeth", out.Params[0].Name)

	require.Len(t, out.Parts, 2)
	pinion, rack := out.Parts[0], out.Parts[1]
	assert.Equal(t, "pinion", pinion.Name)
	assert.Equal(t, "gear", pinion.Kind)
	assert.Equal(t, 10.0, pinion.PitchRadius)
	require.NotNil(t, pinion.Position)
	assert.Equal(t, 10.0, pinion.Position.Y)
	assert.Equal(t, "rack", rack.Kind)
	assert.Equal(t, 21, rack.Teeth)
}

func TestEvaluateScriptParams(t *testing.T) {
	out := newToolbox().EvaluateScript(context.Background(), tools.ScriptInput{
		Source: drive,
		Params: map[string]float64{"teeth": 30},
	})
	require.Nil(t, out.Error)
	assert.True(t, out.OK, "errors: %v", out.Errors)
	require.Len(t, out.Parts, 2)
	assert.Equal(t, 30, out.Parts[0].Teeth)
	assert.Equal(t, 15.0, out.Parts[0].Position.Y)
}

func TestEvaluateScriptErrors(t *testing.T) {
	tb := newToolbox()

	out := tb.EvaluateScript(context.Background(), tools.ScriptInput{Source: "(defpart \"a\" (gear :module 1"})
	require.Nil(t, out.Error)
	assert.False(t, out.OK)
	assert.NotEmpty(t, out.Errors)
	assert.Empty(t, out.Parts)

	out = tb.EvaluateScript(context.Background(), tools.ScriptInput{Source: `
(defpart "pinion" (gear :module 1 :teeth 20))
(defpart "rack" (rack :module 1 :teeth 21))
(assembly "drive"
  (place (part "rack") :at (vec3 0 0 0))
  (place (part "pinion") :at (vec3 0 8 0))
  (mesh (part "pinion") (part "rack")))
`})
	require.Nil(t, out.Error)
	assert.False(t, out.OK)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, "intersect")
}

func TestLibraryFlowsThroughTools(t *testing.T) {
	lib := partlib.Default()
	lib.Pinion.Teeth = 30
	tb := newToolbox(tools.WithLibrary(lib))

	out := tb.MeasureGeometry(context.Background(), tools.MeasureInput{Module: 1})
	require.Nil(t, out.Error)
	require.NotNil(t, out.PhaseMetadata)
	assert.Equal(t, -3.0, out.PhaseMetadata.GearInitialToothPhaseOffsetDegrees)

	res := tb.SolveLinkage(context.Background(), tools.LinkageInput{MotionA: stockRack, MotionB: stockGear})
	require.Nil(t, res.Error)
	assert.Equal(t, 15.0, res.StockPitchRadius)
	assert.True(t, res.UsesIdler)
}
