package linkage

import (
	"math"
	"testing"

	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// slide moves 4 mm along +X from (1, 2, 3).
var slide = Motion{
	Initial: Pose6{1, 2, 3, 0, 0, 0},
	Final:   Pose6{5, 2, 3, 0, 0, 0},
}

// turn rotates 50 degrees about Z in place.
var turn = Motion{
	Initial: Pose6{0, 10, 0, 0, 0, 0},
	Final:   Pose6{0, 10, 0, 0, 0, 50},
}

func TestPitchRadiusFromRollingContact(t *testing.T) {
	res, err := Solve(slide, turn)
	require.NoError(t, err)
	assert.InDelta(t, 4.583662, res.PitchRadius, 1e-4)
	assert.InDelta(t, 4/(50*math.Pi/180), res.PitchRadius, 1e-12)
	assert.Equal(t, AxisDelta{Axis: "x", Delta: 4}, res.Translation)
	assert.Equal(t, AxisDelta{Axis: "z", Delta: 50}, res.Rotation)
	assert.Equal(t, 1.0, res.Direction)
	assert.Equal(t, Classification{TranslationSource: MotionA, RotationSource: MotionB}, res.Classification)
}

func TestClassificationSymmetric(t *testing.T) {
	ab, err := Solve(slide, turn)
	require.NoError(t, err)
	ba, err := Solve(turn, slide)
	require.NoError(t, err)

	assert.Equal(t, ab.PitchRadius, ba.PitchRadius)
	assert.Equal(t, MotionB, ba.Classification.TranslationSource)
	assert.Equal(t, MotionA, ba.Classification.RotationSource)
	assert.Equal(t, ab.Translation, ba.Translation)
	assert.Equal(t, ab.Rotation, ba.Rotation)
	assert.Equal(t, ab.Assembly, ba.Assembly)
}

func TestRotationIsDeltaOnly(t *testing.T) {
	base, err := Solve(slide, turn)
	require.NoError(t, err)

	shifted := turn
	shifted.Initial[5] += 120
	shifted.Final[5] += 120
	got, err := Solve(slide, shifted)
	require.NoError(t, err)
	assert.Equal(t, base, got)

	half, err := Solve(slide, turn, WithProgress(0.5))
	require.NoError(t, err)
	gotHalf, err := Solve(slide, shifted, WithProgress(0.5))
	require.NoError(t, err)
	assert.Equal(t, half, gotHalf)
}

func TestAffineInterpolation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want r3.Vec
	}{
		{"progress 0 is initial", []Option{WithProgress(0)}, slide.Initial.Position()},
		{"progress 0.5 is the mean", []Option{WithProgress(0.5)}, r3.Scale(0.5, r3.Add(slide.Initial.Position(), slide.Final.Position()))},
		{"progress 1 is final", []Option{WithProgress(1)}, slide.Final.Position()},
		{"omitted progress is final", nil, slide.Final.Position()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Solve(slide, turn, tt.opts...)
			require.NoError(t, err)
			rack := res.Assembly[0]
			require.Equal(t, RoleRack, rack.Role)
			got := rack.Pose.Position()
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-12)
		})
	}

	omitted, err := Solve(slide, turn)
	require.NoError(t, err)
	explicit, err := Solve(slide, turn, WithProgress(1))
	require.NoError(t, err)
	assert.Equal(t, omitted, explicit)
}

func TestGearSpinFollowsProgress(t *testing.T) {
	res, err := Solve(slide, turn, WithProgress(0.5), WithRadiusTolerance(10))
	require.NoError(t, err)
	require.Len(t, res.Assembly, 2)
	pinion := res.Assembly[1]
	assert.Equal(t, -4.5, pinion.PhaseOffsetDegrees)
	assert.InDelta(t, -4.5+25, pinion.Pose[5], 1e-12)
	assert.Equal(t, r3.Vec{Y: 10}, pinion.Pose.Position())
}

func TestStockPinionAssembly(t *testing.T) {
	// Half a turn of a 10 mm pitch radius rolls 10*pi mm.
	rack := Motion{Final: Pose6{10 * math.Pi, 0, 0, 0, 0, 0}}
	gear := Motion{Initial: Pose6{0, 10, 0, 0, 0, 0}, Final: Pose6{0, 10, 0, 0, 0, 180}}

	res, err := Solve(rack, gear)
	require.NoError(t, err)
	assert.InDelta(t, 10, res.PitchRadius, 1e-9)
	assert.False(t, res.UsesIdler)
	require.Len(t, res.Assembly, 2)
	assert.Equal(t, RoleRack, res.Assembly[0].Role)
	assert.Equal(t, RolePinion, res.Assembly[1].Role)
	assert.Equal(t, 20, res.Assembly[1].Teeth)
	assert.Equal(t, 10.0, res.Assembly[1].PitchRadius)
	assert.Equal(t, 21, res.Assembly[0].Teeth)
}

func TestIdlerAssembly(t *testing.T) {
	res, err := Solve(slide, turn)
	require.NoError(t, err)
	assert.True(t, res.UsesIdler)
	require.Len(t, res.Assembly, 3)

	rack, idler, pinion := res.Assembly[0], res.Assembly[1], res.Assembly[2]
	assert.Equal(t, RoleRack, rack.Role)
	assert.Equal(t, RoleIdler, idler.Role)
	assert.Equal(t, RolePinion, pinion.Role)

	assert.Equal(t, res.PitchRadius, idler.PitchRadius)
	assert.Equal(t, 9, idler.Teeth)
	assert.InDelta(t, idler.PitchRadius, idler.Module*float64(idler.Teeth)/2, 1e-12)
	assert.Equal(t, idler.Module, rack.Module)
	assert.Equal(t, idler.Module, pinion.Module)

	// Pinion meshes the idler on the side away from the rack.
	d := r3.Norm(r3.Sub(pinion.Pose.Position(), idler.Pose.Position()))
	assert.InDelta(t, idler.PitchRadius+pinion.PitchRadius, d, 1e-9)
	assert.Greater(t, pinion.Pose[1], idler.Pose[1])

	// Equal arc lengths: the pinion turns the other way by the radius ratio.
	spin := pinion.Pose[5] - pinion.PhaseOffsetDegrees
	assert.InDelta(t, -50*idler.PitchRadius/pinion.PitchRadius, spin, 1e-9)
}

func TestRadiusTolerance(t *testing.T) {
	// 10.03 mm implied radius.
	rack := Motion{Final: Pose6{10.03 * math.Pi, 0, 0, 0, 0, 0}}
	gear := Motion{Final: Pose6{0, 0, 0, 0, 0, 180}}

	res, err := Solve(rack, gear)
	require.NoError(t, err)
	assert.Len(t, res.Assembly, 2)

	res, err = Solve(rack, gear, WithRadiusTolerance(0.01))
	require.NoError(t, err)
	assert.Len(t, res.Assembly, 3)

	lib := partlib.Default()
	lib.Pinion.Teeth = 40
	res, err = Solve(rack, gear, WithLibrary(lib))
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.StockPitchRadius)
	assert.Len(t, res.Assembly, 3)
}

func TestDirection(t *testing.T) {
	back := Motion{Initial: slide.Final, Final: slide.Initial}
	res, err := Solve(back, turn)
	require.NoError(t, err)
	assert.Equal(t, -1.0, res.Direction)
	assert.Equal(t, -4.0, res.Translation.Delta)
	assert.InDelta(t, 4.583662, res.PitchRadius, 1e-4)
}

func TestClassificationErrors(t *testing.T) {
	still := Motion{Initial: Pose6{1, 1, 1, 10, 0, 0}, Final: Pose6{1, 1, 1, 10, 0, 0}}
	tiny := Motion{Final: Pose6{0, 0, 0, 0, 0, 1e-9}}
	tests := []struct {
		name string
		a, b Motion
		want error
	}{
		{"both translate", slide, slide, kinerr.ErrAmbiguousMotion},
		{"both rotate", turn, turn, kinerr.ErrAmbiguousMotion},
		{"both still", still, still, kinerr.ErrAmbiguousMotion},
		{"rotation and still", turn, still, kinerr.ErrAmbiguousMotion},
		{"translation and still", slide, still, kinerr.ErrDegenerateLinkage},
		{"translation and tiny rotation", tiny, slide, kinerr.ErrDegenerateLinkage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Solve(tt.a, tt.b)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)

			_, swapped := Solve(tt.b, tt.a)
			assert.ErrorIs(t, swapped, tt.want)
		})
	}
}

func TestInvalidInputs(t *testing.T) {
	_, err := Solve(slide, turn, WithProgress(1.5))
	require.ErrorIs(t, err, kinerr.ErrInvalidParameter)
	assert.Equal(t, "progress", kinerr.FieldOf(err))

	_, err = Solve(slide, turn, WithRadiusTolerance(-1))
	require.ErrorIs(t, err, kinerr.ErrInvalidParameter)
	assert.Equal(t, "radiusTolerance", kinerr.FieldOf(err))

	bad := turn
	bad.Final[5] = math.NaN()
	_, err = Solve(slide, bad)
	require.ErrorIs(t, err, kinerr.ErrInvalidParameter)
	assert.Equal(t, "motionB.final[5]", kinerr.FieldOf(err))
}

func TestBodyGeometry(t *testing.T) {
	res, err := Solve(slide, turn, WithRadiusTolerance(10))
	require.NoError(t, err)

	rack := res.Assembly[0]
	min, max := geom.Bounds(rack.Geometry)
	assert.InDelta(t, 5, (min.X+max.X)/2, 1e-9)
	assert.InDelta(t, 2, max.Y, 1e-9)

	pinion := res.Assembly[1]
	min, max = geom.Bounds(pinion.Geometry)
	assert.InDelta(t, 10, (max.X-min.X)/2, 1e-2)
	assert.InDelta(t, 0, max.Z-min.Z, 1e-12)

	assert.Empty(t, rack.SpinAxis)
	assert.Equal(t, res.Rotation.Axis, pinion.SpinAxis)
	placed := pinion.Place(geom.CircleOutline(pinion.PitchRadius, 0))
	assert.Equal(t, pinion.Geometry, placed)
}

func TestRackAlongY(t *testing.T) {
	up := Motion{Final: Pose6{0, 4, 0, 0, 0, 0}}
	res, err := Solve(up, turn, WithRadiusTolerance(10))
	require.NoError(t, err)
	assert.Equal(t, "y", res.Translation.Axis)
	assert.Equal(t, 90.0, res.Assembly[0].Pose[5])
}

func TestMeshPhase(t *testing.T) {
	// Idler of 9 teeth touches at 90 degrees, a quarter into its pitch;
	// the 20 tooth pinion must show three quarters at 270.
	phi := meshPhase(90, 9, 270, 20)
	assert.InDelta(t, 4.5, phi, 1e-9)

	frac := (270 - phi) * 20 / 360
	assert.InDelta(t, 0.75, frac-math.Floor(frac), 1e-9)

	assert.InDelta(t, 90, planeAngle("z", r3.Vec{Y: 1}), 1e-12)
	assert.InDelta(t, 90, planeAngle("x", r3.Vec{Z: 1}), 1e-12)
}
