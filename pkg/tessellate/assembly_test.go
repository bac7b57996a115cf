package tessellate_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/linkage"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/tessellate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 36 degree turn of the stock pinion rolls 2*pi mm of rack.
var (
	slide = linkage.Motion{Final: linkage.Pose6{2 * math.Pi, 0, 0, 0, 0, 0}}
	turn  = linkage.Motion{
		Initial: linkage.Pose6{0, 10, 0, 0, 0, 0},
		Final:   linkage.Pose6{0, 10, 0, 0, 0, 36},
	}
)

func TestAssemblyKeepsBodyOrder(t *testing.T) {
	res, err := linkage.Solve(slide, turn, linkage.WithProgress(0))
	require.NoError(t, err)
	require.Len(t, res.Assembly, 2)

	out, err := tessellate.Assembly(context.Background(), res.Assembly, newKernel(), partlib.Default())
	require.NoError(t, err)
	require.Len(t, out, 2)

	for i, g := range out {
		assert.False(t, g.IsEmpty(), "body %d", i)
	}

	// The rack lies along X, about 21 circular pitches long.
	min, max := geom.Bounds(out[0])
	assert.InDelta(t, 21*math.Pi, max.X-min.X, 3)

	// Its pitch line is on y=0: teeth up to one module, base below.
	assert.InDelta(t, 1, max.Y, 1)
	assert.InDelta(t, -3.25, min.Y, 1)

	// The pinion sits at the rotating body's center.
	min, max = geom.Bounds(out[1])
	assert.InDelta(t, 0, (min.X+max.X)/2, 1)
	assert.InDelta(t, 10, (min.Y+max.Y)/2, 1)
	assert.InDelta(t, 22, max.X-min.X, 1)
}

func TestAssemblyWithIdler(t *testing.T) {
	small := linkage.Motion{Final: linkage.Pose6{4, 0, 0, 0, 0, 0}}
	swing := linkage.Motion{Final: linkage.Pose6{0, 0, 0, 0, 0, 50}}
	res, err := linkage.Solve(small, swing)
	require.NoError(t, err)
	require.True(t, res.UsesIdler)

	out, err := tessellate.Assembly(context.Background(), res.Assembly, newKernel(), partlib.Default())
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, g := range out {
		assert.False(t, g.IsEmpty(), "body %d", i)
	}
}

func TestAssemblyBoredPinion(t *testing.T) {
	res, err := linkage.Solve(slide, turn, linkage.WithProgress(0))
	require.NoError(t, err)

	lib := partlib.Default()
	lib.Pinion.Bore = 6
	out, err := tessellate.Assembly(context.Background(), res.Assembly, newKernel(), lib)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// No surface is left inside the 3mm bore radius.
	for _, p := range out[1].Polygons {
		for _, v := range p.Vertices {
			assert.Greater(t, math.Hypot(v[0], v[1]-10), 2.0)
		}
	}
}

func TestAssemblyBadBody(t *testing.T) {
	bodies := []linkage.Body{
		{Role: linkage.RoleRack, Module: 1, Teeth: 21},
		{Role: linkage.RolePinion, Module: 1, Teeth: 0, SpinAxis: "z"},
	}
	_, err := tessellate.Assembly(context.Background(), bodies, newKernel(), partlib.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body 1 (pinion)")
}

func TestAssemblyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bodies := []linkage.Body{{Role: linkage.RoleRack, Module: 1, Teeth: 21}}
	_, err := tessellate.Assembly(ctx, bodies, newKernel(), partlib.Default())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAssemblyEmpty(t *testing.T) {
	out, err := tessellate.Assembly(context.Background(), nil, newKernel(), partlib.Default())
	require.NoError(t, err)
	assert.Empty(t, out)
}
