package tools

import (
	"context"

	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/linkage"
	"github.com/chazu/cogwright/pkg/tessellate"
)

// LinkageInput is two partially specified motions.
type LinkageInput struct {
	MotionA         linkage.Motion `json:"motionA" jsonschema:"first body's initial and final [x,y,z,rx,ry,rz] pose"`
	MotionB         linkage.Motion `json:"motionB" jsonschema:"second body's initial and final [x,y,z,rx,ry,rz] pose"`
	Progress        *float64       `json:"progress,omitempty" jsonschema:"progress in [0,1] to evaluate the assembly at, default 1"`
	RadiusTolerance *float64       `json:"radiusTolerance,omitempty" jsonschema:"stock pinion match tolerance in mm"`
	RenderSolids    bool           `json:"renderSolids,omitempty" jsonschema:"also render tooth solids for every body"`
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// LinkageOutput is the solved linkage. Scene joins every body into one
// polygon list: pitch outlines, or tooth solids when requested. SceneBounds
// frames the scene for a viewer. Solids, when requested, hold one polygon
// list per assembly body in the same order.
type LinkageOutput struct {
	linkage.Result
	Scene       *geom.Geometry  `json:"scene,omitempty"`
	SceneBounds *Box            `json:"sceneBounds,omitempty"`
	Solids      []geom.Geometry `json:"solids,omitempty"`
	Failure
}

// scene unions the given parts, or the body outlines when parts is nil.
func scene(ops geom.Ops, bodies []linkage.Body, parts []geom.Geometry) *geom.Geometry {
	if parts == nil {
		parts = make([]geom.Geometry, len(bodies))
		for i, b := range bodies {
			parts[i] = b.Geometry
		}
	}
	g := ops.Union(parts...)
	return &g
}

// SolveLinkage infers the rolling contact between two motions and builds
// the assembly.
func (t *Toolbox) SolveLinkage(ctx context.Context, in LinkageInput) LinkageOutput {
	opts := []linkage.Option{
		linkage.WithLibrary(t.library),
		linkage.WithRadiusTolerance(t.radiusTolerance),
	}
	if in.Progress != nil {
		opts = append(opts, linkage.WithProgress(*in.Progress))
	}
	if in.RadiusTolerance != nil {
		opts = append(opts, linkage.WithRadiusTolerance(*in.RadiusTolerance))
	}

	res, err := linkage.Solve(in.MotionA, in.MotionB, opts...)
	if err != nil {
		return LinkageOutput{Failure: fail(err)}
	}
	out := LinkageOutput{Result: *res}
	if in.RenderSolids {
		solids, err := tessellate.Assembly(ctx, res.Assembly, t.kernel, t.library)
		if err != nil {
			return LinkageOutput{Failure: fail(err)}
		}
		out.Solids = solids
	}
	out.Scene = scene(t.ops, res.Assembly, out.Solids)
	min, max := geom.Bounds(*out.Scene)
	out.SceneBounds = &Box{Min: vecOf(min), Max: vecOf(max)}
	return out
}
