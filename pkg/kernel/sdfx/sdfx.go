// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/deadsy/sdfx/obj"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution.
const DefaultMeshCells = 200

// defaultPressureAngle is used when a gear or rack spec leaves it unset.
const defaultPressureAngle = 20.0

// involuteFacets is the number of facets per involute flank.
const involuteFacets = 7

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel with the default mesh resolution.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithCells returns a kernel whose marching cubes grid has the given
// number of cells along the longest bounding box axis.
func NewWithCells(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Cylinder creates a cylinder with the given height and radius.
// The segments parameter is ignored since SDF represents smooth surfaces.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Gear creates an involute spur gear centered on the origin, extruded along Z
// and centered in Z.
func (k *SdfxKernel) Gear(spec kernel.GearSpec) (kernel.Solid, error) {
	if spec.Teeth <= 0 || spec.Module <= 0 {
		return nil, fmt.Errorf("sdfx: gear needs positive module and teeth, got module=%v teeth=%d", spec.Module, spec.Teeth)
	}
	pa := spec.PressureAngle
	if pa == 0 {
		pa = defaultPressureAngle
	}
	profile, err := obj.InvoluteGear(&obj.InvoluteGearParms{
		NumberTeeth:   spec.Teeth,
		Module:        spec.Module,
		PressureAngle: sdf.DtoR(pa),
		Backlash:      spec.Backlash,
		Clearance:     spec.Clearance,
		RingWidth:     0,
		Facets:        involuteFacets,
	})
	if err != nil {
		return nil, fmt.Errorf("sdfx: involute gear: %w", err)
	}
	return wrap(sdf.Extrude3D(profile, faceWidth(spec.FaceWidth, spec.Module))), nil
}

// Rack creates a straight rack along X with its teeth toward +Y, extruded
// along Z and centered in Z. The pitch line lies on y=0, so the teeth reach
// y=module and the base ends at y=-(base+1.25*module).
func (k *SdfxKernel) Rack(spec kernel.RackSpec) (kernel.Solid, error) {
	if spec.Teeth <= 0 || spec.Module <= 0 {
		return nil, fmt.Errorf("sdfx: rack needs positive module and teeth, got module=%v teeth=%d", spec.Module, spec.Teeth)
	}
	pa := spec.PressureAngle
	if pa == 0 {
		pa = defaultPressureAngle
	}
	base := spec.BaseHeight
	if base <= 0 {
		base = 2 * spec.Module
	}
	profile, err := sdf.GearRack2D(&sdf.GearRackParms{
		NumberTeeth:   spec.Teeth,
		Module:        spec.Module,
		PressureAngle: sdf.DtoR(pa),
		Backlash:      spec.Backlash,
		BaseHeight:    base,
	})
	if err != nil {
		return nil, fmt.Errorf("sdfx: gear rack: %w", err)
	}
	// GearRack2D sits on y=0; move the pitch line there instead.
	profile = sdf.Transform2D(profile, sdf.Translate2d(v2.Vec{Y: -rackPitchLine(base, spec.Module)}))
	return wrap(sdf.Extrude3D(profile, faceWidth(spec.FaceWidth, spec.Module))), nil
}

// rackPitchLine is the pitch line height above the bottom of a GearRack2D
// profile: the base plus the dedendum.
func rackPitchLine(base, module float64) float64 {
	return base + 1.25*module
}

// faceWidth falls back to five modules when the spec leaves it unset.
func faceWidth(w, module float64) float64 {
	if w > 0 {
		return w
	}
	return 5 * module
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	cells := k.cells
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
