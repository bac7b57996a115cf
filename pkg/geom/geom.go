// Package geom is the polygon-list geometry exchanged with renderers.
// A Geometry is an immutable value: every operation returns a new Geometry
// and never touches the polygons of its inputs.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex is a point in mm, serialized as [x, y, z].
type Vertex [3]float64

// Vec returns the vertex as an r3 vector.
func (v Vertex) Vec() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// VertexOf converts an r3 vector to a Vertex.
func VertexOf(p r3.Vec) Vertex { return Vertex{p.X, p.Y, p.Z} }

// Polygon is a planar loop of vertices.
type Polygon struct {
	Vertices []Vertex `json:"vertices"`
}

// Geometry is the {polygons: [{vertices: [[x,y,z],...]}, ...]} value
// handed to the rendering collaborator.
type Geometry struct {
	Polygons []Polygon `json:"polygons"`
}

// IsEmpty reports whether the geometry has no polygons.
func (g Geometry) IsEmpty() bool { return len(g.Polygons) == 0 }

// Ops is the transform/boolean capability over Geometry values.
type Ops interface {
	Translate(g Geometry, offset r3.Vec) Geometry
	Rotate(g Geometry, eulerDeg r3.Vec) Geometry
	Union(gs ...Geometry) Geometry
}

// Polygons implements Ops with the package-level functions.
type Polygons struct{}

var _ Ops = Polygons{}

func (Polygons) Translate(g Geometry, offset r3.Vec) Geometry { return Translate(g, offset) }
func (Polygons) Rotate(g Geometry, eulerDeg r3.Vec) Geometry  { return Rotate(g, eulerDeg) }
func (Polygons) Union(gs ...Geometry) Geometry                { return Union(gs...) }

// mapVertices returns a deep copy of g with f applied to every vertex.
func mapVertices(g Geometry, f func(r3.Vec) r3.Vec) Geometry {
	out := Geometry{Polygons: make([]Polygon, len(g.Polygons))}
	for i, p := range g.Polygons {
		verts := make([]Vertex, len(p.Vertices))
		for j, v := range p.Vertices {
			verts[j] = VertexOf(f(v.Vec()))
		}
		out.Polygons[i] = Polygon{Vertices: verts}
	}
	return out
}

// Translate moves g by offset.
func Translate(g Geometry, offset r3.Vec) Geometry {
	return mapVertices(g, func(p r3.Vec) r3.Vec { return r3.Add(p, offset) })
}

// Rotate rotates g about the origin by Euler angles in degrees, applied
// X first, then Y, then Z.
func Rotate(g Geometry, eulerDeg r3.Vec) Geometry {
	rot := EulerRotation(eulerDeg)
	return mapVertices(g, rot)
}

// EulerRotation returns a function rotating points by X, then Y, then Z
// Euler angles in degrees.
func EulerRotation(eulerDeg r3.Vec) func(r3.Vec) r3.Vec {
	rx := r3.NewRotation(eulerDeg.X*math.Pi/180, r3.Vec{X: 1})
	ry := r3.NewRotation(eulerDeg.Y*math.Pi/180, r3.Vec{Y: 1})
	rz := r3.NewRotation(eulerDeg.Z*math.Pi/180, r3.Vec{Z: 1})
	return func(p r3.Vec) r3.Vec {
		return rz.Rotate(ry.Rotate(rx.Rotate(p)))
	}
}

// Union concatenates the polygons of every input. Overlaps are not resolved;
// the renderer treats the result as a polygon soup.
func Union(gs ...Geometry) Geometry {
	n := 0
	for _, g := range gs {
		n += len(g.Polygons)
	}
	out := Geometry{Polygons: make([]Polygon, 0, n)}
	for _, g := range gs {
		for _, p := range g.Polygons {
			verts := make([]Vertex, len(p.Vertices))
			copy(verts, p.Vertices)
			out.Polygons = append(out.Polygons, Polygon{Vertices: verts})
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box. An empty geometry yields
// zero vectors.
func Bounds(g Geometry) (min, max r3.Vec) {
	first := true
	for _, p := range g.Polygons {
		for _, v := range p.Vertices {
			if first {
				min, max = v.Vec(), v.Vec()
				first = false
				continue
			}
			min = r3.Vec{X: math.Min(min.X, v[0]), Y: math.Min(min.Y, v[1]), Z: math.Min(min.Z, v[2])}
			max = r3.Vec{X: math.Max(max.X, v[0]), Y: math.Max(max.Y, v[1]), Z: math.Max(max.Z, v[2])}
		}
	}
	return min, max
}
