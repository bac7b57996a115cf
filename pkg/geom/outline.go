package geom

import (
	"math"

	"github.com/chazu/cogwright/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// defaultCircleSegments is the polygon resolution of pitch circle outlines.
const defaultCircleSegments = 72

// CircleOutline returns a pitch circle of the given radius in the XY plane,
// centered at the origin. The first vertex lies on +X.
func CircleOutline(radius float64, segments int) Geometry {
	if segments < 3 {
		segments = defaultCircleSegments
	}
	verts := make([]Vertex, segments)
	for i := range verts {
		a := 2 * math.Pi * float64(i) / float64(segments)
		verts[i] = Vertex{radius * math.Cos(a), radius * math.Sin(a), 0}
	}
	return Geometry{Polygons: []Polygon{{Vertices: verts}}}
}

// LineOutline returns a thin strip of the given length and width along +X,
// centered on the origin, with the pitch line on y=0 and the strip below it.
func LineOutline(length, width float64) Geometry {
	h := length / 2
	return Geometry{Polygons: []Polygon{{Vertices: []Vertex{
		{-h, 0, 0},
		{h, 0, 0},
		{h, -width, 0},
		{-h, -width, 0},
	}}}}
}

// FromMesh converts an indexed triangle mesh into one polygon per triangle.
func FromMesh(m *kernel.Mesh) Geometry {
	if m == nil || m.IsEmpty() {
		return Geometry{Polygons: []Polygon{}}
	}
	out := Geometry{Polygons: make([]Polygon, 0, m.TriangleCount())}
	vert := func(i uint32) Vertex {
		b := int(i) * 3
		return Vertex{float64(m.Vertices[b]), float64(m.Vertices[b+1]), float64(m.Vertices[b+2])}
	}
	for t := 0; t+2 < len(m.Indices); t += 3 {
		out.Polygons = append(out.Polygons, Polygon{Vertices: []Vertex{
			vert(m.Indices[t]), vert(m.Indices[t+1]), vert(m.Indices[t+2]),
		}})
	}
	return out
}

// Place rotates g by eulerDeg about the origin and then moves it to position.
func Place(g Geometry, position, eulerDeg r3.Vec) Geometry {
	return Translate(Rotate(g, eulerDeg), position)
}
