// Package studio turns a design script into colored triangle meshes for a
// viewer: evaluate, validate, tessellate, then assign each part a color.
package studio

import (
	"context"
	"fmt"

	"github.com/chazu/cogwright/pkg/engine"
	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/chazu/cogwright/pkg/kernel/sdfx"
	"github.com/chazu/cogwright/pkg/tessellate"
	"go.uber.org/zap"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is the JSON-serializable mesh format sent to a viewer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// Diagnostic is a line-anchored error or warning.
type Diagnostic struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is the full render of one script.
type Result struct {
	Meshes   []MeshData   `json:"meshes"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

// Studio renders scripts with one engine and one kernel.
type Studio struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *zap.Logger
}

// New creates a Studio. A nil engine or kernel gets the defaults.
func New(e *engine.Engine, k kernel.Kernel, log *zap.Logger) *Studio {
	if e == nil {
		e = engine.NewEngine()
	}
	if k == nil {
		k = sdfx.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Studio{engine: e, kernel: k, log: log}
}

// Render evaluates source with the given parameter overrides and returns
// mesh data plus diagnostics. Meshing errors stop the render; warnings do not.
func (s *Studio) Render(ctx context.Context, source string, params map[string]float64) Result {
	result := Result{
		Meshes:   []MeshData{},
		Errors:   []Diagnostic{},
		Warnings: []Diagnostic{},
	}

	res, err := s.engine.Check(ctx, engine.Request{Source: source, Params: params})
	if err != nil {
		s.log.Warn("render failed", zap.Error(err))
		result.Errors = append(result.Errors, Diagnostic{Message: err.Error()})
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Line: w.Line, Col: w.Col, Message: w.Message})
	}
	if !res.OK() {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return result
	}

	meshes, err := tessellate.Tessellate(res.Graph, s.kernel)
	if err != nil {
		s.log.Warn("tessellation failed", zap.Error(err))
		result.Errors = append(result.Errors, Diagnostic{
			Message: fmt.Sprintf("tessellation failed: %v", err),
		})
		return result
	}

	vertices := 0
	for i, m := range meshes {
		vertices += m.VertexCount()
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	s.log.Debug("rendered", zap.Int("meshes", len(result.Meshes)), zap.Int("vertices", vertices), zap.Int("warnings", len(result.Warnings)))
	return result
}
