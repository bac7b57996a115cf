// Package tools is the JSON tool boundary of the meshing engine. Every tool
// takes one JSON object and returns one; failures come back as an "error"
// value inside the output rather than as Go errors, so a calling agent can
// re-prompt instead of crashing.
package tools

import (
	"errors"

	"github.com/chazu/cogwright/pkg/diagnostics"
	"github.com/chazu/cogwright/pkg/engine"
	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/chazu/cogwright/pkg/kernel/sdfx"
	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/linkage"
	"github.com/chazu/cogwright/pkg/partlib"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tool names.
const (
	MeasureGeometry             = "measure_geometry"
	PositionRelative            = "position_relative"
	CheckAlignment              = "check_alignment"
	CheckAnimationIntersections = "check_animation_intersections"
	SolveLinkage                = "solve_linkage"
	EvaluateScript              = "evaluate_script"
)

// renderCells is the marching cubes resolution for rendered solids.
const renderCells = 100

// ToolError is the structured failure value returned in a tool's output.
type ToolError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	if e.Field != "" {
		return e.Kind + ": " + e.Field + ": " + e.Message
	}
	return e.Kind + ": " + e.Message
}

// errorOf converts err to a ToolError, keeping the kinematics taxonomy.
func errorOf(err error) *ToolError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var ke *kinerr.Error
	if errors.As(err, &ke) {
		msg = ke.Message
	}
	return &ToolError{Kind: kinerr.KindOf(err).String(), Field: kinerr.FieldOf(err), Message: msg}
}

// Failure is embedded in every tool output.
type Failure struct {
	Error *ToolError `json:"error,omitempty"`
}

func (f Failure) toolError() *ToolError { return f.Error }

// fail builds a Failure from err.
func fail(err error) Failure { return Failure{Error: errorOf(err)} }

// Vec3 is a vector on the wire.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vecOf(v r3.Vec) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// Toolbox implements the tools. It holds no per-call state and is safe for
// concurrent use.
type Toolbox struct {
	library         partlib.Library
	radiusTolerance float64
	samples         int
	tolerance       float64
	kernel          kernel.Kernel
	ops             geom.Ops
	engine          *engine.Engine
	log             *zap.Logger
}

// Option configures a Toolbox.
type Option func(*Toolbox)

// WithLibrary replaces the stock part library.
func WithLibrary(lib partlib.Library) Option {
	return func(t *Toolbox) { t.library = lib }
}

// WithRadiusTolerance sets the linkage stock-versus-idler tolerance in mm.
func WithRadiusTolerance(mm float64) Option {
	return func(t *Toolbox) { t.radiusTolerance = mm }
}

// WithDiagnosticDefaults sets the sample count and tolerance diagnostics use
// when a model leaves them unset.
func WithDiagnosticDefaults(samples int, tolerance float64) Option {
	return func(t *Toolbox) {
		t.samples = samples
		t.tolerance = tolerance
	}
}

// WithKernel sets the geometry kernel used to render solids.
func WithKernel(k kernel.Kernel) Option {
	return func(t *Toolbox) { t.kernel = k }
}

// WithEngine sets the script engine used by evaluate_script.
func WithEngine(e *engine.Engine) Option {
	return func(t *Toolbox) { t.engine = e }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(t *Toolbox) {
		if l != nil {
			t.log = l
		}
	}
}

// New returns a Toolbox with the stock library and default tolerances.
func New(opts ...Option) *Toolbox {
	t := &Toolbox{
		library:         partlib.Default(),
		radiusTolerance: linkage.DefaultRadiusTolerance,
		samples:         diagnostics.DefaultSamples,
		tolerance:       diagnostics.DefaultTolerance,
		ops:             geom.Polygons{},
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.kernel == nil {
		t.kernel = sdfx.NewWithCells(renderCells)
	}
	if t.engine == nil {
		t.engine = engine.NewEngine(engine.WithLibrary(t.library), engine.WithLogger(t.log))
	}
	return t
}
