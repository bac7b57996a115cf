// Package linkage infers a rolling contact between two partially specified
// motions and builds an animatable rack and pinion assembly from it.
//
// One motion must be a pure translation (the rack) and the other a rotation
// (the gear). Rolling without slip ties them together: the distance the
// rack travels equals the arc the gear's pitch circle turns through, so the
// implied pitch radius is translation / radians(rotation). When the stock
// pinion has that radius the assembly is [rack, pinion]; otherwise an idler
// of the implied radius is inserted: [rack, idler, pinion].
package linkage

import (
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/pitch"
)

// DefaultRadiusTolerance is how far the implied pitch radius may differ from
// the stock pinion's before an idler is inserted, in mm.
const DefaultRadiusTolerance = 0.05

type options struct {
	progress        float64
	radiusTolerance float64
	library         partlib.Library
}

// Option configures Solve.
type Option func(*options)

// WithProgress evaluates the assembly at progress in [0, 1]. The default
// is 1, the declared final poses.
func WithProgress(p float64) Option {
	return func(o *options) { o.progress = p }
}

// WithRadiusTolerance sets the stock-versus-idler tolerance in mm.
func WithRadiusTolerance(mm float64) Option {
	return func(o *options) { o.radiusTolerance = mm }
}

// WithLibrary replaces the stock part library.
func WithLibrary(lib partlib.Library) Option {
	return func(o *options) { o.library = lib }
}

// Result is the solved linkage.
type Result struct {
	PitchRadius float64 `json:"pitchRadius"`
	// Direction is +1 when positive rotation rolls toward positive
	// translation and -1 otherwise.
	Direction        float64        `json:"direction"`
	Translation      AxisDelta      `json:"translation"`
	Rotation         AxisDelta      `json:"rotation"`
	Classification   Classification `json:"classification"`
	Progress         float64        `json:"progress"`
	StockPitchRadius float64        `json:"stockPitchRadius"`
	UsesIdler        bool           `json:"usesIdler"`
	Assembly         []Body         `json:"assembly"`
}

// Solve classifies the two motions, inverts the rolling constraint and
// builds the assembly at the requested progress.
func Solve(a, b Motion, opts ...Option) (*Result, error) {
	o := options{
		progress:        1,
		radiusTolerance: DefaultRadiusTolerance,
		library:         partlib.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := kinerr.RequireFinite("progress", o.progress); err != nil {
		return nil, err
	}
	if o.progress < 0 || o.progress > 1 {
		return nil, kinerr.Invalid("progress", "must be within [0, 1], got %v", o.progress)
	}
	if err := kinerr.RequireFinite("radiusTolerance", o.radiusTolerance); err != nil {
		return nil, err
	}
	if o.radiusTolerance < 0 {
		return nil, kinerr.Invalid("radiusTolerance", "must not be negative, got %v", o.radiusTolerance)
	}
	if err := o.library.Validate(); err != nil {
		return nil, err
	}
	if err := a.validate(string(MotionA)); err != nil {
		return nil, err
	}
	if err := b.validate(string(MotionB)); err != nil {
		return nil, err
	}

	class, err := classify(a, b)
	if err != nil {
		return nil, err
	}
	trans, rot := a, b
	if class.TranslationSource == MotionB {
		trans, rot = b, a
	}

	t := dominant(trans.DeltaPosition())
	r := dominant(rot.DeltaRotation())
	radius := math.Abs(t.Delta) / math.Abs(pitch.Radians(r.Delta))
	if math.IsInf(radius, 0) || math.IsNaN(radius) || radius <= 0 {
		return nil, kinerr.New(kinerr.KindDegenerateLinkage, string(class.RotationSource),
			"implied pitch radius %v is not usable", radius)
	}
	dir := 1.0
	if (t.Delta < 0) != (r.Delta < 0) {
		dir = -1
	}

	stock, err := o.library.StockPinion()
	if err != nil {
		return nil, err
	}

	res := &Result{
		PitchRadius:      radius,
		Direction:        dir,
		Translation:      t,
		Rotation:         r,
		Classification:   class,
		Progress:         o.progress,
		StockPitchRadius: stock.Radius,
		UsesIdler:        math.Abs(radius-stock.Radius) > o.radiusTolerance,
	}
	res.Assembly, err = buildAssembly(o, trans, rot, t, r, res.UsesIdler, radius)
	if err != nil {
		return nil, err
	}
	return res, nil
}
