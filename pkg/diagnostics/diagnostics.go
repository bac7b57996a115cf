// Package diagnostics checks whether an authored rack and pinion animation
// is kinematically consistent and phase aligned, and recommends the rack
// shift that fixes the phase.
package diagnostics

import (
	"fmt"
	"math"

	"github.com/chazu/cogwright/pkg/alignment"
	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/partlib"
	"github.com/chazu/cogwright/pkg/pitch"
	"gonum.org/v1/gonum/floats"
)

// Sampling and tolerance defaults.
const (
	MinSamples       = 3
	MaxSamples       = 501
	DefaultSamples   = 101
	DefaultTolerance = 0.01 // mm
)

// UsageNote tells the caller how to apply the result.
const UsageNote = "Drive the pinion at pinionRotationDegPerProgress and the rack at " +
	"rackTranslationMmPerProgress from one shared progress value. If hasKinematicDrift is set, " +
	"change the rack rate to expectedTranslationMmPerProgress. If hasPhaseMisalignment is set, " +
	"start the rack at expectedRackXAtProgress0, which is the current start plus " +
	"recommendedAdditionalPhaseShiftMm. If hasRadialIntersectionRisk is set, move the gear " +
	"center to expectedCenterDistance from the rack pitch line. Re-run the check after editing."

type options struct {
	library   partlib.Library
	samples   int
	tolerance float64
}

// Option configures Diagnose.
type Option func(*options)

// WithLibrary derives the library phase shift from lib instead of the
// built-in part library.
func WithLibrary(lib partlib.Library) Option {
	return func(o *options) { o.library = lib }
}

// WithDefaults sets the sample count and tolerance used when the model
// leaves them unset.
func WithDefaults(samples int, tolerance float64) Option {
	return func(o *options) {
		o.samples = samples
		o.tolerance = tolerance
	}
}

// Diagnose checks the model. Every number in the result is a pure function
// of the model and the part library.
func Diagnose(m KinematicModel, opts ...Option) (Result, error) {
	o := options{library: partlib.Default(), samples: DefaultSamples, tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(m); err != nil {
		return Result{}, err
	}
	axis, err := alignment.ParseAxis(m.PitchAxis)
	if err != nil {
		return Result{}, err
	}

	samples := o.samples
	if m.Samples != nil {
		samples = *m.Samples
	}
	samples = clampSamples(samples)
	tol := o.tolerance
	if m.Tolerance != nil {
		tol = *m.Tolerance
	}
	tol = math.Abs(tol)

	circle, err := pitch.CircleFeatures(m.Module, m.PinionTeeth)
	if err != nil {
		return Result{}, err
	}
	shift, err := o.library.PhaseShiftFor(m.Module, m.PinionTeeth)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		PitchModel: PitchModel{
			Module:                         m.Module,
			PinionTeeth:                    m.PinionTeeth,
			CircularPitch:                  circle.CircularPitch(),
			PitchCircumference:             circle.Circumference(),
			PitchRadius:                    circle.Radius,
			LibraryPhaseShiftMm:            shift.Mm,
			LibraryPhaseShiftPitchFraction: shift.PitchFraction,
		},
		Diagnostics: []string{},
		UsageNote:   UsageNote,
	}

	// Kinematic consistency.
	expectedRate := m.PinionRotationDegPerProgress / 360 * circle.Circumference()
	kin := KinematicCheck{
		DeclaredTranslationMmPerProgress: m.RackTranslationMmPerProgress,
		ExpectedTranslationMmPerProgress: expectedRate,
		TranslationResidual:              m.RackTranslationMmPerProgress - expectedRate,
	}
	kin.HasKinematicDrift = math.Abs(kin.TranslationResidual) > tol
	res.KinematicCheck = kin

	// Phase at start and across the progress range.
	expectedStart := m.UserPhaseShiftMm
	if m.CenteredStart {
		expectedStart = shift.Mm + m.UserPhaseShiftMm
	}
	ph := PhaseCheck{
		CenteredStart:            m.CenteredStart,
		LibraryPhaseShiftMm:      shift.Mm,
		UserPhaseShiftMm:         m.UserPhaseShiftMm,
		DeclaredRackXAtProgress0: m.RackXAtProgress0,
		ExpectedRackXAtProgress0: expectedStart,
		PhaseResidualAtStart:     m.RackXAtProgress0 - expectedStart,
		Samples:                  samples,
		Tolerance:                tol,
	}
	// observed(p) - expected(p), grouped so matching rates cancel exactly.
	ph.MaxAbsPhaseResidual, ph.WorstProgress = scan(samples, func(p float64) float64 {
		return ph.PhaseResidualAtStart + kin.TranslationResidual*p
	})
	ph.HasPhaseMisalignment = ph.MaxAbsPhaseResidual > tol
	ph.RecommendedAdditionalPhaseShiftMm = -ph.PhaseResidualAtStart
	ph.RecommendedAbsolutePhaseShiftMm = m.UserPhaseShiftMm + ph.RecommendedAdditionalPhaseShiftMm
	res.Phase = ph

	// Radial clearance. Too far is a gap, not a risk.
	rad := RadialCheck{
		PitchAxis:              string(axis),
		ActualCenterDistance:   math.Abs(m.GearCenterAxisPosition - m.RackPitchAxisPosition),
		ExpectedCenterDistance: circle.Radius + m.MeshGap,
	}
	rad.Residual = rad.ActualCenterDistance - rad.ExpectedCenterDistance
	rad.HasRadialIntersectionRisk = rad.Residual < -tol
	res.RadialCheck = rad

	res.Pass = !rad.HasRadialIntersectionRisk && !kin.HasKinematicDrift && !ph.HasPhaseMisalignment
	res.Diagnostics = describe(res)
	return res, nil
}

// ApplyRecommendation returns m with the rack start moved to the expected
// start, so diagnosing the result gives a zero start residual.
func ApplyRecommendation(m KinematicModel, r Result) KinematicModel {
	m.RackXAtProgress0 = r.Phase.ExpectedRackXAtProgress0
	return m
}

func validate(m KinematicModel) error {
	if err := kinerr.RequirePositive("module", m.Module); err != nil {
		return err
	}
	if m.PinionTeeth <= 0 {
		return kinerr.Invalid("pinionTeeth", "must be positive, got %d", m.PinionTeeth)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"pinionRotationDegPerProgress", m.PinionRotationDegPerProgress},
		{"rackTranslationMmPerProgress", m.RackTranslationMmPerProgress},
		{"rackXAtProgress0", m.RackXAtProgress0},
		{"userPhaseShiftMm", m.UserPhaseShiftMm},
		{"gearCenterAxisPosition", m.GearCenterAxisPosition},
		{"rackPitchAxisPosition", m.RackPitchAxisPosition},
		{"meshGap", m.MeshGap},
	} {
		if err := kinerr.RequireFinite(f.name, f.v); err != nil {
			return err
		}
	}
	if m.Tolerance != nil {
		if err := kinerr.RequireFinite("tolerance", *m.Tolerance); err != nil {
			return err
		}
	}
	return nil
}

func clampSamples(n int) int {
	switch {
	case n < MinSamples:
		return MinSamples
	case n > MaxSamples:
		return MaxSamples
	}
	return n
}

// scan samples residual at n evenly spaced progress values in [0, 1] and
// returns the largest absolute residual and the first progress reaching it.
func scan(n int, residual func(p float64) float64) (worst, at float64) {
	for _, p := range floats.Span(make([]float64, n), 0, 1) {
		if r := math.Abs(residual(p)); r > worst {
			worst, at = r, p
		}
	}
	return worst, at
}

func describe(r Result) []string {
	var out []string
	if r.RadialCheck.HasRadialIntersectionRisk {
		out = append(out, fmt.Sprintf(
			"radial intersection risk: center distance %.4f mm is %.4f mm short of the expected %.4f mm",
			r.RadialCheck.ActualCenterDistance, -r.RadialCheck.Residual, r.RadialCheck.ExpectedCenterDistance))
	}
	if r.KinematicCheck.HasKinematicDrift {
		out = append(out, fmt.Sprintf(
			"kinematic drift: rack moves %.4f mm per progress but the pinion rolls %.4f mm",
			r.KinematicCheck.DeclaredTranslationMmPerProgress, r.KinematicCheck.ExpectedTranslationMmPerProgress))
	}
	if r.Phase.HasPhaseMisalignment {
		out = append(out, fmt.Sprintf(
			"phase misalignment: residual reaches %.4f mm at progress %.4f; shift the rack start by %.4f mm",
			r.Phase.MaxAbsPhaseResidual, r.Phase.WorstProgress, r.Phase.RecommendedAdditionalPhaseShiftMm))
	}
	if out == nil {
		out = []string{}
	}
	return out
}
