package tools

import (
	"context"

	"github.com/chazu/cogwright/pkg/diagnostics"
)

// DiagnosticsOutput is the full diagnostics result.
type DiagnosticsOutput struct {
	diagnostics.Result
	Failure
}

// CheckAnimationIntersections diagnoses a user-authored rack and pinion
// animation.
func (t *Toolbox) CheckAnimationIntersections(_ context.Context, in diagnostics.KinematicModel) DiagnosticsOutput {
	res, err := diagnostics.Diagnose(in,
		diagnostics.WithLibrary(t.library),
		diagnostics.WithDefaults(t.samples, t.tolerance),
	)
	if err != nil {
		return DiagnosticsOutput{Failure: fail(err)}
	}
	return DiagnosticsOutput{Result: res}
}
