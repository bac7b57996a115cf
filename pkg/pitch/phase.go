package pitch

import (
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// GearParams are the construction parameters phase metadata depends on.
type GearParams struct {
	Module float64 `json:"module" yaml:"module"`
	Teeth  int     `json:"teeth" yaml:"teeth"`
}

// GearPhaseMetadata records how a gear is rotated at construction time.
type GearPhaseMetadata struct {
	// InitialToothPhaseOffsetDegrees rotates the gear so a tooth valley, not a
	// tooth crest, sits on angle 0.
	InitialToothPhaseOffsetDegrees float64 `json:"initialToothPhaseOffsetDegrees"`
}

// GearPhase returns the gear's initial phase offset: a quarter of the angular
// tooth pitch, negated.
func GearPhase(p GearParams) (GearPhaseMetadata, error) {
	if err := kinerr.RequirePositive("module", p.Module); err != nil {
		return GearPhaseMetadata{}, err
	}
	if p.Teeth <= 0 {
		return GearPhaseMetadata{}, kinerr.Invalid("teeth", "must be positive, got %d", p.Teeth)
	}
	return GearPhaseMetadata{
		InitialToothPhaseOffsetDegrees: -90 / float64(p.Teeth),
	}, nil
}

// RackParams describe a rack either by tooth count or by nominal length.
// When Teeth is zero the effective tooth count is derived from Length.
type RackParams struct {
	Module float64 `json:"module" yaml:"module"`
	Teeth  int     `json:"teeth,omitempty" yaml:"teeth"`
	Length float64 `json:"length,omitempty" yaml:"length"`
}

// RackPhaseMetadata locates the rack's teeth relative to its phase origin.
type RackPhaseMetadata struct {
	ReferenceToothCenterAtStart float64 `json:"referenceToothCenterAtStart"`
	EffectiveTeethNumber        int     `json:"effectiveTeethNumber"`
	EffectiveLength             float64 `json:"effectiveLength"`
	PhaseOrigin                 r3.Vec  `json:"phaseOrigin"`
}

// RackPhase returns the rack's phase metadata. Tooth centers sit at
// (i - (n-1)/2) * circularPitch along the pitch line, so the reference tooth
// is the one at the origin for odd n and half a pitch to +x for even n.
func RackPhase(p RackParams) (RackPhaseMetadata, error) {
	if err := kinerr.RequirePositive("module", p.Module); err != nil {
		return RackPhaseMetadata{}, err
	}
	cp := CircularPitch(p.Module)

	n := p.Teeth
	switch {
	case n < 0:
		return RackPhaseMetadata{}, kinerr.Invalid("teeth", "must be positive, got %d", n)
	case n == 0:
		if err := kinerr.RequirePositive("length", p.Length); err != nil {
			return RackPhaseMetadata{}, kinerr.Invalid("teeth", "either teeth or a positive length is required")
		}
		n = int(math.Floor(p.Length / cp))
		if n < 1 {
			n = 1
		}
	}

	return RackPhaseMetadata{
		ReferenceToothCenterAtStart: referenceToothCenter(n, cp),
		EffectiveTeethNumber:        n,
		EffectiveLength:             float64(n) * cp,
		PhaseOrigin:                 r3.Vec{},
	}, nil
}

// referenceToothCenter returns the tooth center nearest the origin, ties to +x.
func referenceToothCenter(n int, cp float64) float64 {
	if n%2 == 1 {
		return 0
	}
	return cp / 2
}

// WrapPitch wraps x into the half-open interval (-pitch/2, pitch/2].
func WrapPitch(x, pitch float64) float64 {
	w := math.Mod(x, pitch)
	if w > pitch/2 {
		w -= pitch
	} else if w <= -pitch/2 {
		w += pitch
	}
	return w
}
