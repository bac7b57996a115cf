package linkage

import (
	"math"

	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon bounds what counts as no motion, in mm for positions and degrees
// for rotations.
const Epsilon = 1e-6

// Source names one of the two motions passed to Solve.
type Source string

const (
	MotionA Source = "motionA"
	MotionB Source = "motionB"
)

// Classification records which motion supplies translation and which
// supplies rotation.
type Classification struct {
	TranslationSource Source `json:"translationSource"`
	RotationSource    Source `json:"rotationSource"`
}

// isPureTranslation reports whether m moves without turning.
func isPureTranslation(m Motion) bool {
	return r3.Norm(m.DeltaRotation()) <= Epsilon && r3.Norm(m.DeltaPosition()) > Epsilon
}

// classify assigns roles to a and b. Exactly one motion must be a pure
// translation; the other must turn. The result depends only on the two
// motions, so swapping the arguments swaps the labels and nothing else.
func classify(a, b Motion) (Classification, error) {
	pa, pb := isPureTranslation(a), isPureTranslation(b)
	var c Classification
	var rot Motion
	switch {
	case pa && !pb:
		c, rot = Classification{TranslationSource: MotionA, RotationSource: MotionB}, b
	case pb && !pa:
		c, rot = Classification{TranslationSource: MotionB, RotationSource: MotionA}, a
	case pa && pb:
		return Classification{}, kinerr.New(kinerr.KindAmbiguousMotion, "",
			"both motions translate without rotating; one must rotate")
	default:
		return Classification{}, kinerr.New(kinerr.KindAmbiguousMotion, "",
			"neither motion is a pure translation; cannot tell which body is the rack")
	}
	if r3.Norm(rot.DeltaRotation()) <= Epsilon {
		return Classification{}, kinerr.New(kinerr.KindDegenerateLinkage, string(c.RotationSource),
			"rotation delta %.3g deg is too small to invert", math.Abs(r3.Norm(rot.DeltaRotation())))
	}
	return c, nil
}
