package partlib

import (
	"github.com/chazu/cogwright/pkg/pitch"
)

// PhaseShift is the rack translation at progress 0 that makes a library
// gear and the library rack mesh when the gear sits on the phase origin.
type PhaseShift struct {
	GearInitialToothPhaseOffsetDegrees float64 `json:"gearLibraryInitialToothPhaseOffsetDegrees"`
	Mm                                 float64 `json:"recommendedRackShiftAtStartMm"`
	PitchFraction                      float64 `json:"recommendedRackShiftAtStartPitchFraction"`
}

// PhaseShiftFor derives the shift from the gear and rack phase metadata.
// Rolling the gear back through its initial tooth phase offset moves the
// contact point along the pitch line; the rack's reference tooth offset from
// its phase origin is subtracted and the result wrapped into one pitch.
// The rack is taken at the given module with the library's tooth count.
func (l Library) PhaseShiftFor(module float64, teeth int) (PhaseShift, error) {
	circle, err := pitch.CircleFeatures(module, teeth)
	if err != nil {
		return PhaseShift{}, err
	}
	gear, err := pitch.GearPhase(pitch.GearParams{Module: module, Teeth: teeth})
	if err != nil {
		return PhaseShift{}, err
	}
	rack, err := pitch.RackPhase(pitch.RackParams{Module: module, Teeth: l.Rack.Teeth})
	if err != nil {
		return PhaseShift{}, err
	}

	cp := circle.CircularPitch()
	roll := pitch.RollDistance(circle.Radius, -gear.InitialToothPhaseOffsetDegrees)
	toothOffset := rack.ReferenceToothCenterAtStart - rack.PhaseOrigin.X
	mm := pitch.WrapPitch(roll-toothOffset, cp)

	return PhaseShift{
		GearInitialToothPhaseOffsetDegrees: gear.InitialToothPhaseOffsetDegrees,
		Mm:                                 mm,
		PitchFraction:                      mm / cp,
	}, nil
}
