package linkage

import (
	"math"

	"github.com/chazu/cogwright/pkg/geom"
	"github.com/chazu/cogwright/pkg/pitch"
	"gonum.org/v1/gonum/spatial/r3"
)

// MinIdlerTeeth is the smallest idler the solver will synthesize.
const MinIdlerTeeth = 6

// Role names a body in the assembly.
type Role string

const (
	RoleRack   Role = "rack"
	RoleIdler  Role = "idler"
	RolePinion Role = "pinion"
)

// Body is one positioned part of the assembly, evaluated at the requested
// progress.
type Body struct {
	Role        Role    `json:"role"`
	Module      float64 `json:"module"`
	Teeth       int     `json:"teeth"`
	PitchRadius float64 `json:"pitchRadius,omitempty"`
	// PhaseOffsetDegrees is the constant spin added to a gear's pose so its
	// teeth mesh at every progress value.
	PhaseOffsetDegrees float64 `json:"phaseOffsetDegrees"`
	// SpinAxis is the axis a gear turns about. Empty for the rack.
	SpinAxis string        `json:"spinAxis,omitempty"`
	Pose     Pose6         `json:"pose"`
	Geometry geom.Geometry `json:"geometry"`
}

// Place moves geometry modeled in the part's own frame to the body's pose.
// Gears are modeled in the XY plane turning about +Z; racks lie along +X
// with their teeth toward +Y.
func (b Body) Place(g geom.Geometry) geom.Geometry {
	if b.SpinAxis != "" {
		g = geom.Rotate(g, circleBase(b.SpinAxis))
	}
	return geom.Place(g, b.Pose.Position(), b.Pose.Rotation())
}

// rackOrientation returns the Euler rotation that turns a rack lying along
// +X onto the translation axis.
func rackOrientation(axis string) r3.Vec {
	switch axis {
	case "y":
		return r3.Vec{Z: 90}
	case "z":
		return r3.Vec{Y: -90}
	}
	return r3.Vec{}
}

// circleBase returns the Euler rotation that turns a circle in the XY plane
// perpendicular to the spin axis.
func circleBase(axis string) r3.Vec {
	switch axis {
	case "x":
		return r3.Vec{Y: 90}
	case "y":
		return r3.Vec{X: -90}
	}
	return r3.Vec{}
}

// planeAngle returns the angle of v about spin in degrees, measured from the
// gear frame's zero direction.
func planeAngle(axis string, v r3.Vec) float64 {
	spin := unit(axis)
	var ref r3.Vec
	switch axis {
	case "x":
		ref = r3.Vec{Y: 1}
	case "y":
		ref = r3.Vec{Z: 1}
	default:
		ref = r3.Vec{X: 1}
	}
	ortho := r3.Cross(spin, ref)
	return pitch.Degrees(math.Atan2(r3.Dot(v, ortho), r3.Dot(v, ref)))
}

// meshPhase returns the extra spin of a driven gear so that a tooth of it
// sits in the driver's tooth valley on the line of centers. Angles are in
// each gear's own frame, where a valley sits at 0 after the library phase.
func meshPhase(driverContact float64, driverTeeth int, drivenContact float64, drivenTeeth int) float64 {
	f := driverContact * float64(driverTeeth) / 360
	f -= math.Floor(f)
	pitchDeg := pitch.AngularPitchDegrees(drivenTeeth)
	return pitch.WrapPitch(drivenContact-(f+0.5)*pitchDeg, pitchDeg)
}

func gearGeometry(b Body) geom.Geometry {
	return b.Place(geom.CircleOutline(b.PitchRadius, 0))
}

// buildAssembly poses every body at the requested progress. Positions are
// the affine interpolation of the declared poses. Gear spin is the phase
// offset plus progress times the declared rotation delta, so a constant
// added to both declared rotations has no effect.
func buildAssembly(o options, trans, rot Motion, t, r AxisDelta, usesIdler bool, radius float64) ([]Body, error) {
	lib := o.library
	p := o.progress

	rackModule := lib.Rack.Module
	pinionModule := lib.Pinion.Module
	var idlerTeeth int
	var idlerModule float64
	if usesIdler {
		// The whole train runs at the idler's module so every pair meshes.
		idlerTeeth = int(math.Round(2 * radius / lib.Pinion.Module))
		if idlerTeeth < MinIdlerTeeth {
			idlerTeeth = MinIdlerTeeth
		}
		idlerModule = 2 * radius / float64(idlerTeeth)
		rackModule, pinionModule = idlerModule, idlerModule
	}

	rackPhase, err := pitch.RackPhase(pitch.RackParams{Module: rackModule, Teeth: lib.Rack.Teeth})
	if err != nil {
		return nil, err
	}
	rackEuler := rackOrientation(t.Axis)
	normal := geom.EulerRotation(rackEuler)(r3.Vec{Y: 1})
	rack := Body{
		Role:   RoleRack,
		Module: rackModule,
		Teeth:  rackPhase.EffectiveTeethNumber,
		Pose:   PoseOf(trans.PositionAt(p), rackEuler),
	}
	rack.Geometry = rack.Place(geom.LineOutline(rackPhase.EffectiveLength, 2*rackModule))

	spin := unit(r.Axis)
	dRot := rot.DeltaRotation()
	spinAt := func(offset, ratio float64) r3.Vec {
		return r3.Add(r3.Scale(offset, spin), r3.Scale(ratio*p, dRot))
	}
	center := rot.PositionAt(p)

	pinionCircle, err := pitch.CircleFeatures(pinionModule, lib.Pinion.Teeth)
	if err != nil {
		return nil, err
	}
	pinionPhase, err := pitch.GearPhase(pitch.GearParams{Module: pinionModule, Teeth: lib.Pinion.Teeth})
	if err != nil {
		return nil, err
	}

	if !usesIdler {
		pinion := Body{
			Role:               RolePinion,
			Module:             pinionModule,
			Teeth:              lib.Pinion.Teeth,
			PitchRadius:        pinionCircle.Radius,
			PhaseOffsetDegrees: pinionPhase.InitialToothPhaseOffsetDegrees,
			SpinAxis:           r.Axis,
			Pose:               PoseOf(center, spinAt(pinionPhase.InitialToothPhaseOffsetDegrees, 1)),
		}
		pinion.Geometry = gearGeometry(pinion)
		return []Body{rack, pinion}, nil
	}

	idlerPhase, err := pitch.GearPhase(pitch.GearParams{Module: idlerModule, Teeth: idlerTeeth})
	if err != nil {
		return nil, err
	}
	idler := Body{
		Role:               RoleIdler,
		Module:             idlerModule,
		Teeth:              idlerTeeth,
		PitchRadius:        radius,
		PhaseOffsetDegrees: idlerPhase.InitialToothPhaseOffsetDegrees,
		SpinAxis:           r.Axis,
		Pose:               PoseOf(center, spinAt(idlerPhase.InitialToothPhaseOffsetDegrees, 1)),
	}
	idler.Geometry = gearGeometry(idler)

	// The pinion sits on the far side of the idler from the rack and turns
	// the other way.
	rp := pinionCircle.Radius
	pinionCenter := r3.Add(center, r3.Scale(radius+rp, normal))
	contact := planeAngle(r.Axis, normal)
	offset := pinionPhase.InitialToothPhaseOffsetDegrees +
		meshPhase(contact, idlerTeeth, contact+180, lib.Pinion.Teeth)
	pinion := Body{
		Role:               RolePinion,
		Module:             pinionModule,
		Teeth:              lib.Pinion.Teeth,
		PitchRadius:        rp,
		PhaseOffsetDegrees: offset,
		SpinAxis:           r.Axis,
		Pose:               PoseOf(pinionCenter, spinAt(offset, -radius/rp)),
	}
	pinion.Geometry = gearGeometry(pinion)
	return []Body{rack, idler, pinion}, nil
}
