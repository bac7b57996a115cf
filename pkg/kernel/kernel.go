// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) provide gear and rack profiles, bores and rigid
// transforms behind this interface so the rest of the system can swap
// backends without change.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// GearSpec describes an involute spur gear extruded along +Z.
type GearSpec struct {
	Module        float64 // mm
	Teeth         int
	PressureAngle float64 // degrees
	Backlash      float64 // mm
	Clearance     float64 // mm
	FaceWidth     float64 // extrusion height, mm
}

// RackSpec describes a straight rack along X with teeth toward +Y,
// extruded along +Z.
type RackSpec struct {
	Module        float64 // mm
	Teeth         int
	PressureAngle float64 // degrees
	Backlash      float64 // mm
	BaseHeight    float64 // material below the dedendum line, mm
	FaceWidth     float64 // extrusion height, mm
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Parts
	Gear(spec GearSpec) (Solid, error)
	Rack(spec RackSpec) (Solid, error)

	// Cylinder is centered on the origin with its axis along Z. Used to
	// cut shaft bores.
	Cylinder(height, radius float64, segments int) Solid
	Difference(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
