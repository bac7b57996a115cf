package graph

import (
	"github.com/chazu/cogwright/pkg/pitch"
)

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

// GearData is an involute spur gear. Zero PressureAngle and FaceWidth fall
// back to the graph defaults.
type GearData struct {
	Module        float64 `json:"module"`
	Teeth         int     `json:"teeth"`
	PressureAngle float64 `json:"pressure_angle,omitempty"` // degrees
	FaceWidth     float64 `json:"face_width,omitempty"`     // mm
	Backlash      float64 `json:"backlash,omitempty"`       // mm
}

func (GearData) nodeData() {}

// PitchCircle derives the gear's pitch circle.
func (d GearData) PitchCircle() (pitch.Circle, error) {
	return pitch.CircleFeatures(d.Module, d.Teeth)
}

// Phase derives the gear's initial tooth phase.
func (d GearData) Phase() (pitch.GearPhaseMetadata, error) {
	return pitch.GearPhase(pitch.GearParams{Module: d.Module, Teeth: d.Teeth})
}

// RackData is a straight rack given by tooth count or nominal length.
type RackData struct {
	Module        float64 `json:"module"`
	Teeth         int     `json:"teeth,omitempty"`
	Length        float64 `json:"length,omitempty"` // mm, used when Teeth is 0
	PressureAngle float64 `json:"pressure_angle,omitempty"`
	FaceWidth     float64 `json:"face_width,omitempty"`
	BaseHeight    float64 `json:"base_height,omitempty"`
}

func (RackData) nodeData() {}

// PitchLine derives the rack's pitch line in its own frame.
func (d RackData) PitchLine() (pitch.Line, error) {
	return pitch.LineFeatures(d.Module)
}

// Phase derives the rack's tooth layout.
func (d RackData) Phase() (pitch.RackPhaseMetadata, error) {
	return pitch.RackPhase(pitch.RackParams{Module: d.Module, Teeth: d.Teeth, Length: d.Length})
}

// ---------------------------------------------------------------------------
// Transform
// ---------------------------------------------------------------------------

// TransformData represents a spatial transformation applied to a child node.
// Created by the (place ...) form. When RelativeTo is set, Translation is an
// offset from that part's placed position.
type TransformData struct {
	Translation *Vec3  `json:"translation,omitempty"`
	Rotation    *Vec3  `json:"rotation,omitempty"` // Euler angles in degrees
	RelativeTo  NodeID `json:"relative_to,omitempty"`
}

func (TransformData) nodeData() {}

// ---------------------------------------------------------------------------
// Group
// ---------------------------------------------------------------------------

// GroupData represents a logical grouping (assembly, subassembly).
// Created by the (assembly ...) form.
type GroupData struct {
	Description string `json:"description,omitempty"`
}

func (GroupData) nodeData() {}

// ---------------------------------------------------------------------------
// Mesh
// ---------------------------------------------------------------------------

// MeshData declares that two parts mesh. Created by the (mesh ...) form.
// Meshes carry no geometry; validation checks them against placement.
type MeshData struct {
	PartA     NodeID  `json:"part_a"`
	PartB     NodeID  `json:"part_b"`
	Gap       float64 `json:"gap,omitempty"`        // intentional radial clearance, mm
	PitchAxis string  `json:"pitch_axis,omitempty"` // "x" or "y"
}

func (MeshData) nodeData() {}
