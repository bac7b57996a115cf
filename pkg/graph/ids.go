package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// NodeID is a content-addressed node identifier: the SHA-256 of the node's
// evaluation path (e.g. "defpart/pinion").
type NodeID [32]byte

// ZeroID is the unset NodeID.
var ZeroID NodeID

// NewNodeID derives a NodeID from an evaluation path.
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// String returns the full hex form.
func (id NodeID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first 6 bytes in hex, for messages.
func (id NodeID) Short() string { return hex.EncodeToString(id[:6]) }

// MarshalText encodes the id as hex so it can key JSON maps.
func (id NodeID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText decodes a hex id.
func (id *NodeID) UnmarshalText(b []byte) error {
	if len(b) != hex.EncodedLen(len(id)) {
		return fmt.Errorf("graph: node id must be %d hex chars, got %d", hex.EncodedLen(len(id)), len(b))
	}
	_, err := hex.Decode(id[:], b)
	return err
}

// SourceRef locates the script form that produced a node.
type SourceRef struct {
	Line int `json:"line,omitempty"`
	Col  int `json:"col,omitempty"`
}

// Vec3 is a point or offset in mm, or Euler angles in degrees.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v * f.
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Vec converts to an r3 vector.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Vec3Of converts an r3 vector.
func Vec3Of(p r3.Vec) Vec3 { return Vec3{p.X, p.Y, p.Z} }

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Axis is a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}
