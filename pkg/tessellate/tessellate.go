// Package tessellate walks a design graph and produces triangle meshes
// using a geometry kernel. One mesh is produced per part.
package tessellate

import (
	"fmt"

	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/kernel"
)

// transformStack accumulates spatial transforms during graph traversal.
type transformStack struct {
	translations []graph.Vec3
	rotations    []graph.Vec3
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(translation, rotation graph.Vec3) {
	ts.translations = append(ts.translations, translation)
	ts.rotations = append(ts.rotations, rotation)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
	if len(ts.rotations) > 0 {
		ts.rotations = ts.rotations[:len(ts.rotations)-1]
	}
}

// accumulatedTranslation returns the sum of all translations on the stack.
func (ts *transformStack) accumulatedTranslation() graph.Vec3 {
	var sum graph.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// accumulatedRotation returns the sum of all rotations on the stack.
func (ts *transformStack) accumulatedRotation() graph.Vec3 {
	var sum graph.Vec3
	for _, r := range ts.rotations {
		sum = sum.Add(r)
	}
	return sum
}

// Tessellate walks the design graph and produces one triangle mesh per
// placed gear or rack using the provided geometry kernel. Roots come first,
// then parts and placements no assembly holds. The tessellator is read-only
// and never mutates the graph.
func Tessellate(g *graph.DesignGraph, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if g == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	ts := newTransformStack()

	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := walkNode(g, k, root, ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		meshes = append(meshes, collected...)
	}

	for _, n := range g.Loose() {
		collected, err := walkNode(g, k, n, ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking %s: %w", partName(n), err)
		}
		meshes = append(meshes, collected...)
	}

	return meshes, nil
}

// walkNode recursively traverses a node and its children, collecting meshes.
func walkNode(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	switch n.Kind {
	case graph.NodePrimitive:
		return handlePrimitive(k, n, ts)

	case graph.NodeTransform:
		return handleTransform(g, k, n, ts)

	case graph.NodeGroup:
		return handleGroup(g, k, n, ts)

	case graph.NodeMesh:
		// Declared meshing pairs carry no geometry.
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

// partSolid builds the part in its own frame. Gears are turned by their
// initial tooth phase so a tooth valley sits on angle 0.
func partSolid(k kernel.Kernel, n *graph.Node) (kernel.Solid, error) {
	switch data := n.Data.(type) {
	case graph.GearData:
		phase, err := data.Phase()
		if err != nil {
			return nil, err
		}
		s, err := k.Gear(kernel.GearSpec{
			Module:        data.Module,
			Teeth:         data.Teeth,
			PressureAngle: data.PressureAngle,
			Backlash:      data.Backlash,
			FaceWidth:     data.FaceWidth,
		})
		if err != nil {
			return nil, err
		}
		return k.Rotate(s, 0, 0, phase.InitialToothPhaseOffsetDegrees), nil
	case graph.RackData:
		phase, err := data.Phase()
		if err != nil {
			return nil, err
		}
		return k.Rack(kernel.RackSpec{
			Module:        data.Module,
			Teeth:         phase.EffectiveTeethNumber,
			PressureAngle: data.PressureAngle,
			BaseHeight:    data.BaseHeight,
			FaceWidth:     data.FaceWidth,
		})
	default:
		return nil, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
}

// handlePrimitive creates geometry for a primitive node.
func handlePrimitive(k kernel.Kernel, n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	solid, err := partSolid(k, n)
	if err != nil {
		return nil, fmt.Errorf("tessellate: part %s: %w", partName(n), err)
	}

	// Apply accumulated rotation first, then translation.
	rot := ts.accumulatedRotation()
	if rot.X != 0 || rot.Y != 0 || rot.Z != 0 {
		solid = k.Rotate(solid, rot.X, rot.Y, rot.Z)
	}

	trans := ts.accumulatedTranslation()
	if trans.X != 0 || trans.Y != 0 || trans.Z != 0 {
		solid = k.Translate(solid, trans.X, trans.Y, trans.Z)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for node %s: %w", n.ID.Short(), err)
	}
	mesh.PartName = partName(n)

	return []*kernel.Mesh{mesh}, nil
}

// partName prefers the node's Name and falls back to its short ID.
func partName(n *graph.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID.Short()
}

// handleTransform pushes the transform, recurses into children, then pops.
// A relative placement starts from the resolved position of the part it
// references.
func handleTransform(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}

	translation := graph.Vec3{}
	rotation := graph.Vec3{}
	if !td.RelativeTo.IsZero() {
		base, ok := g.Position(td.RelativeTo)
		if !ok {
			return nil, fmt.Errorf("transform node %s: relative placement does not resolve", n.ID.Short())
		}
		translation = base
	}
	if td.Translation != nil {
		translation = translation.Add(*td.Translation)
	}
	if td.Rotation != nil {
		rotation = *td.Rotation
	}
	ts.push(translation, rotation)
	defer ts.pop()

	var meshes []*kernel.Mesh
	for _, child := range g.Children(n) {
		collected, err := walkNode(g, k, child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// handleGroup recurses into children transparently.
func handleGroup(g *graph.DesignGraph, k kernel.Kernel, n *graph.Node, ts *transformStack) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, child := range g.Children(n) {
		collected, err := walkNode(g, k, child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}
