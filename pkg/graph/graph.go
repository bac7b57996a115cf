package graph

import (
	"fmt"
	"sort"
)

// Graph-wide defaults.
const (
	DefaultPressureAngle = 20.0 // degrees
	DefaultFaceWidth     = 5.0  // mm
	DefaultMeshTolerance = 0.05 // mm
)

// GlobalDefaults contains graph-wide default settings.
type GlobalDefaults struct {
	PressureAngle float64 `json:"pressure_angle"` // degrees
	FaceWidth     float64 `json:"face_width"`     // mm
	MeshTolerance float64 `json:"mesh_tolerance"` // allowed placement residual, mm
	Units         string  `json:"units"`          // "mm" only
}

// DesignGraph is the top-level immutable data structure produced by script
// evaluation. It is never mutated in place; each evaluation produces a new
// graph.
type DesignGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Defaults  GlobalDefaults    `json:"defaults"`
	Version   uint64            `json:"version"`
}

// New creates an empty DesignGraph with default settings.
func New() *DesignGraph {
	return &DesignGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
		Defaults: GlobalDefaults{
			PressureAngle: DefaultPressureAngle,
			FaceWidth:     DefaultFaceWidth,
			MeshTolerance: DefaultMeshTolerance,
			Units:         "mm",
		},
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *DesignGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *DesignGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *DesignGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *DesignGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *DesignGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Parts returns all primitive nodes in the graph.
func (g *DesignGraph) Parts() []*Node {
	var parts []*Node
	for _, n := range g.Nodes {
		if n.Kind == NodePrimitive {
			parts = append(parts, n)
		}
	}
	return parts
}

// Meshes returns all mesh declaration nodes in the graph.
func (g *DesignGraph) Meshes() []*Node {
	var meshes []*Node
	for _, n := range g.Nodes {
		if n.Kind == NodeMesh {
			meshes = append(meshes, n)
		}
	}
	return meshes
}

// Children returns the child nodes of the given node.
func (g *DesignGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Loose returns the parts and placements that are neither roots nor the
// child of any node, ordered by name and then ID. They are the top level of
// a script that builds parts without an assembly.
func (g *DesignGraph) Loose() []*Node {
	held := make(map[NodeID]bool, len(g.Nodes)+len(g.Roots))
	for _, rid := range g.Roots {
		held[rid] = true
	}
	for _, n := range g.Nodes {
		for _, c := range n.Children {
			held[c] = true
		}
	}

	var loose []*Node
	for id, n := range g.Nodes {
		if held[id] || (n.Kind != NodePrimitive && n.Kind != NodeTransform) {
			continue
		}
		loose = append(loose, n)
	}
	sort.Slice(loose, func(i, j int) bool {
		if loose[i].Name != loose[j].Name {
			return loose[i].Name < loose[j].Name
		}
		return loose[i].ID.String() < loose[j].ID.String()
	})
	return loose
}

// NodeCount returns the total number of nodes.
func (g *DesignGraph) NodeCount() int {
	return len(g.Nodes)
}

// placer returns the first transform node that has id as a child.
func (g *DesignGraph) placer(id NodeID) *Node {
	var found *Node
	for _, n := range g.Nodes {
		if n.Kind != NodeTransform {
			continue
		}
		for _, c := range n.Children {
			if c == id && (found == nil || n.ID.String() < found.ID.String()) {
				found = n
			}
		}
	}
	return found
}

// Position resolves where a part has been placed, following relative
// placements. Parts that are never placed sit at the origin. The second
// result is false when the placement chain loops or references a missing
// node.
func (g *DesignGraph) Position(id NodeID) (Vec3, bool) {
	seen := make(map[NodeID]bool)
	var pos Vec3
	for {
		if seen[id] {
			return Vec3{}, false
		}
		seen[id] = true
		if g.Nodes[id] == nil {
			return Vec3{}, false
		}
		t := g.placer(id)
		if t == nil {
			return pos, true
		}
		td, ok := t.Data.(TransformData)
		if !ok {
			return pos, true
		}
		if td.Translation != nil {
			pos = pos.Add(*td.Translation)
		}
		if td.RelativeTo.IsZero() {
			return pos, true
		}
		id = td.RelativeTo
	}
}
