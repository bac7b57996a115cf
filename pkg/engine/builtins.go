package engine

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/paramschema"
	"github.com/chazu/cogwright/pkg/partlib"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: pitch-radius -> pitch_radius
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpGear wraps a graph.GearData so it can be returned from `gear`
// and consumed by `defpart`.
type sexpGear struct {
	data graph.GearData
}

func (g *sexpGear) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(gear :module %g :teeth %d)", g.data.Module, g.data.Teeth)
}
func (g *sexpGear) Type() *zygo.RegisteredType { return nil }

// sexpRack wraps a graph.RackData.
type sexpRack struct {
	data graph.RackData
}

func (r *sexpRack) SexpString(ps *zygo.PrintState) string {
	if r.data.Teeth > 0 {
		return fmt.Sprintf("(rack :module %g :teeth %d)", r.data.Module, r.data.Teeth)
	}
	return fmt.Sprintf("(rack :module %g :length %g)", r.data.Module, r.data.Length)
}
func (r *sexpRack) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// number reads an optional numeric keyword into dst.
func (a kwArgs) number(fn, key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// whole reads an optional integer keyword into dst.
func (a kwArgs) whole(fn, key string, dst *int) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = n
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number. Floats are accepted when integral so that
// arithmetic results like (* 2 10.0) still work as tooth counts.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_x) and plain strings ("x").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return graph.ZeroID, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (graph.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return graph.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Node ID generation
// ---------------------------------------------------------------------------

// nodeCounter provides unique suffixes for anonymous nodes.
var nodeCounter uint64

func nextNodeSuffix() string {
	n := atomic.AddUint64(&nodeCounter, 1)
	return fmt.Sprintf("_anon_%d", n)
}

// nodeName returns a node's name for building child IDs, or an anonymous
// suffix.
func nodeName(g *graph.DesignGraph, id graph.NodeID) string {
	if n := g.Get(id); n != nil && n.Name != "" {
		return n.Name
	}
	return nextNodeSuffix()
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// scope is the per-evaluation state the builtins close over.
type scope struct {
	graph     *graph.DesignGraph
	library   partlib.Library
	params    map[string]paramschema.Param
	overrides map[string]float64
}

// registerBuiltins installs all DSL builtins into a zygomys environment.
// The builtins operate on the scope's DesignGraph, populating it during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scope) {
	g := sc.graph

	// -----------------------------------------------------------------------
	// (gear :module 1 :teeth 20 :pressure-angle 20 :face-width 5 :backlash 0)
	// Omitted module and teeth fall back to the stock pinion.
	// -----------------------------------------------------------------------
	env.AddFunction("gear", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		gd := graph.GearData{
			Module: sc.library.Pinion.Module,
			Teeth:  sc.library.Pinion.Teeth,
		}
		if err := pa.number("gear", "module", &gd.Module); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.whole("gear", "teeth", &gd.Teeth); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("gear", "pressure-angle", &gd.PressureAngle); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("gear", "face-width", &gd.FaceWidth); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("gear", "backlash", &gd.Backlash); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpGear{data: gd}, nil
	})

	// -----------------------------------------------------------------------
	// (rack :module 1 :teeth 21) or (rack :module 1 :length 60)
	// Omitted module and size fall back to the stock rack.
	// -----------------------------------------------------------------------
	env.AddFunction("rack", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		rd := graph.RackData{Module: sc.library.Rack.Module}
		if err := pa.number("rack", "module", &rd.Module); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.whole("rack", "teeth", &rd.Teeth); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("rack", "length", &rd.Length); err != nil {
			return zygo.SexpNull, err
		}
		if rd.Teeth != 0 && rd.Length != 0 {
			return zygo.SexpNull, fmt.Errorf("rack: give either :teeth or :length, not both")
		}
		if rd.Teeth == 0 && rd.Length == 0 {
			rd.Teeth = sc.library.Rack.Teeth
		}
		if err := pa.number("rack", "pressure-angle", &rd.PressureAngle); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("rack", "face-width", &rd.FaceWidth); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.number("rack", "base-height", &rd.BaseHeight); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRack{data: rd}, nil
	})

	// -----------------------------------------------------------------------
	// (defpart "name" (gear ...)) / (defpart "name" (rack ...))
	// -----------------------------------------------------------------------
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defpart requires a name and a body expression")
		}

		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
		}

		var nodeData graph.NodeData
		switch body := args[1].(type) {
		case *sexpGear:
			nodeData = body.data
		case *sexpRack:
			nodeData = body.data
		default:
			return zygo.SexpNull, fmt.Errorf("defpart: expected gear or rack expression, got %T", args[1])
		}

		id := graph.NewNodeID(partName)
		node := &graph.Node{
			ID:   id,
			Kind: graph.NodePrimitive,
			Name: partName,
			Data: nodeData,
		}
		g.AddNode(node)

		return &sexpNodeRef{id: id, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (part "name")
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}

		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}

		n := g.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}

		return &sexpNodeRef{id: n.ID, name: partName}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: graph.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "pinion") :at (vec3 0 10 0) :rotate (vec3 0 0 4.5))
	// (place (part "pinion") :relative-to (part "rack") :offset (vec3 0 10 0))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}

		childID, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: part: %w", err)
		}

		td := graph.TransformData{}
		_, hasAt := pa.kw["at"]
		_, hasOffset := pa.kw["offset"]
		if hasAt && hasOffset {
			return zygo.SexpNull, fmt.Errorf("place: use either :at or :offset, not both")
		}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["relative-to"]; ok {
			ref, err := toNodeRef(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: relative-to: %w", err)
			}
			if ref == childID {
				return zygo.SexpNull, fmt.Errorf("place: a part cannot be placed relative to itself")
			}
			td.RelativeTo = ref
		}
		if v, ok := pa.kw["offset"]; ok {
			if td.RelativeTo.IsZero() {
				return zygo.SexpNull, fmt.Errorf("place: offset requires :relative-to")
			}
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: offset: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}

		// Generate a deterministic ID from the child node name.
		id := graph.NewNodeID("place/" + nodeName(g, childID))

		node := &graph.Node{
			ID:       id,
			Kind:     graph.NodeTransform,
			Children: []graph.NodeID{childID},
			Data:     td,
		}
		g.AddNode(node)

		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh (part "pinion") (part "rack") :gap 0.1 :pitch-axis :y)
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("mesh requires two part references, got %d", len(pa.positional))
		}

		a, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: part a: %w", err)
		}
		b, err := toNodeRef(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: part b: %w", err)
		}

		md := graph.MeshData{PartA: a, PartB: b}
		if err := pa.number("mesh", "gap", &md.Gap); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["pitch-axis"]; ok {
			axis, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: pitch-axis: %w", err)
			}
			md.PitchAxis = axis
		}

		id := graph.NewNodeID("mesh/" + nodeName(g, a) + "-" + nodeName(g, b))
		g.AddNode(&graph.Node{
			ID:   id,
			Kind: graph.NodeMesh,
			Data: md,
		})

		return &sexpNodeRef{id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (pitch-radius (part "pinion")) or (pitch-radius :module 1 :teeth 20)
	// -----------------------------------------------------------------------
	env.AddFunction("pitch_radius", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var gd graph.GearData
		if len(pa.positional) > 0 {
			id, err := toNodeRef(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pitch-radius: %w", err)
			}
			n := g.Get(id)
			if n == nil {
				return zygo.SexpNull, fmt.Errorf("pitch-radius: unknown part")
			}
			d, ok := n.Data.(graph.GearData)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("pitch-radius: %s is not a gear", n.Name)
			}
			gd = d
		} else {
			if err := pa.number("pitch-radius", "module", &gd.Module); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.whole("pitch-radius", "teeth", &gd.Teeth); err != nil {
				return zygo.SexpNull, err
			}
		}
		c, err := gd.PitchCircle()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pitch-radius: %w", err)
		}
		return &zygo.SexpFloat{Val: c.Radius}, nil
	})

	// -----------------------------------------------------------------------
	// (defparam "name" default :min ...)
	// Top-level (defparam name default ...) forms are rewritten to
	// (def name (defparam "name" default ...)) before evaluation. The value
	// is the caller's override, clamped to the declared range, or the default.
	// -----------------------------------------------------------------------
	env.AddFunction("defparam", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defparam requires a name and a default value")
		}
		paramName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defparam: name: %w", err)
		}
		p, declared := sc.params[paramName]
		v, overridden := sc.overrides[paramName]
		if !declared || !overridden || !p.IsNumeric() {
			return args[1], nil
		}
		v = p.Clamp(v)
		if p.Kind == paramschema.KindInteger {
			return &zygo.SexpInt{Val: int64(v)}, nil
		}
		return &zygo.SexpFloat{Val: v}, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" (place ...) (place ...) (mesh ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}

		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}

		var children []graph.NodeID
		for i := 1; i < len(args); i++ {
			ref, ok := args[i].(*sexpNodeRef)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: expected node reference, got %T (%s)",
					i, args[i], args[i].SexpString(nil))
			}
			children = append(children, ref.id)
		}

		id := graph.NewNodeID(asmName)
		node := &graph.Node{
			ID:       id,
			Kind:     graph.NodeGroup,
			Name:     asmName,
			Children: children,
			Data:     graph.GroupData{},
		}
		g.AddNode(node)
		g.AddRoot(id)

		return &sexpNodeRef{id: id, name: asmName}, nil
	})
}
