package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/partlib"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(gear :module 1)`,
			expect: `(gear "__kw_module" 1)`,
		},
		{
			name:   "multiple keywords",
			input:  `(rack :module 1 :teeth 21)`,
			expect: `(rack "__kw_module" 1 "__kw_teeth" 21)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(pitch-radius :module m)`,
			expect: `(pitch_radius "__kw_module" m)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 -10 0)`,
			expect: `(vec3 0 -10 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:relative-to`,
			expect: `"__kw_relative-to"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// evalOK evaluates source and fails the test on any error.
func evalOK(t *testing.T, eng *Engine, source string) *graph.DesignGraph {
	t.Helper()
	g, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if g == nil {
		t.Fatal("expected non-nil graph")
	}
	return g
}

// evalFails evaluates source and returns the joined eval error messages,
// failing the test if evaluation succeeds.
func evalFails(t *testing.T, eng *Engine, source string) string {
	t.Helper()
	g, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil || len(evalErrs) == 0 {
		t.Fatal("expected eval errors")
	}
	msgs := make([]string, len(evalErrs))
	for i, e := range evalErrs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ---------------------------------------------------------------------------
// Part definition tests
// ---------------------------------------------------------------------------

func TestGearPart(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "pinion"
  (gear :module 1.5 :teeth 24 :pressure-angle 14.5 :face-width 8 :backlash 0.1))
`)
	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}

	pinion := g.Lookup("pinion")
	if pinion == nil {
		t.Fatal("expected node named 'pinion'")
	}
	if pinion.Kind != graph.NodePrimitive {
		t.Errorf("expected NodePrimitive, got %s", pinion.Kind)
	}

	gd, ok := pinion.Data.(graph.GearData)
	if !ok {
		t.Fatalf("expected GearData, got %T", pinion.Data)
	}
	want := graph.GearData{Module: 1.5, Teeth: 24, PressureAngle: 14.5, FaceWidth: 8, Backlash: 0.1}
	if gd != want {
		t.Errorf("gear = %+v, want %+v", gd, want)
	}
}

func TestStockDefaults(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "pinion" (gear))
(defpart "rack" (rack))
`)
	gd := g.MustLookup("pinion").Data.(graph.GearData)
	if gd.Module != partlib.DefaultModule || gd.Teeth != partlib.DefaultPinionTeeth {
		t.Errorf("stock gear = %+v", gd)
	}
	rd := g.MustLookup("rack").Data.(graph.RackData)
	if rd.Module != partlib.DefaultModule || rd.Teeth != partlib.DefaultRackTeeth {
		t.Errorf("stock rack = %+v", rd)
	}
}

func TestLibraryOverridesDefaults(t *testing.T) {
	lib := partlib.Default()
	lib.Pinion.Module, lib.Pinion.Teeth = 2, 12
	g := evalOK(t, NewEngine(WithLibrary(lib)), `(defpart "pinion" (gear :teeth 18))`)

	gd := g.MustLookup("pinion").Data.(graph.GearData)
	if gd.Module != 2 || gd.Teeth != 18 {
		t.Errorf("gear = %+v, want module 2 from the library and 18 teeth", gd)
	}
}

func TestRackByLength(t *testing.T) {
	g := evalOK(t, NewEngine(), `(defpart "rack" (rack :module 1 :length 60 :base-height 3))`)
	rd := g.MustLookup("rack").Data.(graph.RackData)
	if rd.Length != 60 || rd.Teeth != 0 || rd.BaseHeight != 3 {
		t.Errorf("rack = %+v", rd)
	}
}

func TestRackTeethAndLengthRejected(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(defpart "rack" (rack :teeth 10 :length 60))`)
	if !strings.Contains(msg, "not both") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestFractionalTeethRejected(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(defpart "pinion" (gear :teeth 20.5))`)
	if !strings.Contains(msg, "whole number") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestComputedTeeth(t *testing.T) {
	g := evalOK(t, NewEngine(), `(defpart "pinion" (gear :teeth (* 2 10.0)))`)
	if gd := g.MustLookup("pinion").Data.(graph.GearData); gd.Teeth != 20 {
		t.Errorf("teeth = %d, want 20", gd.Teeth)
	}
}

func TestDefpartRejectsOtherBodies(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(defpart "thing" (vec3 1 2 3))`)
	if !strings.Contains(msg, "expected gear or rack") {
		t.Errorf("unexpected error: %s", msg)
	}
}

// ---------------------------------------------------------------------------
// Variable reference test
// ---------------------------------------------------------------------------

func TestVariableReference(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(def m 2)
(def n 15)
(defpart "idler" (gear :module m :teeth n))
`)
	gd := g.MustLookup("idler").Data.(graph.GearData)
	if gd.Module != 2 || gd.Teeth != 15 {
		t.Errorf("expected module=2 teeth=15 (from variables), got %+v", gd)
	}
}

// ---------------------------------------------------------------------------
// Assembly, placement and mesh tests
// ---------------------------------------------------------------------------

const rackAndPinion = `
(defpart "pinion" (gear :module 1 :teeth 20))
(defpart "rack" (rack :module 1 :teeth 21))

(assembly "drive"
  (place (part "rack") :at (vec3 0 0 0))
  (place (part "pinion") :at (vec3 0 10 0) :rotate (vec3 0 0 -4.5))
  (mesh (part "pinion") (part "rack")))
`

func TestAssemblyWithPlacement(t *testing.T) {
	g := evalOK(t, NewEngine(), rackAndPinion)

	// 2 primitives + 2 transforms + 1 mesh + 1 group = 6 nodes
	if g.NodeCount() != 6 {
		t.Fatalf("expected 6 nodes, got %d", g.NodeCount())
	}

	drive := g.Lookup("drive")
	if drive == nil {
		t.Fatal("expected node named 'drive'")
	}
	if drive.Kind != graph.NodeGroup {
		t.Errorf("drive: expected NodeGroup, got %s", drive.Kind)
	}
	if len(drive.Children) != 3 {
		t.Errorf("drive: expected 3 children, got %d", len(drive.Children))
	}
	if len(g.Roots) != 1 {
		t.Errorf("expected 1 root, got %d", len(g.Roots))
	}

	transforms := 0
	for _, n := range g.Nodes {
		if n.Kind == graph.NodeTransform {
			transforms++
			td, ok := n.Data.(graph.TransformData)
			if !ok {
				t.Errorf("transform node: expected TransformData, got %T", n.Data)
			}
			if td.Translation == nil {
				t.Error("transform node: expected non-nil translation")
			}
		}
	}
	if transforms != 2 {
		t.Errorf("expected 2 transform nodes, got %d", transforms)
	}

	meshes := g.Meshes()
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	md := meshes[0].Data.(graph.MeshData)
	if md.PartA != g.MustLookup("pinion").ID || md.PartB != g.MustLookup("rack").ID {
		t.Error("mesh parts do not match the declared order")
	}

	pos, ok := g.Position(g.MustLookup("pinion").ID)
	if !ok || pos != (graph.Vec3{X: 0, Y: 10, Z: 0}) {
		t.Errorf("pinion position = %v, want (0, 10, 0)", pos)
	}
}

func TestPlaceRotation(t *testing.T) {
	g := evalOK(t, NewEngine(), rackAndPinion)
	td := g.Get(graph.NewNodeID("place/pinion")).Data.(graph.TransformData)
	if td.Rotation == nil || td.Rotation.Z != -4.5 {
		t.Errorf("rotation = %v, want Z=-4.5", td.Rotation)
	}
}

func TestPlaceRelativeTo(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "pinion" (gear :module 1 :teeth 20))
(defpart "rack" (rack :module 1 :teeth 21))
(assembly "drive"
  (place (part "rack") :at (vec3 5 -3 0))
  (place (part "pinion") :relative-to (part "rack") :offset (vec3 0 10 0)))
`)
	pinion := g.MustLookup("pinion")
	td := g.Get(graph.NewNodeID("place/pinion")).Data.(graph.TransformData)
	if td.RelativeTo != g.MustLookup("rack").ID {
		t.Error("expected relative_to to reference the rack")
	}
	pos, ok := g.Position(pinion.ID)
	if !ok || pos != (graph.Vec3{X: 5, Y: 7, Z: 0}) {
		t.Errorf("pinion position = %v (%v), want (5, 7, 0)", pos, ok)
	}
}

func TestPlaceArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"offset without reference", `(place (part "p") :offset (vec3 0 1 0))`, "requires :relative-to"},
		{"at and offset", `(place (part "p") :relative-to (part "q") :at (vec3 0 0 0) :offset (vec3 0 1 0))`, "not both"},
		{"self reference", `(place (part "p") :relative-to (part "p"))`, "relative to itself"},
		{"missing part", `(place)`, "part reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `
(defpart "p" (gear))
(defpart "q" (gear))
` + tt.body
			msg := evalFails(t, NewEngine(), src)
			if !strings.Contains(msg, tt.want) {
				t.Errorf("error %q does not contain %q", msg, tt.want)
			}
		})
	}
}

func TestMeshOptions(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "a" (gear :teeth 20))
(defpart "b" (gear :teeth 30))
(mesh (part "a") (part "b") :gap 0.2 :pitch-axis :x)
`)
	m := g.Get(graph.NewNodeID("mesh/a-b"))
	if m == nil {
		t.Fatal("expected mesh node mesh/a-b")
	}
	md := m.Data.(graph.MeshData)
	if md.Gap != 0.2 || md.PitchAxis != "x" {
		t.Errorf("mesh = %+v, want gap 0.2 on x", md)
	}
}

func TestMeshRequiresTwoParts(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(defpart "a" (gear)) (mesh (part "a"))`)
	if !strings.Contains(msg, "two part references") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestPitchRadius(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "idler" (gear :module 2 :teeth 15))
(defpart "rack" (rack :module 2))
(assembly "drive"
  (place (part "rack") :at (vec3 (pitch-radius :module 1 :teeth 8) 0 0))
  (place (part "idler") :at (vec3 0 (pitch-radius (part "idler")) 0)))
`)
	pos, _ := g.Position(g.MustLookup("idler").ID)
	if pos.Y != 15 {
		t.Errorf("idler Y = %f, want 15", pos.Y)
	}
	rpos, _ := g.Position(g.MustLookup("rack").ID)
	if rpos.X != 4 {
		t.Errorf("rack X = %f, want 4", rpos.X)
	}
}

func TestPitchRadiusOfRack(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(defpart "rack" (rack)) (pitch-radius (part "rack"))`)
	if !strings.Contains(msg, "not a gear") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestPartLookupError(t *testing.T) {
	msg := evalFails(t, NewEngine(), `(part "nonexistent")`)
	if msg == "" {
		t.Error("eval error should have a non-empty message")
	}
}

func TestVec3(t *testing.T) {
	g := evalOK(t, NewEngine(), `
(defpart "pinion" (gear))
(assembly "positioned"
  (place (part "pinion") :at (vec3 10.5 20.3 30.7)))
`)

	// Find the transform node.
	for _, n := range g.Nodes {
		if n.Kind == graph.NodeTransform {
			td := n.Data.(graph.TransformData)
			if td.Translation == nil {
				t.Fatal("expected non-nil translation")
			}
			if *td.Translation != (graph.Vec3{X: 10.5, Y: 20.3, Z: 30.7}) {
				t.Errorf("translation = %v", *td.Translation)
			}
			return
		}
	}
	t.Fatal("no transform node found")
}

func TestCheckValidatesMeshes(t *testing.T) {
	eng := NewEngine()

	res, err := eng.Check(context.Background(), Request{Source: rackAndPinion})
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected a clean rack and pinion, got %v", res.Errors)
	}

	bad := strings.Replace(rackAndPinion, "(vec3 0 10 0)", "(vec3 0 8 0)", 1)
	res, err = eng.Check(context.Background(), Request{Source: bad})
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if res.OK() {
		t.Fatal("expected an intersection error")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e.Message, "intersect") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want an intersection error", res.Errors)
	}
}

// ---------------------------------------------------------------------------
// Empty source and plain arithmetic (regression)
// ---------------------------------------------------------------------------

func TestEmptySourceStillWorks(t *testing.T) {
	g := evalOK(t, NewEngine(), "")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	evalOK(t, NewEngine(), "(+ 1 2)")
}
