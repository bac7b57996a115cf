package tools

import (
	"context"
	"slices"
	"strings"

	"github.com/chazu/cogwright/pkg/engine"
	"github.com/chazu/cogwright/pkg/graph"
	"github.com/chazu/cogwright/pkg/paramschema"
)

// ScriptInput is a design script and optional parameter overrides.
type ScriptInput struct {
	Source string             `json:"source" jsonschema:"design script text"`
	Params map[string]float64 `json:"params,omitempty" jsonschema:"overrides for declared numeric parameters"`
}

// PartSummary is one gear or rack of an evaluated design.
type PartSummary struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Module      float64 `json:"module"`
	Teeth       int     `json:"teeth,omitempty"`
	Length      float64 `json:"length,omitempty"`
	PitchRadius float64 `json:"pitchRadius,omitempty"`
	Position    *Vec3   `json:"position,omitempty"`
}

// ScriptOutput summarizes an evaluated design.
type ScriptOutput struct {
	OK       bool                 `json:"ok"`
	Params   []paramschema.Param  `json:"params"`
	Parts    []PartSummary        `json:"parts"`
	Meshes   int                  `json:"meshes"`
	Errors   []engine.EvalError   `json:"errors,omitempty"`
	Warnings []engine.EvalWarning `json:"warnings,omitempty"`
	Failure
}

// EvaluateScript evaluates and validates a design script.
func (t *Toolbox) EvaluateScript(ctx context.Context, in ScriptInput) ScriptOutput {
	res, err := t.engine.Check(ctx, engine.Request{Source: in.Source, Params: in.Params})
	if err != nil {
		return ScriptOutput{Failure: fail(err)}
	}
	out := ScriptOutput{
		OK:       res.OK(),
		Params:   res.Params,
		Parts:    Summarize(res.Graph),
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	if res.Graph != nil {
		out.Meshes = len(res.Graph.Meshes())
	}
	return out
}

// Summarize lists the parts of a design graph by name with their resolved
// positions. A nil graph yields an empty list.
func Summarize(g *graph.DesignGraph) []PartSummary {
	parts := []PartSummary{}
	if g == nil {
		return parts
	}
	for _, n := range g.Parts() {
		s := PartSummary{Name: n.Name}
		switch d := n.Data.(type) {
		case graph.GearData:
			s.Kind, s.Module, s.Teeth = "gear", d.Module, d.Teeth
			if c, err := d.PitchCircle(); err == nil {
				s.PitchRadius = c.Radius
			}
		case graph.RackData:
			s.Kind, s.Module, s.Teeth, s.Length = "rack", d.Module, d.Teeth, d.Length
		default:
			continue
		}
		if pos, ok := g.Position(n.ID); ok {
			s.Position = &Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
		}
		parts = append(parts, s)
	}
	slices.SortFunc(parts, func(a, b PartSummary) int { return strings.Compare(a.Name, b.Name) })
	return parts
}
