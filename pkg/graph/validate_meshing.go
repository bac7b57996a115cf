package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/cogwright/pkg/alignment"
	"github.com/chazu/cogwright/pkg/kinerr"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Tier 2: Part parameters and meshing (errors + warnings)
// ---------------------------------------------------------------------------

// MinUndercutFreeTeeth is the smallest tooth count that cuts without
// undercut at a 20 degree pressure angle.
const MinUndercutFreeTeeth = 17

// validateMeshing runs all Tier 2 checks.
// Returns errors (blocking) and warnings (advisory) separately.
func validateMeshing(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	partErrs, partWarnings := validatePartParameters(g)
	errs = append(errs, partErrs...)
	warnings = append(warnings, partWarnings...)

	errs = append(errs, validateDuplicateMeshes(g)...)

	pairErrs, pairWarnings := validateMeshPairs(g)
	errs = append(errs, pairErrs...)
	warnings = append(warnings, pairWarnings...)

	return errs, warnings
}

// validatePartParameters checks that every gear and rack can derive its
// pitch features.
func validatePartParameters(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	for _, node := range g.Nodes {
		switch d := node.Data.(type) {
		case GearData:
			if _, err := d.PitchCircle(); err != nil {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("gear %s", kinerrMessage(err)),
					Severity: SeverityError,
				})
				continue
			}
			if d.Teeth < MinUndercutFreeTeeth {
				warnings = append(warnings, ValidationWarning{
					NodeID:  node.ID,
					Message: fmt.Sprintf("gear has %d teeth; below %d the involute is undercut", d.Teeth, MinUndercutFreeTeeth),
				})
			}
			if d.PressureAngle < 0 || d.PressureAngle >= 45 {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("gear pressure angle %.2f must be within (0, 45) degrees", d.PressureAngle),
					Severity: SeverityError,
				})
			}

		case RackData:
			if _, err := d.Phase(); err != nil {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("rack %s", kinerrMessage(err)),
					Severity: SeverityError,
				})
			}
			if d.PressureAngle < 0 || d.PressureAngle >= 45 {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("rack pressure angle %.2f must be within (0, 45) degrees", d.PressureAngle),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs, warnings
}

// kinerrMessage renders a parameter error as "field: message".
func kinerrMessage(err error) string {
	var e *kinerr.Error
	if !errors.As(err, &e) || e.Field == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// meshKey is a canonical key for a pair of parts so that (A,B) and (B,A)
// are treated as the same mesh.
type meshKey struct {
	lo, hi NodeID
}

func makeMeshKey(a, b NodeID) meshKey {
	if a.String() <= b.String() {
		return meshKey{lo: a, hi: b}
	}
	return meshKey{lo: b, hi: a}
}

// validateDuplicateMeshes checks that no two mesh nodes declare the same
// pair of parts.
func validateDuplicateMeshes(g *DesignGraph) []ValidationError {
	var errs []ValidationError
	seen := make(map[meshKey]NodeID) // first mesh node that used this key

	for _, node := range sortedNodes(g, NodeMesh) {
		md := node.Data.(MeshData)
		key := makeMeshKey(md.PartA, md.PartB)
		if firstID, exists := seen[key]; exists {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("duplicate mesh: same part pair already meshed by node %s", firstID.Short()),
				Severity: SeverityError,
			})
		} else {
			seen[key] = node.ID
		}
	}

	return errs
}

// meshPart is one side of a mesh declaration.
type meshPart struct {
	radius        float64 // pitch radius; 0 for racks
	module        float64
	pressureAngle float64
	isRack        bool
}

func (g *DesignGraph) meshPart(id NodeID) (meshPart, bool) {
	n := g.Nodes[id]
	if n == nil {
		return meshPart{}, false
	}
	pa := func(v float64) float64 {
		if v == 0 {
			return g.Defaults.PressureAngle
		}
		return v
	}
	switch d := n.Data.(type) {
	case GearData:
		c, err := d.PitchCircle()
		if err != nil {
			return meshPart{}, false
		}
		return meshPart{radius: c.Radius, module: d.Module, pressureAngle: pa(d.PressureAngle)}, true
	case RackData:
		if d.Module <= 0 {
			return meshPart{}, false
		}
		return meshPart{module: d.Module, pressureAngle: pa(d.PressureAngle), isRack: true}, true
	}
	return meshPart{}, false
}

// validateMeshPairs checks every declared mesh: the pair type must be able
// to mesh, both parts must share module and pressure angle, and their placed
// positions must match the pitch geometry. Parts placed too close intersect
// and are errors; parts placed too far apart only warn.
func validateMeshPairs(g *DesignGraph) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	for _, node := range sortedNodes(g, NodeMesh) {
		md := node.Data.(MeshData)
		a, okA := g.meshPart(md.PartA)
		b, okB := g.meshPart(md.PartB)
		if !okA || !okB {
			continue // bad references and parameters are reported elsewhere
		}

		axis, err := alignment.ParseAxis(md.PitchAxis)
		if err != nil {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("mesh %s", kinerrMessage(err)),
				Severity: SeverityError,
			})
			continue
		}
		report, err := alignment.CheckAlignment(alignment.AlignmentRequest{
			PitchRadiusA: a.radius,
			PitchRadiusB: b.radius,
			IsRackA:      a.isRack,
			IsRackB:      b.isRack,
			PitchAxis:    axis,
		})
		if err != nil {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("mesh %s", kinerrMessage(err)),
				Severity: SeverityError,
			})
			continue
		}
		if !report.Valid {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  report.Description,
				Severity: SeverityError,
			})
			continue
		}

		if math.Abs(a.module-b.module) > 1e-9 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("module mismatch: %g and %g cannot mesh", a.module, b.module),
				Severity: SeverityError,
			})
			continue
		}
		if math.Abs(a.pressureAngle-b.pressureAngle) > 1e-9 {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("pressure angle mismatch: %g and %g degrees", a.pressureAngle, b.pressureAngle),
				Severity: SeverityError,
			})
			continue
		}

		posA, okA := g.Position(md.PartA)
		posB, okB := g.Position(md.PartB)
		if !okA || !okB {
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  "mesh part placement cannot be resolved (relative placement loop?)",
				Severity: SeverityError,
			})
			continue
		}
		offset := r3.Sub(posB.Vec(), posA.Vec())

		var residual float64
		if report.Type == alignment.GearGear {
			expected, _ := report.Expected()
			residual = r3.Norm(offset) - expected - md.Gap
		} else {
			res, err := alignment.ValidatePlacement(report, offset, g.Defaults.MeshTolerance)
			if err != nil {
				continue
			}
			residual = res.Residual - md.Gap
		}

		tol := g.Defaults.MeshTolerance
		switch {
		case residual < -tol:
			errs = append(errs, ValidationError{
				NodeID:   node.ID,
				Message:  fmt.Sprintf("meshing parts intersect: placed %.3fmm closer than the pitch geometry allows", -residual),
				Severity: SeverityError,
			})
		case residual > tol:
			warnings = append(warnings, ValidationWarning{
				NodeID:  node.ID,
				Message: fmt.Sprintf("meshing parts do not touch: placed %.3fmm farther apart than the pitch geometry", residual),
			})
		}
	}

	return errs, warnings
}

// sortedNodes returns the nodes of a kind in NodeID order, so findings come
// out in a stable order.
func sortedNodes(g *DesignGraph, kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
