// Package partlib holds the stock gear and rack part definitions that scripts
// and the linkage solver build from. The library can be overridden with a
// YAML catalog; absent a catalog the built-in defaults apply.
package partlib

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/chazu/cogwright/pkg/kernel"
	"github.com/chazu/cogwright/pkg/kinerr"
	"github.com/chazu/cogwright/pkg/pitch"
	"gopkg.in/yaml.v3"
)

// Built-in library defaults.
const (
	DefaultModule        = 1.0
	DefaultPinionTeeth   = 20
	DefaultRackTeeth     = 21
	DefaultPressureAngle = 20.0
	DefaultFaceWidth     = 5.0
)

// boreSegments is the facet count requested for bore cylinders.
const boreSegments = 32

// GearDefaults describes the stock pinion.
type GearDefaults struct {
	Module        float64 `yaml:"module" json:"module"`
	Teeth         int     `yaml:"teeth" json:"teeth"`
	PressureAngle float64 `yaml:"pressure_angle" json:"pressureAngle"`
	FaceWidth     float64 `yaml:"face_width" json:"faceWidth"`
	Backlash      float64 `yaml:"backlash" json:"backlash"`
	Clearance     float64 `yaml:"clearance" json:"clearance"`
	// Bore is the diameter of the shaft hole. Zero leaves the gear solid.
	Bore float64 `yaml:"bore" json:"bore"`
}

// RackDefaults describes the stock rack.
type RackDefaults struct {
	Module        float64 `yaml:"module" json:"module"`
	Teeth         int     `yaml:"teeth" json:"teeth"`
	PressureAngle float64 `yaml:"pressure_angle" json:"pressureAngle"`
	FaceWidth     float64 `yaml:"face_width" json:"faceWidth"`
	Backlash      float64 `yaml:"backlash" json:"backlash"`
	BaseHeight    float64 `yaml:"base_height" json:"baseHeight"`
}

// Library is the stock part set.
type Library struct {
	Pinion GearDefaults `yaml:"pinion" json:"pinion"`
	Rack   RackDefaults `yaml:"rack" json:"rack"`
}

// Default returns the built-in library: module 1, a 20 tooth pinion and a
// 21 tooth rack at a 20 degree pressure angle.
func Default() Library {
	return Library{
		Pinion: GearDefaults{
			Module:        DefaultModule,
			Teeth:         DefaultPinionTeeth,
			PressureAngle: DefaultPressureAngle,
			FaceWidth:     DefaultFaceWidth,
		},
		Rack: RackDefaults{
			Module:        DefaultModule,
			Teeth:         DefaultRackTeeth,
			PressureAngle: DefaultPressureAngle,
			FaceWidth:     DefaultFaceWidth,
			BaseHeight:    2 * DefaultModule,
		},
	}
}

// Parse overlays a YAML catalog onto the defaults. Keys absent from the
// document keep their default values.
func Parse(data []byte) (Library, error) {
	lib := Default()
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return Library{}, fmt.Errorf("partlib: parse catalog: %w", err)
	}
	if err := lib.Validate(); err != nil {
		return Library{}, err
	}
	return lib, nil
}

// Load reads a catalog file. An empty path or a missing file yields the
// built-in defaults.
func Load(path string) (Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Library{}, fmt.Errorf("partlib: read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks that every stock part can be constructed.
func (l Library) Validate() error {
	if err := kinerr.RequirePositive("pinion.module", l.Pinion.Module); err != nil {
		return err
	}
	if l.Pinion.Teeth <= 0 {
		return kinerr.Invalid("pinion.teeth", "must be positive, got %d", l.Pinion.Teeth)
	}
	if err := kinerr.RequirePositive("rack.module", l.Rack.Module); err != nil {
		return err
	}
	if l.Rack.Teeth <= 0 {
		return kinerr.Invalid("rack.teeth", "must be positive, got %d", l.Rack.Teeth)
	}
	if l.Pinion.Bore < 0 {
		return kinerr.Invalid("pinion.bore", "must not be negative, got %v", l.Pinion.Bore)
	}
	return nil
}

// StockPinion returns the pitch circle of the stock pinion.
func (l Library) StockPinion() (pitch.Circle, error) {
	return pitch.CircleFeatures(l.Pinion.Module, l.Pinion.Teeth)
}

// GearSpec returns the kernel spec for a library gear of the given size.
// The pressure angle and face width come from the stock pinion.
func (l Library) GearSpec(module float64, teeth int) kernel.GearSpec {
	return kernel.GearSpec{
		Module:        module,
		Teeth:         teeth,
		PressureAngle: l.Pinion.PressureAngle,
		Backlash:      l.Pinion.Backlash,
		Clearance:     l.Pinion.Clearance,
		FaceWidth:     l.Pinion.FaceWidth,
	}
}

// RackSpec returns the kernel spec for a library rack of the given size.
func (l Library) RackSpec(module float64, teeth int) kernel.RackSpec {
	base := l.Rack.BaseHeight
	if base <= 0 {
		base = 2 * module
	}
	return kernel.RackSpec{
		Module:        module,
		Teeth:         teeth,
		PressureAngle: l.Rack.PressureAngle,
		Backlash:      l.Rack.Backlash,
		BaseHeight:    base,
		FaceWidth:     l.Rack.FaceWidth,
	}
}

// GearBlank builds an unphased gear solid with the library bore cut
// through it. The bore must clear the root circle.
func (l Library) GearBlank(k kernel.Kernel, module float64, teeth int) (kernel.Solid, error) {
	spec := l.GearSpec(module, teeth)
	s, err := k.Gear(spec)
	if err != nil {
		return nil, fmt.Errorf("partlib: gear m=%g z=%d: %w", module, teeth, err)
	}
	bore := l.Pinion.Bore
	if bore <= 0 {
		return s, nil
	}
	if root := module * (float64(teeth) - 2.5); bore >= root {
		return nil, kinerr.Invalid("pinion.bore", "%gmm bore does not fit inside the %gmm root circle of m=%g z=%d",
			bore, root, module, teeth)
	}
	// Twice the face width so the cut clears both faces.
	hole := k.Cylinder(2*spec.FaceWidth, bore/2, boreSegments)
	return k.Difference(s, hole), nil
}

// GearSolid builds a gear blank rotated by its initial tooth phase offset,
// so a tooth valley sits on angle 0.
func (l Library) GearSolid(k kernel.Kernel, module float64, teeth int) (kernel.Solid, error) {
	phase, err := pitch.GearPhase(pitch.GearParams{Module: module, Teeth: teeth})
	if err != nil {
		return nil, err
	}
	s, err := l.GearBlank(k, module, teeth)
	if err != nil {
		return nil, err
	}
	return k.Rotate(s, 0, 0, phase.InitialToothPhaseOffsetDegrees), nil
}

// RackSolid builds a rack solid with its teeth centered on the phase origin.
func (l Library) RackSolid(k kernel.Kernel, module float64, teeth int) (kernel.Solid, error) {
	if _, err := pitch.RackPhase(pitch.RackParams{Module: module, Teeth: teeth}); err != nil {
		return nil, err
	}
	s, err := k.Rack(l.RackSpec(module, teeth))
	if err != nil {
		return nil, fmt.Errorf("partlib: rack m=%g z=%d: %w", module, teeth, err)
	}
	return s, nil
}
