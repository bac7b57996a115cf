package diagnostics

// KinematicModel is a user-authored rack and pinion animation: the part
// sizes, the per-progress rates, and where the parts were placed.
type KinematicModel struct {
	Module                       float64 `json:"module"`
	PinionTeeth                  int     `json:"pinionTeeth"`
	PinionRotationDegPerProgress float64 `json:"pinionRotationDegPerProgress"`
	RackTranslationMmPerProgress float64 `json:"rackTranslationMmPerProgress"`
	RackXAtProgress0             float64 `json:"rackXAtProgress0"`
	UserPhaseShiftMm             float64 `json:"userPhaseShiftMm,omitempty"`
	// CenteredStart means the script starts the rack at the library phase
	// shift plus the user shift rather than at the user shift alone.
	CenteredStart          bool     `json:"centeredStart,omitempty"`
	GearCenterAxisPosition float64  `json:"gearCenterAxisPosition"`
	RackPitchAxisPosition  float64  `json:"rackPitchAxisPosition"`
	MeshGap                float64  `json:"meshGap,omitempty"`
	PitchAxis              string   `json:"pitchAxis,omitempty"`
	Samples                *int     `json:"samples,omitempty"`
	Tolerance              *float64 `json:"tolerance,omitempty"`
}

// PitchModel is the pitch geometry derived from module and tooth count.
type PitchModel struct {
	Module                         float64 `json:"module"`
	PinionTeeth                    int     `json:"pinionTeeth"`
	CircularPitch                  float64 `json:"circularPitch"`
	PitchCircumference             float64 `json:"pitchCircumference"`
	PitchRadius                    float64 `json:"pitchRadius"`
	LibraryPhaseShiftMm            float64 `json:"libraryPhaseShiftMm"`
	LibraryPhaseShiftPitchFraction float64 `json:"libraryPhaseShiftPitchFraction"`
}

// RadialCheck compares the placed center distance with the pitch radius.
type RadialCheck struct {
	PitchAxis                 string  `json:"pitchAxis"`
	ActualCenterDistance      float64 `json:"actualCenterDistance"`
	ExpectedCenterDistance    float64 `json:"expectedCenterDistance"`
	Residual                  float64 `json:"residual"`
	HasRadialIntersectionRisk bool    `json:"hasRadialIntersectionRisk"`
}

// KinematicCheck compares the declared rack rate with the rolled distance
// implied by the declared pinion rate.
type KinematicCheck struct {
	DeclaredTranslationMmPerProgress float64 `json:"declaredTranslationMmPerProgress"`
	ExpectedTranslationMmPerProgress float64 `json:"expectedTranslationMmPerProgress"`
	TranslationResidual              float64 `json:"translationResidual"`
	HasKinematicDrift                bool    `json:"hasKinematicDrift"`
}

// PhaseCheck compares the rack position against the meshing phase over the
// whole progress range.
type PhaseCheck struct {
	CenteredStart                     bool    `json:"centeredStart,omitempty"`
	LibraryPhaseShiftMm               float64 `json:"libraryPhaseShiftMm"`
	UserPhaseShiftMm                  float64 `json:"userPhaseShiftMm,omitempty"`
	DeclaredRackXAtProgress0          float64 `json:"declaredRackXAtProgress0"`
	ExpectedRackXAtProgress0          float64 `json:"expectedRackXAtProgress0"`
	PhaseResidualAtStart              float64 `json:"phaseResidualAtStart"`
	MaxAbsPhaseResidual               float64 `json:"maxAbsPhaseResidual"`
	WorstProgress                     float64 `json:"worstProgress"`
	Samples                           int     `json:"samples"`
	Tolerance                         float64 `json:"tolerance"`
	HasPhaseMisalignment              bool    `json:"hasPhaseMisalignment"`
	RecommendedAdditionalPhaseShiftMm float64 `json:"recommendedAdditionalPhaseShiftMm"`
	RecommendedAbsolutePhaseShiftMm   float64 `json:"recommendedAbsolutePhaseShiftMm"`
}

// Result is the outcome of Diagnose.
type Result struct {
	PitchModel     PitchModel     `json:"pitchModel"`
	RadialCheck    RadialCheck    `json:"radialCheck"`
	KinematicCheck KinematicCheck `json:"kinematicCheck"`
	Phase          PhaseCheck     `json:"phase"`
	Pass           bool           `json:"pass"`
	Diagnostics    []string       `json:"diagnostics"`
	UsageNote      string         `json:"usageNote"`
}
