package layout

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chemlayout/pkg/templates"
)

const (
	// DefaultBondLength is the target bond length used when Options.BondLength is zero.
	DefaultBondLength = 1.0

	// DeriveBondLength asks Generate to measure the mean length of bonds whose
	// ends already carry coordinates, falling back to DefaultBondLength.
	DeriveBondLength = -1.0

	// DefaultMaxCollisionPasses bounds the collision resolver.
	DefaultMaxCollisionPasses = 10

	// DefaultMaxRefineIterations bounds the force-field refiner.
	DefaultMaxRefineIterations = 200

	// MaxRingSize is the largest ring the placer accepts.
	MaxRingSize = 256
)

// Geometry thresholds in units of the target bond length.
const (
	// CollisionDistance is the separation below which two non-bonded atoms collide.
	CollisionDistance = 0.45

	// BondTolerance is the relative deviation from the target bond length
	// beyond which a bond counts as stretched.
	BondTolerance = 0.15

	nudgeDistance    = 0.1
	bridgeClearance  = 0.5
	fragmentGap      = 2.0
	convergenceLimit = 1e-4
)

// Options configures a single Generate call.
// The zero value is valid and selects every default.
type Options struct {
	// BondLength is the target bond length. Zero selects DefaultBondLength and
	// DeriveBondLength measures the molecule's existing coordinates.
	BondLength float64

	// Force regenerates coordinates even when every atom already has one.
	Force bool

	// MaxCollisionPasses bounds Phase 3. Zero selects the default and a
	// negative value skips the phase.
	MaxCollisionPasses int

	// MaxRefineIterations bounds Phase 4. Zero selects the default and a
	// negative value skips the phase.
	MaxRefineIterations int

	// Templates is the cage template catalog. Nil selects templates.Default().
	Templates *templates.Library

	// Logger receives debug and warning output. Nil discards it.
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxCollisionPasses == 0 {
		o.MaxCollisionPasses = DefaultMaxCollisionPasses
	}
	if o.MaxRefineIterations == 0 {
		o.MaxRefineIterations = DefaultMaxRefineIterations
	}
	if o.Templates == nil {
		o.Templates = templates.Default()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}

// Report describes how a layout went. Degraded outcomes (a ring system that
// had to be drawn naively, collisions left after Phase 3, a refinement that
// hit its iteration budget, bonds outside BondTolerance) are recorded here
// and never returned as errors.
type Report struct {
	// Skipped is set when every atom already had a coordinate and Force was off.
	Skipped bool `json:"skipped"`

	BondLength float64 `json:"bond_length"`
	Atoms      int     `json:"atoms"`
	Bonds      int     `json:"bonds"`
	Fragments  int     `json:"fragments"`
	Rings      int     `json:"rings"`

	RingSystems     int      `json:"ring_systems"`
	TemplateSystems int      `json:"template_systems"`
	Templates       []string `json:"templates,omitempty"`
	DegradedSystems int      `json:"degraded_systems"`

	CollisionPasses    int `json:"collision_passes"`
	ResidualCollisions int `json:"residual_collisions"`

	Iterations  int     `json:"iterations"`
	Converged   bool    `json:"converged"`
	MaxGradient float64 `json:"max_gradient"`

	Durations PhaseDurations `json:"durations"`
	Bond      BondStats      `json:"bond_stats"`
}

// Degraded reports whether any quality problem was recorded.
func (r *Report) Degraded() bool {
	if r.Skipped {
		return false
	}
	return r.DegradedSystems > 0 || r.ResidualCollisions > 0 || (r.Iterations > 0 && !r.Converged) || r.Bond.Stretched > 0
}

// PhaseDurations holds wall-clock time per phase.
type PhaseDurations struct {
	Rings      time.Duration `json:"rings"`
	Chains     time.Duration `json:"chains"`
	Collisions time.Duration `json:"collisions"`
	Refine     time.Duration `json:"refine"`
	Total      time.Duration `json:"total"`
}

// BondStats summarizes final bond lengths relative to the target.
type BondStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	// Stretched counts the bonds outside BondTolerance.
	Stretched int `json:"stretched"`
	// MinNonBonded is the smallest distance between two non-bonded atoms.
	MinNonBonded float64 `json:"min_non_bonded"`
}

// merge folds a fragment report into r.
func (r *Report) merge(f *Report) {
	r.Rings += f.Rings
	r.RingSystems += f.RingSystems
	r.TemplateSystems += f.TemplateSystems
	r.Templates = append(r.Templates, f.Templates...)
	r.DegradedSystems += f.DegradedSystems
	r.CollisionPasses = max(r.CollisionPasses, f.CollisionPasses)
	r.ResidualCollisions += f.ResidualCollisions
	r.Iterations = max(r.Iterations, f.Iterations)
	r.MaxGradient = max(r.MaxGradient, f.MaxGradient)
	r.Durations.Rings += f.Durations.Rings
	r.Durations.Chains += f.Durations.Chains
	r.Durations.Collisions += f.Durations.Collisions
	r.Durations.Refine += f.Durations.Refine
}
