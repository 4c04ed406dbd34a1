// Package pipeline provides the read → layout → render pipeline shared by
// the CLI and the HTTP API.
//
// Centralizing the stages here keeps caching, logging and error mapping
// identical across entry points.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Read: decode a molecule from JSON or a molfile
//  2. Layout: compute 2D coordinates with [layout.Generate]
//  3. Render: draw the laid-out molecule as SVG, PNG, DOT or Graphviz SVG
//
// Layouts and artifacts are cached by content: the layout key hashes the
// molecule's canonical JSON together with the layout options and the
// template catalog digest, the artifact key hashes the laid-out molecule and
// the render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Input:   data,
//	    Formats: []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	m, err := runner.Read(ctx, opts)
//	report, err := runner.Layout(ctx, m, opts)
//	artifacts, err := runner.Render(ctx, m, opts)
package pipeline

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/chemlayout/pkg/cache"
	"github.com/matzehuels/chemlayout/pkg/errors"
	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/render"
	"github.com/matzehuels/chemlayout/pkg/templates"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultScale is the default rendering scale in pixels per bond.
	DefaultScale = render.DefaultScale

	// MaxScale bounds the rendering scale so PNG output stays reasonable.
	MaxScale = 400.0

	// MaxInputSize bounds the size of an in-memory molecule document.
	MaxInputSize = 8 << 20

	// TTLLayout is how long a computed layout stays cached.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is how long a rendered artifact stays cached.
	TTLArtifact = 24 * time.Hour
)

// DefaultFormat is the default output format.
const DefaultFormat = string(render.FormatSVG)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON and TOML decoding for API requests and config files.
type Options struct {
	// Read options. Exactly one of Path and Input is set.
	Path        string `json:"path,omitempty" toml:"-"`
	Input       []byte `json:"-" toml:"-"`
	InputFormat string `json:"input_format,omitempty" toml:"input_format"`

	// Layout options
	BondLength          float64 `json:"bond_length,omitempty" toml:"bond_length"`
	Force               bool    `json:"force,omitempty" toml:"force"`
	MaxCollisionPasses  int     `json:"max_collision_passes,omitempty" toml:"max_collision_passes"`
	MaxRefineIterations int     `json:"max_refine_iterations,omitempty" toml:"max_refine_iterations"`

	// Render options
	Formats     []string `json:"formats,omitempty" toml:"formats"`
	Scale       float64  `json:"scale,omitempty" toml:"scale"`
	ShowCarbons bool     `json:"show_carbons,omitempty" toml:"show_carbons"`
	ShowIndices bool     `json:"show_indices,omitempty" toml:"show_indices"`

	// Refresh bypasses cached layouts and artifacts.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	Templates *templates.Library `json:"-" toml:"-"`
	Logger    *log.Logger        `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Molecule is the molecule with its generated coordinates.
	Molecule *mol.Molecule

	// MoleculeHash is the content hash of the molecule as read.
	MoleculeHash string

	// Report describes the layout. On a cache hit it is the report stored
	// with the cached layout.
	Report *layout.Report

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	AtomCount  int
	BondCount  int
	ReadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the coordinates came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all output formats are known.
func ValidateFormats(formats []string) error {
	_, err := normalizeFormats(formats)
	return err
}

// normalizeFormats lower-cases formats and drops duplicates, keeping order.
func normalizeFormats(formats []string) ([]string, error) {
	parsed, err := render.ParseFormats(strings.Join(formats, ","))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "output format")
	}
	out := make([]string, len(parsed))
	for i, f := range parsed {
		out[i] = string(f)
	}
	return out, nil
}

// ValidateInputFormat checks that an input format is known.
func ValidateInputFormat(format string) error {
	if _, err := chemio.ParseFormat(format); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "input format")
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForRead(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForRead checks the input source and resolves its format.
func (o *Options) ValidateForRead() error {
	switch {
	case o.Path == "" && len(o.Input) == 0:
		return errors.New(errors.ErrCodeInvalidInput, "path or input is required")
	case o.Path != "" && len(o.Input) > 0:
		return errors.New(errors.ErrCodeInvalidInput, "path and input are mutually exclusive")
	case len(o.Input) > MaxInputSize:
		return errors.New(errors.ErrCodeInvalidInput, "input too large (max %d bytes)", MaxInputSize)
	}
	if o.InputFormat == "" {
		if o.Path != "" {
			o.InputFormat = string(chemio.FormatOf(o.Path))
		} else {
			o.InputFormat = string(chemio.FormatJSON)
		}
	}
	f, err := chemio.ParseFormat(o.InputFormat)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "input format")
	}
	o.InputFormat = string(f)
	o.setLogger()
	return nil
}

// ValidateForLayout checks the layout parameters and fills in defaults.
// Zero budgets select the layout package defaults; negative budgets skip
// the phase.
func (o *Options) ValidateForLayout() error {
	if err := errors.ValidateBondLength(o.BondLength, layout.DeriveBondLength); err != nil {
		return err
	}
	if o.MaxCollisionPasses == 0 {
		o.MaxCollisionPasses = layout.DefaultMaxCollisionPasses
	}
	if o.MaxRefineIterations == 0 {
		o.MaxRefineIterations = layout.DefaultMaxRefineIterations
	}
	if o.Templates == nil {
		o.Templates = templates.Default()
	}
	o.setLogger()
	return nil
}

// ValidateForRender checks the render parameters and fills in defaults.
// Duplicate formats are dropped.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	formats, err := normalizeFormats(o.Formats)
	if err != nil {
		return err
	}
	o.Formats = formats
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if math.IsNaN(o.Scale) || o.Scale <= 0 || o.Scale > MaxScale {
		return errors.New(errors.ErrCodeInvalidInput, "scale must be in (0, %g], got %v", MaxScale, o.Scale)
	}
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutOptions returns the options passed to layout.Generate.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		BondLength:          o.BondLength,
		Force:               o.Force,
		MaxCollisionPasses:  o.MaxCollisionPasses,
		MaxRefineIterations: o.MaxRefineIterations,
		Templates:           o.Templates,
		Logger:              o.Logger,
	}
}

// RenderOptions returns the options passed to the renderers.
func (o *Options) RenderOptions() []render.Option {
	opts := []render.Option{render.WithScale(o.Scale)}
	if o.ShowCarbons {
		opts = append(opts, render.WithCarbons())
	}
	if o.ShowIndices {
		opts = append(opts, render.WithIndices())
	}
	return opts
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		BondLength:          o.BondLength,
		Force:               o.Force,
		MaxCollisionPasses:  o.MaxCollisionPasses,
		MaxRefineIterations: o.MaxRefineIterations,
		Catalog:             o.Templates.Digest(),
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Scale:       o.Scale,
		ShowCarbons: o.ShowCarbons,
		ShowIndices: o.ShowIndices,
	}
}

// source names the input for logs and hooks.
func (o *Options) source() string {
	if o.Path != "" {
		return o.Path
	}
	return fmt.Sprintf("<%d bytes>", len(o.Input))
}
