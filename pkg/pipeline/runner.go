package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/matzehuels/chemlayout/pkg/cache"
	"github.com/matzehuels/chemlayout/pkg/errors"
	chemio "github.com/matzehuels/chemlayout/pkg/io"
	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol"
	"github.com/matzehuels/chemlayout/pkg/observability"
	"github.com/matzehuels/chemlayout/pkg/render"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options; each
// layout owns its molecule and the template library is read-only.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete read → layout → render pipeline with caching.
// The context is checked between stages; a running layout is never
// interrupted.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	result := &Result{}

	// Stage 1: Read
	readStart := time.Now()
	m, err := r.Read(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	result.Stats.ReadTime = time.Since(readStart)
	result.Stats.AtomCount = m.NumAtoms()
	result.Stats.BondCount = m.NumBonds()

	r.Logger.Info("read molecule",
		"name", m.Name,
		"atoms", m.NumAtoms(),
		"bonds", m.NumBonds(),
		"duration", result.Stats.ReadTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Layout
	layoutStart := time.Now()
	result.MoleculeHash, err = MoleculeHash(m)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	report, layoutHit, err := r.LayoutWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Molecule = m
	result.Report = report
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"rings", report.Rings,
		"degraded", report.Degraded(),
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, m, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Read decodes the molecule named by opts.Path or held in opts.Input.
//
// Decoding failures carry ErrCodeInvalidFormat and unsupported molfile
// features ErrCodeUnsupported. Structural problems in the bond list carry
// ErrCodeInvalidGraph; a missing file is ErrCodeFileNotFound.
func (r *Runner) Read(ctx context.Context, opts Options) (*mol.Molecule, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRead(); err != nil {
		return nil, err
	}
	source := opts.source()
	hooks := observability.Pipeline()
	hooks.OnReadStart(ctx, opts.InputFormat, source)
	start := time.Now()

	m, err := r.read(opts)
	atoms := 0
	if m != nil {
		atoms = m.NumAtoms()
	}
	hooks.OnReadComplete(ctx, opts.InputFormat, source, atoms, time.Since(start), err)
	return m, err
}

func (r *Runner) read(opts Options) (*mol.Molecule, error) {
	data := opts.Input
	if opts.Path != "" {
		var err error
		data, err = os.ReadFile(opts.Path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", opts.Path)
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", opts.Path)
		}
	}
	m, err := chemio.Read(bytes.NewReader(data), chemio.Format(opts.InputFormat))
	if err != nil {
		return nil, readError(err, opts.source())
	}
	return m, nil
}

// readError attaches an error code to a decoding failure.
func readError(err error, source string) error {
	switch {
	case errors.GetCode(err) != "":
		return err
	case stderrors.Is(err, chemio.ErrMalformed):
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s", source)
	case stderrors.Is(err, chemio.ErrUnsupported):
		return errors.Wrap(errors.ErrCodeUnsupported, err, "decode %s", source)
	default:
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode %s", source)
	}
}

// cachedLayout is the cache payload of a layout: one coordinate per atom
// and the report of the run that produced them.
type cachedLayout struct {
	Coords [][2]float64   `json:"coords"`
	Report *layout.Report `json:"report"`
}

// LayoutWithCacheInfo lays out m in place with caching and returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, m *mol.Molecule, opts Options) (*layout.Report, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}
	hash, err := MoleculeHash(m)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if report, ok := r.cachedLayout(ctx, cacheKey, m); ok {
			observability.Cache().OnCacheHit(ctx, keyTypeLayout)
			return report, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, m.Name, m.NumAtoms())
	start := time.Now()
	report, err := layout.Generate(m, opts.LayoutOptions())
	hooks.OnLayoutComplete(ctx, m.Name, err == nil && report.Degraded(), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	entry := cachedLayout{Coords: make([][2]float64, m.NumAtoms()), Report: report}
	for i, p := range m.Coords() {
		entry.Coords[i] = [2]float64{p.X, p.Y}
	}
	if data, err := json.Marshal(entry); err == nil {
		r.store(ctx, keyTypeLayout, cacheKey, data, TTLLayout)
	}
	return report, false, nil
}

// cachedLayout copies a cached layout into m. Entries that do not fit m are
// treated as misses.
func (r *Runner) cachedLayout(ctx context.Context, key string, m *mol.Molecule) (*layout.Report, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var entry cachedLayout
	if err := json.Unmarshal(data, &entry); err != nil || entry.Report == nil || len(entry.Coords) != m.NumAtoms() {
		r.Logger.Debug("ignoring unusable cache entry", "key", key)
		return nil, false
	}
	for i, c := range entry.Coords {
		m.SetPos(i, r2.Vec{X: c[0], Y: c[1]})
	}
	return entry.Report, true
}

// Layout is a convenience wrapper that calls LayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) Layout(ctx context.Context, m *mol.Molecule, opts Options) (*layout.Report, error) {
	report, _, err := r.LayoutWithCacheInfo(ctx, m, opts)
	return report, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, m *mol.Molecule, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Compute cache key from the laid-out molecule
	layoutHash, err := MoleculeHash(m)
	if err != nil {
		return nil, false, err
	}

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, cacheKey)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
			return artifacts, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
	}

	// Render all formats
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := r.render(ctx, m, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		r.store(ctx, keyTypeArtifact, cacheKey, data, TTLArtifact)
	}
	return rendered, false, nil
}

func (r *Runner) render(ctx context.Context, m *mol.Molecule, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := render.Render(ctx, m, render.Format(format), opts.RenderOptions()...)
		switch {
		case stderrors.Is(err, render.ErrNoCoordinates):
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "render %s", format)
		case err != nil:
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
		}
		out[format] = data
	}
	return out, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, m *mol.Molecule, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, m, opts)
	return artifacts, err
}

// store writes a cache entry. Cache failures are logged, never returned.
func (r *Runner) store(ctx context.Context, keyType, key string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// MoleculeHash returns the content hash of m's canonical JSON encoding,
// coordinates included.
func MoleculeHash(m *mol.Molecule) (string, error) {
	var buf bytes.Buffer
	if err := chemio.WriteJSON(m, nil, &buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash molecule")
	}
	return cache.Hash(buf.Bytes()), nil
}
