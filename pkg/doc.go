// Package pkg provides the core libraries for chemlayout 2D depiction.
//
// # Overview
//
// chemlayout turns a molecular graph (atoms, bonds, optional partial
// coordinates) into a publication-style 2D drawing: rings become regular
// polygons, chains zig-zag at 120°, bonds share one length and no two atoms
// overlap. The pkg directory is organized into four areas:
//
//  1. [mol] - The molecular graph model and ring perception
//  2. [layout] - Coordinate generation (rings, templates, chains, collisions,
//     force-field refinement)
//  3. [io] and [render] - Reading molecules and drawing laid-out ones
//  4. [pipeline] and [cache] - Orchestration (read → layout → render) with
//     content-addressed caching
//
// # Architecture
//
// The typical data flow:
//
//	JSON / MDL molfile
//	         ↓
//	    [io] package (parse into a mol.Molecule)
//	         ↓
//	    [layout] package (place rings, chains, resolve collisions, refine)
//	         ↓
//	    [render] package (SVG, PNG, DOT)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/chemlayout/pkg/layout"
//	    "github.com/matzehuels/chemlayout/pkg/render"
//	)
//
//	// m is a *mol.Molecule built by hand or read with io.ReadFile.
//	report, err := layout.Generate(m, layout.Options{})
//	if err != nil {
//	    return err
//	}
//	svg, err := render.Render(context.Background(), m, render.FormatSVG)
//
// # Main Packages
//
// ## Domain
//
// [mol] - Atoms, bonds, stereo annotations and the smallest set of smallest
// rings. Ring systems group rings that share atoms.
//
// [layout] - Generate runs the phases in order: ring systems (fused,
// bridged, spiro), cage templates, chain growth, collision resolution and a
// gradient-based force-field refinement. A Report records what each phase
// did and any quality degradation.
//
// [templates] - Hand-laid coordinates for cages (cubane, adamantane, ...)
// matched by graph isomorphism against a ring system.
//
// [spatial] - Uniform-grid neighbour index used by collision detection.
//
// [geom] - Small 2D helpers on top of gonum's r2 vectors.
//
// ## Input and Output
//
// [io] - JSON and MDL molfile readers and writers.
//
// [render] - SVG and PNG drawings plus Graphviz DOT export.
//
// ## Infrastructure
//
// [pipeline] - Runner ties reading, layout and rendering together and
// consults a [cache.Cache] keyed by molecule hash and options.
//
// [cache] - File, Redis and null cache backends.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Coded errors shared by the CLI and HTTP API.
//
// [buildinfo] - Version information set at link time.
package pkg
