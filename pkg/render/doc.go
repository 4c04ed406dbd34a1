// Package render draws laid-out molecules.
//
// # Overview
//
// Every renderer works from the same depiction: atom coordinates scaled so
// that the mean bond is [DefaultScale] pixels long, y pointing down, bonds
// drawn as one to three strokes. Carbon atoms are unlabelled unless
// [WithCarbons] is given; heteroatoms carry their symbol and charge in an
// element colour.
//
// # Formats
//
//   - [FormatSVG]: hand-written SVG, no external tools
//   - [FormatPNG]: raster image drawn with fogleman/gg
//   - [FormatDOT]: Graphviz DOT source with pinned node positions
//   - [FormatGraphviz]: the DOT source rendered to SVG by the embedded
//     Graphviz (neato, positions kept)
//
// Basic usage:
//
//	svg, err := render.Render(ctx, m, render.FormatSVG, render.WithScale(50))
//
// Rendering needs a coordinate on every atom; run layout.Generate first.
// A molecule without one returns [ErrNoCoordinates].
package render
