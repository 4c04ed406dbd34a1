// Package templates holds hand-laid 2D coordinates for cage ring systems.
//
// Bridged polycyclic cages (cubane, adamantane, norbornane and friends) are
// the cases where fusing rings one at a time produces crossed or squashed
// drawings. For those the layout engine asks the [Library] for a stored
// layout instead.
//
// # Catalog
//
// The built-in catalog is embedded from templates.toml and returned by
// [Default]. Each entry lists its edges over vertices 0..n-1 and one
// coordinate per vertex. Coordinates are normalized: the centroid sits at
// the origin and the mean bond length is 1.0, so callers scale by their
// target bond length.
//
// [Load] validates every entry and rejects the whole catalog if any entry is
// broken. A corrupt built-in catalog is a build defect, so [Default] panics
// rather than returning an error.
//
// # Matching
//
// [Library.Find] compares a ring system's topology against each template:
// vertex and edge counts first, then the sorted degree sequence, then a full
// isomorphism search. The search is depth-first over an explicit stack and
// visits the most constrained vertex first (the one with the most already
// mapped neighbours). Only exact topology matches are returned.
package templates
