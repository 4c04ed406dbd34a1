// Package io reads and writes molecules.
//
// Two formats are supported: a JSON wire format used by the HTTP API and the
// cache, and V2000 molfiles for exchange with other chemistry tools. Both
// build a [mol.Molecule]; neither performs layout.
//
// # JSON Format
//
//	{
//	  "name": "2-butene",
//	  "atoms": [
//	    {"symbol": "C"},
//	    {"symbol": "C", "x": 0.866, "y": 0.5},
//	    {"symbol": "C"},
//	    {"symbol": "C"}
//	  ],
//	  "bonds": [
//	    {"a": 0, "b": 1},
//	    {"a": 1, "b": 2, "order": 2, "stereo": {"class": "trans", "ref_a": 0, "ref_b": 3}},
//	    {"a": 2, "b": 3}
//	  ]
//	}
//
// Atom fields:
//   - symbol: element symbol (defaults to "C")
//   - charge: formal charge
//   - x, y: coordinate; both or neither
//
// Bond fields:
//   - a, b: atom indices into the atoms array
//   - order: 1, 2, 3 or 4 (aromatic); defaults to 1
//   - stereo: cis/trans descriptor on a double bond
//
// Top-level "multi_fragment" allows disconnected molecules. A missing name is
// replaced by a generated one. [WriteJSON] can attach a layout report under
// "report"; [ReadJSON] ignores it.
//
// # Molfiles
//
// [ReadMolfile] reads the first V2000 connection table of a molfile or SD
// file, including "M  CHG" charges. When the file carries real 2D
// coordinates, cis/trans descriptors are perceived from them so that a
// forced re-layout keeps each double bond's configuration. A file whose
// atoms all sit at the origin is read without coordinates.
//
// [WriteMolfile] writes a V2000 molfile with the molecule's coordinates.
//
// # Files
//
// [ReadFile] and [WriteFile] pick the format from the file extension
// (.json, .mol, .sdf).
package io
