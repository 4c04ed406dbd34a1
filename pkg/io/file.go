package io

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol"
)

// Format names a molecule file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatMol  Format = "mol"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatMol:
		return f, nil
	case "sdf", "mdl":
		return FormatMol, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrMalformed, s)
}

// FormatOf infers the format from a path's extension. Unknown extensions
// are read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mol", ".sdf", ".mdl":
		return FormatMol
	}
	return FormatJSON
}

// Read decodes a molecule in the given format from r.
func Read(r io.Reader, f Format) (*mol.Molecule, error) {
	if f == FormatMol {
		return ReadMolfile(r)
	}
	return ReadJSON(r)
}

// Write encodes m in the given format. The report is only written by the
// JSON format.
func Write(m *mol.Molecule, report *layout.Report, w io.Writer, f Format) error {
	if f == FormatMol {
		return WriteMolfile(m, w)
	}
	return WriteJSON(m, report, w)
}

// ReadFile reads the molecule at path, choosing the format by extension.
func ReadFile(path string) (*mol.Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	format := FormatOf(path)
	m, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

// WriteFile writes m to path in the given format.
func WriteFile(m *mol.Molecule, report *layout.Report, path string, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(m, report, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
