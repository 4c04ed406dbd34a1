package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/chemlayout/pkg/mol"
)

// Format names an output format.
type Format string

const (
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatDOT      Format = "dot"
	FormatGraphviz Format = "graphviz"
)

// Formats lists every supported format.
var Formats = []Format{FormatSVG, FormatPNG, FormatDOT, FormatGraphviz}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatGraphviz {
		return ".gv.svg"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatDOT:
		return "text/vnd.graphviz"
	}
	return "image/svg+xml"
}

// ParseFormat validates a single format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of svg, png, dot, graphviz)", s)
}

// ParseFormats splits a comma-separated list such as "svg,png".
// Duplicates are dropped.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no output format given")
	}
	return out, nil
}

// Render draws m in format f.
func Render(ctx context.Context, m *mol.Molecule, f Format, opts ...Option) ([]byte, error) {
	switch f {
	case FormatSVG:
		return RenderSVG(m, opts...)
	case FormatPNG:
		return RenderPNG(m, opts...)
	case FormatDOT:
		dot, err := ToDOT(m, opts...)
		return []byte(dot), err
	case FormatGraphviz:
		dot, err := ToDOT(m, opts...)
		if err != nil {
			return nil, err
		}
		return RenderDOT(ctx, dot)
	}
	return nil, fmt.Errorf("unknown format %q", f)
}
