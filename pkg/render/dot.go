package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/chemlayout/pkg/mol"
)

// pointsPerInch converts pixel coordinates to Graphviz inches.
const pointsPerInch = 72.0

var bondColors = map[mol.BondOrder]string{
	mol.Single:   "black",
	mol.Double:   "black:invis:black",
	mol.Triple:   "black:invis:black:invis:black",
	mol.Aromatic: "black:invis:gray50",
}

// ToDOT converts a laid-out molecule to an undirected Graphviz graph. Every
// node is pinned at its depiction coordinate, so neato reproduces the
// layout instead of computing its own.
func ToDOT(m *mol.Molecule, opts ...Option) (string, error) {
	s, err := buildScene(m, newConfig(opts...))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "graph %q {\n", m.Name)
	buf.WriteString("  graph [splines=false, outputorder=edgesfirst, bgcolor=\"white\", pad=\"0.2\"];\n")
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fillcolor=white, color=white, fixedsize=true, width=%.3f, fontname=\"Helvetica\", fontsize=%.1f];\n",
		0.9*s.FontSize/pointsPerInch, s.FontSize)
	fmt.Fprintf(&buf, "  edge [penwidth=%.2f];\n\n", s.LineWidth)

	for _, a := range s.Atoms {
		// Graphviz y points up.
		x, y := a.P.X/pointsPerInch, (s.Height-a.P.Y)/pointsPerInch
		label := a.Label
		if s.ShowIndices {
			label += strconv.Itoa(a.Index)
		}
		attrs := fmt.Sprintf("pos=\"%.4f,%.4f!\", label=%q", x, y, label)
		if a.Label == "" && !s.ShowIndices {
			attrs += ", width=0.01, height=0.01"
		}
		if a.Label != "" {
			attrs += fmt.Sprintf(", fontcolor=%q", a.Color)
		}
		fmt.Fprintf(&buf, "  a%d [%s];\n", a.Index, attrs)
	}

	buf.WriteString("\n")
	for _, b := range m.Bonds() {
		fmt.Fprintf(&buf, "  a%d -- a%d [color=%q];\n", b.A, b.B, bondColors[b.Order])
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

// RenderDOT renders DOT source to SVG with the embedded Graphviz, using the
// neato engine so pinned positions are honoured.
func RenderDOT(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.SetLayout(graphviz.NEATO).Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's <svg> tag with a plain one carrying
// only the viewBox and pixel size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
