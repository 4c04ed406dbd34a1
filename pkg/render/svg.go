package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/chemlayout/pkg/mol"
)

// RenderSVG draws m as a standalone SVG document.
func RenderSVG(m *mol.Molecule, opts ...Option) ([]byte, error) {
	s, err := buildScene(m, newConfig(opts...))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		s.Width, s.Height, s.Width, s.Height)
	fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(m.Name))
	buf.WriteString(`  <rect width="100%" height="100%" fill="white"/>` + "\n")

	fmt.Fprintf(&buf, `  <g class="bonds" stroke="black" stroke-width="%.2f" stroke-linecap="round">`+"\n", s.LineWidth)
	for _, st := range s.Strokes {
		dash := ""
		if st.Dashed {
			dash = fmt.Sprintf(` stroke-dasharray="%.1f,%.1f"`, 2*s.LineWidth, 2*s.LineWidth)
		}
		fmt.Fprintf(&buf, `    <line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f"%s/>`+"\n",
			st.A.X, st.A.Y, st.B.X, st.B.Y, dash)
	}
	buf.WriteString("  </g>\n")

	fmt.Fprintf(&buf, `  <g class="atoms" font-family="sans-serif" font-size="%.1f" text-anchor="middle" dominant-baseline="central">`+"\n", s.FontSize)
	for _, a := range s.Atoms {
		if a.Label != "" {
			fmt.Fprintf(&buf, `    <text id="atom-%d" x="%.2f" y="%.2f" fill="%s">%s</text>`+"\n",
				a.Index, a.P.X, a.P.Y, a.Color, html.EscapeString(a.Label))
		}
		if s.ShowIndices {
			fmt.Fprintf(&buf, `    <text class="index" x="%.2f" y="%.2f" font-size="%.1f" fill="#888888">%d</text>`+"\n",
				a.P.X+0.5*s.FontSize, a.P.Y-0.5*s.FontSize, 0.5*s.FontSize, a.Index)
		}
	}
	buf.WriteString("  </g>\n")
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}
