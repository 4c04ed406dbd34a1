package render

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/chemlayout/pkg/mol"
)

var (
	labelFont     *truetype.Font
	labelFontErr  error
	labelFontOnce sync.Once
)

func loadLabelFont() (*truetype.Font, error) {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(goregular.TTF)
	})
	return labelFont, labelFontErr
}

// RenderPNG draws m as a PNG image.
func RenderPNG(m *mol.Molecule, opts ...Option) ([]byte, error) {
	s, err := buildScene(m, newConfig(opts...))
	if err != nil {
		return nil, err
	}
	f, err := loadLabelFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}

	dc := gg.NewContext(int(math.Ceil(s.Width)), int(math.Ceil(s.Height)))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(s.LineWidth)
	dc.SetLineCap(gg.LineCapRound)
	for _, st := range s.Strokes {
		if st.Dashed {
			dc.SetDash(2*s.LineWidth, 2*s.LineWidth)
		}
		dc.DrawLine(st.A.X, st.A.Y, st.B.X, st.B.Y)
		dc.Stroke()
		if st.Dashed {
			dc.SetDash()
		}
	}

	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: s.FontSize}))
	for _, a := range s.Atoms {
		if a.Label == "" {
			continue
		}
		// Blank out the bond ends under the label.
		w, h := dc.MeasureString(a.Label)
		dc.SetRGB(1, 1, 1)
		dc.DrawRectangle(a.P.X-w/2, a.P.Y-h/2, w, h)
		dc.Fill()
		dc.SetHexColor(a.Color)
		dc.DrawStringAnchored(a.Label, a.P.X, a.P.Y, 0.5, 0.5)
	}
	if s.ShowIndices {
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 0.5 * s.FontSize}))
		dc.SetHexColor("#888888")
		for _, a := range s.Atoms {
			dc.DrawStringAnchored(fmt.Sprint(a.Index), a.P.X+0.5*s.FontSize, a.P.Y-0.5*s.FontSize, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
