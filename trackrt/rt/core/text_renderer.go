package core

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Printable ASCII, laid out 16 glyphs per atlas row.
const (
	firstGlyph   = ' '
	lastGlyph    = '~'
	atlasColumns = 16
)

type TextVertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

type TextItem struct {
	Text     string
	Position [2]float32 // pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

// TextRenderer holds a monospace glyph atlas. Every glyph owns one cell of
// CellW x CellH pixels with the baseline at Ascent, so a string is a row of
// equally sized quads.
type TextRenderer struct {
	AtlasImage   *image.Alpha
	CellW, CellH int
	Ascent       int
}

// NewDefaultTextRenderer uses the bundled Go Mono face.
func NewDefaultTextRenderer(fontSize float64) (*TextRenderer, error) {
	return NewTextRenderer(gomono.TTF, fontSize)
}

// NewTextRenderer rasterises a monospace face. Proportional faces work but
// are drawn on a fixed pitch.
func NewTextRenderer(fontBytes []byte, fontSize float64) (*TextRenderer, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	defer face.Close()

	adv, ok := face.GlyphAdvance('M')
	if !ok {
		return nil, fmt.Errorf("font has no 'M' glyph")
	}
	m := face.Metrics()
	tr := &TextRenderer{
		CellW:  adv.Ceil(),
		CellH:  m.Height.Ceil(),
		Ascent: m.Ascent.Ceil(),
	}
	rows := int(lastGlyph-firstGlyph+atlasColumns) / atlasColumns
	tr.AtlasImage = image.NewAlpha(image.Rect(0, 0, atlasColumns*tr.CellW, rows*tr.CellH))

	for r := rune(firstGlyph); r <= lastGlyph; r++ {
		cell := tr.cellRect(r)
		dot := fixed.P(cell.Min.X, cell.Min.Y+tr.Ascent)
		dr, mask, maskp, _, ok := face.Glyph(dot, r)
		if !ok {
			continue
		}
		// Clip to the cell so descenders never bleed into the next row.
		clip := dr.Intersect(cell)
		draw.Draw(tr.AtlasImage, clip, mask, maskp.Add(clip.Min.Sub(dr.Min)), draw.Over)
	}
	return tr, nil
}

func (tr *TextRenderer) cellRect(r rune) image.Rectangle {
	i := int(r - firstGlyph)
	x, y := (i%atlasColumns)*tr.CellW, (i/atlasColumns)*tr.CellH
	return image.Rect(x, y, x+tr.CellW, y+tr.CellH)
}

// Has reports whether r has a cell in the atlas.
func (tr *TextRenderer) Has(r rune) bool {
	return r >= firstGlyph && r <= lastGlyph
}

// BuildVertices emits two triangles per visible character in clip space for a
// screenW x screenH target. Spaces and characters outside the atlas advance
// the pen without a quad.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	if screenW <= 0 || screenH <= 0 {
		return nil
	}
	var vertices []TextVertex
	sw, sh := float32(screenW), float32(screenH)
	aw, ah := float32(tr.AtlasImage.Rect.Dx()), float32(tr.AtlasImage.Rect.Dy())

	for _, item := range items {
		w, h := float32(tr.CellW)*item.Scale, float32(tr.CellH)*item.Scale
		for row, line := range strings.Split(item.Text, "\n") {
			y := item.Position[1] + float32(row)*h
			for col, r := range []rune(line) {
				if r == ' ' || !tr.Has(r) {
					continue
				}
				x := item.Position[0] + float32(col)*w
				c := tr.cellRect(r)

				x0, x1 := x/sw*2-1, (x+w)/sw*2-1
				y0, y1 := 1-y/sh*2, 1-(y+h)/sh*2
				u0, u1 := float32(c.Min.X)/aw, float32(c.Max.X)/aw
				v0, v1 := float32(c.Min.Y)/ah, float32(c.Max.Y)/ah

				topL := TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{u0, v0}, Color: item.Color}
				topR := TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{u1, v0}, Color: item.Color}
				botL := TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{u0, v1}, Color: item.Color}
				botR := TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{u1, v1}, Color: item.Color}
				vertices = append(vertices, topL, topR, botL, topR, botR, botL)
			}
		}
	}
	return vertices
}

// MeasureText returns the width and height in pixels of a possibly multi-line string.
func (tr *TextRenderer) MeasureText(text string, scale float32) (float32, float32) {
	lines := strings.Split(text, "\n")
	widest := 0
	for _, l := range lines {
		widest = max(widest, len([]rune(l)))
	}
	return float32(widest*tr.CellW) * scale, float32(len(lines)*tr.CellH) * scale
}
