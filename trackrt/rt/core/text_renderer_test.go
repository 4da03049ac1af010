package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRenderer_Default(t *testing.T) {
	tr, err := NewDefaultTextRenderer(16)
	require.NoError(t, err)
	assert.Positive(t, tr.CellW)
	assert.Greater(t, tr.CellH, tr.Ascent)
	assert.Equal(t, 16*tr.CellW, tr.AtlasImage.Rect.Dx())
	assert.Equal(t, 6*tr.CellH, tr.AtlasImage.Rect.Dy())

	assert.True(t, tr.Has('A'))
	assert.True(t, tr.Has('~'))
	assert.False(t, tr.Has('\t'))
	assert.False(t, tr.Has('é'))

	// the 'M' cell has ink, the space cell has none
	ink := func(r rune) int {
		c := tr.cellRect(r)
		sum := 0
		for y := c.Min.Y; y < c.Max.Y; y++ {
			for x := c.Min.X; x < c.Max.X; x++ {
				sum += int(tr.AtlasImage.AlphaAt(x, y).A)
			}
		}
		return sum
	}
	assert.Positive(t, ink('M'))
	assert.Zero(t, ink(' '))
}

func TestTextRenderer_MeasureText(t *testing.T) {
	tr, err := NewDefaultTextRenderer(16)
	require.NoError(t, err)

	w1, h1 := tr.MeasureText("FPS", 1)
	w2, h2 := tr.MeasureText("FPS\nFP", 1)
	assert.Equal(t, float32(3*tr.CellW), w1)
	assert.Equal(t, w1, w2)
	assert.Equal(t, 2*h1, h2)

	wa, _ := tr.MeasureText("iii", 2)
	wb, _ := tr.MeasureText("WWW", 2)
	assert.Equal(t, wa, wb)
	assert.Equal(t, 2*w1, wa)
}

func TestTextRenderer_BuildVertices(t *testing.T) {
	tr, err := NewDefaultTextRenderer(16)
	require.NoError(t, err)

	items := []TextItem{{Text: "ab c\td", Position: [2]float32{0, 0}, Scale: 1, Color: [4]float32{1, 1, 1, 1}}}
	verts := tr.BuildVertices(items, 800, 600)
	// space and tab advance without a quad
	require.Len(t, verts, 4*6)

	// first quad starts at the top-left corner of the screen
	assert.Equal(t, [2]float32{-1, 1}, verts[0].Pos)
	// 'c' sits three cells to the right
	wantX := float32(3*tr.CellW)/800*2 - 1
	assert.InDelta(t, wantX, verts[12].Pos[0], 1e-6)
	for _, v := range verts {
		assert.GreaterOrEqual(t, v.UV[0], float32(0))
		assert.LessOrEqual(t, v.UV[1], float32(1))
		assert.Equal(t, [4]float32{1, 1, 1, 1}, v.Color)
	}

	assert.Empty(t, tr.BuildVertices(items, 0, 600))
}

func TestTextRenderer_Newlines(t *testing.T) {
	tr, err := NewDefaultTextRenderer(16)
	require.NoError(t, err)

	verts := tr.BuildVertices([]TextItem{{Text: "a\nb", Scale: 1}}, 100, 100)
	require.Len(t, verts, 12)
	assert.Equal(t, verts[0].Pos[0], verts[6].Pos[0])
	wantY := 1 - float32(tr.CellH)/100*2
	assert.InDelta(t, wantY, verts[6].Pos[1], 1e-6)
}

func TestTextRenderer_BadFont(t *testing.T) {
	_, err := NewTextRenderer([]byte("not a font"), 12)
	assert.Error(t, err)
}
