package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

func testScene(t *testing.T, vehicles, active int) *Scene {
	fleet := core.NewFleet(core.DefaultTrack(), vehicles)
	cat, err := core.NewLightCatalog(fleet, core.DefaultHeadlightParams())
	require.NoError(t, err)
	cat.SetActiveCount(active)
	return &Scene{
		Camera:             core.NewCameraState(),
		Width:              1280,
		Height:             720,
		Fleet:              fleet,
		Lights:             cat.Active(),
		ConeLightIntensity: 2,
		AmbientIntensity:   0.2,
	}
}

func TestWritePBRT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePBRT(&buf, testScene(t, 6, 7)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# trackrt scene export "))
	scale := strings.Index(out, "Scale -1 1 1")
	lookAt := strings.Index(out, "LookAt ")
	require.GreaterOrEqual(t, scale, 0)
	assert.Less(t, scale, lookAt, "mirror is applied before the camera transform")

	assert.Equal(t, 7, strings.Count(out, "LightSource \"spot\""))
	assert.Equal(t, 1, strings.Count(out, "LightSource \"infinite\""))
	assert.Equal(t, 2, strings.Count(out, "Shape \"trianglemesh\""))
	assert.Contains(t, out, "\"float fov\" [ 60.00")
	assert.Contains(t, out, "\"integer xresolution\" [ 1280 ]")
	assert.Less(t, strings.Index(out, "WorldBegin"), strings.Index(out, "LightSource"))

	// 0.35 rad outer, 0.2 rad delta; colour scaled by intensity
	assert.Contains(t, out, "\"float coneangle\" [ 20.05352")
	assert.Contains(t, out, "\"float conedeltaangle\" [ 11.4591")
	assert.Contains(t, out, "\"rgb I\" [ 3 2.8 2.4 ]")
}

func TestWritePBRT_NoLights(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePBRT(&buf, testScene(t, 2, 0)))
	assert.NotContains(t, buf.String(), "\"spot\"")
}

func TestWritePBRT_VehicleIndicesAreLocal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePBRT(&buf, testScene(t, 2, 0)))
	out := buf.String()
	start := strings.Index(out, "# vehicles")
	require.GreaterOrEqual(t, start, 0)
	block := out[start:]
	idx := block[strings.Index(block, "\"integer indices\" [")+len("\"integer indices\" ["):]
	idx = idx[:strings.Index(idx, "]")]
	fields := strings.Fields(idx)
	assert.Len(t, fields, 2*core.IndicesPerBox)
	assert.Equal(t, "0", fields[0])
}

func TestWritePBRT_BadSize(t *testing.T) {
	s := testScene(t, 2, 0)
	s.Width = 0
	assert.Error(t, WritePBRT(&bytes.Buffer{}, s))
}

func TestPbrtFov(t *testing.T) {
	assert.InDelta(t, 60.0, pbrtFov(1.0472, 1280, 720), 1e-3)
	// portrait: the horizontal angle is the narrower one
	assert.Less(t, pbrtFov(1.0472, 720, 1280), float32(60))
}
