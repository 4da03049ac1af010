// Package export writes the current frame as an offline PBRT v4 scene and
// encodes captured backbuffers.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/headlights/trackrt/rt/core"
)

const (
	pixelSamples = 64
	maxDepth     = 5
)

// Scene is everything the exporter needs for one frame.
type Scene struct {
	Camera             *core.CameraState
	Width, Height      int
	Fleet              *core.Fleet
	Lights             []core.ConeLight // active lights only
	ConeLightIntensity float32
	AmbientIntensity   float32
	// Image is the film filename written into the scene.
	Image string
}

// WritePBRT emits a PBRT v4 scene. PBRT is left-handed, so the scene is
// mirrored in X before the camera transform.
func WritePBRT(w io.Writer, s *Scene) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid film size %dx%d", s.Width, s.Height)
	}
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(bw, format, args...) }

	p("# trackrt scene export %s\n", uuid.NewString())
	p("# %d vehicles, %d active headlights\n\n", len(s.Fleet.Vehicles), len(s.Lights))

	cam := s.Camera
	eye := cam.Position
	target := eye.Add(cam.GetForward())
	p("Scale -1 1 1\n")
	p("LookAt %s  %s  0 1 0\n", vec(eye), vec(target))
	p("Camera \"perspective\" \"float fov\" [ %s ]\n", num(pbrtFov(cam.FovY, s.Width, s.Height)))
	image := s.Image
	if image == "" {
		image = "trackrt.exr"
	}
	p("Film \"rgb\" \"integer xresolution\" [ %d ] \"integer yresolution\" [ %d ] \"string filename\" [ %q ]\n",
		s.Width, s.Height, image)
	p("Sampler \"zsobol\" \"integer pixelsamples\" [ %d ]\n", pixelSamples)
	p("Integrator \"volpath\" \"integer maxdepth\" [ %d ]\n\n", maxDepth)

	p("WorldBegin\n\n")
	a := s.AmbientIntensity
	p("LightSource \"infinite\" \"rgb L\" [ %s %s %s ]\n\n", num(a), num(a), num(a))

	for i := range s.Lights {
		l := &s.Lights[i]
		to := l.Position.Add(l.Direction)
		coneDeg := mgl32.RadToDeg(l.OuterAngle)
		deltaDeg := mgl32.RadToDeg(l.OuterAngle - l.InnerAngle)
		p("# headlight %d (vehicle %d)\n", i, l.Vehicle)
		p("LightSource \"spot\" \"point3 from\" [ %s ] \"point3 to\" [ %s ]\n", vec(l.Position), vec(to))
		p("    \"float coneangle\" [ %s ] \"float conedeltaangle\" [ %s ]\n", num(coneDeg), num(deltaDeg))
		p("    \"rgb I\" [ %s ]\n", vec(l.Color.Mul(s.ConeLightIntensity)))
	}
	p("\n")

	mesh := core.BuildSceneMesh(s.Fleet)
	writeMesh(bw, "ground", mgl32.Vec3{0.3, 0.3, 0.3}, mesh.Vertices[:mesh.CarVertexStart], mesh.Indices[:core.GroundIndexCount], 0)
	if len(s.Fleet.Vehicles) > 0 {
		writeMesh(bw, "vehicles", mgl32.Vec3{0.85, 0.85, 0.85}, mesh.CarVertices(), mesh.Indices[core.GroundIndexCount:], uint32(mesh.CarVertexStart))
	}
	return bw.Flush()
}

// SavePBRT writes the scene to path.
func SavePBRT(path string, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePBRT(f, s); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func writeMesh(w io.Writer, name string, albedo mgl32.Vec3, verts []core.Vertex, indices []uint32, base uint32) {
	var pts, nrm, idx strings.Builder
	for _, v := range verts {
		fmt.Fprintf(&pts, " %s %s %s", num(v.Pos[0]), num(v.Pos[1]), num(v.Pos[2]))
		fmt.Fprintf(&nrm, " %s %s %s", num(v.Normal[0]), num(v.Normal[1]), num(v.Normal[2]))
	}
	for _, i := range indices {
		fmt.Fprintf(&idx, " %d", i-base)
	}
	fmt.Fprintf(w, "# %s\nAttributeBegin\n", name)
	fmt.Fprintf(w, "  Material \"diffuse\" \"rgb reflectance\" [ %s ]\n", vec(albedo))
	fmt.Fprintf(w, "  Shape \"trianglemesh\"\n    \"integer indices\" [%s ]\n    \"point3 P\" [%s ]\n    \"normal N\" [%s ]\n",
		idx.String(), pts.String(), nrm.String())
	fmt.Fprintf(w, "AttributeEnd\n\n")
}

// pbrtFov converts a vertical field of view to PBRT's, which spans the
// shorter image axis.
func pbrtFov(fovY float32, width, height int) float32 {
	if width >= height {
		return mgl32.RadToDeg(fovY)
	}
	aspect := float64(width) / float64(height)
	h := 2 * math.Atan(math.Tan(float64(fovY)/2)*aspect)
	return mgl32.RadToDeg(float32(h))
}

func num(v float32) string {
	return fmt.Sprintf("%g", v)
}

func vec(v mgl32.Vec3) string {
	return num(v[0]) + " " + num(v[1]) + " " + num(v[2])
}
