package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

var ErrMapFailed = errors.New("readback map failed")

// AlignedBytesPerRow rounds a row of 4-byte texels up to the 256-byte copy alignment.
func AlignedBytesPerRow(width uint32) uint32 {
	return (width*4 + 255) &^ 255
}

// IsBGRA reports whether a surface format stores blue first.
func IsBGRA(format wgpu.TextureFormat) bool {
	return format == wgpu.TextureFormatBGRA8Unorm || format == wgpu.TextureFormatBGRA8UnormSrgb
}

// DePitch strips row padding from a copied image and returns tightly packed
// RGBA. BGRA input is swizzled. Alpha is forced opaque.
func DePitch(data []byte, width, height, pitch uint32, bgra bool) []byte {
	out := make([]byte, int(width*height*4))
	for y := uint32(0); y < height; y++ {
		src := data[y*pitch : y*pitch+width*4]
		dst := out[y*width*4 : (y+1)*width*4]
		for x := uint32(0); x < width; x++ {
			i := x * 4
			if bgra {
				dst[i], dst[i+1], dst[i+2] = src[i+2], src[i+1], src[i]
			} else {
				dst[i], dst[i+1], dst[i+2] = src[i], src[i+1], src[i+2]
			}
			dst[i+3] = 0xFF
		}
	}
	return out
}

// Readback copies a presented frame into host memory.
type Readback struct {
	Device *wgpu.Device
	Buffer *wgpu.Buffer
	Width  uint32
	Height uint32
	Pitch  uint32
	BGRA   bool

	mu      sync.Mutex
	pending bool
}

func NewReadback(device *wgpu.Device) *Readback {
	return &Readback{Device: device}
}

func (r *Readback) ensure(width, height uint32) error {
	pitch := AlignedBytesPerRow(width)
	size := uint64(pitch) * uint64(height)
	if r.Buffer != nil && r.Buffer.GetSize() >= size {
		r.Width, r.Height, r.Pitch = width, height, pitch
		return nil
	}
	if r.Buffer != nil {
		r.Buffer.Release()
	}
	var err error
	r.Buffer, err = r.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "CaptureReadback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("capture buffer: %w", err)
	}
	r.Width, r.Height, r.Pitch = width, height, pitch
	return nil
}

// Encode records the copy of the surface texture. The surface must have been
// configured with CopySrc usage.
func (r *Readback) Encode(encoder *wgpu.CommandEncoder, tex *wgpu.Texture, format wgpu.TextureFormat) error {
	if err := r.ensure(tex.GetWidth(), tex.GetHeight()); err != nil {
		return err
	}
	r.BGRA = IsBGRA(format)
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: r.Buffer,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  r.Pitch,
				RowsPerImage: r.Height,
			},
		},
		&wgpu.Extent3D{Width: r.Width, Height: r.Height, DepthOrArrayLayers: 1},
	)
	r.mu.Lock()
	r.pending = true
	r.mu.Unlock()
	return nil
}

// Read maps the buffer after submission and blocks until the pixels are
// available. Pixels are nil when nothing was encoded.
func (r *Readback) Read() ([]byte, uint32, uint32, error) {
	r.mu.Lock()
	if !r.pending {
		r.mu.Unlock()
		return nil, 0, 0, nil
	}
	r.pending = false
	r.mu.Unlock()

	size := uint64(r.Pitch) * uint64(r.Height)
	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	r.Buffer.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	var status wgpu.BufferMapAsyncStatus
	for waiting := true; waiting; {
		select {
		case status = <-done:
			waiting = false
		default:
			r.Device.Poll(true, nil)
		}
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, 0, 0, fmt.Errorf("%w: status %d", ErrMapFailed, status)
	}
	data := r.Buffer.GetMappedRange(0, uint(size))
	pix := DePitch(data, r.Width, r.Height, r.Pitch, r.BGRA)
	r.Buffer.Unmap()
	return pix, r.Width, r.Height, nil
}

func (r *Readback) Release() {
	if r.Buffer != nil {
		r.Buffer.Release()
	}
}
