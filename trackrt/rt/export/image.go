package export

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
)

type Format string

const (
	FormatTGA Format = "tga"
	FormatPNG Format = "png"
	FormatBMP Format = "bmp"
)

// RGBAImage wraps a tightly packed, top-left origin RGBA8 buffer.
func RGBAImage(pix []byte, width, height int) (*image.RGBA, error) {
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer is %d bytes, want %dx%dx4", len(pix), width, height)
	}
	return &image.RGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}, nil
}

// EncodeTGA writes an uncompressed 32-bit TGA with a top-left origin.
func EncodeTGA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width > 0xFFFF || height > 0xFFFF {
		return fmt.Errorf("image %dx%d too large for TGA", width, height)
	}

	var hdr [18]byte
	hdr[2] = 2 // uncompressed true colour
	binary.LittleEndian.PutUint16(hdr[12:], uint16(width))
	binary.LittleEndian.PutUint16(hdr[14:], uint16(height))
	hdr[16] = 32
	hdr[17] = 0x28 // 8 alpha bits, top-left origin
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	row := make([]byte, width*4)
	for y := 0; y < height; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			row[x*4+0] = src[x*4+2]
			row[x*4+1] = src[x*4+1]
			row[x*4+2] = src[x*4+0]
			row[x*4+3] = src[x*4+3]
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes img in the given format.
func Encode(w io.Writer, format Format, img *image.RGBA) error {
	switch format {
	case FormatTGA:
		return EncodeTGA(w, img)
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unknown image format %q", format)
	}
}

// WriteImage encodes img to path.
func WriteImage(path string, format Format, img *image.RGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, format, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// CaptureName builds a unique screenshot file name.
func CaptureName(dir string, format Format, now time.Time) string {
	id := uuid.New().String()[:8]
	return filepath.Join(dir, fmt.Sprintf("trackrt_%s_%s.%s", now.Format("20060102_150405"), id, format))
}

// SaveCapture writes a screenshot into dir and returns its path.
func SaveCapture(dir string, format Format, img *image.RGBA) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := CaptureName(dir, format, time.Now())
	return path, WriteImage(path, format, img)
}
