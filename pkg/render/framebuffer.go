package render

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/shading"
)

// HDRTarget is the main pass color attachment: linear radiance, unbounded
// range. It is resolved into a Framebuffer by the tonemap pass.
type HDRTarget struct {
	Width  int
	Height int
	Pixels []math3d.Vec3 // Row-major linear radiance
}

// NewHDRTarget creates an HDR render target with the given dimensions.
func NewHDRTarget(width, height int) *HDRTarget {
	return &HDRTarget{
		Width:  width,
		Height: height,
		Pixels: make([]math3d.Vec3, width*height),
	}
}

// Clear fills the target with a solid radiance value.
func (t *HDRTarget) Clear(c math3d.Vec3) {
	for i := range t.Pixels {
		t.Pixels[i] = c
	}
}

// SetPixel writes radiance at (x, y). Bounds checking is performed.
func (t *HDRTarget) SetPixel(x, y int, c math3d.Vec3) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the radiance at (x, y), zero if out of bounds.
func (t *HDRTarget) GetPixel(x, y int) math3d.Vec3 {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return math3d.Vec3{}
	}
	return t.Pixels[y*t.Width+x]
}

// ClearSky fills the target with the ambient gradient evaluated along the
// camera's view ray per pixel, so uncovered pixels show the same three-band
// sky the ambient term lights surfaces with.
func (t *HDRTarget) ClearSky(cam *Camera, ambient shading.AmbientCube) {
	for y := range t.Height {
		for x := range t.Width {
			dir := cam.RayDirection(
				(float64(x)+0.5)/float64(t.Width),
				(float64(y)+0.5)/float64(t.Height),
			)
			t.Pixels[y*t.Width+x] = ambient.Sample(dir)
		}
	}
}

// Resolve runs the tonemap pass: every HDR texel through exposure,
// Reinhard-Jodie and gamma into the LDR framebuffer. The two buffers must
// have identical dimensions.
func (t *HDRTarget) Resolve(fb *Framebuffer, exposure float64) {
	n := min(len(t.Pixels), len(fb.Pixels))
	for i := range n {
		ldr := shading.Tonemap(t.Pixels[i], exposure)
		fb.Pixels[i] = color.RGBA{
			R: uint8(ldr.X*255 + 0.5),
			G: uint8(ldr.Y*255 + 0.5),
			B: uint8(ldr.Z*255 + 0.5),
			A: 255,
		}
	}
}

// Framebuffer is the display-referred output of the tonemap pass. We use
// double vertical resolution by using half-block characters (▀▄).
type Framebuffer struct {
	Width  int          // Width in "pixels" (same as terminal columns)
	Height int          // Height in "pixels" (2x terminal rows due to half-blocks)
	Pixels []color.RGBA // Row-major pixel data
}

// NewFramebuffer creates a new framebuffer with the given dimensions.
// Height should be 2x the desired terminal rows for half-block rendering.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
}

// SetPixel sets a pixel at (x, y) to the given color.
// Bounds checking is performed.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// GetPixel returns the color at (x, y).
// Returns transparent black if out of bounds.
func (fb *Framebuffer) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, fb.ToImage())
}
