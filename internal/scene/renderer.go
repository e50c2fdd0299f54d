package scene

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"
)

// ErrRendererClosed is returned when rendering after Close.
var ErrRendererClosed = errors.New("renderer closed")

// Frame is everything one draw call needs. Groups share vertex slices with
// the scene; they are never modified after the field is built.
type Frame struct {
	Width, Height int
	Camera        Camera
	Groups        []GroupView
}

// GroupView is one point group as the renderer sees it.
type GroupView struct {
	Rotation Vec3
	Vertices []Vec3
	Material *Material
}

// Renderer draws frames.
type Renderer interface {
	Render(f *Frame) error
	Close() error
}

// RasterRenderer is a software point renderer. It projects every vertex
// with a perspective camera, sizes points like attenuated sprites and keeps
// the latest frame so it can be exported as PNG.
type RasterRenderer struct {
	mu         sync.Mutex
	background color.RGBA
	img        *image.RGBA
	depth      []float64
	frames     uint64
	closed     bool
}

// NewRasterRenderer creates a renderer with the scene clear colour.
func NewRasterRenderer() *RasterRenderer {
	return &RasterRenderer{background: color.RGBA{0x08, 0x30, 0x54, 0xff}}
}

// Render draws f into the back buffer.
func (r *RasterRenderer) Render(f *Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil
	}
	if r.img == nil || r.img.Bounds().Dx() != f.Width || r.img.Bounds().Dy() != f.Height {
		r.img = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		r.depth = make([]float64, f.Width*f.Height)
	}
	r.clear()

	forward, right, up := f.Camera.basis()
	fov := f.Camera.FOV
	if fov <= 0 {
		fov = 75
	}
	focal := float64(f.Height) / 2 / math.Tan(fov*math.Pi/360)
	cx, cy := float64(f.Width)/2, float64(f.Height)/2

	for _, g := range f.Groups {
		// Pending textures draw nothing.
		if g.Material == nil || g.Material.Texture == nil {
			continue
		}
		rot := EulerXYZ(g.Rotation)
		for _, v := range g.Vertices {
			p := rot.Apply(v).Sub(f.Camera.Position)
			z := p.Dot(forward)
			if z <= f.Camera.Near || (f.Camera.Far > 0 && z > f.Camera.Far) {
				continue
			}
			sx := cx + p.Dot(right)*focal/z
			sy := cy - p.Dot(up)*focal/z
			size := g.Material.Size * cy / z
			r.splat(sx, sy, size, z, g.Material.Texture)
		}
	}
	r.frames++
	return nil
}

func (r *RasterRenderer) clear() {
	pix := r.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r.background.R, r.background.G, r.background.B, r.background.A
	}
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
}

// splat draws a square sprite centred on (sx, sy), depth tested.
func (r *RasterRenderer) splat(sx, sy, size, z float64, tex *Texture) {
	if size < 1 {
		size = 1
	}
	if size > 64 {
		size = 64
	}
	b := r.img.Bounds()
	half := size / 2
	x0, y0 := int(math.Floor(sx-half)), int(math.Floor(sy-half))
	n := int(math.Ceil(size))
	for dy := 0; dy < n; dy++ {
		y := y0 + dy
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for dx := 0; dx < n; dx++ {
			x := x0 + dx
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			i := y*b.Dx() + x
			if z >= r.depth[i] {
				continue
			}
			c := tex.Tint
			if tex.Thumb != nil && n >= 4 {
				c = tex.Thumb.RGBAAt(dx*ThumbSize/n, dy*ThumbSize/n)
				if c.A < 128 {
					continue
				}
			}
			r.depth[i] = z
			r.img.SetRGBA(x, y, color.RGBA{c.R, c.G, c.B, 255})
		}
	}
}

// Frames reports how many frames were drawn.
func (r *RasterRenderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// WritePNG encodes the latest frame. Before the first frame it writes a
// single background pixel.
func (r *RasterRenderer) WritePNG(w io.Writer) error {
	r.mu.Lock()
	var snapshot *image.RGBA
	if r.img != nil {
		snapshot = image.NewRGBA(r.img.Bounds())
		copy(snapshot.Pix, r.img.Pix)
	} else {
		snapshot = image.NewRGBA(image.Rect(0, 0, 1, 1))
		snapshot.SetRGBA(0, 0, r.background)
	}
	r.mu.Unlock()
	return png.Encode(w, snapshot)
}

// Close releases the buffers. Closing twice is fine.
func (r *RasterRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.img = nil
	r.depth = nil
	return nil
}
