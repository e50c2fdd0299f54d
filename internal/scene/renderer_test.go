package scene

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solid(c color.RGBA) *Texture {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return NewTexture("solid", img)
}

func testFrame(groups ...GroupView) *Frame {
	return &Frame{
		Width:  160,
		Height: 90,
		Camera: Camera{Position: Vec3{Z: 1000}, FOV: 75, Near: 0.1, Far: 6000},
		Groups: groups,
	}
}

func TestRasterRenderer_DepthTest(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	r := NewRasterRenderer()

	far := GroupView{Vertices: []Vec3{{}}, Material: &Material{Texture: solid(red), Size: 40}}
	near := GroupView{Vertices: []Vec3{{Z: 500}}, Material: &Material{Texture: solid(blue), Size: 40}}
	pending := GroupView{Vertices: []Vec3{{Z: 800}}, Material: &Material{Size: 40}}

	if err := r.Render(testFrame(far)); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if got := r.img.RGBAAt(80, 45); got != red {
		t.Errorf("Expected the point at the centre to be red, but got %v", got)
	}

	if err := r.Render(testFrame(far, near, pending)); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if got := r.img.RGBAAt(80, 45); got != blue {
		t.Errorf("Expected the nearer blue point to win, but got %v", got)
	}
	if got := r.img.RGBAAt(0, 0); got != r.background {
		t.Errorf("Expected background in the corner, but got %v", got)
	}
	if r.Frames() != 2 {
		t.Errorf("Expected 2 frames, but got %d", r.Frames())
	}
}

func TestRasterRenderer_WritePNG(t *testing.T) {
	r := NewRasterRenderer()

	var buf bytes.Buffer
	if err := r.WritePNG(&buf); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Expected a PNG before the first frame, but got %v", err)
	}
	if img.Bounds().Dx() != 1 {
		t.Errorf("Expected a 1px placeholder, but got %v", img.Bounds())
	}

	if err := r.Render(testFrame()); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	buf.Reset()
	if err := r.WritePNG(&buf); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	img, err = png.Decode(&buf)
	if err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if img.Bounds().Dx() != 160 || img.Bounds().Dy() != 90 {
		t.Errorf("Expected a 160x90 frame, but got %v", img.Bounds())
	}
}

func TestRasterRenderer_Close(t *testing.T) {
	r := NewRasterRenderer()
	if err := r.Close(); err != nil {
		t.Fatalf("Expected no error, but got %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Expected closing twice to be fine, but got %v", err)
	}
	if err := r.Render(testFrame()); !errors.Is(err, ErrRendererClosed) {
		t.Errorf("Expected ErrRendererClosed, but got %v", err)
	}
}
