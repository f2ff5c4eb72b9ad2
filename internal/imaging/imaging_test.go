package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecode_png(t *testing.T) {
	buf := encodePNG(t, solid(4, 3, color.RGBA{R: 255, A: 255}))
	img, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 4 || img.Height != 3 {
		t.Fatalf("size %dx%d, want 4x3", img.Width, img.Height)
	}
	if math.Abs(float64(img.At(0, 1, 1))-1.0) > 1e-3 {
		t.Errorf("red channel %v, want ~1", img.At(0, 1, 1))
	}
	if img.At(1, 1, 1) > 1e-3 || img.At(2, 1, 1) > 1e-3 {
		t.Errorf("green/blue should be ~0, got %v %v", img.At(1, 1, 1), img.At(2, 1, 1))
	}
}

func TestDecode_jpeg(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(8, 8, color.RGBA{R: 10, G: 200, B: 30, A: 255}), nil); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 8 || img.Height != 8 {
		t.Fatalf("size %dx%d, want 8x8", img.Width, img.Height)
	}
}

func TestDecode_garbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Fatal("expected error for non-image bytes")
	}
}

func TestResize(t *testing.T) {
	buf := encodePNG(t, solid(10, 6, color.RGBA{R: 128, G: 128, B: 128, A: 255}))
	img, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	resized := img.Resize(4)
	if resized.Width != 4 || resized.Height != 4 {
		t.Fatalf("size %dx%d, want 4x4", resized.Width, resized.Height)
	}
	// Resampling a uniform image keeps the value.
	want := img.At(0, 0, 0)
	for c := 0; c < 3; c++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				if math.Abs(float64(resized.At(c, x, y)-want)) > 1e-3 {
					t.Fatalf("pixel (%d,%d,%d) = %v, want %v", c, x, y, resized.At(c, x, y), want)
				}
			}
		}
	}
}

func TestResize_noopWhenSameSize(t *testing.T) {
	buf := encodePNG(t, solid(4, 4, color.White))
	img, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if img.Resize(4) != img {
		t.Error("resize to same square size should return the receiver")
	}
}
