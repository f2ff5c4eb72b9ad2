// Package imaging decodes request images into the RGB tensor form the
// feature extractors consume.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// RGBImage is a decoded image in planar CHW layout (R plane, then G, then
// B) with components scaled to [0, 1]. It is the input type of the
// extraction capability.
type RGBImage struct {
	Width  int
	Height int
	Pix    []float32 // len = 3 * Width * Height
}

// Decode parses image bytes (PNG, JPEG, or GIF) and converts the pixels to
// RGB, discarding alpha.
func Decode(buf []byte) (*RGBImage, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image to the planar RGB form.
func FromImage(img image.Image) *RGBImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &RGBImage{Width: w, Height: h, Pix: make([]float32, 3*w*h)}
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*w + x
			out.Pix[i] = float32(r) / 0xffff
			out.Pix[plane+i] = float32(g) / 0xffff
			out.Pix[2*plane+i] = float32(b) / 0xffff
		}
	}
	return out
}

// At returns the value of channel c (0=R, 1=G, 2=B) at (x, y).
func (m *RGBImage) At(c, x, y int) float32 {
	return m.Pix[c*m.Width*m.Height+y*m.Width+x]
}

// Resize returns a bilinear resample of the image to side x side pixels.
// Vision models expect a fixed square input.
func (m *RGBImage) Resize(side int) *RGBImage {
	if side == m.Width && side == m.Height {
		return m
	}
	out := &RGBImage{Width: side, Height: side, Pix: make([]float32, 3*side*side)}
	xScale := float32(m.Width) / float32(side)
	yScale := float32(m.Height) / float32(side)
	plane := side * side
	for y := 0; y < side; y++ {
		sy := (float32(y)+0.5)*yScale - 0.5
		y0 := clamp(int(sy), 0, m.Height-1)
		y1 := clamp(y0+1, 0, m.Height-1)
		fy := sy - float32(y0)
		if fy < 0 {
			fy = 0
		}
		for x := 0; x < side; x++ {
			sx := (float32(x)+0.5)*xScale - 0.5
			x0 := clamp(int(sx), 0, m.Width-1)
			x1 := clamp(x0+1, 0, m.Width-1)
			fx := sx - float32(x0)
			if fx < 0 {
				fx = 0
			}
			for c := 0; c < 3; c++ {
				top := m.At(c, x0, y0)*(1-fx) + m.At(c, x1, y0)*fx
				bot := m.At(c, x0, y1)*(1-fx) + m.At(c, x1, y1)*fx
				out.Pix[c*plane+y*side+x] = top*(1-fy) + bot*fy
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
