// Package collage composes listing photos into a single card image and
// materializes the result across memory, disk, and remote storage tiers.
package collage

import (
	"bytes"
	"image"
	"image/draw"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Compositor renders 1–3 photos onto a fixed canvas. The layout is keyed by
// photo count and is not configurable per call: one photo covers the whole
// canvas, two split it left/right, three put the first on the left half and
// stack the other two on the right.
type Compositor struct {
	Width   int
	Height  int
	Quality int
}

// NewCompositor returns a Compositor, substituting the stock 1280×720
// canvas and JPEG quality 85 for zero values.
func NewCompositor(width, height, quality int) Compositor {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if quality <= 0 {
		quality = 85
	}
	return Compositor{Width: width, Height: height, Quality: quality}
}

// Compose builds the collage and returns the encoded JPEG. It returns nil
// for zero buffers and on any decode or encode failure; callers fall back to
// a text-only card. Output is byte-identical for identical inputs.
func (c Compositor) Compose(buffers [][]byte) []byte {
	if len(buffers) == 0 {
		return nil
	}
	n := len(buffers)
	if n > 3 {
		n = 3
	}

	imgs := make([]image.Image, 0, n)
	for _, b := range buffers[:n] {
		img, _, err := image.Decode(bytes.NewReader(b))
		if err != nil {
			return nil
		}
		imgs = append(imgs, img)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	leftW := c.Width / 2
	rightW := c.Width - leftW

	switch n {
	case 1:
		paste(canvas, coverScale(imgs[0], c.Width, c.Height), 0, 0)
	case 2:
		paste(canvas, coverScale(imgs[0], leftW, c.Height), 0, 0)
		paste(canvas, coverScale(imgs[1], rightW, c.Height), leftW, 0)
	default:
		topH := c.Height / 2
		bottomH := c.Height - topH
		paste(canvas, coverScale(imgs[0], leftW, c.Height), 0, 0)
		paste(canvas, coverScale(imgs[1], rightW, topH), leftW, 0)
		paste(canvas, coverScale(imgs[2], rightW, bottomH), leftW, topH)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// coverScale scales the image so it fully covers tw×th (uniform factor
// max(tw/w, th/h)) and center-crops the overscanned dimension.
func coverScale(img image.Image, tw, th int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	scale := math.Max(float64(tw)/float64(w), float64(th)/float64(h))
	nw := int(math.Ceil(float64(w) * scale))
	nh := int(math.Ceil(float64(h) * scale))
	scaled := resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3)

	left := (nw - tw) / 2
	top := (nh - th) / 2
	out := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(out, out.Bounds(), scaled, scaled.Bounds().Min.Add(image.Pt(left, top)), draw.Src)
	return out
}

func paste(dst *image.RGBA, src image.Image, x, y int) {
	sb := src.Bounds()
	r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy())
	draw.Draw(dst, r, src, sb.Min, draw.Src)
}
