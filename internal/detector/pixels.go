package detector

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	// maxEdge is the longest edge of the working buffer after downscaling.
	maxEdge = 512
	// minEdge guards against near-zero dimensions from extreme aspect ratios.
	minEdge = 64
)

// PixelBuffer is the downscaled RGBA working copy of one source image. It is
// owned exclusively by a single scoring call and never mutated after creation.
type PixelBuffer struct {
	Width  int
	Height int
	// Pix holds 8-bit samples in R, G, B, A order, 4 bytes per pixel,
	// row-major with no padding.
	Pix []uint8
}

// targetDimensions applies the downscale rule: the longer edge must not
// exceed maxEdge, aspect ratio is preserved, resulting dimensions are floored
// and floor-clamped to minEdge.
func targetDimensions(origW, origH int) (int, int) {
	longest := origW
	if origH > longest {
		longest = origH
	}
	scale := 1.0
	if longest > maxEdge {
		scale = float64(maxEdge) / float64(longest)
	}
	w := int(float64(origW) * scale)
	h := int(float64(origH) * scale)
	if w < minEdge {
		w = minEdge
	}
	if h < minEdge {
		h = minEdge
	}
	return w, h
}

// NewPixelBuffer builds the working buffer for a source image. Images already
// within bounds are copied rather than resampled so pixel values survive
// unchanged.
func NewPixelBuffer(src image.Image) (*PixelBuffer, error) {
	bounds := src.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= 0 || origH <= 0 {
		return nil, ErrInvalidInput
	}

	w, h := targetDimensions(origW, origH)

	var nrgba *image.NRGBA
	if w == origW && h == origH {
		nrgba = imaging.Clone(src)
	} else {
		nrgba = imaging.Resize(src, w, h, imaging.Lanczos)
	}

	return &PixelBuffer{
		Width:  w,
		Height: h,
		Pix:    nrgba.Pix,
	}, nil
}

// Grayscale derives per-pixel luminance as 0.299R + 0.587G + 0.114B on the
// 0-255 channel domain.
func (p *PixelBuffer) Grayscale() []float64 {
	gray := make([]float64, p.Width*p.Height)
	for i := 0; i < len(gray); i++ {
		base := i * 4
		r := float64(p.Pix[base])
		g := float64(p.Pix[base+1])
		b := float64(p.Pix[base+2])
		gray[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return gray
}
