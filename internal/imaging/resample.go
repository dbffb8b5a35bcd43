package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// precisionBits is the fixed-point width of the filter coefficients. Two guard
// bits keep a full-range 8-bit accumulation inside a signed 32-bit sum.
const precisionBits = 32 - 8 - 2

// ResizeKernel is the separable filter used to bring uploads to InputSize. Its
// support widens by the reduction factor, so downscaling averages every source
// pixel under the footprint instead of point-sampling four neighbours.
var ResizeKernel = draw.BiLinear

// coefficients holds, per output sample, the first contributing input index
// and the fixed-point weights of the contributing run.
type coefficients struct {
	start   []int
	weights [][]int32
}

func precomputeCoefficients(inSize, outSize int, kernel *draw.Kernel) coefficients {
	scale := float64(inSize) / float64(outSize)
	filterScale := math.Max(scale, 1)
	support := kernel.Support * filterScale
	inv := 1 / filterScale

	c := coefficients{
		start:   make([]int, outSize),
		weights: make([][]int32, outSize),
	}
	buf := make([]float64, int(math.Ceil(support))*2+1)

	for xx := range outSize {
		center := (float64(xx) + 0.5) * scale
		lo := max(int(center-support+0.5), 0)
		hi := min(int(center+support+0.5), inSize)

		n := hi - lo
		sum := 0.0
		for x := range n {
			w := kernel.At((float64(x+lo) - center + 0.5) * inv)
			buf[x] = w
			sum += w
		}

		q := make([]int32, n)
		for x := range n {
			w := buf[x]
			if sum != 0 {
				w /= sum
			}
			q[x] = quantize(w)
		}
		c.start[xx] = lo
		c.weights[xx] = q
	}
	return c
}

func quantize(w float64) int32 {
	if w < 0 {
		return int32(-0.5 + w*(1<<precisionBits))
	}
	return int32(0.5 + w*(1<<precisionBits))
}

func clip8(acc int32) uint8 {
	v := acc >> precisionBits
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// resample scales src to w x h with a horizontal pass followed by a vertical
// pass. Each pass rounds to 8 bits, and a pass is skipped when that dimension
// already matches. The result is opaque.
func resample(src *image.RGBA, w, h int, kernel *draw.Kernel) *image.RGBA {
	b := src.Bounds()
	cur := src
	if b.Min != (image.Point{}) {
		cur = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := range b.Dy() {
			copy(cur.Pix[y*cur.Stride:], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):][:b.Dx()*4])
		}
	}

	if cur.Rect.Dx() != w {
		cur = resampleHorizontal(cur, w, precomputeCoefficients(cur.Rect.Dx(), w, kernel))
	}
	if cur.Rect.Dy() != h {
		cur = resampleVertical(cur, h, precomputeCoefficients(cur.Rect.Dy(), h, kernel))
	}
	if cur == src {
		cur = image.NewRGBA(src.Rect)
		copy(cur.Pix, src.Pix)
	}
	forceOpaque(cur)
	return cur
}

func resampleHorizontal(src *image.RGBA, w int, c coefficients) *image.RGBA {
	h := src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		in := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for xx := range w {
			lo, ks := c.start[xx], c.weights[xx]
			for ch := range Channels {
				acc := int32(1 << (precisionBits - 1))
				for i, k := range ks {
					acc += int32(in[(lo+i)*4+ch]) * k
				}
				out[xx*4+ch] = clip8(acc)
			}
		}
	}
	return dst
}

func resampleVertical(src *image.RGBA, h int, c coefficients) *image.RGBA {
	w := src.Rect.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for yy := range h {
		lo, ks := c.start[yy], c.weights[yy]
		out := dst.Pix[yy*dst.Stride:]
		for x := range w {
			for ch := range Channels {
				acc := int32(1 << (precisionBits - 1))
				for i, k := range ks {
					acc += int32(src.Pix[(lo+i)*src.Stride+x*4+ch]) * k
				}
				out[x*4+ch] = clip8(acc)
			}
		}
	}
	return dst
}
