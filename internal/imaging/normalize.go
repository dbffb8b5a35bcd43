// Package imaging turns uploaded radiograph bytes into the classifier's input tensor.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	// Registered decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tphakala/lungcheck/internal/errors"
)

// InputSize is the square spatial resolution the classifier was trained on.
const InputSize = 224

// Channels is the number of colour planes in the tensor.
const Channels = 3

// Per-channel standardization constants (ImageNet statistics, RGB order).
// These are part of the model contract; changing them silently degrades accuracy.
var (
	Mean = [Channels]float32{0.485, 0.456, 0.406}
	Std  = [Channels]float32{0.229, 0.224, 0.225}
)

// Normalize decodes data, forces it to RGB, resizes to InputSize x InputSize and
// standardizes it into a [1, 3, 224, 224] NCHW tensor. It has no side effects;
// identical input bytes always produce a bit-identical tensor.
func Normalize(data []byte) (Tensor, error) {
	if len(data) == 0 {
		return Tensor{}, invalidImage(errors.NewStd("empty image payload"), "decode", 0, "")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, invalidImage(fmt.Errorf("cannot decode image: %w", err), "decode", len(data), "")
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Tensor{}, invalidImage(fmt.Errorf("image has zero size %dx%d", b.Dx(), b.Dy()), "decode", len(data), format)
	}

	resized := resample(toRGB(img), InputSize, InputSize, ResizeKernel)
	return toTensor(resized), nil
}

func invalidImage(err error, op string, size int, format string) error {
	eb := errors.New(err).
		Component("imaging").
		Category(errors.CategoryInvalidImage).
		Context("operation", op).
		Context("payload_bytes", size)
	if format != "" {
		eb = eb.Context("format", format)
	}
	return eb.Build()
}

// toRGB converts any decoded colour model to opaque 8-bit RGB. Grayscale replicates
// into all three channels and alpha is dropped without compositing.
func toRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			srcRow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()]
			dstRow := dst.Pix[y*dst.Stride:]
			for x, v := range srcRow {
				i := x * 4
				dstRow[i], dstRow[i+1], dstRow[i+2], dstRow[i+3] = v, v, v, 0xff
			}
		}
	case *image.YCbCr, *image.RGBA:
		// opaque sources convert exactly through draw
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		forceOpaque(dst)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, 0xff
			}
		}
	}
	return dst
}

func forceOpaque(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}

// toTensor scales 8-bit samples to [0,1] and standardizes each channel plane.
func toTensor(img *image.RGBA) Tensor {
	const plane = InputSize * InputSize
	t := NewTensor()

	for y := 0; y < InputSize; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < InputSize; x++ {
			p := x * 4
			idx := y*InputSize + x
			for c := 0; c < Channels; c++ {
				v := float32(row[p+c]) / 255
				t.Data[c*plane+idx] = (v - Mean[c]) / Std[c]
			}
		}
	}
	return t
}
