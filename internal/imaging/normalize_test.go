package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lungcheck/internal/errors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// radiograph returns a grayscale gradient resembling a chest film
func radiograph(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*3) % 256)})
		}
	}
	return img
}

func uniform(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNormalizeShape(t *testing.T) {
	t.Parallel()

	inputs := map[string][]byte{
		"gray png":       encodePNG(t, radiograph(512, 512)),
		"wide png":       encodePNG(t, radiograph(300, 100)),
		"tiny png":       encodePNG(t, radiograph(3, 5)),
		"exact size png": encodePNG(t, radiograph(InputSize, InputSize)),
		"color jpeg":     encodeJPEG(t, uniform(640, 480, color.NRGBA{R: 90, G: 140, B: 200, A: 255})),
	}

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tensor, err := Normalize(data)
			require.NoError(t, err)
			assert.Equal(t, [4]int{1, 3, 224, 224}, tensor.Shape)
			assert.Len(t, tensor.Data, 3*224*224)
			assert.NoError(t, tensor.Validate())
		})
	}
}

func TestNormalizeValuesWithinStandardizedRange(t *testing.T) {
	t.Parallel()

	tensor, err := Normalize(encodeJPEG(t, radiograph(400, 380)))
	require.NoError(t, err)

	for c := 0; c < Channels; c++ {
		lo, hi := Range(c)
		for y := 0; y < InputSize; y++ {
			for x := 0; x < InputSize; x++ {
				v := tensor.At(c, y, x)
				if v < lo || v > hi {
					t.Fatalf("channel %d value %f at (%d,%d) outside [%f, %f]", c, v, x, y, lo, hi)
				}
			}
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	t.Parallel()

	data := encodeJPEG(t, radiograph(333, 250))
	first, err := Normalize(data)
	require.NoError(t, err)
	second, err := Normalize(data)
	require.NoError(t, err)

	assert.Equal(t, first.Shape, second.Shape)
	require.Len(t, second.Data, len(first.Data))
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("value %d differs between runs: %v vs %v", i, first.Data[i], second.Data[i])
		}
	}
}

func TestNormalizeUsesPinnedConstants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [3]float32{0.485, 0.456, 0.406}, Mean)
	assert.Equal(t, [3]float32{0.229, 0.224, 0.225}, Std)

	// a flat mid-gray film standardizes to a known value per channel
	gray := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}
	tensor, err := Normalize(encodePNG(t, gray))
	require.NoError(t, err)

	for c := 0; c < Channels; c++ {
		want := (float32(128)/255 - Mean[c]) / Std[c]
		assert.InDelta(t, want, tensor.At(c, 0, 0), 1e-6, "channel %d", c)
		assert.InDelta(t, want, tensor.At(c, 223, 111), 1e-6, "channel %d", c)
	}
}

func TestNormalizeGrayscaleReplicatesChannels(t *testing.T) {
	t.Parallel()

	tensor, err := Normalize(encodePNG(t, radiograph(256, 256)))
	require.NoError(t, err)

	for _, p := range [][2]int{{0, 0}, {17, 200}, {223, 223}, {100, 5}} {
		y, x := p[0], p[1]
		r := tensor.At(0, y, x)*Std[0] + Mean[0]
		g := tensor.At(1, y, x)*Std[1] + Mean[1]
		b := tensor.At(2, y, x)*Std[2] + Mean[2]
		assert.InDelta(t, r, g, 1e-5)
		assert.InDelta(t, r, b, 1e-5)
	}
}

func TestNormalizeDropsAlphaWithoutCompositing(t *testing.T) {
	t.Parallel()

	translucent := uniform(32, 32, color.NRGBA{R: 200, G: 100, B: 50, A: 10})
	tensor, err := Normalize(encodePNG(t, translucent))
	require.NoError(t, err)

	want := [3]uint8{200, 100, 50}
	for c := 0; c < Channels; c++ {
		expected := (float32(want[c])/255 - Mean[c]) / Std[c]
		assert.InDelta(t, expected, tensor.At(c, 112, 112), 1e-5, "channel %d", c)
	}
}

func TestNormalizeRejectsUndecodableBytes(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"truncated": encodePNG(t, radiograph(64, 64))[:40],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(data)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryInvalidImage), "got %v", err)
			assert.True(t, errors.ClientCaused(err))
		})
	}
}

func TestCopyNHWC(t *testing.T) {
	t.Parallel()

	tensor := NewTensor()
	for i := range tensor.Data {
		tensor.Data[i] = float32(i)
	}
	dst := make([]float32, tensor.Len())
	tensor.CopyNHWC(dst)

	// pixel (y=1, x=2), channel 2
	const plane = InputSize * InputSize
	idx := 1*InputSize + 2
	assert.Equal(t, tensor.Data[2*plane+idx], dst[idx*3+2])
	assert.Equal(t, tensor.At(0, 0, 0), dst[0])
	assert.Equal(t, tensor.At(1, 0, 0), dst[1])
}

func TestTensorValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewTensor().Validate())
	assert.Error(t, Tensor{Shape: [4]int{1, 1, 224, 224}, Data: make([]float32, 224*224)}.Validate())
	assert.Error(t, Tensor{Shape: InputShape, Data: make([]float32, 10)}.Validate())
}
