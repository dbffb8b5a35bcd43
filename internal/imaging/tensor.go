package imaging

import (
	"fmt"
)

// InputShape is the only tensor shape the classifier accepts: batch, channels, height, width.
var InputShape = [4]int{1, Channels, InputSize, InputSize}

// Tensor is a dense float32 tensor in NCHW order.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// NewTensor allocates a zeroed tensor of InputShape.
func NewTensor() Tensor {
	return Tensor{
		Shape: InputShape,
		Data:  make([]float32, InputShape[0]*InputShape[1]*InputShape[2]*InputShape[3]),
	}
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// Validate reports whether t has InputShape and a matching data length.
func (t Tensor) Validate() error {
	if t.Shape != InputShape {
		return fmt.Errorf("tensor shape %v, want %v", t.Shape, InputShape)
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("tensor holds %d values, shape %v needs %d", len(t.Data), t.Shape, t.Len())
	}
	return nil
}

// At returns the value at channel c, row y, column x of the first batch entry.
func (t Tensor) At(c, y, x int) float32 {
	h, w := t.Shape[2], t.Shape[3]
	return t.Data[c*h*w+y*w+x]
}

// CopyNHWC writes t into dst in batch, height, width, channel order.
// dst must hold t.Len() values.
func (t Tensor) CopyNHWC(dst []float32) {
	ch, h, w := t.Shape[1], t.Shape[2], t.Shape[3]
	plane := h * w
	for i := 0; i < plane; i++ {
		for c := 0; c < ch; c++ {
			dst[i*ch+c] = t.Data[c*plane+i]
		}
	}
}

// Range returns the lowest and highest standardized value channel c can take,
// i.e. the images of 0 and 1 under (v - Mean[c]) / Std[c].
func Range(c int) (lo, hi float32) {
	return (0 - Mean[c]) / Std[c], (1 - Mean[c]) / Std[c]
}
