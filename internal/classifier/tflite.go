package classifier

import (
	"fmt"
	"sync"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/imaging"
	"github.com/tphakala/lungcheck/internal/logger"
)

// tfliteNetwork runs the exported ResNet18. The interpreter owns mutable input and
// output buffers, so invocations are serialised.
type tfliteNetwork struct {
	mu       sync.Mutex
	model    *tflite.Model
	options  *tflite.InterpreterOptions
	delegate interface{ Delete() }
	interp   *tflite.Interpreter
	nhwc     bool
}

func newTFLiteNetwork(data []byte, device Device, threads int) (*tfliteNetwork, Device, error) {
	model := tflite.NewModel(data)
	if model == nil {
		return nil, device, fmt.Errorf("cannot load TensorFlow Lite model")
	}

	n := &tfliteNetwork{model: model}
	n.options = tflite.NewInterpreterOptions()

	if device == DeviceXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads))}) //nolint:gosec // G115: thread count bounded by CPU count
		if delegate == nil {
			GetLogger().Warn("failed to create XNNPACK delegate, falling back to CPU")
			device = DeviceCPU
			n.options.SetNumThread(threads)
		} else {
			n.delegate = delegate
			n.options.AddDelegate(delegate)
			n.options.SetNumThread(1)
		}
	} else {
		n.options.SetNumThread(threads)
	}

	n.options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	n.interp = tflite.NewInterpreter(model, n.options)
	if n.interp == nil {
		n.close()
		return nil, device, fmt.Errorf("cannot create interpreter")
	}
	if status := n.interp.AllocateTensors(); status != tflite.OK {
		n.close()
		return nil, device, fmt.Errorf("tensor allocation failed")
	}

	if err := n.validateShapes(); err != nil {
		n.close()
		return nil, device, err
	}
	return n, device, nil
}

// validateShapes accepts NCHW or NHWC float inputs of the normalizer's size and a
// two-class output head.
func (n *tfliteNetwork) validateShapes() error {
	in := n.interp.GetInputTensor(0)
	if in == nil || in.NumDims() != 4 {
		return fmt.Errorf("model input must be a rank 4 tensor")
	}

	dims := [4]int{in.Dim(0), in.Dim(1), in.Dim(2), in.Dim(3)}
	switch dims {
	case imaging.InputShape:
		n.nhwc = false
	case [4]int{1, imaging.InputSize, imaging.InputSize, imaging.Channels}:
		n.nhwc = true
	default:
		return fmt.Errorf("model input shape %v is neither NCHW %v nor NHWC", dims, imaging.InputShape)
	}
	if got, want := len(in.Float32s()), imaging.NewTensor().Len(); got != want {
		return fmt.Errorf("model input must be float32 with %d values, got %d", want, got)
	}

	out := n.interp.GetOutputTensor(0)
	if out == nil || out.NumDims() == 0 {
		return fmt.Errorf("model has no output tensor")
	}
	if classes := out.Dim(out.NumDims() - 1); classes != NumClasses {
		return fmt.Errorf("model output head has %d classes, want %d", classes, NumClasses)
	}
	return nil
}

func (n *tfliteNetwork) infer(t imaging.Tensor) ([]float32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.interp == nil {
		return nil, inferenceError(errors.NewStd("interpreter is closed"), "invoke")
	}
	input := n.interp.GetInputTensor(0).Float32s()
	if len(input) != t.Len() {
		return nil, inferenceError(fmt.Errorf("input tensor holds %d values, got %d", len(input), t.Len()), "copy_input")
	}
	if n.nhwc {
		t.CopyNHWC(input)
	} else {
		copy(input, t.Data)
	}

	if status := n.interp.Invoke(); status != tflite.OK {
		return nil, inferenceError(fmt.Errorf("tensor invoke failed with status %v", status), "invoke")
	}

	return extractScores(n.interp.GetOutputTensor(0)), nil
}

func extractScores(tensor *tflite.Tensor) []float32 {
	size := tensor.Dim(tensor.NumDims() - 1)
	scores := make([]float32, size)
	copy(scores, tensor.Float32s())
	return scores
}

func (n *tfliteNetwork) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.interp != nil {
		n.interp.Delete()
		n.interp = nil
	}
	if n.delegate != nil {
		n.delegate.Delete()
		n.delegate = nil
	}
	if n.options != nil {
		n.options.Delete()
		n.options = nil
	}
	if n.model != nil {
		n.model.Delete()
		n.model = nil
	}
}
