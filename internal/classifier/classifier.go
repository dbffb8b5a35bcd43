// Package classifier owns the pneumonia model: weights loading, device placement and inference.
package classifier

import (
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/cpuspec"
	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/imaging"
	"github.com/tphakala/lungcheck/internal/logger"
)

// NumClasses is the size of the model's output head: NORMAL, PNEUMONIA.
const NumClasses = 2

// Device is the compute placement chosen at load time.
type Device string

const (
	DeviceCPU     Device = "cpu"
	DeviceXNNPACK Device = "xnnpack"
)

// Backend identifies which network serves inference.
type Backend string

const (
	BackendTFLite   Backend = "tflite"
	BackendFallback Backend = "fallback" // randomly initialised, weights artifact absent
)

// Config configures a Handle.
type Config struct {
	ModelPath   string
	Threads     int    // 0 picks a count from the CPU spec
	Accelerator string // conf.AcceleratorAuto, conf.AcceleratorCPU or conf.AcceleratorXNNPACK
}

// ConfigFromSettings builds a Config from the model section of settings.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		ModelPath:   s.Model.Path,
		Threads:     s.Model.Threads,
		Accelerator: s.Model.Accelerator,
	}
}

// ModelInfo describes the loaded classifier for health checks and logs.
type ModelInfo struct {
	Path     string  `json:"-"`
	Ready    bool    `json:"ready"`
	Trained  bool    `json:"trained"`
	Device   Device  `json:"device"`
	Backend  Backend `json:"backend"`
	Threads  int     `json:"threads"`
	LoadTime string  `json:"load_time,omitempty"`
}

// network is a loaded model able to score one tensor.
type network interface {
	infer(t imaging.Tensor) ([]float32, error)
	close()
}

// Handle is the process-wide classifier. Create one with New at startup and share it;
// Load runs at most once and Infer is safe for concurrent use.
type Handle struct {
	cfg   Config
	probe func() cpuspec.CPUSpec

	once    sync.Once
	loadErr error

	// set inside once, published through ready
	net      network
	device   Device
	backend  Backend
	threads  int
	loadTime time.Duration
	ready    atomic.Bool
	closed   atomic.Bool
}

// New creates an unloaded Handle.
func New(cfg Config) *Handle {
	return &Handle{cfg: cfg, probe: cpuspec.GetCPUSpec}
}

// Load reads the weights artifact and prepares the network. Only the first call does
// work; later calls return the first call's result. A missing artifact is not an
// error: the handle serves a randomly initialised network and Trained reports false.
func (h *Handle) Load() error {
	h.once.Do(func() {
		if h.closed.Load() {
			h.loadErr = closedError()
			return
		}
		h.loadErr = h.load()
		if h.loadErr == nil {
			h.ready.Store(true)
		}
	})
	return h.loadErr
}

func (h *Handle) load() error {
	start := time.Now()
	log := GetLogger()

	spec := h.probe()
	threads := h.cfg.Threads
	if threads <= 0 {
		threads = spec.GetOptimalThreadCount()
	}
	h.threads = threads

	data, err := os.ReadFile(h.cfg.ModelPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		h.net = newFallbackNetwork()
		h.device = DeviceCPU
		h.backend = BackendFallback
		h.loadTime = time.Since(start)
		log.Warn("model weights not found, serving randomly initialised classifier; predictions are not trustworthy",
			logger.String("model_path", h.cfg.ModelPath))
		return nil
	case err != nil:
		return errors.New(fmt.Errorf("cannot read model weights: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(h.cfg.ModelPath, string(BackendTFLite)).
			Timing("model-load", time.Since(start)).
			Build()
	}

	device := selectDevice(h.cfg.Accelerator, spec)
	net, device, err := newTFLiteNetwork(data, device, threads)
	if err != nil {
		return errors.New(err).
			Component("classifier").
			Category(errors.CategoryModelInit).
			ModelContext(h.cfg.ModelPath, string(BackendTFLite)).
			Context("model_size_kb", len(data)/1024).
			Context("device", string(device)).
			Timing("model-init", time.Since(start)).
			Build()
	}

	h.net = net
	h.device = device
	h.backend = BackendTFLite
	h.loadTime = time.Since(start)

	log.Info("pneumonia classifier loaded",
		logger.String("model_path", h.cfg.ModelPath),
		logger.String("device", string(device)),
		logger.String("cpu", spec.BrandName),
		logger.Int("threads", threads),
		logger.Duration("load_time", h.loadTime))
	return nil
}

// selectDevice resolves the configured accelerator preference against the CPU.
func selectDevice(accelerator string, spec cpuspec.CPUSpec) Device {
	switch accelerator {
	case conf.AcceleratorCPU:
		return DeviceCPU
	case conf.AcceleratorXNNPACK:
		return DeviceXNNPACK
	default:
		if spec.HasAccelerator() {
			return DeviceXNNPACK
		}
		return DeviceCPU
	}
}

// Infer scores one [1, 3, 224, 224] tensor and returns NumClasses raw scores.
// It loads the handle first if needed and fails once the handle is closed.
func (h *Handle) Infer(t imaging.Tensor) ([]float32, error) {
	if h.closed.Load() {
		return nil, closedError()
	}
	if err := h.Load(); err != nil {
		return nil, err
	}

	if err := t.Validate(); err != nil {
		return nil, inferenceError(err, "validate_input")
	}

	scores, err := h.net.infer(t)
	if err != nil {
		return nil, err
	}
	if len(scores) != NumClasses {
		return nil, inferenceError(fmt.Errorf("model returned %d scores, want %d", len(scores), NumClasses), "read_output")
	}
	return scores, nil
}

func closedError() error {
	return inferenceError(errors.NewStd("classifier is closed"), "infer")
}

func inferenceError(err error, op string) error {
	return errors.New(err).
		Component("classifier").
		Category(errors.CategoryInference).
		Context("operation", op).
		Build()
}

// Ready reports whether Load has completed successfully.
func (h *Handle) Ready() bool {
	return h.ready.Load()
}

// Trained reports whether real weights are loaded. False before Load and when
// serving the fallback network.
func (h *Handle) Trained() bool {
	return h.ready.Load() && h.backend == BackendTFLite
}

// Device returns the compute device, empty before Load.
func (h *Handle) Device() Device {
	if !h.ready.Load() {
		return ""
	}
	return h.device
}

// Info returns a snapshot of the handle state.
func (h *Handle) Info() ModelInfo {
	info := ModelInfo{Path: h.cfg.ModelPath}
	if !h.ready.Load() {
		return info
	}
	info.Ready = true
	info.Trained = h.backend == BackendTFLite
	info.Device = h.device
	info.Backend = h.backend
	info.Threads = h.threads
	info.LoadTime = h.loadTime.Round(time.Millisecond).String()
	return info
}

// Close releases the interpreter. Later Infer calls return an inference error and
// Ready reports false. Close is idempotent.
func (h *Handle) Close() {
	if h.closed.Swap(true) {
		return
	}
	if h.ready.Swap(false) && h.net != nil {
		h.net.close()
	}
}
