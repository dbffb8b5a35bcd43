// Package cpuspec probes the host CPU once to choose the inference device and thread count.
package cpuspec

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains the CPU properties relevant to model placement
type CPUSpec struct {
	BrandName     string
	Vendor        string
	LogicalCores  int
	PhysicalCores int
	// SIMD names the widest vector extension XNNPACK can use, empty if none
	SIMD string
}

var (
	probeOnce sync.Once
	probed    CPUSpec
)

// GetCPUSpec returns the host CPU specification, probed on first use
func GetCPUSpec() CPUSpec {
	probeOnce.Do(func() {
		probed = CPUSpec{
			BrandName:     cpuid.CPU.BrandName,
			Vendor:        cpuid.CPU.VendorString,
			LogicalCores:  cpuid.CPU.LogicalCores,
			PhysicalCores: cpuid.CPU.PhysicalCores,
			SIMD:          detectSIMD(),
		}
	})
	return probed
}

func detectSIMD() string {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512BW):
		return "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2, cpuid.FMA3):
		return "avx2"
	case cpuid.CPU.Supports(cpuid.SSE4):
		return "sse4"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		return "neon"
	default:
		return ""
	}
}

// HasAccelerator reports whether the XNNPACK delegate has a vector path on this CPU.
func (c CPUSpec) HasAccelerator() bool {
	return c.SIMD != ""
}

// GetOptimalThreadCount returns the interpreter thread count to use when none is configured
func (c CPUSpec) GetOptimalThreadCount() int {
	availableCPUs := runtime.NumCPU()

	threads := c.PhysicalCores
	if threads <= 0 {
		threads = c.LogicalCores
	}
	if threads <= 0 || threads > availableCPUs {
		threads = availableCPUs
	}
	return max(1, threads)
}
