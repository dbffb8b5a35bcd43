package classifier

import (
	"math"
	"math/rand/v2"

	"github.com/tphakala/lungcheck/internal/imaging"
)

// Fallback network geometry: adaptive average pool to 3x8x8, dense 192->16, ReLU, dense 16->2.
const (
	poolSize       = 8
	poolFeatures   = imaging.Channels * poolSize * poolSize
	hiddenFeatures = 16
)

// fallbackSeed fixes the random initialisation so untrained scores are reproducible.
const fallbackSeed = 0x6c756e67

// fallbackNetwork stands in for the real model when no weights artifact exists. Its
// parameters are written once in newFallbackNetwork and only read afterwards.
type fallbackNetwork struct {
	w1 [hiddenFeatures][poolFeatures]float32
	b1 [hiddenFeatures]float32
	w2 [NumClasses][hiddenFeatures]float32
	b2 [NumClasses]float32
}

func newFallbackNetwork() *fallbackNetwork {
	rng := rand.New(rand.NewPCG(fallbackSeed, fallbackSeed>>1))
	n := &fallbackNetwork{}

	// uniform(-1/sqrt(fan_in), 1/sqrt(fan_in)), the usual dense layer default
	bound1 := 1 / math.Sqrt(poolFeatures)
	for i := range n.w1 {
		for j := range n.w1[i] {
			n.w1[i][j] = uniform(rng, bound1)
		}
		n.b1[i] = uniform(rng, bound1)
	}
	bound2 := 1 / math.Sqrt(hiddenFeatures)
	for i := range n.w2 {
		for j := range n.w2[i] {
			n.w2[i][j] = uniform(rng, bound2)
		}
		n.b2[i] = uniform(rng, bound2)
	}
	return n
}

func uniform(rng *rand.Rand, bound float64) float32 {
	return float32((rng.Float64()*2 - 1) * bound)
}

func (n *fallbackNetwork) infer(t imaging.Tensor) ([]float32, error) {
	features := pool(t)

	var hidden [hiddenFeatures]float32
	for i := range hidden {
		sum := n.b1[i]
		for j, f := range features {
			sum += n.w1[i][j] * f
		}
		hidden[i] = max(0, sum)
	}

	scores := make([]float32, NumClasses)
	for i := range scores {
		sum := n.b2[i]
		for j, h := range hidden {
			sum += n.w2[i][j] * h
		}
		scores[i] = sum
	}
	return scores, nil
}

// pool averages each channel over a poolSize x poolSize grid of equal cells.
func pool(t imaging.Tensor) [poolFeatures]float32 {
	const cell = imaging.InputSize / poolSize
	var out [poolFeatures]float32

	for c := 0; c < imaging.Channels; c++ {
		for gy := 0; gy < poolSize; gy++ {
			for gx := 0; gx < poolSize; gx++ {
				var sum float32
				for y := gy * cell; y < (gy+1)*cell; y++ {
					for x := gx * cell; x < (gx+1)*cell; x++ {
						sum += t.At(c, y, x)
					}
				}
				out[c*poolSize*poolSize+gy*poolSize+gx] = sum / (cell * cell)
			}
		}
	}
	return out
}

func (n *fallbackNetwork) close() {}
