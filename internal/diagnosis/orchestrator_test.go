package diagnosis

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/imaging"
)

type mockScorer struct {
	mock.Mock
}

func (m *mockScorer) Infer(t imaging.Tensor) ([]float32, error) {
	args := m.Called(t)
	scores, _ := args.Get(0).([]float32)
	return scores, args.Error(1)
}

// stubNormalizer skips decoding so arbitrary bytes reach the scorer.
func stubNormalizer(data []byte) (imaging.Tensor, error) {
	return imaging.NewTensor(), nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := range 48 {
		for x := range 64 {
			img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDiagnosePneumonia(t *testing.T) {
	t.Parallel()

	scorer := &mockScorer{}
	scorer.On("Infer", mock.Anything).Return([]float32{-1, 5}, nil).Once()

	o := NewOrchestrator(scorer, WithNormalizer(stubNormalizer))
	got, err := o.Diagnose([]byte("arbitrary bytes"))
	require.NoError(t, err)

	assert.Equal(t, LabelPneumonia, got.Label)
	assert.InDelta(t, 0.9975, got.Confidence, 0)
	scorer.AssertExpectations(t)
}

func TestDiagnoseNormal(t *testing.T) {
	t.Parallel()

	scorer := &mockScorer{}
	scorer.On("Infer", mock.Anything).Return([]float32{2, 0}, nil)

	got, err := NewOrchestrator(scorer, WithNormalizer(stubNormalizer)).Diagnose(nil)
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, got.Label)
	assert.InDelta(t, 0.8808, got.Confidence, 0)
}

func TestDiagnoseTieGoesToNormal(t *testing.T) {
	t.Parallel()

	scorer := &mockScorer{}
	scorer.On("Infer", mock.Anything).Return([]float32{0.3, 0.3}, nil)

	got, err := NewOrchestrator(scorer, WithNormalizer(stubNormalizer)).Diagnose(nil)
	require.NoError(t, err)
	assert.Equal(t, LabelNormal, got.Label)
	assert.InDelta(t, 0.5, got.Confidence, 0)
}

func TestDiagnoseRealImage(t *testing.T) {
	t.Parallel()

	scorer := &mockScorer{}
	scorer.On("Infer", mock.MatchedBy(func(t imaging.Tensor) bool {
		return t.Shape == imaging.InputShape && t.Validate() == nil
	})).Return([]float32{0.1, 0.4}, nil)

	got, err := NewOrchestrator(scorer).Diagnose(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, LabelPneumonia, got.Label)
	scorer.AssertExpectations(t)
}

func TestDiagnosePropagatesNormalizerError(t *testing.T) {
	t.Parallel()

	scorer := &mockScorer{}
	o := NewOrchestrator(scorer)

	_, err := o.Diagnose([]byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInvalidImage))
	scorer.AssertNotCalled(t, "Infer", mock.Anything)
}

func TestDiagnosePropagatesScorerErrorUnchanged(t *testing.T) {
	t.Parallel()

	cause := errors.Newf("invoke failed").Category(errors.CategoryInference).Build()
	scorer := &mockScorer{}
	scorer.On("Infer", mock.Anything).Return(nil, cause)

	_, err := NewOrchestrator(scorer, WithNormalizer(stubNormalizer)).Diagnose(nil)
	require.Error(t, err)
	assert.Same(t, cause, err)
}

func TestDiagnoseRejectsWrongScoreCount(t *testing.T) {
	t.Parallel()

	for _, scores := range [][]float32{{}, {1}, {1, 2, 3}} {
		scorer := &mockScorer{}
		scorer.On("Infer", mock.Anything).Return(scores, nil)

		_, err := NewOrchestrator(scorer, WithNormalizer(stubNormalizer)).Diagnose(nil)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryInference))
	}
}

func TestDiagnoseRejectsNonFiniteScores(t *testing.T) {
	t.Parallel()

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := map[string][]float32{
		"nan normal":        {nan, 1},
		"nan pneumonia":     {0, nan},
		"positive infinity": {inf, 0},
		"negative infinity": {0, -inf},
		"both infinite":     {inf, inf},
	}

	for name, scores := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			scorer := &mockScorer{}
			scorer.On("Infer", mock.Anything).Return(scores, nil)

			result, err := NewOrchestrator(scorer, WithNormalizer(stubNormalizer)).Diagnose(nil)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryInference))
			assert.Equal(t, Result{}, result)
		})
	}
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	probs := Softmax([]float32{-1, 5})
	require.Len(t, probs, 2)
	assert.InDelta(t, 1, probs[0]+probs[1], 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-6)), probs[1], 1e-9)

	// large scores must not overflow
	big := Softmax([]float32{1000, 1001})
	assert.False(t, math.IsNaN(big[0]) || math.IsNaN(big[1]))
	assert.InDelta(t, 1/(1+math.Exp(-1)), big[1], 1e-9)

	assert.Nil(t, Softmax(nil))
}

func TestRoundConfidence(t *testing.T) {
	t.Parallel()

	cases := map[float64]float64{
		0.99752737: 0.9975,
		0.12346:    0.1235,
		0.5:        0.5,
		1:          1,
		0.00004:    0,
	}
	for in, want := range cases {
		assert.InDelta(t, want, RoundConfidence(in), 1e-12, "RoundConfidence(%v)", in)
	}
}
