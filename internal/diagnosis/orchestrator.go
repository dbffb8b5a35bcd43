// Package diagnosis turns uploaded chest X-ray images into labelled, persisted diagnoses.
package diagnosis

import (
	"fmt"
	"math"
	"time"

	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/imaging"
	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

// Scorer produces raw class scores for one normalized tensor.
// *classifier.Handle satisfies it.
type Scorer interface {
	Infer(t imaging.Tensor) ([]float32, error)
}

// Normalizer converts encoded image bytes into a model input tensor.
type Normalizer func(data []byte) (imaging.Tensor, error)

// Result is the outcome of one diagnosis.
type Result struct {
	Label      string
	Confidence float64 // rounded to 4 decimals
}

// Orchestrator runs normalize, infer and softmax for one image.
type Orchestrator struct {
	scorer    Scorer
	normalize Normalizer
	metrics   *metrics.DiagnosisMetrics
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithNormalizer replaces imaging.Normalize.
func WithNormalizer(n Normalizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if n != nil {
			o.normalize = n
		}
	}
}

// WithMetrics records per-stage timings and outcomes.
func WithMetrics(m *metrics.DiagnosisMetrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an Orchestrator around scorer.
func NewOrchestrator(scorer Scorer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		scorer:    scorer,
		normalize: imaging.Normalize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Diagnose classifies one encoded image. Normalizer and scorer errors are returned
// unchanged.
func (o *Orchestrator) Diagnose(data []byte) (Result, error) {
	start := time.Now()

	tensor, err := o.normalize(data)
	if err != nil {
		o.recordError(err)
		return Result{}, err
	}
	o.recordStage(metrics.StageNormalize, start)

	inferStart := time.Now()
	scores, err := o.scorer.Infer(tensor)
	if err != nil {
		o.recordError(err)
		return Result{}, err
	}
	o.recordStage(metrics.StageInfer, inferStart)

	if err := checkScores(scores); err != nil {
		o.recordError(err)
		return Result{}, err
	}

	probs := Softmax(scores)
	best := argmax(probs)
	result := Result{
		Label:      Labels[best],
		Confidence: RoundConfidence(probs[best]),
	}

	o.recordStage(metrics.StageTotal, start)
	if o.metrics != nil {
		o.metrics.RecordDiagnosis(result.Label, result.Confidence)
	}
	return result, nil
}

// checkScores rejects output that cannot be turned into a probability: the wrong
// number of classes, or any NaN or infinite score.
func checkScores(scores []float32) error {
	if len(scores) != len(Labels) {
		return scoreError(fmt.Errorf("classifier returned %d scores, want %d", len(scores), len(Labels)))
	}
	for i, s := range scores {
		if v := float64(s); math.IsNaN(v) || math.IsInf(v, 0) {
			return scoreError(fmt.Errorf("classifier returned non-finite score %v for %s", v, Labels[i]))
		}
	}
	return nil
}

func scoreError(err error) error {
	return errors.New(err).
		Component("diagnosis").
		Category(errors.CategoryInference).
		Context("operation", "softmax").
		Build()
}

func (o *Orchestrator) recordStage(stage string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStage(stage, time.Since(start).Seconds())
	}
}

func (o *Orchestrator) recordError(err error) {
	if o.metrics != nil {
		o.metrics.RecordError(string(errors.GetCategory(err)))
	}
}
