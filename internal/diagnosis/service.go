package diagnosis

import (
	"context"
	"time"

	"github.com/tphakala/lungcheck/internal/datastore"
	"github.com/tphakala/lungcheck/internal/imaging"
	"github.com/tphakala/lungcheck/internal/logger"
)

// Upload is one submitted image with its caller-declared metadata.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Service is the diagnosis boundary: validate, diagnose, persist, report.
type Service struct {
	orch     *Orchestrator
	store    datastore.Store
	onAppend []func(DTO)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// OnAppend registers fn to run after each record is persisted.
func OnAppend(fn func(DTO)) ServiceOption {
	return func(s *Service) {
		s.onAppend = append(s.onAppend, fn)
	}
}

// NewService creates a Service.
func NewService(orch *Orchestrator, store datastore.Store, opts ...ServiceOption) *Service {
	s := &Service{orch: orch, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit diagnoses and stores one upload. The declared media type is checked before
// any decoding.
func (s *Service) Submit(ctx context.Context, up Upload) (DTO, error) {
	log := GetLogger().WithContext(ctx)
	start := time.Now()

	if check := imaging.ValidateMediaType(up.MediaType); !check.Valid {
		log.Info("upload rejected",
			logger.String("filename", up.Filename),
			logger.String("media_type", up.MediaType),
			logger.String("reason", check.Reason))
		return DTO{}, check.Err()
	}
	if s.orch.metrics != nil {
		s.orch.metrics.RecordUpload(len(up.Data))
	}

	result, err := s.orch.Diagnose(up.Data)
	if err != nil {
		return DTO{}, err
	}

	rec, err := s.store.Append(ctx, up.Filename, result.Label, result.Confidence)
	if err != nil {
		return DTO{}, err
	}

	dto := NewDTO(rec)
	for _, fn := range s.onAppend {
		fn(dto)
	}

	log.Info("diagnosis complete",
		logger.String("filename", up.Filename),
		logger.String("prediction", result.Label),
		logger.Float64("confidence", result.Confidence),
		logger.Duration("elapsed", time.Since(start)))
	return dto, nil
}

// History returns up to limit diagnoses, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]DTO, error) {
	records, err := s.store.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	return newDTOs(records), nil
}

// Count returns the number of stored diagnoses.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
