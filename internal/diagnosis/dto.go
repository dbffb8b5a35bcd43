package diagnosis

import (
	"time"

	"github.com/tphakala/lungcheck/internal/datastore"
)

// DTO is the outward representation of a diagnosis, both fresh and from history.
type DTO struct {
	Filename   string    `json:"filename"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"` // RFC 3339
}

// NewDTO converts a stored record.
func NewDTO(rec datastore.PredictionRecord) DTO {
	return DTO{
		Filename:   rec.Filename,
		Prediction: rec.Label,
		Confidence: rec.Confidence,
		Timestamp:  rec.CreatedAt,
	}
}

func newDTOs(records []datastore.PredictionRecord) []DTO {
	out := make([]DTO, len(records))
	for i, rec := range records {
		out[i] = NewDTO(rec)
	}
	return out
}
