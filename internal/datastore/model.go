package datastore

import "time"

// Labels persisted in the predictions table.
const (
	LabelNormal    = "NORMAL"
	LabelPneumonia = "PNEUMONIA"
)

// ValidLabel reports whether label belongs to the closed set of diagnosis labels.
func ValidLabel(label string) bool {
	return label == LabelNormal || label == LabelPneumonia
}

// PredictionRecord is one persisted diagnosis. Records are immutable once written.
type PredictionRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:255;not null" json:"filename"`
	Label      string    `gorm:"column:prediction;size:50;not null" json:"prediction"`
	Confidence float64   `gorm:"not null" json:"confidence"`
	CreatedAt  time.Time `gorm:"index:idx_predictions_created_at;not null" json:"created_at"`
}

// TableName pins the table name independent of the naming strategy.
func (PredictionRecord) TableName() string {
	return "predictions"
}
