package diagnosis

import "github.com/tphakala/lungcheck/internal/datastore"

// Diagnosis labels by output index.
const (
	LabelNormal    = datastore.LabelNormal    // index 0
	LabelPneumonia = datastore.LabelPneumonia // index 1
)

// Labels maps classifier output indices to labels.
var Labels = [...]string{LabelNormal, LabelPneumonia}
