// Package metrics provides the Prometheus collectors for lungcheck.
package metrics

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Stage label values for diagnosis timings.
const (
	StageNormalize = "normalize"
	StageInfer     = "infer"
	StageTotal     = "total"
)

// Histogram bucket parameters shared across collectors.
const (
	BucketStart1ms  = 0.001
	BucketFactor2   = 2
	BucketCount12   = 12
	BucketStart1KB  = 1024
	BucketFactor4   = 4
	BucketCount8    = 8
	BucketStart100B = 100
	BucketFactor10  = 10
	BucketCount6    = 6
)
