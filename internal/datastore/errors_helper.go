package datastore

import (
	"fmt"
	"strings"

	"github.com/tphakala/lungcheck/internal/errors"
)

// persistenceError wraps a failed write or read of stored predictions.
func persistenceError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryPersistence).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder.Build()
}

// invalidArgument rejects caller input before storage is touched.
func invalidArgument(field string, value any, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("datastore").
		Category(errors.CategoryInvalidArgument).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// databaseError covers connection and schema failures.
func databaseError(err error, operation, backend string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Context("operation", operation).
		Context("backend", backend).
		Build()
}

// categorizeError returns a metrics label for err.
func categorizeError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "locked") || strings.Contains(msg, "busy"):
		return "lock"
	case strings.Contains(msg, "constraint"):
		return "constraint"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "closed"):
		return "connection"
	case strings.Contains(msg, "canceled"):
		return "canceled"
	default:
		return "unknown"
	}
}
