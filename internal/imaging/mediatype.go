package imaging

import (
	"mime"
	"strings"

	"github.com/tphakala/lungcheck/internal/errors"
)

// MediaTypeCheck is the outcome of validating a declared upload media type.
type MediaTypeCheck struct {
	MediaType string // parsed type without parameters, lower case
	Valid     bool
	Reason    string // human-readable rejection reason, empty when Valid
}

// ValidateMediaType accepts any image/* media type. It only inspects the declared
// type; the payload itself is not looked at.
func ValidateMediaType(declared string) MediaTypeCheck {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return MediaTypeCheck{Reason: "file must be an image: no content type declared"}
	}

	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return MediaTypeCheck{MediaType: strings.ToLower(declared), Reason: "file must be an image: malformed content type"}
	}

	if !strings.HasPrefix(mediaType, "image/") || len(mediaType) == len("image/") {
		return MediaTypeCheck{MediaType: mediaType, Reason: "file must be an image, got " + mediaType}
	}
	return MediaTypeCheck{MediaType: mediaType, Valid: true}
}

// Err returns nil for a valid check and an invalid-image error otherwise.
func (c MediaTypeCheck) Err() error {
	if c.Valid {
		return nil
	}
	return errors.New(errors.NewStd(c.Reason)).
		Component("imaging").
		Category(errors.CategoryInvalidImage).
		Context("operation", "validate_media_type").
		Context("media_type", c.MediaType).
		Build()
}
