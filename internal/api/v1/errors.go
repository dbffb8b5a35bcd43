package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/logger"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// Generic messages for server-side failures; causes are logged, not returned.
const (
	msgInferenceFailed   = "diagnosis failed"
	msgPersistenceFailed = "could not store diagnosis"
	msgInternal          = "internal server error"
)

// HandleError maps err to a status code by its category and writes an ErrorResponse.
// Client-caused errors carry their own message; server errors get a generic one.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	code, message := classify(err)
	category := errors.GetCategory(err)
	errName := string(category)
	if errName == "" {
		errName = http.StatusText(code)
	}

	resp := ErrorResponse{
		Error:         errName,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID(ctx),
	}

	log := c.logger.WithContext(ctx.Request().Context())
	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("category", string(category)),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}

	switch errors.GetCategory(err) {
	case errors.CategoryInvalidImage, errors.CategoryInvalidArgument:
		return http.StatusBadRequest, clientMessage(err)
	case errors.CategoryInference:
		return http.StatusInternalServerError, msgInferenceFailed
	case errors.CategoryPersistence, errors.CategoryDatabase:
		return http.StatusInternalServerError, msgPersistenceFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// clientMessage returns the innermost message of a client error.
func clientMessage(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Err != nil {
		return ee.Err.Error()
	}
	return err.Error()
}

func correlationID(ctx echo.Context) string {
	if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return ctx.Request().Header.Get(echo.HeaderXRequestID)
}

// invalidArgument builds a client-caused error for a malformed request.
func invalidArgument(field, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("api").
		Category(errors.CategoryInvalidArgument).
		Context("field", field).
		Build()
}

// HTTPErrorHandler renders errors that escape handlers, such as unknown routes or
// oversized bodies, as ErrorResponse. Install it as echo.Echo.HTTPErrorHandler.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		code, _ := classify(err)
		_ = ctx.NoContent(code)
		return
	}
	if writeErr := c.HandleError(ctx, err); writeErr != nil {
		c.logger.Error("failed to write error response", logger.Error(writeErr))
	}
}
