package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/lungcheck/internal/diagnosis"
	"github.com/tphakala/lungcheck/internal/errors"
)

// uploadField is the multipart form field carrying the image.
const uploadField = "file"

// Predict handles POST /predict: one multipart image in, one diagnosis out.
func (c *Controller) Predict(ctx echo.Context) error {
	header, err := ctx.FormFile(uploadField)
	if err != nil {
		return c.HandleError(ctx, invalidArgument(uploadField, "multipart field %q with an image file is required", uploadField))
	}

	file, err := header.Open()
	if err != nil {
		return c.HandleError(ctx, errors.New(fmt.Errorf("cannot open uploaded file: %w", err)).
			Component("api").
			Category(errors.CategoryFileIO).
			FileContext(header.Filename, header.Size).
			Build())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.HandleError(ctx, errors.New(fmt.Errorf("cannot read uploaded file: %w", err)).
			Component("api").
			Category(errors.CategoryFileIO).
			FileContext(header.Filename, header.Size).
			Build())
	}

	dto, err := c.service.Submit(ctx.Request().Context(), diagnosis.Upload{
		Filename:  header.Filename,
		MediaType: header.Header.Get(echo.HeaderContentType),
		Data:      data,
	})
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, dto)
}

// GetHistory handles GET /history?limit=N, newest first.
func (c *Controller) GetHistory(ctx echo.Context) error {
	limit := DefaultHistoryLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.HandleError(ctx, invalidArgument("limit", "limit must be an integer, got %q", raw))
		}
		limit = n
	}
	if limit < 0 {
		return c.HandleError(ctx, invalidArgument("limit", "limit must not be negative, got %d", limit))
	}

	if entries, ok := c.historyCache.Get(limit); ok {
		return ctx.JSON(http.StatusOK, entries)
	}

	generation := c.historyCache.Generation()
	entries, err := c.service.History(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	c.historyCache.Set(limit, entries, generation)
	return ctx.JSON(http.StatusOK, entries)
}
