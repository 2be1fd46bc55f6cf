package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports whether the database answers.
func (h *Handler) Health(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns the database totals.
func (h *Handler) Stats(c echo.Context) error {
	st, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// ScrapingInfo returns the totals recorded by the last scrape run.
func (h *Handler) ScrapingInfo(c echo.Context) error {
	info, err := h.store.LatestScrapingInfo(c.Request().Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, info)
}
