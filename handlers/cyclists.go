package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SearchCyclists matches the q param against cyclist names.
func (h *Handler) SearchCyclists(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if len([]rune(q)) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "q param must hold at least 2 characters")
	}

	found, err := h.store.SearchCyclists(c.Request().Context(), q)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, found)
}

// Cyclist returns one cyclist by UCI ID.
func (h *Handler) Cyclist(c echo.Context) error {
	cy, err := h.store.Cyclist(c.Request().Context(), c.Param("uci"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, cy)
}

// CyclistHistory returns every result of a cyclist.
func (h *Handler) CyclistHistory(c echo.Context) error {
	ctx := c.Request().Context()
	uci := c.Param("uci")

	if _, err := h.store.Cyclist(ctx, uci); err != nil {
		return storeError(err)
	}
	hist, err := h.store.CyclistHistory(ctx, uci)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, hist)
}
