package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// Races lists races newest first. Optional limit and offset query params page the list.
func (h *Handler) Races(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultPageSize)
	if err != nil {
		return err
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return err
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	races, err := h.store.ListRaces(c.Request().Context(), limit, offset)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, races)
}

// Race returns one race with its leaderboard.
func (h *Handler) Race(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing race id")
	}

	race, err := h.store.RaceWithParticipants(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, race)
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" param")
	}
	return n, nil
}
