package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/cyclingapi/middleware"
)

// Register mounts the API routes on e. Everything except health and signin
// requires a valid JWT.
func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api")

	// Public
	api.GET("/health", h.Health)
	api.POST("/signin", h.Signin)

	// Protected – require valid JWT in Authorization header
	p := api.Group("", mw.JWT(h.JWTKey))
	p.GET("/stats", h.Stats)
	p.GET("/scraping-info", h.ScrapingInfo)
	p.GET("/races", h.Races)
	p.GET("/races/:id", h.Race)
	p.GET("/cyclists/search", h.SearchCyclists)
	p.GET("/cyclists/:uci", h.Cyclist)
	p.GET("/cyclists/:uci/history", h.CyclistHistory)
	p.POST("/password-hash", h.PasswordHash)
}
