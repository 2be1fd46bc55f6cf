package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/padraicbc/cyclingapi/store"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db         *bun.DB
	store      *store.Store
	JWTKey     []byte
	adminUsers []string
}

// New creates a Handler over st with the given JWT signing key and admin usernames.
func New(st *store.Store, jwtKey []byte, adminUsers []string) *Handler {
	return &Handler{db: st.DB(), store: st, JWTKey: jwtKey, adminUsers: adminUsers}
}

func (h *Handler) isAdminUser(username string) bool {
	normalized := strings.ToLower(strings.TrimSpace(username))
	for _, admin := range h.adminUsers {
		if normalized == strings.ToLower(strings.TrimSpace(admin)) {
			return true
		}
	}
	return false
}

// storeError maps store lookups to HTTP errors.
func storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
