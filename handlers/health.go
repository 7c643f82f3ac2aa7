package handlers

import (
	"net/http"

	"github.com/flashtalk/flashtalk/registry"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db       *gorm.DB
	registry *registry.Registry
}

func NewHealthHandler(db *gorm.DB, reg *registry.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: reg}
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":      status,
		"connections": h.registry.Count(),
	})
}
