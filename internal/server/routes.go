package server

import (
	"github.com/labstack/echo/v4"

	"pos/internal/handler"
	"pos/internal/middleware"
)

type Handlers struct {
	Transactions *handler.TransactionHandler
	Inventory    *handler.InventoryHandler
	AuditLogs    *handler.AuditLogHandler
	Health       *handler.HealthHandler
}

func RegisterRoutes(e *echo.Echo, jwtSecret string, h Handlers) {
	auth := middleware.AuthJWT(jwtSecret)

	h.Health.RegisterRoutes(e)
	h.Transactions.RegisterRoutes(e, auth)
	h.Inventory.RegisterRoutes(e, auth)
	h.AuditLogs.RegisterRoutes(e, auth)
}
