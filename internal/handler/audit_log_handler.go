package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"pos/internal/middleware"
	"pos/internal/usecase"
)

type AuditLogService interface {
	List(ctx context.Context, in usecase.ListAuditLogsInput) (usecase.AuditLogListOutput, error)
}

type AuditLogHandler struct {
	uc AuditLogService
}

func NewAuditLogHandler(uc AuditLogService) *AuditLogHandler {
	return &AuditLogHandler{uc: uc}
}

func (h *AuditLogHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/audit-logs")
	g.Use(auth, middleware.RequireRole(middleware.RoleManager))
	g.GET("", h.list)
}

func (h *AuditLogHandler) list(c echo.Context) error {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}
	actorID, ok := queryInt(c, "actor_user_id", 0)
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	resourceID, ok := queryInt(c, "resource_id", 0)
	if !ok {
		return badRequest(c, "invalid resource_id")
	}
	from, ok := parseTimeParam(c.QueryParam("from"), false)
	if !ok {
		return badRequest(c, "invalid from")
	}
	to, ok := parseTimeParam(c.QueryParam("to"), true)
	if !ok {
		return badRequest(c, "invalid to")
	}

	out, err := h.uc.List(c.Request().Context(), usecase.ListAuditLogsInput{
		ActorUserID:  int64(actorID),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   int64(resourceID),
		From:         from,
		To:           to,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
