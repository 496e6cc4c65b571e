package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"pos/internal/middleware"
	"pos/internal/usecase"
)

type InventoryService interface {
	Get(ctx context.Context, productID int64) (usecase.InventoryOutput, error)
	List(ctx context.Context, page, limit int) (usecase.InventoryListOutput, error)
	ListLowStock(ctx context.Context) (usecase.LowStockOutput, error)
	Create(ctx context.Context, actorUserID int64, in usecase.CreateInventoryInput) (usecase.InventoryOutput, error)
	Restock(ctx context.Context, actorUserID, productID int64, in usecase.RestockInput) (usecase.InventoryOutput, error)
	UpdateMinStockLevel(ctx context.Context, actorUserID, productID, level int64) (usecase.InventoryOutput, error)
}

type InventoryHandler struct {
	uc InventoryService
}

func NewInventoryHandler(uc InventoryService) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

type InventoryCreateRequest struct {
	ProductID     int64 `json:"product_id"`
	Quantity      int64 `json:"quantity"`
	MinStockLevel int64 `json:"min_stock_level"`
}

type RestockRequest struct {
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

type MinStockLevelRequest struct {
	MinStockLevel *int64 `json:"min_stock_level"`
}

// 在庫は店長以上
func (h *InventoryHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/inventory")
	g.Use(auth, middleware.RequireRole(middleware.RoleManager))

	g.GET("", h.list)
	g.GET("/low-stock", h.lowStock)
	g.GET("/:productId", h.detail)
	g.POST("", h.create)
	g.POST("/:productId/restock", h.restock)
	g.PUT("/:productId/min-stock-level", h.updateMinStockLevel)
}

func (h *InventoryHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.List(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) lowStock(c echo.Context) error {
	out, err := h.uc.ListLowStock(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) detail(c echo.Context) error {
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid product id")
	}

	out, err := h.uc.Get(c.Request().Context(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) create(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req InventoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Create(c.Request().Context(), actorID, usecase.CreateInventoryInput{
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		MinStockLevel: req.MinStockLevel,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *InventoryHandler) restock(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid product id")
	}

	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Restock(c.Request().Context(), actorID, productID, usecase.RestockInput{
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *InventoryHandler) updateMinStockLevel(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return badRequest(c, "invalid product id")
	}

	var req MinStockLevelRequest
	if err := c.Bind(&req); err != nil || req.MinStockLevel == nil {
		return badRequest(c, "min_stock_level required")
	}

	out, err := h.uc.UpdateMinStockLevel(c.Request().Context(), actorID, productID, *req.MinStockLevel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
