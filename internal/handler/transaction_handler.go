package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"pos/internal/domain/model"
	"pos/internal/middleware"
	"pos/internal/usecase"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type CheckoutService interface {
	Checkout(ctx context.Context, cashierID int64, in usecase.CheckoutInput) (usecase.CheckoutOutput, error)
}

type TransactionStatusService interface {
	ChangeStatus(ctx context.Context, actorUserID, transactionID int64, in usecase.ChangeStatusInput) (usecase.TransactionOutput, error)
	Cancel(ctx context.Context, actorUserID, transactionID int64, notes string) (usecase.TransactionOutput, error)
	Refund(ctx context.Context, actorUserID, transactionID int64, notes string) (usecase.TransactionOutput, error)
}

type TransactionQueryService interface {
	List(ctx context.Context, in usecase.ListTransactionsInput) (usecase.TransactionListOutput, error)
	Get(ctx context.Context, id int64) (usecase.TransactionOutput, error)
	SalesReport(ctx context.Context, from, to time.Time) (usecase.SalesReportOutput, error)
	FeedbackContact(ctx context.Context, id int64) (usecase.FeedbackContactOutput, error)
}

type TransactionHandler struct {
	checkout CheckoutService
	status   TransactionStatusService
	query    TransactionQueryService
}

func NewTransactionHandler(checkout CheckoutService, status TransactionStatusService, query TransactionQueryService) *TransactionHandler {
	return &TransactionHandler{checkout: checkout, status: status, query: query}
}

type CheckoutItemRequest struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int64           `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type CheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items"`
	Payment       model.Payment         `json:"payment"`
	CustomerEmail string                `json:"customer_email"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

func (h *TransactionHandler) RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc) {
	g := e.Group("/transactions")
	g.Use(auth)

	g.POST("", h.create, middleware.RequireRole(middleware.RoleCashier))
	g.GET("", h.list, middleware.RequireRole(middleware.RoleCashier))
	g.GET("/:id", h.detail, middleware.RequireRole(middleware.RoleCashier))
	g.GET("/:id/feedback-contact", h.feedbackContact, middleware.RequireRole(middleware.RoleManager))
	g.PUT("/:id/status", h.updateStatus, middleware.RequireRole(middleware.RoleManager))
	g.POST("/:id/cancel", h.cancel, middleware.RequireRole(middleware.RoleManager))
	g.POST("/:id/refund", h.refund, middleware.RequireRole(middleware.RoleManager))
	g.DELETE("/:id", h.destroy, middleware.RequireRole(middleware.RoleAdmin))

	r := e.Group("/reports")
	r.Use(auth, middleware.RequireRole(middleware.RoleManager))
	r.GET("/transactions", h.salesReport)
}

func (h *TransactionHandler) create(c echo.Context) error {
	cashierID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))

	items := make([]usecase.CheckoutItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CheckoutItemInput{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			DiscountPercent: it.DiscountPercent,
		})
	}

	out, err := h.checkout.Checkout(c.Request().Context(), cashierID, usecase.CheckoutInput{
		Items:          items,
		Payment:        req.Payment,
		CustomerEmail:  req.CustomerEmail,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	if out.Replayed {
		return c.JSON(http.StatusOK, out)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *TransactionHandler) list(c echo.Context) error {
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	cashierID, ok := queryInt(c, "cashier_id", 0)
	if !ok {
		return badRequest(c, "invalid cashier_id")
	}
	from, ok := parseTimeParam(c.QueryParam("from"), false)
	if !ok {
		return badRequest(c, "invalid from")
	}
	to, ok := parseTimeParam(c.QueryParam("to"), true)
	if !ok {
		return badRequest(c, "invalid to")
	}

	out, err := h.query.List(c.Request().Context(), usecase.ListTransactionsInput{
		Page:      page,
		Limit:     limit,
		Status:    c.QueryParam("status"),
		CashierID: int64(cashierID),
		From:      from,
		To:        to,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) detail(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.query.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) feedbackContact(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.query.FeedbackContact(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) updateStatus(c echo.Context) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.status.ChangeStatus(c.Request().Context(), actorID, id, usecase.ChangeStatusInput{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TransactionHandler) cancel(c echo.Context) error {
	return h.shortcut(c, h.status.Cancel)
}

func (h *TransactionHandler) refund(c echo.Context) error {
	return h.shortcut(c, h.status.Refund)
}

func (h *TransactionHandler) shortcut(c echo.Context, fn func(ctx context.Context, actorUserID, transactionID int64, notes string) (usecase.TransactionOutput, error)) error {
	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	//bodyは任意
	var req NotesRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	out, err := fn(c.Request().Context(), actorID, id, req.Notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 取引は物理削除しない。取消か返品を使う
func (h *TransactionHandler) destroy(c echo.Context) error {
	return c.JSON(http.StatusForbidden, ErrorResponse{
		Error: "transactions cannot be deleted; cancel or refund instead",
		Kind:  string(usecase.KindForbidden),
	})
}

func (h *TransactionHandler) salesReport(c echo.Context) error {
	from, ok := parseTimeParam(c.QueryParam("from"), false)
	if !ok || from == nil {
		return badRequest(c, "invalid from")
	}
	to, ok := parseTimeParam(c.QueryParam("to"), true)
	if !ok || to == nil {
		return badRequest(c, "invalid to")
	}

	out, err := h.query.SalesReport(c.Request().Context(), *from, *to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
