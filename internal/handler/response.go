package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"pos/internal/middleware"
	"pos/internal/usecase"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`

	// 在庫不足のときだけ
	ProductID *int64 `json:"product_id,omitempty"`
	Requested *int64 `json:"requested,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	ue, ok := usecase.AsError(err)
	if !ok {
		//500
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: string(usecase.KindInternal)})
	}

	resp := ErrorResponse{Error: ue.Message, Kind: string(ue.Kind)}
	switch ue.Kind {
	case usecase.KindInternal:
		//中身は出さない（ログ側に残っている）
		resp.Error = "internal error"
	case usecase.KindInsufficientInventory:
		resp.ProductID = &ue.ProductID
		resp.Requested = &ue.Requested
		resp.Available = &ue.Available
	}
	return c.JSON(ue.Status(), resp)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(usecase.KindValidation)})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// 空なら def
func queryInt(c echo.Context, name string, def int) (int, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return def, true
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
