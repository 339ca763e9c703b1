package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type stockShortage struct {
	StockRef   int64 `json:"stock_ref,omitempty"`
	ProductRef int64 `json:"product_ref,omitempty"`
	Available  int64 `json:"available"`
	Requested  int64 `json:"requested"`
}

type itemFailure struct {
	Index    int    `json:"index"`
	StockRef int64  `json:"stock_ref,omitempty"`
	Error    string `json:"error"`
}

// statusFor переводит класс ошибки service слоя в HTTP статус.
// Неизвестная ссылка проверяется раньше NotFound: это ошибка входа, а не отсутствующий ресурс.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrUnknownReference):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrSweepInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func detailsFor(err error) any {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) && validationErr.Field != "" {
		return map[string]string{"field": validationErr.Field}
	}

	var orderErr *service.OrderReservationError
	if errors.As(err, &orderErr) {
		items := make([]itemFailure, 0, len(orderErr.Items))
		for _, item := range orderErr.Items {
			items = append(items, itemFailure{Index: item.Index, StockRef: item.StockRef, Error: item.Err.Error()})
		}
		return map[string]any{"order_ref": orderErr.OrderRef, "items": items}
	}

	var shortage *service.ShortageError
	if errors.As(err, &shortage) {
		items := make([]stockShortage, 0, len(shortage.Items))
		for _, item := range shortage.Items {
			items = append(items, stockShortage(item))
		}
		return items
	}

	var insufficient *service.InsufficientStockError
	if errors.As(err, &insufficient) {
		return stockShortage(*insufficient)
	}
	return nil
}

// writeError пишет JSON ошибку; 5xx логируются с причиной, клиенту уходит общее сообщение
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Details: detailsFor(err)}
	if code == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		resp = ErrorResponse{Error: "internal server error"}
	} else {
		logger.Warn("request rejected", zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, logger, code, resp)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
