package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/stockhold/platform/observability"
	"github.com/shestoi/stockhold/services/inventory/internal/repository"
	"github.com/shestoi/stockhold/services/inventory/internal/service"
)

// StockService операции над складскими записями
type StockService interface {
	Create(ctx context.Context, rec repository.StockRecord) (repository.StockRecord, error)
	Get(ctx context.Context, id int64) (repository.StockRecord, error)
	List(ctx context.Context, filter repository.StockFilter) ([]repository.StockRecord, error)
	Set(ctx context.Context, id, available, reserved int64) (repository.StockRecord, error)
	Reserve(ctx context.Context, id, amount int64) (repository.StockRecord, error)
	Release(ctx context.Context, id, amount int64) (repository.StockRecord, error)
}

// Handler содержит HTTP-обработчики Inventory Service
type Handler struct {
	stock  StockService
	logger *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(stock StockService, logger *zap.Logger) *Handler {
	return &Handler{
		stock:  stock,
		logger: logger,
	}
}

// ListStock обрабатывает GET /stock?id_producto=&id_almacen=
func (h *Handler) ListStock(w http.ResponseWriter, r *http.Request) {
	log := platformobservability.L(r.Context(), h.logger)
	q := r.URL.Query()

	var filter repository.StockFilter
	var err error
	if filter.ProductRef, err = optionalID(q.Get("id_producto"), "id_producto"); err != nil {
		h.writeError(w, log, err)
		return
	}
	if filter.LocationRef, err = optionalID(q.Get("id_almacen"), "id_almacen"); err != nil {
		h.writeError(w, log, err)
		return
	}

	records, err := h.stock.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	resp := make([]StockResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toStockResponse(rec))
	}
	writeJSON(w, log, http.StatusOK, resp)
}

// CreateStock обрабатывает POST /stock
func (h *Handler) CreateStock(w http.ResponseWriter, r *http.Request) {
	log := platformobservability.L(r.Context(), h.logger)

	var req CreateStockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, log, err)
		return
	}

	rec, err := h.stock.Create(r.Context(), repository.StockRecord{
		ID:          req.ID,
		ProductRef:  req.ProductRef,
		LocationRef: req.LocationRef,
		Available:   req.Available,
		Reserved:    req.Reserved,
	})
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusCreated, toStockResponse(rec))
}

// GetStock обрабатывает GET /stock/{id}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	log := platformobservability.L(r.Context(), h.logger)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	rec, err := h.stock.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toStockResponse(rec))
}

// SetStock обрабатывает PUT /stock/{id}; оба счётчика обязательны
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	log := platformobservability.L(r.Context(), h.logger)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	var req SetStockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, log, err)
		return
	}
	if req.Available == nil || req.Reserved == nil {
		h.writeError(w, log, &service.ValidationError{Field: "stock_disponible", Message: "stock_disponible and stock_reservado are required"})
		return
	}

	rec, err := h.stock.Set(r.Context(), id, *req.Available, *req.Reserved)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toStockResponse(rec))
}

// ReserveStock обрабатывает POST /stock/{id}/reserve
func (h *Handler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.Reserve)
}

// ReleaseStock обрабатывает POST /stock/{id}/release
func (h *Handler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.stock.Release)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, amount int64) (repository.StockRecord, error)) {
	log := platformobservability.L(r.Context(), h.logger)

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	var req AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, log, err)
		return
	}

	rec, err := op(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toStockResponse(rec))
}

func (h *Handler) writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var insufficient *service.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, log, http.StatusConflict, ConflictResponse{
			Error:     err.Error(),
			Available: insufficient.Available,
			Requested: insufficient.Requested,
		})
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, log, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, log, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAlreadyExists):
		writeJSON(w, log, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		writeJSON(w, log, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &service.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

func optionalID(raw, field string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &service.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return &id, nil
}
