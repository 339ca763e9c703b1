package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformobservability "github.com/shestoi/stockhold/platform/observability"
	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// ReservationService операции над резервами и справочником состояний
type ReservationService interface {
	Create(ctx context.Context, in service.CreateInput) (repository.Reservation, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (repository.Reservation, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (repository.Reservation, error)
	List(ctx context.Context, filter repository.ReservationFilter, page repository.Page) (service.ListOutput, error)
	ListExpired(ctx context.Context) ([]repository.Reservation, error)
	ListStates(ctx context.Context) ([]repository.State, error)
	GetState(ctx context.Context, id int64) (repository.State, error)
	CreateState(ctx context.Context, name, description string) (repository.State, error)
}

// OrderReservationService резервирование заказа целиком
type OrderReservationService interface {
	CreateFromOrder(ctx context.Context, in service.OrderInput) (service.OrderOutput, error)
}

// SweepRunner ручной запуск sweeper (под тем же локом, что и расписание)
type SweepRunner interface {
	RunNow(ctx context.Context) (service.SweepResult, error)
}

// Handler содержит HTTP-обработчики Reservation Service.
// Зависит от service слоя, но не знает о деталях хранения и транспорта.
type Handler struct {
	reservations ReservationService
	orders       OrderReservationService
	sweeper      SweepRunner
	logger       *zap.Logger
}

// NewHandler создаёт новый HTTP handler
func NewHandler(reservations ReservationService, orders OrderReservationService, sweeper SweepRunner, logger *zap.Logger) *Handler {
	return &Handler{
		reservations: reservations,
		orders:       orders,
		sweeper:      sweeper,
		logger:       logger,
	}
}

func (h *Handler) log(r *http.Request) *zap.Logger {
	return platformobservability.L(r.Context(), h.logger)
}

// ListReservations обрабатывает GET /reservations?stock_ref=&order_ref=&state_id=&page=&per_page=
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	q := r.URL.Query()

	var filter repository.ReservationFilter
	var err error
	if filter.StockRef, err = optionalID(q.Get("stock_ref"), "stock_ref"); err != nil {
		writeError(w, log, err)
		return
	}
	if filter.OrderRef, err = optionalID(q.Get("order_ref"), "order_ref"); err != nil {
		writeError(w, log, err)
		return
	}
	if filter.StateID, err = optionalID(q.Get("state_id"), "state_id"); err != nil {
		writeError(w, log, err)
		return
	}

	var page repository.Page
	if page.Number, err = optionalInt(q.Get("page"), "page"); err != nil {
		writeError(w, log, err)
		return
	}
	if page.Size, err = optionalInt(q.Get("per_page"), "per_page"); err != nil {
		writeError(w, log, err)
		return
	}

	result, err := h.reservations.List(r.Context(), filter, page)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, log, http.StatusOK, ListReservationsResponse{
		Items:      toReservationResponses(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	})
}

// CreateReservation обрабатывает POST /reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req CreateReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	res, err := h.reservations.Create(r.Context(), service.CreateInput{
		StockRef:   valueOf(req.StockRef),
		OrderRef:   valueOf(req.OrderRef),
		Quantity:   valueOf(req.Quantity),
		StateID:    valueOf(req.StateID),
		ReservedAt: req.ReservedAt,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("reservation created", zap.Int64("reservation_id", res.ID), zap.Int64("stock_ref", res.StockRef))
	writeJSON(w, log, http.StatusCreated, toReservationResponse(res))
}

// GetReservation обрабатывает GET /reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, log, err)
		return
	}

	res, err := h.reservations.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toReservationResponse(res))
}

// UpdateReservation обрабатывает PUT /reservations/{id}
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, log, err)
		return
	}

	var req UpdateReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	res, err := h.reservations.Update(r.Context(), id, service.UpdateInput{
		StockRef:   req.StockRef,
		OrderRef:   req.OrderRef,
		Quantity:   req.Quantity,
		StateID:    req.StateID,
		ReservedAt: req.ReservedAt,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("reservation updated", zap.Int64("reservation_id", res.ID))
	writeJSON(w, log, http.StatusOK, toReservationResponse(res))
}

// DeleteReservation обрабатывает DELETE /reservations/{id}
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := h.reservations.Delete(r.Context(), id); err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("reservation deleted", zap.Int64("reservation_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// ListExpired обрабатывает GET /reservations/expired
func (h *Handler) ListExpired(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	items, err := h.reservations.ListExpired(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toReservationResponses(items))
}

// CreateFromOrder обрабатывает POST /reservations/from-order
func (h *Handler) CreateFromOrder(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)

	var req OrderReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	out, err := h.orders.CreateFromOrder(r.Context(), req.toInput())
	if err != nil {
		writeError(w, log, err)
		return
	}

	log.Info("order reserved", zap.Int64("order_ref", out.OrderRef), zap.Int("total_items", out.TotalItems))
	writeJSON(w, log, http.StatusCreated, OrderReservationResponse{
		OrderRef:     out.OrderRef,
		Mode:         string(out.Mode),
		StoreRef:     out.StoreRef,
		CarrierRef:   out.CarrierRef,
		TotalItems:   out.TotalItems,
		ReservedAt:   out.ReservedAt,
		ExpiresAt:    out.ExpiresAt,
		Reservations: toReservationResponses(out.Reservations),
	})
}

// Sweep обрабатывает POST /reservations/sweep - ручной проход sweeper
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	result, err := h.sweeper.RunNow(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, SweepResponse{TotalExpired: result.TotalExpired, Released: result.Released})
}

// ListStates обрабатывает GET /states
func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	states, err := h.reservations.ListStates(r.Context())
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]StateResponse, 0, len(states))
	for _, s := range states {
		out = append(out, toStateResponse(s))
	}
	writeJSON(w, log, http.StatusOK, out)
}

// GetState обрабатывает GET /states/{id}
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, log, err)
		return
	}
	state, err := h.reservations.GetState(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, log, http.StatusOK, toStateResponse(state))
}

// CreateState обрабатывает POST /states
func (h *Handler) CreateState(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	var req CreateStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	state, err := h.reservations.CreateState(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, log, err)
		return
	}
	log.Info("reservation state created", zap.Int64("state_id", state.ID), zap.String("name", state.Name))
	writeJSON(w, log, http.StatusCreated, toStateResponse(state))
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &service.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: name, Message: fmt.Sprintf("invalid id %q", raw)}
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

func optionalInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, &service.ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return n, nil
}
