package httpapi

import (
	"time"

	"github.com/shestoi/stockhold/services/reservation/internal/repository"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// FulfillmentResponse метаданные доставки в ответе
type FulfillmentResponse struct {
	Mode       string   `json:"mode"`
	StoreRef   *int64   `json:"store_ref,omitempty"`
	CarrierRef *int64   `json:"carrier_ref,omitempty"`
	Address    *string  `json:"address,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// ReservationResponse представляет резерв в HTTP ответе
type ReservationResponse struct {
	ID          int64                `json:"id"`
	StockRef    int64                `json:"stock_ref"`
	OrderRef    int64                `json:"order_ref"`
	Quantity    int64                `json:"quantity"`
	StateID     int64                `json:"state_id"`
	State       string               `json:"state,omitempty"`
	ReservedAt  time.Time            `json:"reserved_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
	Fulfillment *FulfillmentResponse `json:"fulfillment,omitempty"`
}

// CreateReservationRequest тело POST /reservations
type CreateReservationRequest struct {
	StockRef   *int64     `json:"stock_ref"`
	OrderRef   *int64     `json:"order_ref"`
	Quantity   *int64     `json:"quantity"`
	StateID    *int64     `json:"state_id"`
	ReservedAt *time.Time `json:"reserved_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// UpdateReservationRequest тело PUT /reservations/{id}, отсутствующее поле не меняется
type UpdateReservationRequest struct {
	StockRef   *int64     `json:"stock_ref"`
	OrderRef   *int64     `json:"order_ref"`
	Quantity   *int64     `json:"quantity"`
	StateID    *int64     `json:"state_id"`
	ReservedAt *time.Time `json:"reserved_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// ListReservationsResponse страница резервов
type ListReservationsResponse struct {
	Items      []ReservationResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	TotalPages int                   `json:"total_pages"`
}

// OrderItemRequest позиция заказа: stock_ref или product_ref
type OrderItemRequest struct {
	StockRef             *int64 `json:"stock_ref"`
	ProductRef           *int64 `json:"product_ref"`
	PreferredLocationRef *int64 `json:"preferred_location_ref"`
	Quantity             *int64 `json:"quantity"`
}

// OrderReservationRequest тело POST /reservations/from-order
type OrderReservationRequest struct {
	OrderRef   *int64             `json:"order_ref"`
	Items      []OrderItemRequest `json:"items"`
	Mode       string             `json:"mode"`
	StoreRef   *int64             `json:"store_ref"`
	CarrierRef *int64             `json:"carrier_ref"`
	Address    *string            `json:"address"`
	Latitude   *float64           `json:"latitude"`
	Longitude  *float64           `json:"longitude"`
	ExpiresAt  *time.Time         `json:"expires_at"`
	StateID    *int64             `json:"state_id"`
}

// OrderReservationResponse результат резервирования заказа
type OrderReservationResponse struct {
	OrderRef     int64                 `json:"order_ref"`
	Mode         string                `json:"mode"`
	StoreRef     *int64                `json:"store_ref,omitempty"`
	CarrierRef   *int64                `json:"carrier_ref,omitempty"`
	TotalItems   int                   `json:"total_items"`
	ReservedAt   time.Time             `json:"reserved_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
	Reservations []ReservationResponse `json:"reservations"`
}

// SweepResponse итог ручного прохода sweeper
type SweepResponse struct {
	TotalExpired int `json:"total_expired"`
	Released     int `json:"released"`
}

// StateResponse запись справочника состояний
type StateResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateStateRequest тело POST /states
type CreateStateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toReservationResponse(r repository.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:         r.ID,
		StockRef:   r.StockRef,
		OrderRef:   r.OrderRef,
		Quantity:   r.Quantity,
		StateID:    r.StateID,
		State:      r.StateName,
		ReservedAt: r.ReservedAt,
		ExpiresAt:  r.ExpiresAt,
	}
	if f := r.Fulfillment; f != nil {
		resp.Fulfillment = &FulfillmentResponse{
			Mode:       string(f.Mode),
			StoreRef:   f.StoreRef,
			CarrierRef: f.CarrierRef,
			Address:    f.Address,
			Latitude:   f.Latitude,
			Longitude:  f.Longitude,
		}
	}
	return resp
}

func toReservationResponses(items []repository.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toReservationResponse(r))
	}
	return out
}

func toStateResponse(s repository.State) StateResponse {
	return StateResponse{ID: s.ID, Name: s.Name, Description: s.Description}
}

func (req OrderReservationRequest) toInput() service.OrderInput {
	in := service.OrderInput{
		Mode:       repository.FulfillmentMode(req.Mode),
		StoreRef:   req.StoreRef,
		CarrierRef: req.CarrierRef,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		ExpiresAt:  req.ExpiresAt,
		StateID:    req.StateID,
		Items:      make([]service.OrderItemInput, 0, len(req.Items)),
	}
	if req.OrderRef != nil {
		in.OrderRef = *req.OrderRef
	}
	for _, item := range req.Items {
		it := service.OrderItemInput{
			StockRef:             item.StockRef,
			ProductRef:           item.ProductRef,
			PreferredLocationRef: item.PreferredLocationRef,
		}
		if item.Quantity != nil {
			it.Quantity = *item.Quantity
		}
		in.Items = append(in.Items, it)
	}
	return in
}

func valueOf(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
