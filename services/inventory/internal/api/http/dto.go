package httpapi

import "github.com/shestoi/stockhold/services/inventory/internal/repository"

// StockResponse складская запись в формате ответа
type StockResponse struct {
	ID          int64 `json:"id"`
	ProductRef  int64 `json:"id_producto"`
	LocationRef int64 `json:"id_almacen"`
	Available   int64 `json:"stock_disponible"`
	Reserved    int64 `json:"stock_reservado"`
}

// CreateStockRequest тело POST /stock; id необязателен
type CreateStockRequest struct {
	ID          int64 `json:"id"`
	ProductRef  int64 `json:"id_producto"`
	LocationRef int64 `json:"id_almacen"`
	Available   int64 `json:"stock_disponible"`
	Reserved    int64 `json:"stock_reservado"`
}

// SetStockRequest тело PUT /stock/{id}
type SetStockRequest struct {
	Available *int64 `json:"stock_disponible"`
	Reserved  *int64 `json:"stock_reservado"`
}

// AmountRequest тело reserve/release
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

// ConflictResponse 409 на reserve: сколько было доступно
type ConflictResponse struct {
	Error     string `json:"error"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

func toStockResponse(rec repository.StockRecord) StockResponse {
	return StockResponse{
		ID:          rec.ID,
		ProductRef:  rec.ProductRef,
		LocationRef: rec.LocationRef,
		Available:   rec.Available,
		Reserved:    rec.Reserved,
	}
}
