package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

type carrierResponse struct {
	Success bool        `json:"success"`
	Data    *carrierDTO `json:"data"`
}

type carrierDTO struct {
	ID     int64  `json:"id"`
	Name   string `json:"nombre"`
	Code   string `json:"codigo"`
	Type   string `json:"tipo"`
	Active bool   `json:"activo"`
}

// ShippingClient реализует service.ShippingClient поверх HTTP API сервиса доставки
type ShippingClient struct {
	*client
}

var _ service.ShippingClient = (*ShippingClient)(nil)

// NewShippingClient создаёт клиент сервиса доставки
func NewShippingClient(baseURL string, timeout time.Duration, retry RetryPolicy, httpClient *http.Client, logger *zap.Logger) *ShippingClient {
	return &ShippingClient{client: newClient("shipping", baseURL, httpClient, timeout, retry, logger)}
}

// ValidateCarrier проверяет перевозчика; 404 - Exists=false
func (c *ShippingClient) ValidateCarrier(ctx context.Context, carrierRef int64) (service.CarrierValidation, error) {
	var resp carrierResponse
	err := c.do(ctx, "shipping.validate_carrier", http.MethodGet, fmt.Sprintf("/carrier/%d", carrierRef), nil, &resp)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return service.CarrierValidation{}, nil
		}
		return service.CarrierValidation{}, err
	}
	if !resp.Success || resp.Data == nil {
		return service.CarrierValidation{}, nil
	}

	return service.CarrierValidation{
		Exists: true,
		Active: resp.Data.Active,
		Name:   resp.Data.Name,
		Code:   resp.Data.Code,
	}, nil
}
