package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

const storeStatusActive = "ACTIVO"

type storeResponse struct {
	Success bool      `json:"success"`
	Data    *storeDTO `json:"data"`
}

type storeDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"nombre"`
	Status    string `json:"estado"`
	Address   string `json:"direccion"`
	TypeLocal *struct {
		Name string `json:"nombre"`
	} `json:"tipoLocal"`
}

// StoreClient реализует service.StoreClient поверх HTTP API сервиса локалей
type StoreClient struct {
	*client
}

var _ service.StoreClient = (*StoreClient)(nil)

// NewStoreClient создаёт клиент сервиса локалей
func NewStoreClient(baseURL string, timeout time.Duration, retry RetryPolicy, httpClient *http.Client, logger *zap.Logger) *StoreClient {
	return &StoreClient{client: newClient("store", baseURL, httpClient, timeout, retry, logger)}
}

// ValidateStore проверяет локаль: существует, активна (estado = ACTIVO) и является магазином, а не складом.
// 404 и ответ без data - Exists=false, не ошибка.
func (c *StoreClient) ValidateStore(ctx context.Context, storeRef int64) (service.StoreValidation, error) {
	var resp storeResponse
	err := c.do(ctx, "store.validate", http.MethodGet, fmt.Sprintf("/locales/%d", storeRef), nil, &resp)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return service.StoreValidation{}, nil
		}
		return service.StoreValidation{}, err
	}
	if !resp.Success || resp.Data == nil {
		return service.StoreValidation{}, nil
	}

	local := resp.Data
	isStore := local.TypeLocal != nil && strings.Contains(strings.ToLower(local.TypeLocal.Name), "tienda")
	return service.StoreValidation{
		Exists:  true,
		Active:  local.Status == storeStatusActive,
		IsStore: isStore,
		Name:    local.Name,
		Status:  local.Status,
	}, nil
}
