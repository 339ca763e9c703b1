package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// ReserveMode способ изменения счётчиков складской записи
type ReserveMode string

const (
	// ModeReadWrite GET записи, проверка, затем PUT новых значений.
	// Не атомарно: параллельные вызовы на одну запись могут перезаписать друг друга.
	ModeReadWrite ReserveMode = "read-write"
	// ModeAtomic условное изменение на стороне Inventory (POST /stock/{id}/reserve|release)
	ModeAtomic ReserveMode = "atomic"
)

// InventoryConfig параметры клиента Inventory
type InventoryConfig struct {
	BaseURL string
	Timeout time.Duration
	Mode    ReserveMode
	Retry   RetryPolicy
}

// stockDTO складская запись в формате Inventory API
type stockDTO struct {
	ID          int64 `json:"id"`
	ProductRef  int64 `json:"id_producto"`
	LocationRef int64 `json:"id_almacen"`
	Available   int64 `json:"stock_disponible"`
	Reserved    int64 `json:"stock_reservado"`
}

func (d stockDTO) toStock() service.Stock {
	return service.Stock{
		Ref:         d.ID,
		ProductRef:  d.ProductRef,
		LocationRef: d.LocationRef,
		Available:   d.Available,
		Reserved:    d.Reserved,
	}
}

type setStockRequest struct {
	Available int64 `json:"stock_disponible"`
	Reserved  int64 `json:"stock_reservado"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

// conflictResponse тело 409 атомарного reserve
type conflictResponse struct {
	Error     string `json:"error"`
	Available int64  `json:"available"`
	Requested int64  `json:"requested"`
}

// InventoryClient реализует service.InventoryClient поверх HTTP API Inventory
type InventoryClient struct {
	*client
	mode ReserveMode
}

var _ service.InventoryClient = (*InventoryClient)(nil)

// NewInventoryClient создаёт клиент Inventory.
// BaseURL нормализуется: если не оканчивается на /api, суффикс добавляется.
func NewInventoryClient(cfg InventoryConfig, httpClient *http.Client, logger *zap.Logger) *InventoryClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeReadWrite
	}
	return &InventoryClient{
		client: newClient("inventory", base, httpClient, cfg.Timeout, cfg.Retry, logger),
		mode:   mode,
	}
}

// WithSleeper подменяет задержку между попытками (для тестов)
func (c *InventoryClient) WithSleeper(s Sleeper) *InventoryClient {
	c.sleeper = s
	return c
}

// GetStock читает складскую запись, неизвестная запись - *service.ReferenceError
func (c *InventoryClient) GetStock(ctx context.Context, ref int64) (service.Stock, error) {
	var dto stockDTO
	err := c.do(ctx, "inventory.get_stock", http.MethodGet, stockPath(ref), nil, &dto)
	if err != nil {
		return service.Stock{}, c.mapError(ref, err)
	}
	return dto.toStock(), nil
}

// ListStock выборка складских записей по продукту и/или складу
func (c *InventoryClient) ListStock(ctx context.Context, filter service.StockFilter) ([]service.Stock, error) {
	q := url.Values{}
	if filter.ProductRef != nil {
		q.Set("id_producto", strconv.FormatInt(*filter.ProductRef, 10))
	}
	if filter.LocationRef != nil {
		q.Set("id_almacen", strconv.FormatInt(*filter.LocationRef, 10))
	}
	path := "/stock"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var dtos []stockDTO
	if err := c.do(ctx, "inventory.list_stock", http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}

	out := make([]service.Stock, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toStock())
	}
	return out, nil
}

// SetStock перезаписывает оба счётчика записи
func (c *InventoryClient) SetStock(ctx context.Context, ref, available, reserved int64) (service.Stock, error) {
	var dto stockDTO
	err := c.do(ctx, "inventory.set_stock", http.MethodPut, stockPath(ref),
		setStockRequest{Available: available, Reserved: reserved}, &dto)
	if err != nil {
		return service.Stock{}, c.mapError(ref, err)
	}
	return dto.toStock(), nil
}

// Reserve переносит amount из available в reserved
func (c *InventoryClient) Reserve(ctx context.Context, ref, amount int64) error {
	if amount <= 0 {
		return &service.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	log := c.logger.With(zap.Int64("stock_ref", ref), zap.Int64("amount", amount), zap.String("mode", string(c.mode)))

	if c.mode == ModeAtomic {
		err := c.do(ctx, "inventory.reserve", http.MethodPost, stockPath(ref)+"/reserve", amountRequest{Amount: amount}, nil)
		if err != nil {
			return c.mapError(ref, err)
		}
		log.Info("stock reserved")
		return nil
	}

	stock, err := c.GetStock(ctx, ref)
	if err != nil {
		return err
	}
	if stock.Available < amount {
		return &service.InsufficientStockError{
			StockRef:   ref,
			ProductRef: stock.ProductRef,
			Available:  stock.Available,
			Requested:  amount,
		}
	}

	log.Info("reserving stock")
	_, err = c.SetStock(ctx, ref, stock.Available-amount, stock.Reserved+amount)
	return err
}

// Release возвращает amount в available; reserved не опускается ниже нуля
func (c *InventoryClient) Release(ctx context.Context, ref, amount int64) error {
	if amount <= 0 {
		return &service.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	log := c.logger.With(zap.Int64("stock_ref", ref), zap.Int64("amount", amount), zap.String("mode", string(c.mode)))

	if c.mode == ModeAtomic {
		err := c.do(ctx, "inventory.release", http.MethodPost, stockPath(ref)+"/release", amountRequest{Amount: amount}, nil)
		if err != nil {
			return c.mapError(ref, err)
		}
		log.Info("stock released")
		return nil
	}

	stock, err := c.GetStock(ctx, ref)
	if err != nil {
		return err
	}
	reserved := stock.Reserved - amount
	if reserved < 0 {
		log.Warn("release exceeds reserved, clamping at zero", zap.Int64("reserved", stock.Reserved))
		reserved = 0
	}

	log.Info("releasing stock")
	_, err = c.SetStock(ctx, ref, stock.Available+amount, reserved)
	return err
}

func (c *InventoryClient) mapError(ref int64, err error) error {
	switch statusOf(err) {
	case http.StatusNotFound:
		return &service.ReferenceError{Entity: "stock", ID: ref}
	case http.StatusConflict:
		insufficient := &service.InsufficientStockError{StockRef: ref}
		var se *statusError
		if errors.As(err, &se) {
			var body conflictResponse
			if json.Unmarshal(se.Body, &body) == nil {
				insufficient.Available = body.Available
				insufficient.Requested = body.Requested
			}
		}
		return insufficient
	case http.StatusBadRequest:
		return &service.ValidationError{Field: "amount", Message: err.Error()}
	}
	return err
}

func stockPath(ref int64) string {
	return fmt.Sprintf("/stock/%d", ref)
}
