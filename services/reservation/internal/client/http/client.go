package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	platformobservability "github.com/shestoi/stockhold/platform/observability"
	"github.com/shestoi/stockhold/services/reservation/internal/service"
)

// DefaultTimeout таймаут одного удалённого вызова
const DefaultTimeout = 8 * time.Second

// statusError ответ с кодом не из 2xx (кроме 5xx, который считается сетевым сбоем)
type statusError struct {
	Status int
	Body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

// client общий JSON-over-HTTP транспорт для Inventory/Store/Shipping
type client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	retry      RetryPolicy
	sleeper    Sleeper
	logger     *zap.Logger
}

func newClient(name, baseURL string, httpClient *http.Client, timeout time.Duration, retry RetryPolicy, logger *zap.Logger) *client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
		retry:      retry,
		sleeper:    &DefaultSleeper{},
		logger:     logger,
	}
}

// do выполняет запрос с ретраями и декодирует 2xx ответ в out (если out != nil).
// Транспортные сбои, таймауты и 5xx возвращаются как *service.NetworkError, остальные коды - *statusError.
func (c *client) do(ctx context.Context, op, method, path string, body, out any) error {
	write := method != http.MethodGet
	attempts := c.retry.attempts(write)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := c.retry.backoff(attempt - 1)
			platformobservability.L(ctx, c.logger).Warn("retrying remote call",
				zap.String("service", c.name),
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			if err := c.sleeper.Sleep(ctx, backoff); err != nil {
				return lastErr
			}
		}

		lastErr = c.doOnce(ctx, op, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, service.ErrNetwork) {
			return lastErr
		}
	}
	return lastErr
}

func (c *client) doOnce(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		platformobservability.L(ctx, c.logger).Error("remote call failed",
			zap.String("service", c.name),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &service.NetworkError{Op: op, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &service.NetworkError{Op: op, Timeout: isTimeout(ctx, err), Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &service.NetworkError{Op: op, Err: &statusError{Status: resp.StatusCode, Body: data}}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{Status: resp.StatusCode, Body: data}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
