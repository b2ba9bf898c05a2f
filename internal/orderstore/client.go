// Package orderstore предоставляет клиент для внешнего хранилища заказов.
package orderstore

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

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

const (
	maxAttempts  = 3
	maxRetryWait = 10 * time.Second
)

// Client инкапсулирует HTTP-взаимодействие с хранилищем заказов.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт HTTP-клиент для обращения к хранилищу заказов по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Close закрывает простаивающие соединения.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCart запрашивает исходное содержимое корзины.
func (c *Client) GetCart(ctx context.Context) (model.Cart, error) {
	var cart model.Cart
	if err := c.get(ctx, "/api/cart", &cart); err != nil {
		if errors.Is(err, errNotFound) {
			return model.Cart{}, repository.ErrCartNotFound
		}
		return model.Cart{}, err
	}
	return cart, nil
}

// ListOrders запрашивает список заказов.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.get(ctx, "/api/orders", &orders); err != nil {
		if errors.Is(err, errNotFound) {
			return []model.Order{}, nil
		}
		return nil, err
	}
	return orders, nil
}

// GetOrder запрашивает заказ по идентификатору.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return c.getOrder(ctx, "/api/orders/"+strconv.FormatInt(id, 10))
}

// FindOrder запрашивает заказ по номеру заказа или трек-номеру.
func (c *Client) FindOrder(ctx context.Context, number string) (*model.Order, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, repository.ErrOrderNotFound
	}
	return c.getOrder(ctx, "/api/orders/lookup/"+url.PathEscape(number))
}

func (c *Client) getOrder(ctx context.Context, path string) (*model.Order, error) {
	var o model.Order
	if err := c.get(ctx, path, &o); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, repository.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

var errNotFound = errors.New("not found")

// get выполняет GET-запрос и декодирует JSON-ответ. При 429 ждёт Retry-After
// (не дольше maxRetryWait) и повторяет запрос.
func (c *Client) get(ctx context.Context, path string, dst any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("order store client not configured")
	}

	for attempt := 1; ; attempt++ {
		retryAfter, err := c.do(ctx, c.baseURL+path, dst)
		if err == nil {
			return nil
		}
		if retryAfter < 0 || attempt >= maxAttempts {
			return err
		}

		timer := time.NewTimer(min(retryAfter, maxRetryWait))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// do возвращает неотрицательную задержку, если запрос стоит повторить.
func (c *Client) do(ctx context.Context, endpoint string, dst any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return -1, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return -1, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return -1, errNotFound
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return retryAfter, fmt.Errorf("order store rate limited")
	default:
		return -1, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return -1, fmt.Errorf("decode response: %w", err)
	}
	return -1, nil
}
