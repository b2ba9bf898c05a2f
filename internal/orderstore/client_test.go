package orderstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
)

const orderJSON = `{
	"id": 2,
	"orderNumber": "ORD-2",
	"trackingNumber": "TRK-2",
	"status": "shipped",
	"orderDate": "2024-02-02T08:15:00Z",
	"items": [{"id": "1", "name": "Watch", "price": 149.00, "quantity": 1}],
	"milestones": {"ordered": "2024-02-02T08:15:00Z", "shipped": "2024-02-04T17:30:00Z"}
}`

func TestFindOrder_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/orders/lookup/TRK-2" {
			t.Fatalf("path = %s, want /api/orders/lookup/TRK-2", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(orderJSON))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	o, err := client.FindOrder(ctx, "TRK-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), o.ID)
	assert.Equal(t, model.OrderStatusShipped, o.Status)
	assert.Equal(t, "149", o.Items[0].UnitPrice.String())
	assert.Contains(t, o.MilestoneDates, model.OrderStatusShipped)
}

func TestGetOrder_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/42" {
			t.Fatalf("path = %s, want /api/orders/42", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.GetOrder(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestGetCart_RetriesAfterTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"items": [{"id": "1", "name": "Cable", "price": "7.50", "quantity": 2}]}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	cart, err := client.GetCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "15", cart.Items[0].LineTotal().String())
}

func TestListOrders_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	_, err := client.ListOrders(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestListOrders_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).ListOrders(context.Background())
	assert.ErrorContains(t, err, "unexpected status: 502")
}

func TestNewClient_AddsScheme(t *testing.T) {
	c := NewClient("orders.local:8081/")
	assert.Equal(t, "http://orders.local:8081", c.baseURL)

	_, err := NewClient("").ListOrders(context.Background())
	assert.Error(t, err)
}
