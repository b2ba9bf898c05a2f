// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/store"
	"github.com/mmeshcher/storefront/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CartSummary(ctx context.Context, session string) (*service.CartSummary, error)
	UpdateQuantity(ctx context.Context, session, itemID string, quantity int) (*service.CartSummary, error)
	RemoveItem(ctx context.Context, session, itemID string) (*service.CartSummary, error)
	ApplyCoupon(ctx context.Context, session, code string) (*service.CartSummary, error)
	OrderDetails(ctx context.Context, id int64) (*service.OrderView, error)
	TrackOrder(ctx context.Context, number string) (*service.OrderView, error)
	ListOrders(ctx context.Context, filter service.OrderFilter, now time.Time) ([]service.OrderView, error)
	OrderStats(ctx context.Context, now time.Time) (*service.OrderStats, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service Service
	logger  *zap.Logger
	session *middleware.SessionMiddleware
	now     func() time.Time
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, session *middleware.SessionMiddleware) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		session: session,
		now:     time.Now,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func status(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

// fail переводит ошибку сервиса в HTTP-статус, неожиданные ошибки логируются.
func (h *Handler) fail(w http.ResponseWriter, msg string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound), errors.Is(err, store.ErrItemNotFound):
		status(w, http.StatusNotFound)
	case errors.Is(err, validation.ErrInvalidItem):
		status(w, http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCoupon):
		status(w, http.StatusUnprocessableEntity)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		status(w, http.StatusInternalServerError)
	}
}

func sessionID(r *http.Request) (string, bool) {
	return middleware.GetSessionIDFromContext(r.Context())
}

// GetCart возвращает корзину текущей сессии.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(r)
	if !ok {
		status(w, http.StatusBadRequest)
		return
	}

	sum, err := h.service.CartSummary(r.Context(), session)
	if err != nil {
		h.fail(w, "get cart error", err, zap.String("session", session))
		return
	}

	writeJSON(w, newCartResponse(sum))
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateCartItem меняет количество товара в позиции корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(r)
	if !ok {
		status(w, http.StatusBadRequest)
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status(w, http.StatusBadRequest)
		return
	}

	itemID := chi.URLParam(r, "id")
	sum, err := h.service.UpdateQuantity(r.Context(), session, itemID, req.Quantity)
	if err != nil {
		h.fail(w, "update cart item error", err, zap.String("session", session), zap.String("item", itemID))
		return
	}

	writeJSON(w, newCartResponse(sum))
}

// RemoveCartItem удаляет позицию из корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(r)
	if !ok {
		status(w, http.StatusBadRequest)
		return
	}

	itemID := chi.URLParam(r, "id")
	sum, err := h.service.RemoveItem(r.Context(), session, itemID)
	if err != nil {
		h.fail(w, "remove cart item error", err, zap.String("session", session), zap.String("item", itemID))
		return
	}

	writeJSON(w, newCartResponse(sum))
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon применяет купон к корзине.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(r)
	if !ok {
		status(w, http.StatusBadRequest)
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		status(w, http.StatusBadRequest)
		return
	}

	sum, err := h.service.ApplyCoupon(r.Context(), session, req.Code)
	if err != nil {
		h.fail(w, "apply coupon error", err, zap.String("session", session))
		return
	}

	writeJSON(w, newCartResponse(sum))
}

// GetOrders возвращает список заказов с фильтрами status, q и period.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter service.OrderFilter
	if s := q.Get("status"); s != "" && s != "all" {
		st, err := validation.ParseOrderStatus(s)
		if err != nil {
			status(w, http.StatusBadRequest)
			return
		}
		filter.Status = st
	}

	period, err := service.ParsePeriod(q.Get("period"))
	if err != nil {
		status(w, http.StatusBadRequest)
		return
	}
	filter.Period = period
	filter.Search = q.Get("q")

	views, err := h.service.ListOrders(r.Context(), filter, h.now())
	if err != nil {
		h.fail(w, "list orders error", err)
		return
	}

	if len(views) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(views))
	for i := range views {
		resp = append(resp, newOrderResponse(&views[i]))
	}
	writeJSON(w, resp)
}

type statsResponse struct {
	Count      int    `json:"count"`
	TotalSpent string `json:"totalSpent"`
	Average    string `json:"average"`
}

// GetOrderStats возвращает сводку по заказам.
func (h *Handler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.OrderStats(r.Context(), h.now())
	if err != nil {
		h.fail(w, "order stats error", err)
		return
	}

	writeJSON(w, statsResponse{
		Count:      stats.Count,
		TotalSpent: money(stats.TotalSpent),
		Average:    money(stats.Average),
	})
}

// GetOrder возвращает заказ с расчётом стоимости и лентой этапов.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		status(w, http.StatusBadRequest)
		return
	}

	v, err := h.service.OrderDetails(r.Context(), id)
	if err != nil {
		h.fail(w, "get order error", err, zap.Int64("orderID", id))
		return
	}

	writeJSON(w, newOrderResponse(v))
}

// TrackOrder ищет заказ по номеру заказа или трек-номеру.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	v, err := h.service.TrackOrder(r.Context(), number)
	if err != nil {
		h.fail(w, "track order error", err, zap.String("number", number))
		return
	}

	writeJSON(w, newOrderResponse(v))
}
