package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

type itemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock,omitempty"`
	LineTotal string `json:"lineTotal"`
}

func newItems(items []model.LineItem) []itemResponse {
	res := make([]itemResponse, 0, len(items))
	for _, i := range items {
		res = append(res, itemResponse{
			ID:        i.ID,
			ProductID: i.ProductID,
			Name:      i.Name,
			Price:     money(i.UnitPrice),
			Quantity:  i.Quantity,
			Stock:     i.Stock,
			LineTotal: money(i.LineTotal()),
		})
	}
	return res
}

type summaryResponse struct {
	Subtotal     string `json:"subtotal"`
	Shipping     string `json:"shipping"`
	FreeShipping bool   `json:"freeShipping"`
	Tax          string `json:"tax"`
	Discount     string `json:"discount"`
	Total        string `json:"total"`
}

func newSummary(p model.PricingResult) summaryResponse {
	return summaryResponse{
		Subtotal:     money(p.Subtotal),
		Shipping:     money(p.Shipping),
		FreeShipping: p.Shipping.IsZero(),
		Tax:          money(p.Tax),
		Discount:     money(p.Discount),
		Total:        money(p.Total),
	}
}

type cartResponse struct {
	Items      []itemResponse  `json:"items"`
	ItemCount  int             `json:"itemCount"`
	CouponCode string          `json:"couponCode,omitempty"`
	Summary    summaryResponse `json:"summary"`
}

func newCartResponse(s *service.CartSummary) cartResponse {
	return cartResponse{
		Items:      newItems(s.Cart.Items),
		ItemCount:  s.ItemCount,
		CouponCode: s.Cart.CouponCode,
		Summary:    newSummary(s.Pricing),
	}
}

type stepResponse struct {
	Milestone string `json:"milestone"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
	Date      string `json:"date,omitempty"`
}

type timelineResponse struct {
	Cancelled   bool           `json:"cancelled"`
	CancelledAt string         `json:"cancelledAt,omitempty"`
	Progress    int            `json:"progress"`
	Steps       []stepResponse `json:"steps"`
}

func newTimeline(t model.Timeline) timelineResponse {
	steps := make([]stepResponse, 0, len(t.Steps))
	for _, s := range t.Steps {
		steps = append(steps, stepResponse{
			Milestone: string(s.Milestone),
			Completed: s.Completed,
			Current:   s.Current,
			Date:      formatTime(s.Date),
		})
	}
	return timelineResponse{
		Cancelled:   t.Cancelled,
		CancelledAt: formatTime(t.CancelledAt),
		Progress:    t.Progress(),
		Steps:       steps,
	}
}

type orderResponse struct {
	ID                int64            `json:"id"`
	Number            string           `json:"orderNumber"`
	TrackingNumber    string           `json:"trackingNumber,omitempty"`
	Carrier           string           `json:"carrier,omitempty"`
	Status            string           `json:"status"`
	OrderDate         string           `json:"orderDate"`
	EstimatedDelivery string           `json:"estimatedDelivery,omitempty"`
	CouponCode        string           `json:"couponCode,omitempty"`
	Items             []itemResponse   `json:"items"`
	ItemCount         int              `json:"itemCount"`
	Summary           summaryResponse  `json:"summary"`
	Timeline          timelineResponse `json:"timeline"`
}

func newOrderResponse(v *service.OrderView) orderResponse {
	return orderResponse{
		ID:                v.Order.ID,
		Number:            v.Order.Number,
		TrackingNumber:    v.Order.TrackingNumber,
		Carrier:           v.Order.Carrier,
		Status:            string(v.Order.Status),
		OrderDate:         v.Order.PlacedAt.Format(time.RFC3339),
		EstimatedDelivery: formatTime(v.Order.EstimatedDelivery),
		CouponCode:        v.Order.CouponCode,
		Items:             newItems(v.Order.Items),
		ItemCount:         v.ItemCount,
		Summary:           newSummary(v.Pricing),
		Timeline:          newTimeline(v.Timeline),
	}
}
