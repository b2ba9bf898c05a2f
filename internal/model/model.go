// Package model содержит доменные сущности витрины: позиции корзины, заказы и результаты расчётов.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem описывает одну позицию корзины или заказа.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	// Stock ограничивает количество сверху; 0 означает, что остаток не задан.
	Stock int `json:"stock,omitempty"`
}

// LineTotal возвращает стоимость позиции без округления.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart содержит позиции корзины и применённый купон.
type Cart struct {
	Items      []LineItem `json:"items"`
	CouponCode string     `json:"couponCode,omitempty"`
}

// Clone возвращает независимую копию корзины.
func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, CouponCode: c.CouponCode}
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusOrdered    OrderStatus = "ordered"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Milestones задаёт фиксированную последовательность этапов выполнения заказа.
// Отменённый заказ в последовательность не входит.
var Milestones = []OrderStatus{
	OrderStatusOrdered,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// MilestoneIndex возвращает позицию статуса в Milestones или -1.
func (s OrderStatus) MilestoneIndex() int {
	for i, m := range Milestones {
		if m == s {
			return i
		}
	}
	return -1
}

// Known сообщает, является ли статус одним из допустимых значений.
func (s OrderStatus) Known() bool {
	return s == OrderStatusCancelled || s.MilestoneIndex() >= 0
}

// Order описывает оформленный заказ.
type Order struct {
	ID                int64                     `json:"id"`
	Number            string                    `json:"orderNumber"`
	TrackingNumber    string                    `json:"trackingNumber,omitempty"`
	Carrier           string                    `json:"shippingCarrier,omitempty"`
	Status            OrderStatus               `json:"status"`
	Items             []LineItem                `json:"items"`
	CouponCode        string                    `json:"couponCode,omitempty"`
	PlacedAt          time.Time                 `json:"orderDate"`
	EstimatedDelivery *time.Time                `json:"estimatedDelivery,omitempty"`
	MilestoneDates    map[OrderStatus]time.Time `json:"milestones,omitempty"`
}

// PricingInput содержит исходные данные для расчёта стоимости.
type PricingInput struct {
	Items                 []LineItem
	FreeShippingThreshold decimal.Decimal
	FlatShippingCost      decimal.Decimal
	TaxRate               decimal.Decimal
	DiscountRate          decimal.Decimal
}

// PricingResult содержит рассчитанные суммы с полной точностью.
type PricingResult struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Rounded возвращает копию результата, округлённую до копеек для отображения.
func (r PricingResult) Rounded() PricingResult {
	return PricingResult{
		Subtotal: r.Subtotal.Round(2),
		Shipping: r.Shipping.Round(2),
		Tax:      r.Tax.Round(2),
		Discount: r.Discount.Round(2),
		Total:    r.Total.Round(2),
	}
}

// TimelineStep описывает состояние одного этапа заказа.
type TimelineStep struct {
	Milestone OrderStatus
	Completed bool
	Current   bool
	Date      *time.Time
}

// Timeline содержит проекцию статуса заказа на последовательность этапов.
type Timeline struct {
	Steps       []TimelineStep
	Cancelled   bool
	CancelledAt *time.Time
}

// Progress возвращает долю завершённых этапов в процентах.
func (t Timeline) Progress() int {
	if len(t.Steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range t.Steps {
		if s.Completed {
			done++
		}
	}
	return done * 100 / len(t.Steps)
}

// Current возвращает текущий этап, если он есть.
func (t Timeline) Current() (TimelineStep, bool) {
	for _, s := range t.Steps {
		if s.Current {
			return s, true
		}
	}
	return TimelineStep{}, false
}
