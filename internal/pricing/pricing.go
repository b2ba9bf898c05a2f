// Package pricing рассчитывает стоимость корзины и заказа.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// Compute рассчитывает промежуточную сумму, доставку, налог, скидку и итог.
// Входные данные не проверяются: отрицательные цены и количества должны быть
// отсеяны до вызова.
func Compute(in model.PricingInput) model.PricingResult {
	subtotal := decimal.Zero
	for _, item := range in.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	shipping := in.FlatShippingCost
	// Порог строгий: при subtotal == threshold доставка платная.
	if len(in.Items) == 0 || subtotal.GreaterThan(in.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(in.TaxRate)
	discount := subtotal.Mul(in.DiscountRate)

	return model.PricingResult{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}

// ItemCount возвращает суммарное количество единиц товара.
func ItemCount(items []model.LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Policy содержит тарифы витрины и таблицу купонов.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingCost      decimal.Decimal
	TaxRate               decimal.Decimal
	Coupons               map[string]decimal.Decimal
}

// DefaultPolicy возвращает тарифы витрины по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingCost:      decimal.RequireFromString("5.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
		Coupons: map[string]decimal.Decimal{
			"SAVE10": decimal.RequireFromString("0.10"),
		},
	}
}

// ParseCoupons разбирает таблицу купонов вида код -> доля скидки.
func ParseCoupons(raw map[string]string) (map[string]decimal.Decimal, error) {
	coupons := make(map[string]decimal.Decimal, len(raw))
	for code, v := range raw {
		rate, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("coupon %s: %w", code, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("coupon %s: rate %s out of range [0,1]", code, rate)
		}
		coupons[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return coupons, nil
}

// LookupCoupon возвращает долю скидки для активного купона.
func (p Policy) LookupCoupon(code string) (decimal.Decimal, bool) {
	if code == "" {
		return decimal.Zero, false
	}
	rate, ok := p.Coupons[code]
	return rate, ok
}

// Input собирает PricingInput для позиций и кода купона.
// Неизвестный купон даёт нулевую скидку.
func (p Policy) Input(items []model.LineItem, couponCode string) model.PricingInput {
	rate, ok := p.LookupCoupon(couponCode)
	if !ok {
		rate = decimal.Zero
	}
	return model.PricingInput{
		Items:                 items,
		FreeShippingThreshold: p.FreeShippingThreshold,
		FlatShippingCost:      p.FlatShippingCost,
		TaxRate:               p.TaxRate,
		DiscountRate:          rate,
	}
}

// Quote рассчитывает стоимость позиций по тарифам политики.
func (p Policy) Quote(items []model.LineItem, couponCode string) model.PricingResult {
	return Compute(p.Input(items, couponCode))
}
