// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// ErrInvalidItem возвращается для позиции с некорректной ценой, количеством или идентификатором.
	ErrInvalidItem = errors.New("invalid line item")
	// ErrUnknownStatus возвращается для статуса заказа вне перечисления.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrNonMonotonic возвращается, если у заказа отмечен этап позже текущего статуса.
	ErrNonMonotonic = errors.New("milestone recorded beyond current status")
)

// ValidateLineItems проверяет, что у всех позиций есть идентификатор,
// неотрицательная цена и количество не меньше единицы.
func ValidateLineItems(items []model.LineItem) error {
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %d has empty id", ErrInvalidItem, i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %s has negative price %s", ErrInvalidItem, item.ID, item.UnitPrice)
		}
		if err := ValidateQuantity(item.Quantity, 0); err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
	}
	return nil
}

// ValidateQuantity проверяет количество товара в позиции.
// stock > 0 задаёт верхнюю границу, 0 её отключает.
func ValidateQuantity(quantity, stock int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity %d must be at least 1", ErrInvalidItem, quantity)
	}
	if stock > 0 && quantity > stock {
		return fmt.Errorf("%w: quantity %d exceeds stock %d", ErrInvalidItem, quantity, stock)
	}
	return nil
}

// ParseOrderStatus преобразует строку в статус заказа.
func ParseOrderStatus(s string) (model.OrderStatus, error) {
	status := model.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// ValidateOrder проверяет заказ перед расчётом стоимости и построением ленты этапов.
func ValidateOrder(order model.Order) error {
	if !order.Status.Known() {
		return fmt.Errorf("order %d: %w: %q", order.ID, ErrUnknownStatus, order.Status)
	}

	if err := ValidateLineItems(order.Items); err != nil {
		return fmt.Errorf("order %d: %w", order.ID, err)
	}

	current := order.Status.MilestoneIndex()
	if order.Status == model.OrderStatusCancelled {
		// Отмена возможна только из ordered или processing.
		current = model.OrderStatusProcessing.MilestoneIndex()
	}
	for m := range order.MilestoneDates {
		if m == model.OrderStatusCancelled {
			continue
		}
		idx := m.MilestoneIndex()
		if idx < 0 {
			return fmt.Errorf("order %d: %w: milestone %q", order.ID, ErrUnknownStatus, m)
		}
		if idx > current {
			return fmt.Errorf("order %d: %w: %s after %s", order.ID, ErrNonMonotonic, m, order.Status)
		}
	}

	return nil
}

// NormalizeCoupon приводит код купона к каноническому виду.
func NormalizeCoupon(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
