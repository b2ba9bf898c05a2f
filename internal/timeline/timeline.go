// Package timeline строит ленту этапов выполнения заказа по его статусу.
package timeline

import (
	"time"

	"github.com/mmeshcher/storefront/internal/model"
)

// Project проецирует статус заказа на фиксированную последовательность этапов.
// Результат всегда содержит len(model.Milestones) шагов; заказ не изменяется.
//
// Для отменённого заказа ни один этап не считается завершённым или текущим,
// а признак Cancelled выставляется явно.
func Project(order model.Order) model.Timeline {
	currentIndex := order.Status.MilestoneIndex()

	steps := make([]model.TimelineStep, len(model.Milestones))
	for i, m := range model.Milestones {
		steps[i] = model.TimelineStep{
			Milestone: m,
			Completed: i <= currentIndex,
			Current:   i == currentIndex,
			Date:      lookupDate(order.MilestoneDates, m),
		}
		if m == model.OrderStatusOrdered && steps[i].Date == nil && !order.PlacedAt.IsZero() {
			placed := order.PlacedAt
			steps[i].Date = &placed
		}
	}

	t := model.Timeline{Steps: steps}
	if order.Status == model.OrderStatusCancelled {
		t.Cancelled = true
		t.CancelledAt = lookupDate(order.MilestoneDates, model.OrderStatusCancelled)
	}
	return t
}

func lookupDate(dates map[model.OrderStatus]time.Time, m model.OrderStatus) *time.Time {
	v, ok := dates[m]
	if !ok {
		return nil
	}
	return &v
}
