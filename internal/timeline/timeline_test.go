package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestProject_Shipped(t *testing.T) {
	order := model.Order{
		ID:     1,
		Status: model.OrderStatusShipped,
		MilestoneDates: map[model.OrderStatus]time.Time{
			model.OrderStatusOrdered:    base,
			model.OrderStatusProcessing: base.Add(24 * time.Hour),
			model.OrderStatusShipped:    base.Add(48 * time.Hour),
		},
	}

	tl := Project(order)
	require.Len(t, tl.Steps, 4)

	type want struct {
		milestone model.OrderStatus
		completed bool
		current   bool
		hasDate   bool
	}
	expected := []want{
		{model.OrderStatusOrdered, true, false, true},
		{model.OrderStatusProcessing, true, false, true},
		{model.OrderStatusShipped, true, true, true},
		{model.OrderStatusDelivered, false, false, false},
	}

	for i, w := range expected {
		step := tl.Steps[i]
		assert.Equal(t, w.milestone, step.Milestone)
		assert.Equal(t, w.completed, step.Completed, "step %s completed", step.Milestone)
		assert.Equal(t, w.current, step.Current, "step %s current", step.Milestone)
		assert.Equal(t, w.hasDate, step.Date != nil, "step %s date", step.Milestone)
	}

	require.NotNil(t, tl.Steps[2].Date)
	assert.True(t, tl.Steps[2].Date.Equal(base.Add(48*time.Hour)))
	assert.False(t, tl.Cancelled)
	assert.Equal(t, 75, tl.Progress())

	cur, ok := tl.Current()
	require.True(t, ok)
	assert.Equal(t, model.OrderStatusShipped, cur.Milestone)
}

func TestProject_ExactlyOneCurrent(t *testing.T) {
	for idx, status := range model.Milestones {
		t.Run(string(status), func(t *testing.T) {
			tl := Project(model.Order{Status: status})
			require.Len(t, tl.Steps, len(model.Milestones))

			currents := 0
			for i, step := range tl.Steps {
				if step.Current {
					currents++
					assert.Equal(t, idx, i)
				}
				if i <= idx {
					assert.True(t, step.Completed, "step %d must be completed", i)
				} else {
					assert.False(t, step.Completed, "step %d must not be completed", i)
				}
			}
			assert.Equal(t, 1, currents)
		})
	}
}

func TestProject_Cancelled(t *testing.T) {
	cancelledAt := base.Add(2 * time.Hour)
	order := model.Order{
		Status: model.OrderStatusCancelled,
		MilestoneDates: map[model.OrderStatus]time.Time{
			model.OrderStatusOrdered:   base,
			model.OrderStatusCancelled: cancelledAt,
		},
	}

	tl := Project(order)
	require.Len(t, tl.Steps, 4)
	assert.True(t, tl.Cancelled)
	require.NotNil(t, tl.CancelledAt)
	assert.True(t, tl.CancelledAt.Equal(cancelledAt))

	for _, step := range tl.Steps {
		assert.False(t, step.Completed)
		assert.False(t, step.Current)
	}
	assert.NotNil(t, tl.Steps[0].Date, "recorded dates are still reported")
	assert.Equal(t, 0, tl.Progress())

	_, ok := tl.Current()
	assert.False(t, ok)
}

func TestProject_UnknownStatus(t *testing.T) {
	tl := Project(model.Order{Status: "lost"})

	assert.False(t, tl.Cancelled)
	for _, step := range tl.Steps {
		assert.False(t, step.Completed)
		assert.False(t, step.Current)
	}
}

func TestProject_DoesNotMutateOrder(t *testing.T) {
	dates := map[model.OrderStatus]time.Time{model.OrderStatusOrdered: base}
	order := model.Order{Status: model.OrderStatusOrdered, MilestoneDates: dates}

	tl := Project(order)
	*tl.Steps[0].Date = base.Add(time.Hour)

	assert.True(t, dates[model.OrderStatusOrdered].Equal(base))
	assert.Len(t, dates, 1)
}

func TestProject_OrderedFallsBackToPlacedAt(t *testing.T) {
	order := model.Order{
		Status:   model.OrderStatusProcessing,
		PlacedAt: base,
		MilestoneDates: map[model.OrderStatus]time.Time{
			model.OrderStatusProcessing: base.Add(time.Hour),
		},
	}

	tl := Project(order)

	require.NotNil(t, tl.Steps[0].Date)
	assert.True(t, tl.Steps[0].Date.Equal(base))
	assert.Nil(t, tl.Steps[2].Date, "only the ordered step falls back")
	_, recorded := order.MilestoneDates[model.OrderStatusOrdered]
	assert.False(t, recorded)

	recordedAt := base.Add(-time.Minute)
	order.MilestoneDates[model.OrderStatusOrdered] = recordedAt
	tl = Project(order)
	require.NotNil(t, tl.Steps[0].Date)
	assert.True(t, tl.Steps[0].Date.Equal(recordedAt), "recorded date wins over PlacedAt")
}
