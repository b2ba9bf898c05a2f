// Package repository содержит источники заказов и корзины: JSON-фикстуры и PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mmeshcher/storefront/internal/model"
)

//go:embed fixtures/*.json
var fixturesFS embed.FS

var (
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCartNotFound возвращается, если корзина не найдена в источнике.
	ErrCartNotFound = errors.New("cart not found")
)

const (
	cartFixture   = "cart.json"
	ordersFixture = "orders.json"
)

// FixtureRepository отдаёт заказы и корзину из статических JSON-файлов
// с имитацией сетевой задержки.
type FixtureRepository struct {
	cart   *model.Cart
	orders []model.Order
	delay  time.Duration
}

// NewFixtureRepository загружает фикстуры из каталога dir или, если он пуст,
// из встроенных в бинарник файлов.
func NewFixtureRepository(dir string, delay time.Duration) (*FixtureRepository, error) {
	var fsys fs.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	} else {
		sub, err := fs.Sub(fixturesFS, "fixtures")
		if err != nil {
			return nil, fmt.Errorf("open embedded fixtures: %w", err)
		}
		fsys = sub
	}

	r := &FixtureRepository{delay: delay}

	var cart model.Cart
	found, err := readJSON(fsys, cartFixture, &cart)
	if err != nil {
		return nil, err
	}
	if found {
		r.cart = &cart
	}

	if _, err := readJSON(fsys, ordersFixture, &r.orders); err != nil {
		return nil, err
	}

	return r, nil
}

func readJSON(fsys fs.FS, name string, dst any) (bool, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return true, nil
}

// Close ничего не освобождает, метод нужен для общего контракта источников.
func (r *FixtureRepository) Close() error {
	return nil
}

func (r *FixtureRepository) wait(ctx context.Context) error {
	if r.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetCart возвращает исходное содержимое корзины.
func (r *FixtureRepository) GetCart(ctx context.Context) (model.Cart, error) {
	if err := r.wait(ctx); err != nil {
		return model.Cart{}, err
	}
	if r.cart == nil {
		return model.Cart{}, ErrCartNotFound
	}
	return r.cart.Clone(), nil
}

// ListOrders возвращает все заказы, новые первыми.
func (r *FixtureRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	res := make([]model.Order, 0, len(r.orders))
	for _, o := range r.orders {
		res = append(res, cloneOrder(o))
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].PlacedAt.After(res[j].PlacedAt)
	})
	return res, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *FixtureRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	for _, o := range r.orders {
		if o.ID == id {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, ErrOrderNotFound
}

// FindOrder ищет заказ по номеру заказа или трек-номеру.
func (r *FixtureRepository) FindOrder(ctx context.Context, number string) (*model.Order, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrOrderNotFound
	}
	for _, o := range r.orders {
		if o.Number == number || (o.TrackingNumber != "" && o.TrackingNumber == number) {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, ErrOrderNotFound
}

func cloneOrder(o model.Order) model.Order {
	c := o
	c.Items = make([]model.LineItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.MilestoneDates != nil {
		c.MilestoneDates = make(map[model.OrderStatus]time.Time, len(o.MilestoneDates))
		for k, v := range o.MilestoneDates {
			c.MilestoneDates[k] = v
		}
	}
	if o.EstimatedDelivery != nil {
		v := *o.EstimatedDelivery
		c.EstimatedDelivery = &v
	}
	return c
}
