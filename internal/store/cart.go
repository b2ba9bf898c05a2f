// Package store хранит состояние корзин покупателей в памяти процесса.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// ErrItemNotFound возвращается, если позиции нет в корзине.
var ErrItemNotFound = errors.New("cart item not found")

// DefaultTTL совпадает со сроком жизни cookie сессии.
const DefaultTTL = 30 * 24 * time.Hour

// SeedFunc возвращает исходное содержимое корзины для новой сессии.
type SeedFunc func(ctx context.Context) (model.Cart, error)

type entry struct {
	cart       model.Cart
	lastAccess time.Time
}

// CartStore хранит корзины, привязанные к идентификатору сессии.
// Все методы возвращают копии, внутреннее состояние наружу не выдаётся.
// Корзина, к которой не обращались дольше ttl, считается истёкшей.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]*entry
	seed  SeedFunc
	ttl   time.Duration
	now   func() time.Time
}

// Option настраивает CartStore.
type Option func(*CartStore)

// WithTTL задаёт срок жизни неактивной корзины. Значения <= 0 игнорируются.
func WithTTL(ttl time.Duration) Option {
	return func(s *CartStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *CartStore) {
		s.now = now
	}
}

// NewCartStore создаёт хранилище корзин. seed может быть nil, тогда новые корзины пусты.
func NewCartStore(seed SeedFunc, opts ...Option) *CartStore {
	s := &CartStore{
		carts: make(map[string]*entry),
		seed:  seed,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookupLocked возвращает живую корзину сессии и продлевает её срок.
func (s *CartStore) lookupLocked(session string) (*entry, bool) {
	e, ok := s.carts[session]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.lastAccess) > s.ttl {
		delete(s.carts, session)
		return nil, false
	}
	e.lastAccess = now
	return e, true
}

// Get возвращает корзину сессии, при первом обращении заполняя её через seed.
func (s *CartStore) Get(ctx context.Context, session string) (model.Cart, error) {
	s.mu.Lock()
	e, ok := s.lookupLocked(session)
	var c model.Cart
	if ok {
		c = e.cart.Clone()
	}
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	var seeded model.Cart
	if s.seed != nil {
		var err error
		seeded, err = s.seed(ctx)
		if err != nil {
			return model.Cart{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Корзину могли создать параллельно, пока выполнялся seed.
	if e, ok := s.lookupLocked(session); ok {
		return e.cart.Clone(), nil
	}
	s.carts[session] = &entry{cart: seeded.Clone(), lastAccess: s.now()}
	return seeded.Clone(), nil
}

// SetQuantity меняет количество товара в позиции с учётом остатка.
func (s *CartStore) SetQuantity(ctx context.Context, session, itemID string, quantity int) (model.Cart, error) {
	return s.update(ctx, session, func(c *model.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				if err := validation.ValidateQuantity(quantity, c.Items[i].Stock); err != nil {
					return err
				}
				c.Items[i].Quantity = quantity
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// RemoveItem удаляет позицию из корзины.
func (s *CartStore) RemoveItem(ctx context.Context, session, itemID string) (model.Cart, error) {
	return s.update(ctx, session, func(c *model.Cart) error {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
		}
		return ErrItemNotFound
	})
}

// SetCoupon сохраняет код купона в корзине.
func (s *CartStore) SetCoupon(ctx context.Context, session, code string) (model.Cart, error) {
	return s.update(ctx, session, func(c *model.Cart) error {
		c.CouponCode = code
		return nil
	})
}

// EvictExpired удаляет корзины, к которым не обращались дольше ttl,
// и возвращает число удалённых.
func (s *CartStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for session, e := range s.carts {
		if now.Sub(e.lastAccess) > s.ttl {
			delete(s.carts, session)
			evicted++
		}
	}
	return evicted
}

// Len возвращает число корзин в памяти.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *CartStore) update(ctx context.Context, session string, fn func(c *model.Cart) error) (model.Cart, error) {
	if _, err := s.Get(ctx, session); err != nil {
		return model.Cart{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[session]
	if !ok {
		// Корзину вытеснили между Get и захватом блокировки.
		e = &entry{}
		s.carts[session] = e
	}
	c := e.cart.Clone()
	if err := fn(&c); err != nil {
		return model.Cart{}, err
	}
	e.cart = c
	e.lastAccess = s.now()
	return c.Clone(), nil
}
