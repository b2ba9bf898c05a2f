// Package service реализует бизнес-логику витрины: корзину, заказы и отслеживание.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cache"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/pricing"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/store"
	"github.com/mmeshcher/storefront/internal/timeline"
	"github.com/mmeshcher/storefront/internal/validation"
)

var (
	// ErrInvalidCoupon возвращается для неизвестного кода купона.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrInvalidRecord возвращается, если запись из источника не прошла валидацию.
	ErrInvalidRecord = errors.New("invalid record")
)

// Repository описывает источник заказов и исходной корзины.
type Repository interface {
	Close() error
	GetCart(ctx context.Context) (model.Cart, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	FindOrder(ctx context.Context, number string) (*model.Order, error)
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo     Repository
	carts    *store.CartStore
	policy   pricing.Policy
	cache    cache.Cache
	cacheTTL time.Duration
	cartTTL  time.Duration
	logger   *zap.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithCache включает кэширование найденных заказов.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithCartTTL задаёт срок жизни неактивной корзины.
func WithCartTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cartTTL = ttl
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService создаёт сервис поверх источника заказов и тарифной политики.
func NewService(repo Repository, policy pricing.Policy, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		policy: policy,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.carts = store.NewCartStore(s.seedCart, store.WithTTL(s.cartTTL))
	return s
}

// StartCartEviction периодически удаляет корзины неактивных сессий.
// Блокируется до отмены ctx.
func (s *Service) StartCartEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictCarts()
		}
	}
}

func (s *Service) evictCarts() int {
	n := s.carts.EvictExpired()
	if n > 0 {
		s.logger.Debug("expired carts evicted", zap.Int("evicted", n), zap.Int("remaining", s.carts.Len()))
	}
	return n
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}

func (s *Service) seedCart(ctx context.Context) (model.Cart, error) {
	cart, err := s.repo.GetCart(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return model.Cart{}, nil
		}
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if err := validation.ValidateLineItems(cart.Items); err != nil {
		return model.Cart{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	cart.CouponCode = ""
	return cart, nil
}

// CartSummary содержит корзину и её рассчитанную стоимость.
type CartSummary struct {
	Cart      model.Cart
	Pricing   model.PricingResult
	ItemCount int
}

func (s *Service) summarize(cart model.Cart) *CartSummary {
	return &CartSummary{
		Cart:      cart,
		Pricing:   s.policy.Quote(cart.Items, cart.CouponCode).Rounded(),
		ItemCount: pricing.ItemCount(cart.Items),
	}
}

// CartSummary возвращает корзину сессии и её стоимость.
func (s *Service) CartSummary(ctx context.Context, session string) (*CartSummary, error) {
	cart, err := s.carts.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	return s.summarize(cart), nil
}

// UpdateQuantity меняет количество товара в позиции корзины.
func (s *Service) UpdateQuantity(ctx context.Context, session, itemID string, quantity int) (*CartSummary, error) {
	cart, err := s.carts.SetQuantity(ctx, session, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return s.summarize(cart), nil
}

// RemoveItem удаляет позицию из корзины.
func (s *Service) RemoveItem(ctx context.Context, session, itemID string) (*CartSummary, error) {
	cart, err := s.carts.RemoveItem(ctx, session, itemID)
	if err != nil {
		return nil, err
	}
	return s.summarize(cart), nil
}

// ApplyCoupon применяет купон к корзине сессии.
func (s *Service) ApplyCoupon(ctx context.Context, session, code string) (*CartSummary, error) {
	code = validation.NormalizeCoupon(code)
	if _, ok := s.policy.LookupCoupon(code); !ok {
		return nil, ErrInvalidCoupon
	}
	cart, err := s.carts.SetCoupon(ctx, session, code)
	if err != nil {
		return nil, err
	}
	return s.summarize(cart), nil
}

// OrderView содержит заказ вместе с рассчитанной стоимостью и лентой этапов.
type OrderView struct {
	Order     model.Order
	Pricing   model.PricingResult
	Timeline  model.Timeline
	ItemCount int
}

func (s *Service) view(order model.Order) (*OrderView, error) {
	if err := validation.ValidateOrder(order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return &OrderView{
		Order:     order,
		Pricing:   s.policy.Quote(order.Items, order.CouponCode).Rounded(),
		Timeline:  timeline.Project(order),
		ItemCount: pricing.ItemCount(order.Items),
	}, nil
}

// OrderDetails возвращает заказ по идентификатору.
func (s *Service) OrderDetails(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(*order)
}

// TrackOrder ищет заказ по номеру заказа или трек-номеру.
func (s *Service) TrackOrder(ctx context.Context, number string) (*OrderView, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, repository.ErrOrderNotFound
	}

	if order, ok := s.cachedOrder(ctx, number); ok {
		return s.view(order)
	}

	order, err := s.repo.FindOrder(ctx, number)
	if err != nil {
		return nil, err
	}

	v, err := s.view(*order)
	if err != nil {
		return nil, err
	}
	s.storeOrder(ctx, number, *order)
	return v, nil
}

func (s *Service) cachedOrder(ctx context.Context, number string) (model.Order, bool) {
	if s.cache == nil {
		return model.Order{}, false
	}
	raw, err := s.cache.Get(ctx, s.cache.GenerateKey("track", number))
	if err != nil {
		s.logger.Warn("order cache read error", zap.Error(err), zap.String("number", number))
		return model.Order{}, false
	}
	if raw == "" {
		return model.Order{}, false
	}
	var order model.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		s.logger.Warn("order cache decode error", zap.Error(err), zap.String("number", number))
		return model.Order{}, false
	}
	return order, true
}

func (s *Service) storeOrder(ctx context.Context, number string, order model.Order) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn("order cache encode error", zap.Error(err), zap.String("number", number))
		return
	}
	if err := s.cache.Set(ctx, s.cache.GenerateKey("track", number), string(raw), s.cacheTTL); err != nil {
		s.logger.Warn("order cache write error", zap.Error(err), zap.String("number", number))
	}
}

// Period ограничивает список заказов по дате оформления.
type Period string

const (
	PeriodAll      Period = ""
	Period30Days   Period = "30days"
	Period6Months  Period = "6months"
	PeriodThisYear Period = "year"
)

// ParsePeriod разбирает значение фильтра периода.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodAll, Period30Days, Period6Months, PeriodThisYear:
		return p, nil
	case "all":
		return PeriodAll, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

func (p Period) includes(placed, now time.Time) bool {
	switch p {
	case Period30Days:
		return !placed.Before(now.AddDate(0, 0, -30))
	case Period6Months:
		return !placed.Before(now.AddDate(0, -6, 0))
	case PeriodThisYear:
		return placed.Year() == now.Year()
	default:
		return true
	}
}

// OrderFilter задаёт условия отбора заказов. Пустые поля не ограничивают выборку.
type OrderFilter struct {
	Status model.OrderStatus
	Search string
	Period Period
}

func (f OrderFilter) match(o model.Order, now time.Time) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.Period.includes(o.PlacedAt, now) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(o.Number), term) {
		return true
	}
	for _, item := range o.Items {
		if strings.Contains(strings.ToLower(item.Name), term) {
			return true
		}
	}
	return false
}

// ListOrders возвращает заказы, подходящие под фильтр, новые первыми.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter, now time.Time) ([]OrderView, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		if !filter.match(o, now) {
			continue
		}
		v, err := s.view(o)
		if err != nil {
			return nil, err
		}
		res = append(res, *v)
	}
	return res, nil
}

// OrderStats содержит сводку по заказам покупателя.
type OrderStats struct {
	Count      int
	TotalSpent decimal.Decimal
	Average    decimal.Decimal
}

// OrderStats считает количество заказов, общую сумму и средний чек.
func (s *Service) OrderStats(ctx context.Context, now time.Time) (*OrderStats, error) {
	views, err := s.ListOrders(ctx, OrderFilter{}, now)
	if err != nil {
		return nil, err
	}

	stats := &OrderStats{TotalSpent: decimal.Zero, Average: decimal.Zero}
	for _, v := range views {
		stats.TotalSpent = stats.TotalSpent.Add(v.Pricing.Total)
	}
	stats.Count = len(views)
	if stats.Count > 0 {
		stats.Average = stats.TotalSpent.Div(decimal.NewFromInt(int64(stats.Count))).Round(2)
	}
	return stats, nil
}
