package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zerox/internal/domain"
	"zerox/internal/errors"
)

// Store keeps orders, rate cards and payment intents in process. It honors
// the same compare-and-swap and single-intent rules as the MySQL store and
// is meant for local runs and tests.
type Store struct {
	mu        sync.RWMutex
	orders    map[string]*domain.Order
	rateCards map[string]*domain.RateCard
	intents   map[string]*domain.PaymentIntent // by order id
	gateway   map[string]string                // gateway order id -> order id
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		orders:    make(map[string]*domain.Order),
		rateCards: make(map[string]*domain.RateCard),
		intents:   make(map[string]*domain.PaymentIntent),
		gateway:   make(map[string]string),
		now:       time.Now,
	}
}

func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{s: s}
}

func (s *Store) RateCards() *RateCardRepository {
	return &RateCardRepository{s: s}
}

func (s *Store) PaymentIntents() *PaymentIntentRepository {
	return &PaymentIntentRepository{s: s}
}

// PutRateCard replaces a shop's rate card.
func (s *Store) PutRateCard(card *domain.RateCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateCards[card.ShopID] = card
}

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	order, exists := r.s.orders[id]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	return cloneOrder(order), nil
}

func (r *OrderRepository) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.CustomerID == customerID }), nil
}

func (r *OrderRepository) ListByShop(_ context.Context, shopID string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.ShopID == shopID }), nil
}

func (r *OrderRepository) ListByStorageKey(_ context.Context, storageKey string) ([]domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.HasStorageKey(storageKey) }), nil
}

func (r *OrderRepository) CompareAndSwapStatus(_ context.Context, id string, from, to domain.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.swapLocked(id, from, to)
}

func (r *OrderRepository) filter(match func(*domain.Order) bool) []domain.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Order
	for _, o := range r.s.orders {
		if match(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) swapLocked(id string, from, to domain.Status) error {
	order, exists := s.orders[id]
	if !exists {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if order.Status != from {
		return errors.NewConflictError(fmt.Sprintf("order %s is no longer %s", id, from), string(order.Status))
	}
	order.Status = to
	order.UpdatedAt = s.now().UTC()
	return nil
}

type RateCardRepository struct {
	s *Store
}

func (r *RateCardRepository) FindByShopID(_ context.Context, shopID string) (*domain.RateCard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	card, exists := r.s.rateCards[shopID]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("rate card for shop %s not found", shopID))
	}
	return card, nil
}

type PaymentIntentRepository struct {
	s *Store
}

func (r *PaymentIntentRepository) Create(_ context.Context, intent *domain.PaymentIntent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.intents[intent.OrderID]; exists {
		return errors.NewConflictError(fmt.Sprintf("order %s already has a payment intent", intent.OrderID), "")
	}
	if _, exists := r.s.gateway[intent.GatewayOrderID]; exists {
		return errors.NewConflictError(fmt.Sprintf("payment intent %s already exists", intent.GatewayOrderID), "")
	}
	stored := *intent
	r.s.intents[intent.OrderID] = &stored
	r.s.gateway[intent.GatewayOrderID] = intent.OrderID
	return nil
}

func (r *PaymentIntentRepository) FindByOrderID(_ context.Context, orderID string) (*domain.PaymentIntent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	intent, exists := r.s.intents[orderID]
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("payment intent for order %s not found", orderID))
	}
	found := *intent
	return &found, nil
}

func (r *PaymentIntentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error) {
	r.s.mu.RLock()
	orderID, exists := r.s.gateway[gatewayOrderID]
	r.s.mu.RUnlock()
	if !exists {
		return nil, errors.NewNotFoundError(fmt.Sprintf("payment intent %s not found", gatewayOrderID))
	}
	return r.FindByOrderID(ctx, orderID)
}

func (r *PaymentIntentRepository) ConfirmPayment(_ context.Context, gatewayOrderID, paymentID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	orderID, exists := r.s.gateway[gatewayOrderID]
	if !exists {
		return false, errors.NewNotFoundError(fmt.Sprintf("payment intent %s not found", gatewayOrderID))
	}
	intent := r.s.intents[orderID]
	if intent.Verified {
		return true, nil
	}

	if err := r.s.swapLocked(orderID, domain.StatusPending, domain.StatusPaid); err != nil {
		return false, err
	}

	verifiedAt := at.UTC()
	intent.Verified = true
	intent.PaymentID = paymentID
	intent.VerifiedAt = &verifiedAt
	return false, nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Files = make([]domain.OrderFile, len(o.Files))
	copy(c.Files, o.Files)
	return &c
}
