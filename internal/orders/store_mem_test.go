package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

// memStore serializes transactions with a mutex and restores a snapshot
// when the transaction function fails.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]domain.Order
	items    map[uuid.UUID]domain.OrderItem
	products *memProducts
}

func newMemStore(products *memProducts) *memStore {
	return &memStore{
		orders:   make(map[uuid.UUID]domain.Order),
		items:    make(map[uuid.UUID]domain.OrderItem),
		products: products,
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := make(map[uuid.UUID]domain.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = v
	}
	items := make(map[uuid.UUID]domain.OrderItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}

	if err := fn(&memTx{m: m}); err != nil {
		m.orders, m.items = orders, items
		return err
	}
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = m.listItems(id)
	return &o, nil
}

func (m *memStore) FindPendingOrder(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := m.pending(userID)
	if o == nil {
		return nil, nil
	}
	o.Items = m.listItems(o.ID)
	return o, nil
}

func (m *memStore) pending(userID uuid.UUID) *domain.Order {
	for _, o := range m.orders {
		if o.UserID == userID && o.Status == domain.OrderStatusPending {
			return &o
		}
	}
	return nil
}

func (m *memStore) listItems(orderID uuid.UUID) []domain.OrderItem {
	items := []domain.OrderItem{}
	for _, item := range m.items {
		if item.OrderID == orderID {
			if p, ok := m.products.byID[item.ProductID]; ok {
				item.ProductName = p.Name
			}
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductName < items[j].ProductName })
	return items
}

type memTx struct {
	m *memStore
}

func (t *memTx) GetOrCreatePendingOrder(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	if o := t.m.pending(userID); o != nil {
		o.Items = []domain.OrderItem{}
		return o, nil
	}

	o := domain.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		TotalPrice: decimal.Zero,
		CreatedAt:  time.Now().UTC(),
	}
	t.m.orders[o.ID] = o
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (t *memTx) LockPendingOrder(_ context.Context, userID uuid.UUID) (*domain.Order, error) {
	o := t.m.pending(userID)
	if o != nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

func (t *memTx) LockOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := t.m.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (t *memTx) FindItem(_ context.Context, orderID, productID uuid.UUID) (*domain.OrderItem, error) {
	for _, item := range t.m.items {
		if item.OrderID == orderID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertItem(_ context.Context, item *domain.OrderItem) error {
	item.ID = uuid.New()
	t.m.items[item.ID] = *item
	return nil
}

func (t *memTx) UpdateItemQuantity(_ context.Context, itemID uuid.UUID, quantity int) error {
	item := t.m.items[itemID]
	item.Quantity = quantity
	t.m.items[itemID] = item
	return nil
}

func (t *memTx) DeleteItems(_ context.Context, orderID, productID uuid.UUID) (int64, error) {
	var n int64
	for id, item := range t.m.items {
		if item.OrderID == orderID && item.ProductID == productID {
			delete(t.m.items, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) ListItems(_ context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	return t.m.listItems(orderID), nil
}

func (t *memTx) UpdateTotal(_ context.Context, orderID uuid.UUID, total decimal.Decimal) error {
	o := t.m.orders[orderID]
	o.TotalPrice = total
	t.m.orders[orderID] = o
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	o := t.m.orders[orderID]
	o.Status = status
	t.m.orders[orderID] = o
	return nil
}

type memProducts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]domain.Product
}

func newMemProducts(products ...domain.Product) *memProducts {
	m := &memProducts{byID: make(map[uuid.UUID]domain.Product)}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memProducts) setPrice(id uuid.UUID, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.byID[id]
	p.Price = price
	m.byID[id] = p
}
