package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

var (
	tracer = otel.Tracer("orders")
	meter  = otel.Meter("orders")
)

// Service implements the cart: every mutation locks the order row and
// recomputes the total inside the same transaction.
type Service struct {
	store    Store
	products ProductFinder

	itemsAdded    metric.Int64Counter
	itemsRemoved  metric.Int64Counter
	checkedOut    metric.Int64Counter
	checkoutTotal metric.Float64Histogram
}

func NewService(store Store, products ProductFinder) (*Service, error) {
	itemsAdded, err := meter.Int64Counter("burgerverse.cart.items_added",
		metric.WithDescription("Units added to carts"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, err
	}

	itemsRemoved, err := meter.Int64Counter("burgerverse.cart.items_removed",
		metric.WithDescription("Line items removed from carts"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, err
	}

	checkedOut, err := meter.Int64Counter("burgerverse.orders.checked_out",
		metric.WithDescription("Orders moved from PENDING to PREPARING"),
		metric.WithUnit("{order}"))
	if err != nil {
		return nil, err
	}

	checkoutTotal, err := meter.Float64Histogram("burgerverse.orders.checkout_total",
		metric.WithDescription("Total price of checked out orders"),
		metric.WithUnit("USD"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:         store,
		products:      products,
		itemsAdded:    itemsAdded,
		itemsRemoved:  itemsRemoved,
		checkedOut:    checkedOut,
		checkoutTotal: checkoutTotal,
	}, nil
}

// GetOrCreateActiveCart returns the user's PENDING order, creating an empty
// one when none exists.
func (s *Service) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.GetOrCreateActiveCart",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	var cart *domain.Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		cart, err = tx.GetOrCreatePendingOrder(ctx, userID)
		if err != nil {
			return err
		}
		cart.Items, err = tx.ListItems(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, fail(span, fmt.Errorf("get or create cart: %w", err))
	}

	return cart, nil
}

// ActiveCart returns the user's PENDING order or nil. It never creates one.
func (s *Service) ActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	cart, err := s.store.FindPendingOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return cart, nil
}

// AddProduct adds quantity units of the product. An existing line keeps its
// original price and only has its quantity incremented.
func (s *Service) AddProduct(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.AddProduct", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	product, err := s.product(ctx, productID, quantity)
	if err != nil {
		return nil, fail(span, err)
	}

	var order *domain.Order
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if order, err = lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		if err := addItem(ctx, tx, order, product, quantity); err != nil {
			return err
		}
		return recalculate(ctx, tx, order)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.itemsAdded.Add(ctx, int64(quantity))
	return order, nil
}

// RemoveProduct deletes every line for the product. Removing a product that
// is not in the order is a no-op; the total is recomputed either way.
func (s *Service) RemoveProduct(ctx context.Context, orderID, productID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.RemoveProduct", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("product.id", productID.String()),
	))
	defer span.End()

	var (
		order   *domain.Order
		removed int64
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if order, err = lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		if removed, err = tx.DeleteItems(ctx, order.ID, productID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return recalculate(ctx, tx, order)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	if removed > 0 {
		s.itemsRemoved.Add(ctx, removed)
	}
	return order, nil
}

// RecalculateTotal writes the sum of price x quantity over the order's items.
func (s *Service) RecalculateTotal(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.RecalculateTotal",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		return recalculate(ctx, tx, order)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	return order, nil
}

// Checkout moves a non-empty PENDING order to PREPARING. The total is left
// as is.
func (s *Service) Checkout(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Checkout",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	var order *domain.Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if order, err = lockPending(ctx, tx, orderID); err != nil {
			return err
		}
		return checkout(ctx, tx, order)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	s.recordCheckout(ctx, order)
	return order, nil
}

// AddToActiveCart finds or creates the user's cart and adds the product in
// a single transaction.
func (s *Service) AddToActiveCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.AddToActiveCart", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("product.id", productID.String()),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	product, err := s.product(ctx, productID, quantity)
	if err != nil {
		return nil, fail(span, err)
	}

	var cart *domain.Order
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if cart, err = tx.GetOrCreatePendingOrder(ctx, userID); err != nil {
			return fmt.Errorf("get or create cart: %w", err)
		}
		if err := addItem(ctx, tx, cart, product, quantity); err != nil {
			return err
		}
		return recalculate(ctx, tx, cart)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("order.id", cart.ID.String()))
	s.itemsAdded.Add(ctx, int64(quantity))
	return cart, nil
}

// RemoveFromActiveCart removes the product from the user's cart. Users
// without a cart get ErrNoActiveCart.
func (s *Service) RemoveFromActiveCart(ctx context.Context, userID, productID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.RemoveFromActiveCart", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("product.id", productID.String()),
	))
	defer span.End()

	var (
		cart    *domain.Order
		removed int64
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if cart, err = tx.LockPendingOrder(ctx, userID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if cart == nil {
			return ErrNoActiveCart
		}
		if removed, err = tx.DeleteItems(ctx, cart.ID, productID); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		return recalculate(ctx, tx, cart)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	if removed > 0 {
		s.itemsRemoved.Add(ctx, removed)
	}
	return cart, nil
}

// CheckoutActiveCart checks out the user's PENDING order. A user who has
// already checked out has no active cart and gets ErrNoActiveCart.
func (s *Service) CheckoutActiveCart(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.CheckoutActiveCart",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	var cart *domain.Order
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if cart, err = tx.LockPendingOrder(ctx, userID); err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if cart == nil {
			return ErrNoActiveCart
		}
		return checkout(ctx, tx, cart)
	})
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.String("order.id", cart.ID.String()))
	s.recordCheckout(ctx, cart)
	return cart, nil
}

// OrderForUser loads an order with its items, hiding orders of other users.
func (s *Service) OrderForUser(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) product(ctx context.Context, productID uuid.UUID, quantity int) (*domain.Product, error) {
	if quantity < 1 || quantity > domain.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Service) recordCheckout(ctx context.Context, order *domain.Order) {
	s.checkedOut.Add(ctx, 1)
	s.checkoutTotal.Record(ctx, order.TotalPrice.InexactFloat64())
}

func lockPending(ctx context.Context, tx Tx, orderID uuid.UUID) (*domain.Order, error) {
	order, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !order.IsCart() {
		return nil, ErrOrderNotPending
	}
	return order, nil
}

func addItem(ctx context.Context, tx Tx, order *domain.Order, product *domain.Product, quantity int) error {
	item, err := tx.FindItem(ctx, order.ID, product.ID)
	if err != nil {
		return fmt.Errorf("find item: %w", err)
	}

	if item != nil {
		if item.Quantity+quantity > domain.MaxItemQuantity {
			return ErrInvalidQuantity
		}
		if err := tx.UpdateItemQuantity(ctx, item.ID, item.Quantity+quantity); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		return nil
	}

	err = tx.InsertItem(ctx, &domain.OrderItem{
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	})
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// recalculate is the only writer of an order's total.
func recalculate(ctx context.Context, tx Tx, order *domain.Order) error {
	items, err := tx.ListItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	total := domain.Total(items)
	if total.GreaterThan(domain.MaxOrderTotal) {
		return ErrTotalTooLarge
	}
	if err := tx.UpdateTotal(ctx, order.ID, total); err != nil {
		return fmt.Errorf("update total: %w", err)
	}

	order.Items = items
	order.TotalPrice = total
	return nil
}

func checkout(ctx context.Context, tx Tx, order *domain.Order) error {
	items, err := tx.ListItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	order.Items = items
	if len(items) == 0 {
		return ErrEmptyCart
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusPreparing) {
		return ErrOrderNotPending
	}

	if err := tx.UpdateStatus(ctx, order.ID, domain.OrderStatusPreparing); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	order.Status = domain.OrderStatusPreparing
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
