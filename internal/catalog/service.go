package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

type Store interface {
	ListMenu(ctx context.Context) ([]domain.MenuSection, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateCategory(ctx context.Context, name string, active bool) (*domain.Category, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProductPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*domain.Product, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error)
}

type Cache interface {
	GetMenu(ctx context.Context) ([]domain.MenuSection, error)
	SetMenu(ctx context.Context, sections []domain.MenuSection) error
	InvalidateMenu(ctx context.Context) error
}

// Service serves the menu cache-aside. A nil cache disables caching.
type Service struct {
	store  Store
	cache  Cache
	group  singleflight.Group
	logger *slog.Logger
}

func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

func (s *Service) Menu(ctx context.Context) ([]domain.MenuSection, error) {
	if s.cache != nil {
		sections, err := s.cache.GetMenu(ctx)
		if err == nil {
			return sections, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.WarnContext(ctx, "menu cache unavailable", "error", err)
		}
	}

	// shared by every waiter; the leader's cancellation must not end it
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(menuKey, func() (any, error) {
		sections, err := s.store.ListMenu(loadCtx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil {
			if err := s.cache.SetMenu(loadCtx, sections); err != nil {
				s.logger.WarnContext(loadCtx, "failed to cache menu", "error", err)
			}
		}
		return sections, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}

	return v.([]domain.MenuSection), nil
}

// GetProduct returns nil, nil when the product does not exist.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, name string, active bool) (*domain.Category, error) {
	category, err := s.store.CreateCategory(ctx, name, active)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

func (s *Service) CreateProduct(ctx context.Context, product *domain.Product) error {
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) UpdateProductPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*domain.Product, error) {
	product, err := s.store.UpdateProductPrice(ctx, id, price)
	if err != nil {
		return nil, err
	}
	if product != nil {
		s.invalidate(ctx)
	}
	return product, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.invalidate(ctx)
	}
	return deleted, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMenu(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate menu cache", "error", err)
	}
}
