package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListMenu returns active categories with their available products, both
// ordered by name. Categories without available products are kept.
func (r *Repository) ListMenu(ctx context.Context) ([]domain.MenuSection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.is_active,
		       p.id, p.name, p.description, p.price, p.image_url, p.is_available, p.created_at
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id AND p.is_available
		WHERE c.is_active
		ORDER BY c.name, p.name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	sections := []domain.MenuSection{}
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		var (
			category    domain.Category
			productID   uuid.NullUUID
			name        sql.NullString
			description sql.NullString
			price       decimal.NullDecimal
			imageURL    sql.NullString
			available   sql.NullBool
			createdAt   sql.NullTime
		)
		if err := rows.Scan(&category.ID, &category.Name, &category.IsActive,
			&productID, &name, &description, &price, &imageURL, &available, &createdAt); err != nil {
			return nil, err
		}

		i, ok := index[category.ID]
		if !ok {
			sections = append(sections, domain.MenuSection{Category: category, Products: []domain.Product{}})
			i = len(sections) - 1
			index[category.ID] = i
		}

		if !productID.Valid {
			continue
		}
		sections[i].Products = append(sections[i].Products, domain.Product{
			ID:          productID.UUID,
			CategoryID:  category.ID,
			Name:        name.String,
			Description: description.String,
			Price:       price.Decimal,
			ImageURL:    imageURL.String,
			IsAvailable: available.Bool,
			CreatedAt:   createdAt.Time,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sections, nil
}

// GetProduct returns nil, nil when the product does not exist.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, description, price, image_url, is_available, created_at
		FROM products
		WHERE id = $1
	`, id))
}

func (r *Repository) CreateCategory(ctx context.Context, name string, active bool) (*domain.Category, error) {
	category := &domain.Category{ID: uuid.New(), Name: name, IsActive: active}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, is_active)
		VALUES ($1, $2, $3)
	`, category.ID, category.Name, category.IsActive)
	if err != nil {
		return nil, err
	}

	return category, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, name, description, price, image_url, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, product.ID, product.CategoryID, product.Name, product.Description,
		product.Price, product.ImageURL, product.IsAvailable, product.CreatedAt)
	return err
}

// UpdateProductPrice returns nil, nil when the product does not exist.
// Existing order items keep the price they were added with.
func (r *Repository) UpdateProductPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET price = $1
		WHERE id = $2
		RETURNING id, category_id, name, description, price, image_url, is_available, created_at
	`, price, id))
}

// DeleteCategory removes the category and, through the foreign key, its products.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Description,
		&product.Price, &product.ImageURL, &product.IsAvailable, &product.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}
