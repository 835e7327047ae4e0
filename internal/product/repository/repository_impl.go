package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/product/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	return db.Classify(conn.WithContext(ctx).Exec(
		`INSERT INTO products (id, code, name, description, quantity, price, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Code,
		product.Name,
		product.Description,
		product.Quantity,
		product.Price,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	).Error)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := conn.WithContext(ctx).Raw(
		`SELECT id, code, name, description, quantity, price, active, created_at, updated_at
		 FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) FindByCode(ctx context.Context, conn *gorm.DB, code string) (*domain.Product, error) {
	var p domain.Product
	err := conn.WithContext(ctx).Where("code = ?", code).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListRequest, page pagination.Pagination) ([]domain.Product, int64, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Product{})

	if name := strings.ToLower(strings.TrimSpace(filter.Name)); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+name+"%")
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Product
	if err := page.Apply(stmt.Order("name ASC, id ASC")).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	if product == nil {
		return gorm.ErrInvalidData
	}
	return db.Classify(conn.WithContext(ctx).Exec(
		`UPDATE products
		 SET name = ?, description = ?, quantity = ?, price = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name,
		product.Description,
		product.Quantity,
		product.Price,
		product.Active,
		product.UpdatedAt,
		product.ID,
	).Error)
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return db.Classify(conn.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id).Error)
}
