package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return db.Classify(conn.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := conn.WithContext(ctx).Preload("Customer").Where("id = ?", id).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > domain.DefaultListLimit {
		limit = domain.DefaultListLimit
	}

	stmt := conn.WithContext(ctx).
		Preload("Customer", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "address")
		}).
		Model(&domain.Invoice{})
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}

	var items []domain.Invoice
	if err := stmt.Order("date DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindEntries(ctx context.Context, conn *gorm.DB, deliveryID snowflake.ID) ([]domain.EntryLine, error) {
	var lines []domain.EntryLine
	err := conn.WithContext(ctx).Raw(
		`SELECT entry_date, delivered_bottles, empty_bottle, amount_due, amount_received, balance_amount
		 FROM delivery_entries
		 WHERE delivery_id = ?
		 ORDER BY position ASC`,
		deliveryID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) DeleteByDelivery(ctx context.Context, conn *gorm.DB, deliveryID snowflake.ID) error {
	return conn.WithContext(ctx).Exec(`DELETE FROM invoices WHERE delivery_id = ?`, deliveryID).Error
}
