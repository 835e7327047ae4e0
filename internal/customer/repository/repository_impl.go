package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, customer *domain.Customer) error {
	return db.Classify(conn.WithContext(ctx).Create(customer).Error)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	return r.find(conn.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var c domain.Customer
	err := stmt.Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Customer, int64, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Customer{})

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where(
			"LOWER(name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ? OR phone_number LIKE ?",
			like, like, like,
		)
	}
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Customer
	if err := page.Apply(stmt.Order("created_at DESC, id DESC")).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, customer *domain.Customer) error {
	if customer == nil {
		return gorm.ErrInvalidData
	}
	return db.Classify(conn.WithContext(ctx).Save(customer).Error)
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return db.Classify(conn.WithContext(ctx).Exec(`DELETE FROM customers WHERE id = ?`, id).Error)
}

func (r *repo) FindDue(ctx context.Context, conn *gorm.DB, day time.Time) ([]domain.Customer, error) {
	weekday := strings.ToLower(day.Weekday().String())
	nextDay := day.AddDate(0, 0, 1)

	var items []domain.Customer
	err := conn.WithContext(ctx).
		Where(
			`(next_delivery_date IS NOT NULL AND next_delivery_date < ?)
			 OR (next_delivery_date IS NULL AND LOWER(delivery_day) = ? AND delivery_schedule = ?)`,
			nextDay, weekday, domain.ScheduleWeekly,
		).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateNextDeliveryDate(ctx context.Context, conn *gorm.DB, id snowflake.ID, next, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE customers SET next_delivery_date = ?, updated_at = ? WHERE id = ?`,
		next, now.UTC(), id,
	).Error
}

func (r *repo) UpdateBalances(ctx context.Context, conn *gorm.DB, id snowflake.ID, balance decimal.Decimal, bottleBalance int, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE customers SET balance = ?, bottle_balance = ?, updated_at = ? WHERE id = ?`,
		balance, bottleBalance, now.UTC(), id,
	).Error
}
