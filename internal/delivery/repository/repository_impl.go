package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func orderedEntries(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, delivery *domain.Delivery) error {
	if delivery == nil {
		return gorm.ErrInvalidData
	}
	if err := conn.WithContext(ctx).Omit(clause.Associations).Create(delivery).Error; err != nil {
		return db.Classify(err)
	}
	if len(delivery.Entries) == 0 {
		return nil
	}
	return r.insertEntries(ctx, conn, delivery.ID, delivery.Entries)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	return r.find(conn.WithContext(ctx), id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Delivery, error) {
	var d domain.Delivery
	err := stmt.
		Preload("Customer").
		Preload("Entries", orderedEntries).
		Where("deliveries.id = ?", id).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]domain.Delivery, error) {
	stmt := conn.WithContext(ctx).
		Model(&domain.Delivery{}).
		Preload("Customer").
		Preload("Entries", orderedEntries)

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where(
			`customer_id IN (SELECT id FROM customers WHERE LOWER(name) LIKE ? OR LOWER(address) LIKE ? OR phone_number LIKE ?)`,
			like, like, like,
		)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		stmt = stmt.Where("scheduled_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("scheduled_date < ?", filter.To.UTC())
	}
	if filter.DeliveryPersonID != nil {
		stmt = stmt.Where("delivery_person_id = ?", *filter.DeliveryPersonID)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}

	var items []domain.Delivery
	if err := stmt.Order("scheduled_date ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, delivery *domain.Delivery) error {
	if delivery == nil {
		return gorm.ErrInvalidData
	}
	return db.Classify(conn.WithContext(ctx).Omit(clause.Associations).Save(delivery).Error)
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	if err := conn.WithContext(ctx).Exec(`DELETE FROM delivery_entries WHERE delivery_id = ?`, id).Error; err != nil {
		return err
	}
	return db.Classify(conn.WithContext(ctx).Exec(`DELETE FROM deliveries WHERE id = ?`, id).Error)
}

func (r *repo) ReplaceEntries(ctx context.Context, conn *gorm.DB, deliveryID snowflake.ID, entries []domain.Entry) error {
	if err := conn.WithContext(ctx).Exec(`DELETE FROM delivery_entries WHERE delivery_id = ?`, deliveryID).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return r.insertEntries(ctx, conn, deliveryID, entries)
}

func (r *repo) insertEntries(ctx context.Context, conn *gorm.DB, deliveryID snowflake.ID, entries []domain.Entry) error {
	for i := range entries {
		entries[i].DeliveryID = deliveryID
		entries[i].Position = i
	}
	return db.Classify(conn.WithContext(ctx).Create(&entries).Error)
}

func (r *repo) ExistsOnDay(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, day time.Time, exclude snowflake.ID) (bool, error) {
	query := conn.WithContext(ctx).
		Model(&domain.Delivery{}).
		Where("customer_id = ?", customerID).
		Where("scheduled_date >= ? AND scheduled_date < ?", day, day.AddDate(0, 0, 1)).
		Where("status <> ?", domain.StatusCancelled)
	if exclude != 0 {
		query = query.Where("id <> ?", exclude)
	}

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) History(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, order domain.HistoryOrder, limit int) ([]domain.Delivery, error) {
	column := "date"
	if order == domain.HistoryByActualDate {
		column = "actual_date"
	}

	var items []domain.Delivery
	err := conn.WithContext(ctx).
		Preload("Entries", orderedEntries).
		Where("customer_id = ? AND status = ?", customerID, domain.StatusDelivered).
		Order(column + " DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
