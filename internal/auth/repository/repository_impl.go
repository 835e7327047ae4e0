package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, user *domain.User) error {
	return db.Classify(conn.WithContext(ctx).Create(user).Error)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var u domain.User
	err := conn.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) FindByEmail(ctx context.Context, conn *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := conn.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, role *domain.Role) ([]domain.User, error) {
	stmt := conn.WithContext(ctx).Model(&domain.User{})
	if role != nil {
		stmt = stmt.Where("role = ?", *role)
	}
	var users []domain.User
	if err := stmt.Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
