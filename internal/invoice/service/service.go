package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("invoice.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Invoice, error) {
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Invoice{}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Detail, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}

	detail := &domain.Detail{Invoice: *inv, Entries: []domain.EntryLine{}}
	if inv.DeliveryID != nil {
		lines, err := s.repo.FindEntries(ctx, s.db, *inv.DeliveryID)
		if err != nil {
			s.log.Error("failed to load invoice entries", zap.Error(err), zap.String("invoice_id", id.String()))
			return nil, err
		}
		if lines != nil {
			detail.Entries = lines
		}
	}
	return detail, nil
}
