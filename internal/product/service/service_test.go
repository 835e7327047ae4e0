package service

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/waterline/internal/product/domain"
	"github.com/railzwaylabs/waterline/internal/product/repository"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) domain.Service {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&domain.Product{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()})
}

func TestCreateDerivesCodeAndDefaults(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	desc := "  refillable  "
	p, err := svc.Create(ctx, domain.CreateRequest{
		Name:        " 19L Water Bottle ",
		Description: &desc,
		Price:       decimal.RequireFromString("80.004"),
	})
	require.NoError(t, err)
	assert.Equal(t, "19l-water-bottle", p.Code)
	assert.Equal(t, "19L Water Bottle", p.Name)
	assert.True(t, p.Active)
	require.NotNil(t, p.Description)
	assert.Equal(t, "refillable", *p.Description)
	assert.True(t, decimal.NewFromInt(80).Equal(p.Price))

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Code, stored.Code)
	assert.True(t, stored.Active)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "19L water bottle"})
	require.ErrorIs(t, err, domain.ErrCodeExists)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{name: "blank name", req: domain.CreateRequest{Name: "  "}, want: domain.ErrInvalidName},
		{name: "bad code", req: domain.CreateRequest{Name: "Cooler", Code: "Not A Slug"}, want: domain.ErrInvalidCode},
		{name: "negative quantity", req: domain.CreateRequest{Name: "Cooler", Quantity: -1}, want: domain.ErrInvalidQuantity},
		{name: "negative price", req: domain.CreateRequest{Name: "Cooler", Price: decimal.NewFromInt(-1)}, want: domain.ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestListFiltersByNameAndActive(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	inactive := false
	for _, req := range []domain.CreateRequest{
		{Name: "19L Water Bottle", Price: decimal.NewFromInt(80)},
		{Name: "5L Water Jug", Price: decimal.NewFromInt(25)},
		{Name: "Dispenser Pump", Price: decimal.NewFromInt(150), Active: &inactive},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, domain.ListRequest{Name: "WATER"})
	require.NoError(t, err)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "19L Water Bottle", resp.Products[0].Name)
	assert.Equal(t, int64(2), resp.PageInfo.Total)

	active := true
	resp, err = svc.List(ctx, domain.ListRequest{Active: &active, Page: pagination.Pagination{Page: 1, PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, int64(2), resp.PageInfo.Total)
	assert.True(t, resp.PageInfo.HasMore)

	resp, err = svc.List(ctx, domain.ListRequest{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "dispenser-pump", resp.Products[0].Code)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.CreateRequest{Name: "Water Jug", Quantity: 3, Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	name := "Water Jug 5L"
	qty := 10
	price := decimal.RequireFromString("27.5")
	off := false
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: p.ID, Name: &name, Quantity: &qty, Price: &price, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, p.Code, updated.Code)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
	assert.False(t, stored.Active)
	assert.True(t, price.Equal(stored.Price))

	blank := " "
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: p.ID, Name: &blank})
	require.ErrorIs(t, err, domain.ErrInvalidName)
	negative := -1
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: p.ID, Quantity: &negative})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, p.ID), domain.ErrNotFound)
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: p.ID, Name: &name})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
