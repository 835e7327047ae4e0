package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	authrepository "github.com/railzwaylabs/waterline/internal/auth/repository"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/migration"
	productrepository "github.com/railzwaylabs/waterline/internal/product/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.Run(context.Background(), conn, zap.NewNop()))
	return conn
}

func TestRunSeedsOnce(t *testing.T) {
	conn := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	today := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	ctx := clock.WithAsOf(context.Background(), today)

	res, err := Run(ctx, conn, node, clock.SystemClock{}, zap.NewNop(), Options{AdminPassword: "s3cret-admin"})
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 3, Customers: 4, Products: 1}, res)

	again, err := Run(ctx, conn, node, clock.SystemClock{}, zap.NewNop(), Options{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, again)

	admin, err := authrepository.Provide().FindByEmail(ctx, conn, defaultAdminEmail)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, authdomain.RoleAdmin, admin.Role)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-admin")))

	staff, err := authrepository.Provide().FindByEmail(ctx, conn, "ravi-kumar@waterline.local")
	require.NoError(t, err)
	require.NotNil(t, staff)
	assert.Equal(t, authdomain.RoleDeliveryPerson, staff.Role)

	product, err := productrepository.Provide().FindByCode(ctx, conn, "19l-water-bottle")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.True(t, decimal.NewFromInt(80).Equal(product.Price))
	assert.True(t, product.Active)

	var biweekly customerdomain.Customer
	require.NoError(t, conn.Where("name = ?", "Carlos Mendes").Take(&biweekly).Error)
	assert.Equal(t, customerdomain.ScheduleBiweekly, biweekly.DeliverySchedule)
	require.NotNil(t, biweekly.NextDeliveryDate)
	assert.True(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC).Equal(*biweekly.NextDeliveryDate))

	var weekly customerdomain.Customer
	require.NoError(t, conn.Where("name = ?", "Anita Sharma").Take(&weekly).Error)
	assert.Nil(t, weekly.NextDeliveryDate)
	assert.Equal(t, "Monday", weekly.DeliveryDay)
}

func TestRunSkipsCustomers(t *testing.T) {
	conn := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	res, err := Run(context.Background(), conn, node, nil, nil, Options{
		AdminEmail:    "Owner@Example.com",
		StaffNames:    []string{"Sam Lee"},
		SkipCustomers: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 2, Products: 1}, res)

	owner, err := authrepository.Provide().FindByEmail(context.Background(), conn, "owner@example.com")
	require.NoError(t, err)
	require.NotNil(t, owner)

	var customers int64
	require.NoError(t, conn.Model(&customerdomain.Customer{}).Count(&customers).Error)
	assert.Zero(t, customers)
}

func TestRunRequiresHandles(t *testing.T) {
	_, err := Run(context.Background(), nil, nil, nil, nil, Options{})
	require.Error(t, err)
}
