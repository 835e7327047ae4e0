package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v4"
	"github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/internal/auth/repository"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, secret string) domain.Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc, err := New(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.SystemClock{},
		Config: config.Config{Auth: config.AuthConfig{JWTSecret: secret, TokenTTL: time.Hour}},
		Repo:   repository.Provide(),
	})
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t, "test-secret")
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Name:     "Admin",
		Email:    " Admin@Waterline.test ",
		Password: "correct horse",
		Role:     domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@waterline.test", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	res, err := svc.Login(ctx, domain.LoginRequest{Email: "ADMIN@waterline.test", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	actor, err := svc.VerifyToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)
	assert.Equal(t, domain.RoleAdmin, actor.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, "test-secret")
	ctx := context.Background()
	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{
		Name: "Staff", Email: "staff@waterline.test", Password: "password1", Role: domain.RoleDeliveryPerson,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "staff@waterline.test", Password: "password2"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(ctx, domain.LoginRequest{Email: "nobody@waterline.test", Password: "password1"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyTokenRejectsForeignTokens(t *testing.T) {
	svc := newTestService(t, "test-secret")
	ctx := context.Background()

	_, err := svc.VerifyToken(ctx, "not-a-jwt")
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.VerifyToken(ctx, raw)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	user, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "Ops", Email: "ops@waterline.test", Password: "long enough", Role: domain.RoleAdmin})
	require.NoError(t, err)
	signed := func(issuer string) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
			Role: string(domain.RoleAdmin),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   user.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		raw, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return raw
	}

	actor, err := svc.VerifyToken(ctx, signed(tokenIssuerName))
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.UserID)

	_, err = svc.VerifyToken(ctx, signed("billing"))
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "A", Email: "a@x.test", Password: "short", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, domain.ErrWeakPassword)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "A", Email: "a@x.test", Password: "long enough", Role: domain.RoleScheduler})
	require.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "A", Email: "a@x.test", Password: "long enough", Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "B", Email: "A@x.test", Password: "long enough", Role: domain.RoleAdmin})
	require.ErrorIs(t, err, domain.ErrEmailExists)
}
