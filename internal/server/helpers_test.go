package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/waterline/internal/apikey"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	authrepository "github.com/railzwaylabs/waterline/internal/auth/repository"
	authservice "github.com/railzwaylabs/waterline/internal/auth/service"
	"github.com/railzwaylabs/waterline/internal/authz"
	"github.com/railzwaylabs/waterline/internal/bootstrap"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	customerrepository "github.com/railzwaylabs/waterline/internal/customer/repository"
	customerservice "github.com/railzwaylabs/waterline/internal/customer/service"
	deliveryrepository "github.com/railzwaylabs/waterline/internal/delivery/repository"
	deliveryservice "github.com/railzwaylabs/waterline/internal/delivery/service"
	invoicerepository "github.com/railzwaylabs/waterline/internal/invoice/repository"
	invoiceservice "github.com/railzwaylabs/waterline/internal/invoice/service"
	"github.com/railzwaylabs/waterline/internal/migration"
	"github.com/railzwaylabs/waterline/internal/observability"
	productrepository "github.com/railzwaylabs/waterline/internal/product/repository"
	productservice "github.com/railzwaylabs/waterline/internal/product/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAPIKey = "scheduler-test-key"

type testEnv struct {
	db          *gorm.DB
	engine      *gin.Engine
	miniredis   *miniredis.Miniredis
	authSvc     authdomain.Service
	customerSvc customerdomain.Service
	metrics     *observability.Metrics
	users       int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zap.NewNop()
	require.NoError(t, migration.Run(context.Background(), conn, log))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.SystemClock{}
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			TokenTTL:     time.Hour,
			APIKeyHashes: []string{apikey.HashAPIKey(testAPIKey)},
		},
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	authSvc, err := authservice.New(authservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Config: cfg, Repo: authrepository.Provide(),
	})
	require.NoError(t, err)

	customerRepo := customerrepository.Provide()
	invoiceRepo := invoicerepository.Provide()
	metrics := observability.NewMetrics()

	customerSvc := customerservice.New(customerservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: customerRepo,
	})
	deliverySvc := deliveryservice.New(deliveryservice.Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         deliveryrepository.Provide(),
		CustomerRepo: customerRepo,
		InvoiceRepo:  invoiceRepo,
		Metrics:      metrics,
	})

	authorizer, err := authz.New(authz.Params{DB: conn, Log: log})
	require.NoError(t, err)
	gate, err := bootstrap.NewSchemaGate(conn)
	require.NoError(t, err)

	srv := NewServer(Params{
		Config:      cfg,
		Log:         log,
		DB:          conn,
		Engine:      NewEngine(cfg),
		Clock:       clk,
		Redis:       rdb,
		Metrics:     metrics,
		SchemaGate:  gate,
		Authorizer:  authorizer,
		AuthSvc:     authSvc,
		DeliverySvc: deliverySvc,
		CustomerSvc: customerSvc,
		ProductSvc:  productservice.New(productservice.Params{DB: conn, Log: log, GenID: node, Repo: productrepository.Provide()}),
		InvoiceSvc:  invoiceservice.NewService(invoiceservice.Params{DB: conn, Log: log, Repo: invoiceRepo}),
	})
	srv.RegisterAPIRoutes()

	return &testEnv{
		db:          conn,
		engine:      srv.Engine(),
		miniredis:   mr,
		authSvc:     authSvc,
		customerSvc: customerSvc,
		metrics:     metrics,
	}
}

// login creates a user with role and returns its id and bearer token.
func (e *testEnv) login(t *testing.T, role authdomain.Role) (snowflake.ID, string) {
	t.Helper()
	e.users++
	email := fmt.Sprintf("%s-%d@example.com", strings.ToLower(string(role)), e.users)
	user, err := e.authSvc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Name:     string(role),
		Email:    email,
		Password: "correct-horse",
		Role:     role,
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Data authdomain.LoginResponse `json:"data"`
	}](t, rec)
	return user.ID, resp.Data.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}
