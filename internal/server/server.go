package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/railzwaylabs/waterline/internal/apikey"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/internal/authz"
	"github.com/railzwaylabs/waterline/internal/bootstrap"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/railzwaylabs/waterline/internal/observability"
	productdomain "github.com/railzwaylabs/waterline/internal/product/domain"
	"github.com/railzwaylabs/waterline/internal/scheduler"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// scheduleRunner triggers one scheduling pass for a day.
type scheduleRunner interface {
	RunScheduleFor(ctx context.Context, target time.Time) ([]deliverydomain.Delivery, error)
}

// directRunner runs the schedule without recording a job run.
type directRunner struct {
	svc deliverydomain.Service
}

func (r directRunner) RunScheduleFor(ctx context.Context, target time.Time) ([]deliverydomain.Delivery, error) {
	return r.svc.RunSchedule(ctx, clock.StartOfDay(target))
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Engine     *gin.Engine
	Clock      clock.Clock
	Redis      *redis.Client          `optional:"true"`
	Metrics    *observability.Metrics `optional:"true"`
	SchemaGate bootstrap.SchemaGate   `optional:"true"`
	Scheduler  *scheduler.Scheduler   `optional:"true"`

	Authorizer  authz.Authorizer
	AuthSvc     authdomain.Service
	DeliverySvc deliverydomain.Service
	CustomerSvc customerdomain.Service
	ProductSvc  productdomain.Service
	InvoiceSvc  invoicedomain.Service
}

type Server struct {
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	engine      *gin.Engine
	clock       clock.Clock
	redis       *redis.Client
	metrics     *observability.Metrics
	schemaGate  bootstrap.SchemaGate
	scheduler   scheduleRunner
	idempotency *idempotencyStore
	apiKeys     *apikey.Verifier

	authorizer  authz.Authorizer
	authSvc     authdomain.Service
	deliverySvc deliverydomain.Service
	customerSvc customerdomain.Service
	productSvc  productdomain.Service
	invoiceSvc  invoicedomain.Service
}

// NewEngine builds the gin engine. Validation errors report JSON field names.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	return engine
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

func NewServer(p Params) *Server {
	var runner scheduleRunner = directRunner{svc: p.DeliverySvc}
	if p.Scheduler != nil {
		runner = p.Scheduler
	}

	return &Server{
		cfg:         p.Config,
		log:         p.Log.Named("server"),
		db:          p.DB,
		engine:      p.Engine,
		clock:       p.Clock,
		redis:       p.Redis,
		metrics:     p.Metrics,
		schemaGate:  p.SchemaGate,
		scheduler:   runner,
		idempotency: newIdempotencyStore(p.Redis),
		apiKeys:     apikey.NewVerifier(p.Config),
		authorizer:  p.Authorizer,
		authSvc:     p.AuthSvc,
		deliverySvc: p.DeliverySvc,
		customerSvc: p.CustomerSvc,
		productSvc:  p.ProductSvc,
		invoiceSvc:  p.InvoiceSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.Use(RequestID(), RequestLogger(s.log), RequestMetrics(s.metrics))

	s.RegisterSystemRoutes()

	api := s.engine.Group("/api/v1")
	api.POST("/auth/login", s.Login)

	authed := api.Group("", s.AuthRequired())
	authed.GET("/auth/me", s.Me)

	users := authed.Group("/users")
	users.GET("", s.RequirePermission(authz.ObjectUsers, authz.ActionRead), s.ListUsers)
	users.POST("", s.RequirePermission(authz.ObjectUsers, authz.ActionWrite), s.CreateUser)

	deliveries := authed.Group("/deliveries")
	{
		read := s.RequirePermission(authz.ObjectDeliveries, authz.ActionRead)
		write := s.RequirePermission(authz.ObjectDeliveries, authz.ActionWrite)

		deliveries.GET("", read, s.ListDeliveries)
		deliveries.POST("", write, s.Idempotent("deliveries.create"), s.CreateDelivery)
		deliveries.POST("/schedule",
			s.RequirePermission(authz.ObjectSchedule, authz.ActionRun),
			s.Idempotent("deliveries.schedule"),
			s.ScheduleDeliveries,
		)
		deliveries.GET("/history/:customerId", read, s.DeliveryHistory)
		deliveries.GET("/:id", read, s.GetDelivery)
		deliveries.PATCH("/:id", write, s.UpdateDelivery)
		deliveries.DELETE("/:id", write, s.DeleteDelivery)
		deliveries.PATCH("/:id/complete",
			s.RequirePermission(authz.ObjectDeliveries, authz.ActionComplete),
			s.Idempotent("deliveries.complete"),
			s.CompleteDelivery,
		)
	}

	customers := authed.Group("/customers")
	{
		read := s.RequirePermission(authz.ObjectCustomers, authz.ActionRead)
		write := s.RequirePermission(authz.ObjectCustomers, authz.ActionWrite)

		customers.GET("", read, s.ListCustomers)
		customers.POST("", write, s.CreateCustomer)
		customers.GET("/:id", read, s.GetCustomer)
		customers.PATCH("/:id", write, s.UpdateCustomer)
		customers.DELETE("/:id", write, s.DeleteCustomer)
	}

	products := authed.Group("/products")
	{
		read := s.RequirePermission(authz.ObjectProducts, authz.ActionRead)
		write := s.RequirePermission(authz.ObjectProducts, authz.ActionWrite)

		products.GET("", read, s.ListProducts)
		products.POST("", write, s.CreateProduct)
		products.GET("/:id", read, s.GetProduct)
		products.PATCH("/:id", write, s.UpdateProduct)
		products.DELETE("/:id", write, s.DeleteProduct)
	}

	invoices := authed.Group("/invoices", s.RequirePermission(authz.ObjectInvoices, authz.ActionRead))
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoice)
	invoices.GET("/:id/pdf", s.GetInvoicePDF)
}

// RunHTTP serves the engine for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	log = log.Named("http")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cfg.HTTP.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}

func parseOptionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
