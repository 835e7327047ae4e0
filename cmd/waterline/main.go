// @title           Waterline API
// @version         1.0
// @description     Water delivery scheduling and completion API
// @contact.name    Waterline Support
// @contact.email   support@waterline.local

// @host      localhost:8080
// @BasePath  /api/v1
// @Schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/auth"
	"github.com/railzwaylabs/waterline/internal/authz"
	"github.com/railzwaylabs/waterline/internal/bootstrap"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/railzwaylabs/waterline/internal/customer"
	"github.com/railzwaylabs/waterline/internal/delivery"
	"github.com/railzwaylabs/waterline/internal/invoice"
	"github.com/railzwaylabs/waterline/internal/migration"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/railzwaylabs/waterline/internal/product"
	"github.com/railzwaylabs/waterline/internal/redis"
	"github.com/railzwaylabs/waterline/internal/scheduler"
	"github.com/railzwaylabs/waterline/internal/seed"
	"github.com/railzwaylabs/waterline/internal/server"
	"github.com/railzwaylabs/waterline/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const oneShotTimeout = 2 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "waterline",
		Short:   "Waterline delivery scheduler and API",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(
		newMigrateCmd(),
		newServeCmd(),
		newSchedulerCmd(),
		newAllCmd(),
		newScheduleCmd(),
		newSeedCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the daily delivery scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Materialize deliveries for one day and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var target time.Time
			if strings.TrimSpace(date) != "" {
				parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				target = parsed
			}
			return runScheduleOnce(cmd.Context(), target)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to schedule (default: tomorrow, UTC)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the admin, delivery staff, demo customers and products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", "", "admin login email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin login password")
	cmd.Flags().StringSliceVar(&opts.StaffNames, "staff", nil, "delivery staff names")
	cmd.Flags().BoolVar(&opts.SkipCustomers, "skip-customers", false, "do not create demo customers")
	return cmd
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

// domainModules are the services every long-running process needs.
func domainModules() fx.Option {
	return fx.Options(
		auth.Module,
		authz.Module,
		customer.Module,
		product.Module,
		invoice.Module,
		delivery.Module,
	)
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		domainModules(),
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		customer.Module,
		invoice.Module,
		delivery.Module,
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		domainModules(),
		scheduler.Module,
		server.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runScheduleOnce(ctx context.Context, target time.Time) error {
	var (
		s   *scheduler.Scheduler
		clk clock.Clock
		log *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		customer.Module,
		invoice.Module,
		delivery.Module,
		scheduler.Module,
		fx.Populate(&s, &clk, &log),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if ctx == nil {
		ctx = context.Background()
	}
	if target.IsZero() {
		target = clock.StartOfDay(clk.Now(ctx)).AddDate(0, 0, 1)
	}

	created, err := s.RunScheduleFor(ctx, target)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", target.Format(time.DateOnly), err)
	}
	log.Info("schedule finished",
		zap.String("date", target.Format(time.DateOnly)),
		zap.Int("created", len(created)),
	)
	return nil
}

func runSeed(ctx context.Context, opts seed.Options) error {
	var (
		conn *gorm.DB
		node *snowflake.Node
		clk  clock.Clock
		log  *zap.Logger
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),
		fx.Populate(&conn, &node, &clk, &log),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	if ctx == nil {
		ctx = context.Background()
	}
	_, err := seed.Run(ctx, conn, node, clk, log, opts)
	return err
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("WATERLINE_VERSION")); v != "" {
		return v
	}
	return "dev"
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := s.RunForever(ctx); err != nil {
					log.Error("scheduler exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
