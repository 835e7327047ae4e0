package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	authrepository "github.com/railzwaylabs/waterline/internal/auth/repository"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	customerrepository "github.com/railzwaylabs/waterline/internal/customer/repository"
	productdomain "github.com/railzwaylabs/waterline/internal/product/domain"
	productrepository "github.com/railzwaylabs/waterline/internal/product/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	defaultAdminName     = "Waterline Admin"
	defaultAdminEmail    = "admin@waterline.local"
	defaultAdminPassword = "admin-password"
	defaultStaffPassword = "staff-password"
	staffEmailDomain     = "waterline.local"

	bottleProductName = "19L Water Bottle"
)

var bottlePrice = decimal.NewFromInt(80)

// Options overrides the default credentials of the seeded accounts.
type Options struct {
	AdminEmail    string
	AdminPassword string
	StaffNames    []string
	// SkipCustomers leaves the customer table untouched.
	SkipCustomers bool
}

// Result counts the rows created by one seed run. Rows that already existed
// are not counted.
type Result struct {
	Users     int
	Customers int
	Products  int
}

type demoCustomer struct {
	name     string
	address  string
	phone    string
	schedule customerdomain.Schedule
	day      string
	// offset is the number of days from today of the first delivery.
	offset int
}

var demoCustomers = []demoCustomer{
	{name: "Anita Sharma", address: "12 Lake Road", phone: "555-0101", schedule: customerdomain.ScheduleWeekly, day: "Monday"},
	{name: "Brightside Cafe", address: "4 Market Street", phone: "555-0102", schedule: customerdomain.ScheduleWeekly, day: "Thursday"},
	{name: "Carlos Mendes", address: "88 Hill View", phone: "555-0103", schedule: customerdomain.ScheduleBiweekly, offset: 1},
	{name: "Delta Dental Clinic", address: "210 Park Avenue", phone: "555-0104", schedule: customerdomain.ScheduleMonthly, offset: 3},
}

var defaultStaff = []string{"Ravi Kumar", "Maria Lopez"}

// Run seeds an admin, the delivery staff, demo customers and the bottle product
// in one transaction. It is safe to run repeatedly.
func Run(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock, log *zap.Logger, opts Options) (Result, error) {
	var res Result
	if db == nil {
		return res, errors.New("seed database handle is required")
	}
	if node == nil {
		return res, errors.New("seed id generator is required")
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("seed")

	users := authrepository.Provide()
	customers := customerrepository.Provide()
	products := productrepository.Provide()
	now := clk.Now(ctx)

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		adminEmail, adminPassword := resolveAdminCredentials(opts)
		created, err := ensureUser(ctx, tx, users, node, now, authdomain.RoleAdmin, defaultAdminName, adminEmail, adminPassword)
		if err != nil {
			return err
		}
		if created {
			res.Users++
		}

		staff := opts.StaffNames
		if len(staff) == 0 {
			staff = defaultStaff
		}
		for _, name := range staff {
			email := slug.Make(name) + "@" + staffEmailDomain
			created, err := ensureUser(ctx, tx, users, node, now, authdomain.RoleDeliveryPerson, name, email, defaultStaffPassword)
			if err != nil {
				return err
			}
			if created {
				res.Users++
			}
		}

		created, err = ensureProduct(ctx, tx, products, node, now)
		if err != nil {
			return err
		}
		if created {
			res.Products++
		}

		if opts.SkipCustomers {
			return nil
		}
		for _, demo := range demoCustomers {
			created, err := ensureCustomer(ctx, tx, customers, node, now, demo)
			if err != nil {
				return err
			}
			if created {
				res.Customers++
			}
		}
		return nil
	})
	if err != nil {
		log.Error("seed failed", zap.Error(err))
		return Result{}, err
	}

	log.Info("seed completed",
		zap.Int("users", res.Users),
		zap.Int("customers", res.Customers),
		zap.Int("products", res.Products),
	)
	return res, nil
}

func resolveAdminCredentials(opts Options) (string, string) {
	email := strings.TrimSpace(opts.AdminEmail)
	if email == "" {
		email = defaultAdminEmail
	}
	email = strings.ToLower(email)

	password := opts.AdminPassword
	if strings.TrimSpace(password) == "" {
		password = defaultAdminPassword
	}

	return email, password
}

func ensureUser(ctx context.Context, tx *gorm.DB, repo authdomain.Repository, node *snowflake.Node, now time.Time, role authdomain.Role, name, email, password string) (bool, error) {
	existing, err := repo.FindByEmail(ctx, tx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	user := &authdomain.User{
		ID:           node.Generate(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Insert(ctx, tx, user); err != nil {
		return false, err
	}
	return true, nil
}

func ensureProduct(ctx context.Context, tx *gorm.DB, repo productdomain.Repository, node *snowflake.Node, now time.Time) (bool, error) {
	code := slug.Make(bottleProductName)
	existing, err := repo.FindByCode(ctx, tx, code)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	description := "Refillable 19 litre drinking water bottle"
	product := &productdomain.Product{
		ID:          node.Generate(),
		Code:        code,
		Name:        bottleProductName,
		Description: &description,
		Quantity:    0,
		Price:       bottlePrice,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, tx, product); err != nil {
		return false, err
	}
	return true, nil
}

func ensureCustomer(ctx context.Context, tx *gorm.DB, repo customerdomain.Repository, node *snowflake.Node, now time.Time, demo demoCustomer) (bool, error) {
	email := slug.Make(demo.name) + "@example.com"
	var count int64
	if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	customer := &customerdomain.Customer{
		ID:               node.Generate(),
		Name:             demo.name,
		Address:          demo.address,
		PhoneNumber:      demo.phone,
		Email:            &email,
		PricingPlan:      "standard",
		DeliverySchedule: demo.schedule,
		DeliveryDay:      demo.day,
		Balance:          decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// Only weekly customers are matched by weekday; the others need a first date.
	if demo.schedule != customerdomain.ScheduleWeekly {
		next := clock.StartOfDay(now).AddDate(0, 0, demo.offset)
		customer.NextDeliveryDate = &next
	}
	if err := repo.Insert(ctx, tx, customer); err != nil {
		return false, err
	}
	return true, nil
}
