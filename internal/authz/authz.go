package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Objects guarded by the policy.
const (
	ObjectDeliveries = "deliveries"
	ObjectCustomers  = "customers"
	ObjectProducts   = "products"
	ObjectInvoices   = "invoices"
	ObjectUsers      = "users"
	ObjectSchedule   = "schedule"
)

// Actions checked against the policy.
const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionComplete = "complete"
	ActionRun      = "run"
)

const wildcard = "*"

var ErrForbidden = errors.New("forbidden")

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{string(authdomain.RoleAdmin), wildcard, wildcard},
	{string(authdomain.RoleDeliveryPerson), ObjectDeliveries, ActionRead},
	{string(authdomain.RoleDeliveryPerson), ObjectDeliveries, ActionComplete},
	{string(authdomain.RoleDeliveryPerson), ObjectCustomers, ActionRead},
	{string(authdomain.RoleDeliveryPerson), ObjectProducts, ActionRead},
	{string(authdomain.RoleScheduler), ObjectSchedule, ActionRun},
}

type Authorizer interface {
	Authorize(ctx context.Context, actor authdomain.Actor, object, action string) error
}

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type enforcer struct {
	e   *casbin.SyncedEnforcer
	log *zap.Logger
}

// New loads the RBAC policy from the casbin_rule table and seeds the default
// role grants when they are missing.
func New(p Params) (Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parse rbac model: %w", err)
	}

	adapter, err := gormadapter.NewAdapterByDB(p.DB)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	log := p.Log.Named("authz")
	for _, rule := range defaultPolicies {
		added, err := e.AddPolicy(rule[0], rule[1], rule[2])
		if err != nil {
			return nil, fmt.Errorf("seed policy %v: %w", rule, err)
		}
		if added {
			log.Info("seeded policy", zap.Strings("rule", rule))
		}
	}

	return &enforcer{e: e, log: log}, nil
}

func (a *enforcer) Authorize(_ context.Context, actor authdomain.Actor, object, action string) error {
	ok, err := a.e.Enforce(string(actor.Role), object, action)
	if err != nil {
		a.log.Error("policy evaluation failed",
			zap.String("role", string(actor.Role)),
			zap.String("object", object),
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
