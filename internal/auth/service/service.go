package service

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/auth/domain"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/config"
	"github.com/railzwaylabs/waterline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	tokens *tokenIssuer
}

func New(p Params) (domain.Service, error) {
	log := p.Log.Named("auth.service")

	secret := []byte(strings.TrimSpace(p.Config.Auth.JWTSecret))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("auth.jwt_secret not set; using an ephemeral signing key, tokens will not survive restarts")
	}

	return &Service{
		db:     p.DB,
		log:    log,
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		tokens: newTokenIssuer(secret, p.Config.Auth.TokenTTL),
	}, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.issue(user, s.clock.Now(ctx))
	if err != nil {
		s.log.Error("failed to sign token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return &domain.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (s *Service) VerifyToken(ctx context.Context, raw string) (domain.Actor, error) {
	userID, err := s.tokens.verify(raw)
	if err != nil {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.Actor{}, err
	}
	if user == nil {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	return domain.Actor{UserID: user.ID, Role: user.Role}, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !req.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	user := &domain.User{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		if errors.Is(err, db.ErrConstraintViolation) {
			return nil, domain.ErrEmailExists
		}
		s.log.Error("failed to create user", zap.Error(err), zap.String("email", user.Email))
		return nil, err
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	users, err := s.repo.List(ctx, s.db, role)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
