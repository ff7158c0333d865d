package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/fieldservice/internal/auth"
	"github.com/fieldops/fieldservice/internal/config"
	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates login and employee administration.
type AuthService struct {
	users      repository.UserRepository
	policy     *auth.Policy
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	clock      Clock
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users  repository.UserRepository
	Policy *auth.Policy
	Logger *zap.Logger
	Clock  Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	policy := deps.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	return &AuthService{
		users:      deps.Users,
		policy:     policy,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// LoginResult is a signed access token for a user.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// CreateUserInput describes a new employee.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// Login verifies credentials. Unknown email, wrong password and inactive
// accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.NewUnauthenticated("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.Active {
		return nil, errorutil.NewUnauthenticated("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, errorutil.NewUnauthenticated("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Me returns the stored user behind actor.
func (s *AuthService) Me(ctx context.Context, actor *domain.Actor) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errorutil.NewUnauthenticated("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// CreateUser registers an employee. Requires users.manage.
func (s *AuthService) CreateUser(ctx context.Context, actor *domain.Actor, input CreateUserInput) (*domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.policy.HasPermission(actor.Role, auth.PermUsersManage) {
		return nil, errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermUsersManage))
	}
	user, err := s.register(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.ID))
	return user, nil
}

// ListUsers lists employees, optionally by role. Actors that may assign
// tickets can list technicians without users.manage.
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.Actor, role *domain.Role) ([]domain.User, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	canManage := s.policy.HasPermission(actor.Role, auth.PermUsersManage)
	canPickTechnicians := role != nil && *role == domain.RoleTechnician &&
		s.policy.HasPermission(actor.Role, auth.PermTicketsAssign)
	if !canManage && !canPickTechnicians {
		return nil, errorutil.NewForbidden(fmt.Sprintf("role %s lacks permission %s", actor.Role, auth.PermUsersManage))
	}
	if role != nil && !s.policy.Known(*role) {
		return nil, errorutil.NewValidationError("unknown role",
			map[string]any{"role": string(*role), "allowed": s.roleNames()})
	}
	users, err := s.users.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// RoleLevel returns the hierarchy level of role, or 0 when it is unknown.
func (s *AuthService) RoleLevel(role domain.Role) int {
	level, _ := s.policy.Level(role)
	return level
}

// roleNames lists the policy's roles from lowest to highest level.
func (s *AuthService) roleNames() []string {
	roles := s.policy.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) register(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" {
		return nil, errorutil.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, errorutil.NewValidationError("email is invalid", map[string]any{"field": "email"})
	}
	if len(input.Password) < minPasswordLength {
		return nil, errorutil.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength),
			map[string]any{"field": "password"})
	}
	if !s.policy.Known(input.Role) {
		return nil, errorutil.NewValidationError("unknown role",
			map[string]any{"field": "role", "role": string(input.Role), "allowed": s.roleNames()})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, errorutil.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
