package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"urbanconnect-be/models"
	"urbanconnect-be/repository"
	"urbanconnect-be/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// AuthService registers citizens and issues tokens.
type AuthService struct {
	users  UserStore
	secret string
	ttl    time.Duration
	log    *slog.Logger
}

func NewAuthService(users UserStore, secret string, ttl time.Duration, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}
	return &AuthService{users: users, secret: secret, ttl: ttl, log: log}
}

var errInvalidCredentials = withMessage(ErrAuthRequired, "Invalid credentials")

// Register creates a citizen account. Administrators are only ever seeded.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	user := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
		Role:     models.RoleCitizen,
	}
	if err := user.HashPassword(); err != nil {
		return nil, withCause(ErrPersistenceFailed, err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, withMessage(ErrInvalidInput, "User with this email already exists")
		}
		return nil, persistence(err)
	}
	s.log.Info("user registered", "user_id", user.ID.Hex())
	return user, nil
}

// Login checks the password and returns a signed token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, errInvalidCredentials
	}
	if err != nil {
		return "", nil, persistence(err)
	}
	if !user.ComparePassword(password) {
		return "", nil, errInvalidCredentials
	}

	token, err := utils.GenerateToken(utils.Claims{
		UserID:     user.ID.Hex(),
		Role:       string(user.Role),
		Name:       user.Name,
		Department: user.Department,
	}, s.secret, s.ttl)
	if err != nil {
		return "", nil, withCause(ErrPersistenceFailed, err)
	}
	return token, user, nil
}

func (s *AuthService) Me(ctx context.Context, actor *Actor) (*models.User, error) {
	if !actor.authenticated() {
		return nil, ErrAuthRequired
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, withMessage(ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return user, nil
}

// SeedAdmin creates the administrator account once. It is a no-op when
// email or password is empty or the account already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, name, department string) error {
	if email == "" || password == "" {
		s.log.Warn("skip seeding admin: missing ADMIN_EMAIL/ADMIN_PASSWORD")
		return nil
	}
	admin := &models.User{
		Name:       name,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Password:   password,
		Role:       models.RoleAdmin,
		Department: department,
	}
	if err := admin.HashPassword(); err != nil {
		return err
	}
	err := s.users.Create(ctx, admin)
	if errors.Is(err, repository.ErrDuplicate) {
		s.log.Info("admin already exists", "email", admin.Email)
		return nil
	}
	if err == nil {
		s.log.Info("admin seeded", "email", admin.Email)
	}
	return err
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration { return s.ttl }
