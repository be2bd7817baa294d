// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"festival-ticketing/logger"
	"festival-ticketing/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

type UserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin scanner"`
}

// UserSummary avoids exposing the password hash.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type UserService struct {
	DB  *gorm.DB
	log *slog.Logger
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db, log: logger.WithComponent("users")}
}

func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*UserSummary, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &models.User{ID: uuid.NewString(), Email: email, Role: in.Role}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	s.log.Info("user created", "email", email, "role", user.Role)
	return &UserSummary{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// SearchUsers lists accounts whose email contains query.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]UserSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	db := s.DB.WithContext(ctx).Model(&models.User{}).Order("email").Limit(limit)
	if query != "" {
		db = db.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(query))+"%")
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		return nil, err
	}
	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{ID: u.ID, Email: u.Email, Role: u.Role}
	}
	return res, nil
}

// EnsureBootstrapAdmin creates the first admin when the users table is empty.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.CreateUser(ctx, UserInput{Email: email, Password: password, Role: models.RoleAdmin})
	return err
}
