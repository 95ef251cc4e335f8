package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/auth"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/store"
)

const tokenTTL = 24 * time.Hour

// ErrInvalidCredentials is returned for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// CreateUser creates an account with a hashed password
func (s *Service) CreateUser(ctx context.Context, name, email, password string, role models.Role, studentID *uuid.UUID) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperr.NewValidation("email and password are required")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: string(hashedPassword),
		Role:         role,
		StudentID:    studentID,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.NewValidation("email %s is already registered", user.Email)
		}
		return nil, err
	}

	s.log.Infof("User created: %s (%s)", user.Email, user.Role)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := auth.IssueToken(user, s.config.JWTSecret, tokenTTL, s.now())
	if err != nil {
		return "", err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return token, nil
}
