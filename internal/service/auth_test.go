package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/auth"
	"github.com/Jagan515/tms-server/internal/models"
)

type AuthSuite struct {
	serviceSuite
}

func TestAuth(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) TestLogin() {
	studentID := uuid.New()
	user, err := s.svc.CreateUser(s.ctx, "Parent", "Parent@Example.com", "password123", models.RoleParent, &studentID)
	s.Require().NoError(err)
	s.Equal("parent@example.com", user.Email)
	s.NotEqual("password123", user.PasswordHash)

	token, err := s.svc.Login(s.ctx, "parent@example.com", "password123")
	s.Require().NoError(err)

	claims, err := auth.ParseToken(token, s.cfg.JWTSecret)
	s.Require().NoError(err)
	s.Equal(models.RoleParent, claims.Role)
	linked, ok := claims.LinkedStudent()
	s.True(ok)
	s.Equal(studentID, linked)
}

func (s *AuthSuite) TestLoginFailures() {
	_, err := s.svc.CreateUser(s.ctx, "Teacher", "teacher@example.com", "password123", models.RoleTeacher, nil)
	s.Require().NoError(err)

	_, err = s.svc.Login(s.ctx, "teacher@example.com", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.svc.Login(s.ctx, "nobody@example.com", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *AuthSuite) TestCreateUserRejectsDuplicateEmail() {
	_, err := s.svc.CreateUser(s.ctx, "Teacher", "teacher@example.com", "password123", models.RoleTeacher, nil)
	s.Require().NoError(err)

	_, err = s.svc.CreateUser(s.ctx, "Teacher", "TEACHER@example.com", "password123", models.RoleTeacher, nil)
	s.True(apperr.IsValidation(err))

	_, err = s.svc.CreateUser(s.ctx, "Nobody", "", "password123", models.RoleTeacher, nil)
	s.True(apperr.IsValidation(err))
}
