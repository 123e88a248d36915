package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "invalid credentials")
	ErrInactiveAccount    = apperr.New(apperr.KindAuthorization, "account is inactive")
	ErrLoginDisabled      = apperr.New(apperr.KindAuthorization, "login is disabled for this account")
	ErrWrongTenant        = apperr.New(apperr.KindAuthorization, "account does not belong to this tenant")
	ErrUserNotFound       = apperr.NotFound("user")
	ErrAttendantNotFound  = apperr.NotFound("attendant")
)

type Service struct {
	db  *gorm.DB
	jwt *JWTService
}

func NewService(db *gorm.DB, jwt *JWTService) *Service {
	return &Service{db: db, jwt: jwt}
}

// LoginInput carries credentials and the tenant resolved from the request.
// TenantID is uuid.Nil when the request host maps to no known tenant.
type LoginInput struct {
	Email    string
	Password string
	TenantID uuid.UUID
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AttendantAuthResponse struct {
	Token     string            `json:"token"`
	Attendant *models.Attendant `json:"attendant"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a system user. The account in the resolved tenant is
// preferred; otherwise any account with the email is considered so that
// super admins can sign in from any host.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	email := normalizeEmail(input.Email)
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Preload("Tenant").
		Where("email = ? AND tenant_id = ?", email, input.TenantID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Preload("Tenant").
			Where("email = ?", email).
			Order("created_at ASC").
			First(&user).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			burnCompare(input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	if !user.IsSuperAdmin() && (user.TenantID == nil || *user.TenantID != input.TenantID) {
		return nil, ErrWrongTenant
	}

	token, err := s.jwt.GenerateSystemToken(&user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &AuthResponse{
		Token: token,
		User:  &user,
	}, nil
}

func (s *Service) LoginAttendant(ctx context.Context, input LoginInput) (*AttendantAuthResponse, error) {
	var attendant models.Attendant
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(input.Email)).
		First(&attendant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			burnCompare(input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	if attendant.PasswordHash == "" {
		burnCompare(input.Password)
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(input.Password, attendant.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	switch {
	case !attendant.IsActive:
		return nil, ErrInactiveAccount
	case !attendant.LoginEnabled:
		return nil, ErrLoginDisabled
	case input.TenantID != uuid.Nil && attendant.TenantID != input.TenantID:
		return nil, ErrWrongTenant
	}

	token, err := s.jwt.GenerateAttendantToken(&attendant)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &AttendantAuthResponse{
		Token:     token,
		Attendant: &attendant,
	}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Tenant").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

func (s *Service) GetAttendantByID(ctx context.Context, id uuid.UUID) (*models.Attendant, error) {
	var attendant models.Attendant
	if err := s.db.WithContext(ctx).First(&attendant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendantNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &attendant, nil
}
