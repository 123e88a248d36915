package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
)

const (
	SystemIssuer    = "leadboard"
	AttendantIssuer = "leadboard-attendant"

	attendantTokenType = "attendant"
)

var (
	ErrMissingToken       = apperr.New(apperr.KindAuthentication, "missing token")
	ErrInvalidToken       = apperr.New(apperr.KindAuthentication, "invalid token")
	ErrInvalidSignature   = apperr.New(apperr.KindAuthentication, "invalid token signature")
	ErrExpiredToken       = apperr.New(apperr.KindAuthentication, "token has expired")
	ErrWrongPrincipalKind = apperr.New(apperr.KindAuthorization, "token not valid for this area")
)

type SystemClaims struct {
	UserID       uuid.UUID   `json:"userId"`
	Email        string      `json:"email"`
	UserType     models.Role `json:"userType"`
	IsSuperAdmin bool        `json:"isSuperAdmin"`
	TenantID     *uuid.UUID  `json:"tenantId,omitempty"`
	jwt.RegisteredClaims
}

type AttendantClaims struct {
	AttendantID uuid.UUID `json:"attendantId"`
	TenantID    uuid.UUID `json:"tenantId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	jwt.RegisteredClaims
}

// signer issues and verifies HS256 tokens for one namespace.
type signer struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func (s signer) registered(subject uuid.UUID) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-time.Second)),
		Issuer:    s.issuer,
		Subject:   subject.String(),
	}
}

func (s signer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s signer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return ErrWrongPrincipalKind
		default:
			return ErrInvalidToken
		}
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// signedBy reports whether the token carries a valid signature from s,
// regardless of its claims.
func (s signer) signedBy(tokenString string) bool {
	err := s.parse(tokenString, jwt.MapClaims{})
	return err == nil || errors.Is(err, ErrExpiredToken)
}

// JWTService holds the two token namespaces. A token minted in one namespace
// is rejected by the other with ErrWrongPrincipalKind.
type JWTService struct {
	system    signer
	attendant signer
}

func NewJWTService(systemSecret string, systemExpiry time.Duration, attendantSecret string, attendantExpiry time.Duration) *JWTService {
	return &JWTService{
		system:    signer{secret: []byte(systemSecret), expiry: systemExpiry, issuer: SystemIssuer},
		attendant: signer{secret: []byte(attendantSecret), expiry: attendantExpiry, issuer: AttendantIssuer},
	}
}

func (s *JWTService) GenerateSystemToken(u *models.User) (string, error) {
	return s.system.sign(SystemClaims{
		UserID:           u.ID,
		Email:            u.Email,
		UserType:         u.Role,
		IsSuperAdmin:     u.IsSuperAdmin(),
		TenantID:         u.TenantID,
		RegisteredClaims: s.system.registered(u.ID),
	})
}

func (s *JWTService) GenerateAttendantToken(a *models.Attendant) (string, error) {
	return s.attendant.sign(AttendantClaims{
		AttendantID:      a.ID,
		TenantID:         a.TenantID,
		Email:            a.Email,
		Name:             a.Name,
		Type:             attendantTokenType,
		RegisteredClaims: s.attendant.registered(a.ID),
	})
}

func (s *JWTService) ValidateSystemToken(tokenString string) (*SystemPrincipal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	var claims SystemClaims
	if err := s.system.parse(tokenString, &claims); err != nil {
		if errors.Is(err, ErrInvalidSignature) && s.attendant.signedBy(tokenString) {
			return nil, ErrWrongPrincipalKind
		}
		return nil, err
	}

	p := &SystemPrincipal{
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         claims.UserType,
		IsSuperAdmin: claims.IsSuperAdmin,
	}
	if claims.TenantID != nil {
		p.TenantID = *claims.TenantID
	}
	return p, nil
}

func (s *JWTService) ValidateAttendantToken(tokenString string) (*AttendantPrincipal, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	var claims AttendantClaims
	if err := s.attendant.parse(tokenString, &claims); err != nil {
		if errors.Is(err, ErrInvalidSignature) && s.system.signedBy(tokenString) {
			return nil, ErrWrongPrincipalKind
		}
		return nil, err
	}
	if claims.Type != attendantTokenType {
		return nil, ErrWrongPrincipalKind
	}

	return &AttendantPrincipal{
		AttendantID: claims.AttendantID,
		TenantID:    claims.TenantID,
		Email:       claims.Email,
		Name:        claims.Name,
	}, nil
}
