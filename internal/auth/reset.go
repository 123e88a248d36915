package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/tasks"
	"github.com/hugh/leadboard/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidResetToken = apperr.New(apperr.KindValidation, "invalid or expired reset token")

// ResetService issues single-use password reset tokens. Only the sha256 of a
// token is persisted; the plaintext leaves the process in the reset email.
type ResetService struct {
	db       *gorm.DB
	enqueuer TaskEnqueuer
	logger   *slog.Logger
	ttl      time.Duration
	urlBase  string
	now      func() time.Time
}

func NewResetService(db *gorm.DB, enqueuer TaskEnqueuer, logger *slog.Logger, ttl time.Duration, urlBase string) *ResetService {
	return &ResetService{
		db:       db,
		enqueuer: enqueuer,
		logger:   logger,
		ttl:      ttl,
		urlBase:  urlBase,
		now:      time.Now,
	}
}

type resetTarget struct {
	kind  models.PrincipalType
	id    uuid.UUID
	email string
	name  string
}

func (s *ResetService) findTarget(ctx context.Context, email string, tenantID uuid.UUID) (*resetTarget, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ? AND is_active = ?", email, true).
		Order(clause.OrderBy{Expression: clause.Expr{SQL: "CASE WHEN tenant_id = ? THEN 0 ELSE 1 END", Vars: []interface{}{tenantID}}}).
		First(&user).Error
	if err == nil {
		return &resetTarget{kind: models.PrincipalUser, id: user.ID, email: user.Email, name: user.Name}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var attendant models.Attendant
	err = db.Where("email = ? AND is_active = ? AND login_enabled = ?", email, true, true).First(&attendant).Error
	if err == nil {
		return &resetTarget{kind: models.PrincipalAttendant, id: attendant.ID, email: attendant.Email, name: attendant.Name}, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// RequestReset never reveals whether the email belongs to an account. Any
// failure after the lookup is logged and swallowed.
func (s *ResetService) RequestReset(ctx context.Context, email string, tenantID uuid.UUID) error {
	target, err := s.findTarget(ctx, normalizeEmail(email), tenantID)
	if err != nil {
		return apperr.Internal(err)
	}
	if target == nil {
		return nil
	}

	token, err := crypto.GenerateToken(32)
	if err != nil {
		return apperr.Internal(err)
	}

	expiresAt := s.now().Add(s.ttl)
	record := models.PasswordResetToken{
		PrincipalType: target.kind,
		PrincipalID:   target.id,
		TokenHash:     crypto.HashToken(token),
		ExpiresAt:     expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return apperr.Internal(err)
	}

	task, err := tasks.NewPasswordResetEmailTask(tasks.PasswordResetEmailPayload{
		Email:     target.email,
		Name:      target.name,
		ResetURL:  s.urlBase + "?token=" + token,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("failed to build reset email task", "error", err)
		return nil
	}
	if s.enqueuer == nil {
		s.logger.Warn("no task queue configured, reset email not sent", "principal_id", target.id)
		return nil
	}
	if _, err := s.enqueuer.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(5)); err != nil {
		s.logger.Error("failed to enqueue reset email", "principal_id", target.id, "error", err)
	}
	return nil
}

// ResetPassword consumes a token and sets the new password atomically.
func (s *ResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperr.Validation("Validation failed", map[string]string{
			"password": "Password must be at least 8 characters",
		})
	}
	if token == "" {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PasswordResetToken
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", crypto.HashToken(token)).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidResetToken
			}
			return apperr.Internal(err)
		}
		if !record.Usable(now) {
			return ErrInvalidResetToken
		}

		var model interface{} = &models.User{}
		if record.PrincipalType == models.PrincipalAttendant {
			model = &models.Attendant{}
		}
		res := tx.Model(model).Where("id = ?", record.PrincipalID).Update("password_hash", hash)
		if res.Error != nil {
			return apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidResetToken
		}

		// Consume every outstanding token of the principal, not just this one.
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("principal_id = ? AND used_at IS NULL", record.PrincipalID).
			Update("used_at", now).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
}
