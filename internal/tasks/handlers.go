package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/mail"
	"gorm.io/gorm"
)

// usedTokenRetention keeps consumed tokens around briefly for auditing.
const usedTokenRetention = 24 * time.Hour

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	mailer mail.Sender
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger, mailer mail.Sender) *Handler {
	return &Handler{
		db:     db,
		logger: logger,
		mailer: mailer,
		now:    time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePasswordResetEmail, h.HandlePasswordResetEmail)
	mux.HandleFunc(TypePurgeResetTokens, h.HandlePurgeResetTokens)
}

func (h *Handler) HandlePasswordResetEmail(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if !payload.ExpiresAt.IsZero() && h.now().After(payload.ExpiresAt) {
		h.logger.Info("skipping expired reset email", "email", payload.Email)
		return nil
	}

	msg, err := mail.PasswordReset(payload.Email, payload.Name, payload.ResetURL, payload.ExpiresAt)
	if err != nil {
		return fmt.Errorf("render reset email: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.mailer.Send(ctx, msg); err != nil {
		h.logger.Error("failed to send reset email", "email", payload.Email, "error", err)
		return err
	}

	h.logger.Info("sent reset email", "email", payload.Email)
	return nil
}

// HandlePurgeResetTokens removes expired tokens and tokens consumed more
// than a day ago.
func (h *Handler) HandlePurgeResetTokens(ctx context.Context, t *asynq.Task) error {
	now := h.now()

	res := h.db.WithContext(ctx).Unscoped().
		Where("expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)", now, now.Add(-usedTokenRetention)).
		Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return fmt.Errorf("purge reset tokens: %w", res.Error)
	}

	h.logger.Info("purged reset tokens", "deleted", res.RowsAffected)
	return nil
}
