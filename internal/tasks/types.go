package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypePasswordResetEmail = "email:password_reset"
	TypePurgeResetTokens   = "tokens:purge_reset"
)

// PasswordResetEmailPayload carries everything needed to render the email;
// the worker never reads the plaintext token from the database.
type PasswordResetEmailPayload struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePasswordResetEmail, data), nil
}

// PurgeResetTokensPayload is empty - the purge covers all tenants
type PurgeResetTokensPayload struct{}

func NewPurgeResetTokensTask() *asynq.Task {
	return asynq.NewTask(TypePurgeResetTokens, nil)
}
