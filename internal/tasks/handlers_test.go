package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/mail"
	"github.com/hugh/leadboard/internal/tasks"
	"github.com/hugh/leadboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newHandler(t *testing.T, sender mail.Sender) (*tasks.Handler, *testutil.TestSetup) {
	t.Helper()
	setup := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return tasks.NewHandler(setup.DB, logger, sender), setup
}

func TestHandlePasswordResetEmail(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newHandler(t, sender)

	task, err := tasks.NewPasswordResetEmailTask(tasks.PasswordResetEmailPayload{
		Email:     "ana@example.com",
		Name:      "Ana",
		ResetURL:  "https://app.example.com/reset?token=abc",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, handler.HandlePasswordResetEmail(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].TextBody, "token=abc")
}

func TestHandlePasswordResetEmail_InvalidPayload(t *testing.T) {
	handler, _ := newHandler(t, &fakeSender{})

	task := asynq.NewTask(tasks.TypePasswordResetEmail, []byte("invalid json"))

	err := handler.HandlePasswordResetEmail(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlePasswordResetEmail_ExpiredIsDropped(t *testing.T) {
	sender := &fakeSender{}
	handler, _ := newHandler(t, sender)

	data, _ := json.Marshal(tasks.PasswordResetEmailPayload{
		Email:     "late@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, handler.HandlePasswordResetEmail(context.Background(), asynq.NewTask(tasks.TypePasswordResetEmail, data)))
	assert.Empty(t, sender.sent)
}

func TestHandlePasswordResetEmail_SendFailureRetries(t *testing.T) {
	handler, _ := newHandler(t, &fakeSender{err: errors.New("smtp: connection refused")})

	task, err := tasks.NewPasswordResetEmailTask(tasks.PasswordResetEmailPayload{
		Email:     "ana@example.com",
		ResetURL:  "https://x",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	err = handler.HandlePasswordResetEmail(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlePurgeResetTokens(t *testing.T) {
	handler, setup := newHandler(t, &fakeSender{})
	now := time.Now()
	usedLongAgo := now.Add(-48 * time.Hour)
	usedRecently := now.Add(-time.Hour)

	tokens := []models.PasswordResetToken{
		{TokenHash: "expired", ExpiresAt: now.Add(-time.Minute)},
		{TokenHash: "live", ExpiresAt: now.Add(time.Hour)},
		{TokenHash: "used-old", ExpiresAt: now.Add(time.Hour), UsedAt: &usedLongAgo},
		{TokenHash: "used-recent", ExpiresAt: now.Add(time.Hour), UsedAt: &usedRecently},
	}
	for i := range tokens {
		tokens[i].PrincipalType = models.PrincipalUser
		tokens[i].PrincipalID = setup.Admin.ID
		require.NoError(t, setup.DB.Create(&tokens[i]).Error)
	}

	require.NoError(t, handler.HandlePurgeResetTokens(context.Background(), tasks.NewPurgeResetTokensTask()))

	var remaining []string
	require.NoError(t, setup.DB.Unscoped().Model(&models.PasswordResetToken{}).Order("token_hash").Pluck("token_hash", &remaining).Error)
	assert.Equal(t, []string{"live", "used-recent"}, remaining)
}

func TestRegisterHandlers(t *testing.T) {
	handler, _ := newHandler(t, &fakeSender{})
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	h, pattern := mux.Handler(tasks.NewPurgeResetTokensTask())
	assert.NotNil(t, h)
	assert.Equal(t, tasks.TypePurgeResetTokens, pattern)
}
