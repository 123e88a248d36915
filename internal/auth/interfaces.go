package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/database/models"
)

// Authenticator defines the login operations for both principal kinds.
type Authenticator interface {
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	LoginAttendant(ctx context.Context, input LoginInput) (*AttendantAuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetAttendantByID(ctx context.Context, id uuid.UUID) (*models.Attendant, error)
}

// TokenService defines the JWT operations for both namespaces.
type TokenService interface {
	GenerateSystemToken(u *models.User) (string, error)
	GenerateAttendantToken(a *models.Attendant) (string, error)
	ValidateSystemToken(tokenString string) (*SystemPrincipal, error)
	ValidateAttendantToken(tokenString string) (*AttendantPrincipal, error)
}

// TaskEnqueuer is the subset of *asynq.Client used to schedule emails.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
	_ TaskEnqueuer  = (*asynq.Client)(nil)
	_ Principal     = (*SystemPrincipal)(nil)
	_ Principal     = (*AttendantPrincipal)(nil)
)
