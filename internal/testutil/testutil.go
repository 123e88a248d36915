package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database"
	"github.com/hugh/leadboard/internal/database/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plaintext password of every fixture account.
const TestPassword = "testpassword123"

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every pooled connection to :memory: would open its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func hashTestPassword(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func shortID() string {
	return uuid.New().String()[:8]
}

// CreateTestTenant creates an active tenant with a unique slug
func CreateTestTenant(t *testing.T, db *gorm.DB) *models.Tenant {
	t.Helper()

	tenant := &models.Tenant{
		Name:     "Test Tenant",
		Slug:     "tenant-" + shortID(),
		IsActive: true,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("failed to create test tenant: %v", err)
	}
	return tenant
}

// CreateTestUser creates an active system user. adminID is required for managers.
func CreateTestUser(t *testing.T, db *gorm.DB, tenant *models.Tenant, role models.Role, adminID *uuid.UUID) *models.User {
	t.Helper()

	user := &models.User{
		Email:        "user-" + shortID() + "@example.com",
		PasswordHash: hashTestPassword(t),
		Name:         string(role) + " user",
		Role:         role,
		AdminID:      adminID,
		IsActive:     true,
	}
	if tenant != nil {
		user.TenantID = &tenant.ID
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAttendant creates an attendant with login enabled.
func CreateTestAttendant(t *testing.T, db *gorm.DB, tenantID uuid.UUID, managerID, adminID *uuid.UUID) *models.Attendant {
	t.Helper()

	attendant := &models.Attendant{
		Name:         "Attendant " + shortID(),
		Email:        "attendant-" + shortID() + "@example.com",
		PasswordHash: hashTestPassword(t),
		LoginEnabled: true,
		IsActive:     true,
		TenantID:     tenantID,
		ManagerID:    managerID,
		AdminID:      adminID,
	}
	if err := db.Create(attendant).Error; err != nil {
		t.Fatalf("failed to create test attendant: %v", err)
	}
	return attendant
}

func CreateTestColumn(t *testing.T, db *gorm.DB, tenantID uuid.UUID, title string, position int) *models.Column {
	t.Helper()

	column := &models.Column{
		TenantID: tenantID,
		Title:    title,
		Position: position,
	}
	if err := db.Create(column).Error; err != nil {
		t.Fatalf("failed to create test column: %v", err)
	}
	return column
}

// LeadOpts customises CreateTestLead.
type LeadOpts struct {
	ColumnID    *uuid.UUID
	AttendantID *uuid.UUID
	CreatedByID *uuid.UUID
	Position    int
}

func CreateTestLead(t *testing.T, db *gorm.DB, tenantID uuid.UUID, opts LeadOpts) *models.Lead {
	t.Helper()

	lead := &models.Lead{
		TenantID:      tenantID,
		Name:          "Lead " + shortID(),
		Email:         "lead-" + shortID() + "@example.com",
		Status:        "new",
		ColumnID:      opts.ColumnID,
		AttendantID:   opts.AttendantID,
		CreatedByID:   opts.CreatedByID,
		CreatedByType: models.PrincipalUser,
		Position:      opts.Position,
	}
	if opts.ColumnID != nil {
		var column models.Column
		if err := db.First(&column, "id = ?", *opts.ColumnID).Error; err == nil {
			lead.Status = column.Title
		}
	}
	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("failed to create test lead: %v", err)
	}
	return lead
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour, "test-attendant-secret", 8*time.Hour)
}

// GenerateTestToken generates a valid system token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateSystemToken(user)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

func GenerateAttendantTestToken(t *testing.T, jwtService *auth.JWTService, attendant *models.Attendant) string {
	t.Helper()

	token, err := jwtService.GenerateAttendantToken(attendant)
	if err != nil {
		t.Fatalf("failed to generate attendant token: %v", err)
	}
	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common fixture: a tenant with one admin.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Tenant     *models.Tenant
	Admin      *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, tenant, admin and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	tenant := CreateTestTenant(t, db)
	admin := CreateTestUser(t, db, tenant, models.RoleAdmin, nil)
	token := GenerateTestToken(t, jwtService, admin)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Tenant:     tenant,
		Admin:      admin,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
