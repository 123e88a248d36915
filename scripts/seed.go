//go:build ignore

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/pkg/config"
	"github.com/hugh/leadboard/pkg/util"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var defaultColumns = []struct {
	title string
	color string
}{
	{"New", "#64748b"},
	{"Contacted", "#0ea5e9"},
	{"Proposal", "#f59e0b"},
	{"Won", "#22c55e"},
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustHash(password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	password := env("SEED_PASSWORD", "admin123!")

	err = db.Transaction(func(tx *gorm.DB) error {
		tenant := models.Tenant{
			Name:     cfg.Tenancy.DefaultTenantName,
			Slug:     cfg.Tenancy.DefaultTenantSlug,
			IsActive: true,
		}
		if id, err := uuid.Parse(cfg.Tenancy.DefaultTenantID); err == nil {
			tenant.ID = id
		}
		if err := tx.Where(models.Tenant{Slug: tenant.Slug}).FirstOrCreate(&tenant).Error; err != nil {
			return fmt.Errorf("tenant: %w", err)
		}

		super := models.User{
			Email:        env("SUPER_ADMIN_EMAIL", "root@example.com"),
			Name:         "Super Admin",
			Role:         models.RoleSuperAdmin,
			PasswordHash: mustHash(password),
			IsActive:     true,
		}
		if err := tx.Where("email = ? AND tenant_id IS NULL", super.Email).FirstOrCreate(&super).Error; err != nil {
			return fmt.Errorf("super admin: %w", err)
		}

		admin := models.User{
			Email:        env("ADMIN_EMAIL", "admin@example.com"),
			Name:         env("ADMIN_NAME", "Admin"),
			Role:         models.RoleAdmin,
			TenantID:     &tenant.ID,
			PasswordHash: mustHash(password),
			IsActive:     true,
		}
		if err := tx.Where("email = ? AND tenant_id = ?", admin.Email, tenant.ID).FirstOrCreate(&admin).Error; err != nil {
			return fmt.Errorf("admin: %w", err)
		}

		manager := models.User{
			Email:        "manager@example.com",
			Name:         "Manager",
			Role:         models.RoleManager,
			TenantID:     &tenant.ID,
			AdminID:      &admin.ID,
			PasswordHash: mustHash(password),
			IsActive:     true,
		}
		if err := tx.Where("email = ? AND tenant_id = ?", manager.Email, tenant.ID).FirstOrCreate(&manager).Error; err != nil {
			return fmt.Errorf("manager: %w", err)
		}

		attendant := models.Attendant{
			Name:         "Attendant",
			Email:        "attendant@example.com",
			PasswordHash: mustHash(password),
			LoginEnabled: true,
			IsActive:     true,
			TenantID:     tenant.ID,
			ManagerID:    &manager.ID,
			AdminID:      &admin.ID,
		}
		if err := tx.Where("email = ?", attendant.Email).FirstOrCreate(&attendant).Error; err != nil {
			return fmt.Errorf("attendant: %w", err)
		}

		var columns int64
		if err := tx.Model(&models.Column{}).Where("tenant_id = ?", tenant.ID).Count(&columns).Error; err != nil {
			return err
		}
		if columns == 0 {
			for i, c := range defaultColumns {
				if err := tx.Create(&models.Column{TenantID: tenant.ID, Title: c.title, Color: c.color, Position: i}).Error; err != nil {
					return fmt.Errorf("column %q: %w", c.title, err)
				}
			}
		}

		fmt.Printf("Tenant:     %s (%s)\n", tenant.Name, tenant.Slug)
		fmt.Printf("Super admin: %s\n", super.Email)
		fmt.Printf("Admin:      %s\n", admin.Email)
		fmt.Printf("Manager:    %s\n", manager.Email)
		fmt.Printf("Attendant:  %s\n", attendant.Email)
		return nil
	})
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	fmt.Println("Seed complete.")
}
