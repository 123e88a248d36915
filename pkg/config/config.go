package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugh/leadboard/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AttendantJWT  JWTConfig
	Encryption    EncryptionConfig
	RateLimit     RateLimitConfig
	Tenancy       TenancyConfig
	Mail          MailConfig
	Storage       StorageConfig
	Kafka         KafkaConfig
	Settings      SettingsConfig
	Worker        WorkerConfig
	PasswordReset PasswordResetConfig
	CORS          CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// EncryptionConfig holds the age identity sealing secret settings. Retired
// identities only open values sealed before a rotation.
type EncryptionConfig struct {
	Key         string
	RetiredKeys []string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// TenancyConfig describes the tenant served to local development hosts.
type TenancyConfig struct {
	DefaultTenantID   string
	DefaultTenantSlug string
	DefaultTenantName string
	LocalHosts        []string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type StorageConfig struct {
	Backend       string // s3 or gcs
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	RoleARN       string // assumed via STS when set
	ExternalID    string
	PublicBaseURL string
	MaxUploadMB   int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SettingsConfig struct {
	CacheTTLSeconds int
}

type WorkerConfig struct {
	Concurrency    int
	ResetPurgeCron string
}

type PasswordResetConfig struct {
	TTLMinutes int
	URLBase    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *SettingsConfig) TTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func (p *PasswordResetConfig) TTL() time.Duration {
	return time.Duration(p.TTLMinutes) * time.Minute
}

func (s *StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "leadboard")
	v.SetDefault("DATABASE_PASSWORD", "leadboard_secret")
	v.SetDefault("DATABASE_NAME", "leadboard")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("ATTENDANT_JWT_SECRET", "change-me-too")
	v.SetDefault("ATTENDANT_JWT_EXPIRY_HOURS", 8)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("TENANT_DEFAULT_ID", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("TENANT_DEFAULT_SLUG", "default")
	v.SetDefault("TENANT_DEFAULT_NAME", "Default")
	v.SetDefault("TENANT_LOCAL_HOSTS", "localhost,127.0.0.1,::1")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 1025)
	v.SetDefault("SMTP_FROM", "no-reply@leadboard.local")
	v.SetDefault("STORAGE_BACKEND", "s3")
	v.SetDefault("STORAGE_BUCKET", "leadboard-uploads")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_MAX_UPLOAD_MB", 5)
	v.SetDefault("KAFKA_TOPIC", "leadboard.leads")
	v.SetDefault("SETTINGS_CACHE_TTL_SECONDS", 300)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("WORKER_RESET_PURGE_CRON", "0 * * * *")
	v.SetDefault("PASSWORD_RESET_TTL_MINUTES", 60)
	v.SetDefault("PASSWORD_RESET_URL_BASE", "http://localhost:3000/reset-password")

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		AttendantJWT: JWTConfig{
			Secret:      v.GetString("ATTENDANT_JWT_SECRET"),
			ExpiryHours: v.GetInt("ATTENDANT_JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key:         v.GetString("ENCRYPTION_KEY"),
			RetiredKeys: splitList(v.GetString("ENCRYPTION_RETIRED_KEYS")),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Tenancy: TenancyConfig{
			DefaultTenantID:   v.GetString("TENANT_DEFAULT_ID"),
			DefaultTenantSlug: v.GetString("TENANT_DEFAULT_SLUG"),
			DefaultTenantName: v.GetString("TENANT_DEFAULT_NAME"),
			LocalHosts:        splitList(v.GetString("TENANT_LOCAL_HOSTS")),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("STORAGE_BACKEND"),
			Bucket:        v.GetString("STORAGE_BUCKET"),
			Region:        v.GetString("STORAGE_REGION"),
			Endpoint:      v.GetString("STORAGE_ENDPOINT"),
			AccessKey:     v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:     v.GetString("STORAGE_SECRET_KEY"),
			RoleARN:       v.GetString("STORAGE_ROLE_ARN"),
			ExternalID:    v.GetString("STORAGE_EXTERNAL_ID"),
			PublicBaseURL: v.GetString("STORAGE_PUBLIC_BASE_URL"),
			MaxUploadMB:   v.GetInt("STORAGE_MAX_UPLOAD_MB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Settings: SettingsConfig{
			CacheTTLSeconds: v.GetInt("SETTINGS_CACHE_TTL_SECONDS"),
		},
		Worker: WorkerConfig{
			Concurrency:    v.GetInt("WORKER_CONCURRENCY"),
			ResetPurgeCron: v.GetString("WORKER_RESET_PURGE_CRON"),
		},
		PasswordReset: PasswordResetConfig{
			TTLMinutes: v.GetInt("PASSWORD_RESET_TTL_MINUTES"),
			URLBase:    v.GetString("PASSWORD_RESET_URL_BASE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := util.ValidateCronExpr(cfg.Worker.ResetPurgeCron); err != nil {
		return nil, fmt.Errorf("WORKER_RESET_PURGE_CRON: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
