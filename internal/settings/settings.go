// Package settings stores per-tenant key/value settings. Secret values are
// sealed with age before they reach the database, and reads go through a
// TTL cache owned by the Cache value.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/pkg/crypto"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SecretMask replaces secret values in listings.
const SecretMask = "********"

var ErrSettingNotFound = apperr.NotFound("setting")

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is a setting as shown to callers.
type Entry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	IsSecret  bool      `json:"is_secret"`
	UpdatedAt time.Time `json:"updated_at"`
}

type cacheKey struct {
	tenant uuid.UUID
	key    string
}

type cached struct {
	value   string
	found   bool
	expires time.Time
}

type Cache struct {
	db      *gorm.DB
	enc     *crypto.Encryptor
	ttl     time.Duration
	clock   Clock
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[cacheKey]cached
}

// New returns a cache over the settings table. A nil clock means wall time.
func New(db *gorm.DB, enc *crypto.Encryptor, ttl time.Duration, clock Clock, logger *slog.Logger) *Cache {
	if clock == nil {
		clock = systemClock{}
	}
	return &Cache{
		db:      db,
		enc:     enc,
		ttl:     ttl,
		clock:   clock,
		logger:  logger,
		entries: make(map[cacheKey]cached),
	}
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Get returns the plaintext value of a setting and whether it exists.
// Misses are cached too.
func (c *Cache) Get(ctx context.Context, tenantID uuid.UUID, key string) (string, bool, error) {
	k := cacheKey{tenantID, normalize(key)}
	now := c.clock.Now()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && now.Before(e.expires) {
		return e.value, e.found, nil
	}

	var s models.Setting
	err := c.db.WithContext(ctx).Where("tenant_id = ? AND key = ?", tenantID, k.key).First(&s).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		e = cached{expires: now.Add(c.ttl)}
	case err != nil:
		return "", false, apperr.Internal(err)
	default:
		value, err := c.open(ctx, s)
		if err != nil {
			return "", false, err
		}
		e = cached{value: value, found: true, expires: now.Add(c.ttl)}
	}

	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
	return e.value, e.found, nil
}

// GetOr returns the setting value, or def when it is unset.
func (c *Cache) GetOr(ctx context.Context, tenantID uuid.UUID, key, def string) string {
	v, ok, err := c.Get(ctx, tenantID, key)
	if err != nil {
		c.logger.Warn("failed to read setting", "tenant_id", tenantID, "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

// Set upserts a setting and drops its cached value.
func (c *Cache) Set(ctx context.Context, tenantID uuid.UUID, key, value string, secret bool) error {
	key = normalize(key)
	if key == "" {
		return apperr.Validation("Validation failed", map[string]string{"key": "Key is required"})
	}

	stored := value
	if secret {
		sealed, err := c.enc.Seal(value)
		if err != nil {
			return apperr.Internal(fmt.Errorf("sealing setting %s: %w", key, err))
		}
		stored = sealed
	}

	s := models.Setting{TenantID: tenantID, Key: key, Value: stored, IsSecret: secret}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "is_secret", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return apperr.Internal(err)
	}

	c.Invalidate(tenantID, key)
	return nil
}

// Delete removes a setting permanently.
func (c *Cache) Delete(ctx context.Context, tenantID uuid.UUID, key string) error {
	key = normalize(key)
	res := c.db.WithContext(ctx).Unscoped().
		Where("tenant_id = ? AND key = ?", tenantID, key).
		Delete(&models.Setting{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	c.Invalidate(tenantID, key)
	if res.RowsAffected == 0 {
		return ErrSettingNotFound
	}
	return nil
}

func (c *Cache) Invalidate(tenantID uuid.UUID, key string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{tenantID, normalize(key)})
	c.mu.Unlock()
}

// List returns every setting of a tenant with secret values masked.
func (c *Cache) List(ctx context.Context, tenantID uuid.UUID) ([]Entry, error) {
	var rows []models.Setting
	if err := c.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("key ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	out := make([]Entry, len(rows))
	for i, s := range rows {
		out[i] = Entry{Key: s.Key, Value: s.Value, IsSecret: s.IsSecret, UpdatedAt: s.UpdatedAt}
		if s.IsSecret {
			out[i].Value = SecretMask
		}
	}
	return out, nil
}

// open returns the plaintext of s. Secrets still sealed with a retired key
// are sealed again with the current one.
func (c *Cache) open(ctx context.Context, s models.Setting) (string, error) {
	if !s.IsSecret {
		return s.Value, nil
	}
	plain, stale, err := c.enc.Open(s.Value)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("opening setting %s: %w", s.Key, err))
	}
	if stale {
		c.reseal(ctx, s, plain)
	}
	return plain, nil
}

func (c *Cache) reseal(ctx context.Context, s models.Setting, plain string) {
	sealed, err := c.enc.Seal(plain)
	if err == nil {
		err = c.db.WithContext(ctx).Model(&models.Setting{}).
			Where("id = ? AND value = ?", s.ID, s.Value).
			Update("value", sealed).Error
	}
	if err != nil {
		c.logger.Warn("failed to reseal setting", "tenant_id", s.TenantID, "key", s.Key, "error", err)
		return
	}
	c.logger.Info("setting resealed with current key", "tenant_id", s.TenantID, "key", s.Key)
}
