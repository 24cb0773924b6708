// Package settings serves company settings from Redis, falling back to the database.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/solarflow/solarshop-backend/internal/policy"
	"github.com/solarflow/solarshop-backend/pkg/db/models"
	pkgerrors "github.com/solarflow/solarshop-backend/pkg/errors"
	"github.com/solarflow/solarshop-backend/pkg/logger"
	"github.com/solarflow/solarshop-backend/pkg/redis"
)

const (
	KeyCompanyName    = "company_name"
	KeyCompanyAddress = "company_address"
	KeyCompanyEmail   = "company_email"
	KeyCompanyPhone   = "company_phone"
	KeyTaxID          = "tax_id"
	KeyBankDetails    = "bank_details"

	cacheName = "all"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	IsPublic    bool      `json:"is_public"`
	Description *string   `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SetRequest struct {
	Value       string  `json:"value" validate:"max=4000"`
	IsPublic    *bool   `json:"is_public,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// Company is the letterhead printed on invoices and mails.
type Company struct {
	Name        string
	Address     string
	Email       string
	Phone       string
	TaxID       string
	BankDetails string
}

// Cache is the subset of the Redis client used for the settings snapshot.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SettingsKey(name string) string
}

type Service interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Public(ctx context.Context) (map[string]string, error)
	Company(ctx context.Context) (Company, error)
	List(ctx context.Context, actor policy.Actor) ([]Setting, error)
	Set(ctx context.Context, actor policy.Actor, key string, req SetRequest) (*Setting, error)
	Invalidate(ctx context.Context) error
}

type service struct {
	repo   *Repository
	cache  Cache
	ttl    time.Duration
	policy policy.Policy
	logg   *logger.Logger
}

func NewService(repo *Repository, cache Cache, ttl time.Duration, pol policy.Policy, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if pol == nil {
		pol = policy.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{repo: repo, cache: cache, ttl: ttl, policy: pol, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, key string) (string, bool, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	row, ok := all[key]
	return row.Value, ok, nil
}

func (s *service) Public(ctx context.Context) (map[string]string, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for key, row := range all {
		if row.IsPublic {
			out[key] = row.Value
		}
	}
	return out, nil
}

func (s *service) Company(ctx context.Context) (Company, error) {
	all, err := s.snapshot(ctx)
	if err != nil {
		return Company{}, err
	}
	return Company{
		Name:        all[KeyCompanyName].Value,
		Address:     all[KeyCompanyAddress].Value,
		Email:       all[KeyCompanyEmail].Value,
		Phone:       all[KeyCompanyPhone].Value,
		TaxID:       all[KeyTaxID].Value,
		BankDetails: all[KeyBankDetails].Value,
	}, nil
}

func (s *service) List(ctx context.Context, actor policy.Actor) ([]Setting, error) {
	if err := s.policy.Authorize(actor, policy.ActionManageSettings, nil); err != nil {
		return nil, err
	}
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settings")
	}
	out := make([]Setting, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (s *service) Set(ctx context.Context, actor policy.Actor, key string, req SetRequest) (*Setting, error) {
	if err := s.policy.Authorize(actor, policy.ActionManageSettings, nil); err != nil {
		return nil, err
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(key) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid setting key")
	}

	row := models.CompanySetting{Key: key, Value: req.Value, UpdatedAt: time.Now().UTC()}
	existing, err := s.repo.Find(ctx, key)
	switch {
	case err == nil:
		row.IsPublic = existing.IsPublic
		row.Description = existing.Description
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}
	if req.IsPublic != nil {
		row.IsPublic = *req.IsPublic
	}
	if req.Description != nil {
		row.Description = req.Description
	}
	if err := s.repo.Upsert(ctx, &row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save setting")
	}
	if err := s.Invalidate(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "key", key), "settings cache invalidation failed")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"key": key, "actor_id": actor.UserID.String()}), "setting updated")
	out := fromModel(row)
	return &out, nil
}

func (s *service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, s.cache.SettingsKey(cacheName))
}

// snapshot returns every setting keyed by name. A cache outage degrades to a database read.
func (s *service) snapshot(ctx context.Context) (map[string]Setting, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.cache.SettingsKey(cacheName))
		switch {
		case err == nil:
			var cached map[string]Setting
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return cached, nil
			}
		case !redis.IsNil(err):
			s.logg.Warn(ctx, "settings cache read failed: "+err.Error())
		}
	}

	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	out := make(map[string]Setting, len(rows))
	for _, row := range rows {
		out[row.Key] = fromModel(row)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(out); err == nil {
			if err := s.cache.Set(ctx, s.cache.SettingsKey(cacheName), string(encoded), s.ttl); err != nil {
				s.logg.Warn(ctx, "settings cache write failed: "+err.Error())
			}
		}
	}
	return out, nil
}

func fromModel(row models.CompanySetting) Setting {
	return Setting{
		Key:         row.Key,
		Value:       row.Value,
		IsPublic:    row.IsPublic,
		Description: row.Description,
		UpdatedAt:   row.UpdatedAt,
	}
}
