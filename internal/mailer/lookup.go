package mailer

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

const settingsCacheKey = "store_settings"

// SettingsSource serves store settings (footer text, admin address, base
// URL) to the send routines. The row changes rarely and every email needs
// it, so reads go through a short-lived cache.
type SettingsSource struct {
	repo  repository.SettingsRepository
	cache *gocache.Cache
}

func NewSettingsSource(repo repository.SettingsRepository) *SettingsSource {
	return &SettingsSource{
		repo:  repo,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *SettingsSource) Get(ctx context.Context) (*model.StoreSettings, error) {
	if cached, ok := s.cache.Get(settingsCacheKey); ok {
		return cached.(*model.StoreSettings), nil
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.cache.Set(settingsCacheKey, settings, gocache.DefaultExpiration)
	return settings, nil
}

// Invalidate drops the cached row after an admin update.
func (s *SettingsSource) Invalidate() {
	s.cache.Delete(settingsCacheKey)
}
