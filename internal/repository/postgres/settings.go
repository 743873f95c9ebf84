package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/skartik/commerce-api/internal/model"
	"github.com/skartik/commerce-api/internal/repository"
)

type settingsRepository struct {
	BaseRepository
}

func NewSettingsRepository(base BaseRepository) repository.SettingsRepository {
	return &settingsRepository{base}
}

func (r *settingsRepository) Get(ctx context.Context) (*model.StoreSettings, error) {
	var settings model.StoreSettings
	query := `SELECT * FROM store_settings ORDER BY created_at LIMIT 1`
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, notFoundOr(err, "store settings")
	}
	return &settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *model.StoreSettings) error {
	query := `
		UPDATE store_settings SET
			store_name = $2, support_email = $3, admin_email = $4,
			base_url = $5, footer_text = $6, phone = $7, address = $8,
			updated_at = $9
		WHERE id = $1
	`

	settings.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		settings.ID, settings.StoreName, settings.SupportEmail,
		settings.AdminEmail, settings.BaseURL, settings.FooterText,
		settings.Phone, settings.Address, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
