package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/redis/go-redis/v9"
)

// GetAppSettings returns the stored settings, falling back to defaults
func (s *Store) GetAppSettings(ctx context.Context) (domain.AppSettings, error) {
	data, err := s.client.Get(ctx, KeySettings).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DefaultSettings(), nil
		}
		return domain.AppSettings{}, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := domain.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		s.log.Warn("unreadable settings record, using defaults", logger.Error(err))
		return domain.DefaultSettings(), nil
	}
	if settings.CategoryStorePreferences == nil {
		settings.CategoryStorePreferences = map[domain.Category]string{}
	}
	return settings, nil
}

// SaveAppSettings overwrites the settings record
func (s *Store) SaveAppSettings(ctx context.Context, settings domain.AppSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, KeySettings, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
