package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/models"
	"casecraft_echo/internal/pricing"
	"casecraft_echo/internal/repository"
)

const configurationCacheTTL = 24 * time.Hour

type ConfigurationService struct {
	configurations ConfigurationStore
	calculator     *pricing.Calculator
	cache          *RedisCache
}

// NewConfigurationService wires the store and price calculator. cache may be nil.
func NewConfigurationService(configurations ConfigurationStore, calculator *pricing.Calculator, cache *RedisCache) *ConfigurationService {
	return &ConfigurationService{
		configurations: configurations,
		calculator:     calculator,
		cache:          cache,
	}
}

// Create validates every option against the catalog before storing cfg.
func (s *ConfigurationService) Create(ctx context.Context, cfg *models.Configuration) (*pricing.Quote, error) {
	if err := s.calculator.Validate(*cfg); err != nil {
		return nil, newErrorf(ErrInvalidConfiguration, err, "%s", err.Error())
	}
	quote, err := s.calculator.Quote(*cfg)
	if err != nil {
		return nil, newError(ErrInvalidConfiguration, err)
	}

	if err := s.configurations.Create(ctx, cfg); err != nil {
		log.Error().Err(err).Str("model", cfg.Model).Msg("failed to create configuration")
		return nil, newError(ErrInternal, err)
	}
	return &quote, nil
}

// Get loads a configuration through the cache. Configurations never change
// after creation so cached copies do not go stale.
func (s *ConfigurationService) Get(ctx context.Context, id uuid.UUID) (*models.Configuration, error) {
	cfg, err := GetOrSet(s.cache, ctx, "configuration:"+id.String(), configurationCacheTTL, func() (*models.Configuration, error) {
		return s.configurations.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConfigurationNotFound
		}
		log.Error().Err(err).Str("configuration_id", id.String()).Msg("failed to load configuration")
		return nil, newError(ErrInternal, err)
	}
	return cfg, nil
}

// Quote prices a stored configuration. An attribute outside the catalog is
// reported as an invalid configuration.
func (s *ConfigurationService) Quote(cfg *models.Configuration) (*pricing.Quote, error) {
	quote, err := s.calculator.Quote(*cfg)
	if err != nil {
		return nil, newError(ErrInvalidConfiguration, err)
	}
	return &quote, nil
}
