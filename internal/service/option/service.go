package option

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/messaging"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

// InvalidateChannel carries option-list invalidations between API replicas.
const InvalidateChannel = "opd.options.invalidate"

const invalidateType = "options.invalidate"

type invalidation struct {
	ClinicID uuid.UUID            `json:"clinic_id"`
	Category model.OptionCategory `json:"category"`
	Origin   string               `json:"origin"`
}

type Config struct {
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

// Service manages the reference vocabularies. Lists are cached per clinic
// and category; every mutation drops the local entry and tells the other
// replicas to do the same.
type Service struct {
	repo     repository.OptionRepository
	cache    *cache.Cache
	broker   messaging.Broker
	metrics  *metrics.Metrics
	instance string
}

func NewService(repo repository.OptionRepository, broker messaging.Broker, cfg Config, m *metrics.Metrics) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * cfg.CacheTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache.New(cfg.CacheTTL, cfg.CleanupInterval),
		broker:   broker,
		metrics:  m,
		instance: uuid.NewString(),
	}
}

func cacheKey(clinicID uuid.UUID, category model.OptionCategory) string {
	return clinicID.String() + ":" + string(category)
}

// Start listens for invalidations published by other replicas until ctx is
// done.
func (s *Service) Start(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}
	return messaging.Consume(ctx, s.broker, InvalidateChannel, func(ctx context.Context, msg messaging.Message) error {
		if msg.Type != invalidateType {
			return nil
		}
		var inv invalidation
		if err := msg.Decode(&inv); err != nil {
			return fmt.Errorf("failed to decode invalidation: %w", err)
		}
		if inv.Origin == s.instance {
			return nil
		}
		s.cache.Delete(cacheKey(inv.ClinicID, inv.Category))
		log.Debug().Str("clinic_id", inv.ClinicID.String()).Str("category", string(inv.Category)).Msg("option cache invalidated by peer")
		return nil
	})
}

func (s *Service) invalidate(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory) {
	s.cache.Delete(cacheKey(clinicID, category))
	if s.broker == nil {
		return
	}
	msg, err := messaging.NewMessage(invalidateType, invalidation{ClinicID: clinicID, Category: category, Origin: s.instance})
	if err == nil {
		err = s.broker.Publish(ctx, InvalidateChannel, msg)
	}
	if err != nil {
		log.Warn().Err(err).Str("category", string(category)).Msg("failed to publish option invalidation")
	}
}

func checkCategory(category model.OptionCategory) error {
	if !category.Valid() {
		return apperrors.NotFound("option category", fmt.Errorf("unknown category %q", category))
	}
	return nil
}

// List returns the category's options ordered by display order then name.
func (s *Service) List(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, activeOnly bool) ([]*model.ReferenceOption, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	key := cacheKey(clinicID, category)
	var all []*model.ReferenceOption
	if cached, ok := s.cache.Get(key); ok {
		all = cached.([]*model.ReferenceOption)
		if s.metrics != nil {
			s.metrics.OptionCacheHits.WithLabelValues(string(category)).Inc()
		}
	} else {
		if s.metrics != nil {
			s.metrics.OptionCacheMisses.WithLabelValues(string(category)).Inc()
		}
		loaded, err := s.repo.List(ctx, clinicID, category, false)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		all = loaded
		s.cache.SetDefault(key, all)
	}

	out := make([]*model.ReferenceOption, 0, len(all))
	for _, o := range all {
		if activeOnly && !o.IsActive {
			continue
		}
		copied := *o
		out = append(out, &copied)
	}
	return out, nil
}

func apply(option *model.ReferenceOption, in *model.OptionInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperrors.BadRequest("name is required", apperrors.NewValidation("name", "name is required"))
	}
	option.Name = name
	if in.Description != nil {
		option.Description = strings.TrimSpace(*in.Description)
	}
	if in.DisplayOrder != nil {
		option.DisplayOrder = model.ClampDisplayOrder(*in.DisplayOrder)
	}
	if in.IsActive != nil {
		option.IsActive = *in.IsActive
	}
	return nil
}

func mapWriteError(category model.OptionCategory, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict(fmt.Sprintf("%s already has an option with this name", category.Label()), err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("option", err)
	}
	return apperrors.Internal(err)
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, in *model.OptionInput) (*model.ReferenceOption, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	option := &model.ReferenceOption{
		ClinicID:     clinicID,
		Category:     category,
		DisplayOrder: model.MinDisplayOrder,
		IsActive:     true,
	}
	if err := apply(option, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, option); err != nil {
		return nil, mapWriteError(category, err)
	}
	s.invalidate(ctx, clinicID, category)
	return option, nil
}

func (s *Service) Update(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID, in *model.OptionInput) (*model.ReferenceOption, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}
	option, err := s.repo.Get(ctx, clinicID, category, id)
	if err != nil {
		return nil, mapWriteError(category, err)
	}
	if err := apply(option, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, option); err != nil {
		return nil, mapWriteError(category, err)
	}
	s.invalidate(ctx, clinicID, category)
	return option, nil
}

func (s *Service) Delete(ctx context.Context, clinicID uuid.UUID, category model.OptionCategory, id uuid.UUID) error {
	if err := checkCategory(category); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, clinicID, category, id); err != nil {
		return mapWriteError(category, err)
	}
	s.invalidate(ctx, clinicID, category)
	return nil
}
