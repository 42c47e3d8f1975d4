package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type navCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const navCachePrefix = "nav:children:"

type navCacheMetrics interface {
	ObserveNavCache(hit bool)
}

// NavCacheService caches computed child lists per node identity. The key
// carries a fingerprint of the viewer's capabilities and level scope, so
// admins with different permissions never share entries.
type NavCacheService struct {
	store   navCacheStore
	cfg     config.NavConfig
	metrics navCacheMetrics
	logger  *zap.Logger
}

// NewNavCacheService constructs the cache layer.
func NewNavCacheService(store navCacheStore, cfg config.NavConfig, metrics navCacheMetrics, logger *zap.Logger) *NavCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NavCacheService{store: store, cfg: cfg, metrics: metrics, logger: logger}
}

// ViewerFingerprint hashes what can change a viewer's child list.
func ViewerFingerprint(caps models.CapabilitySet, levelScope string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s", uint64(caps), levelScope)
	return fmt.Sprintf("%016x", h.Sum64())
}

// GetOrCompute serves the cached child list or computes and stores it.
// Cache failures degrade to a direct compute and are logged, never
// surfaced.
func (s *NavCacheService) GetOrCompute(
	ctx context.Context,
	path dto.NodePath,
	viewer string,
	compute func(context.Context) ([]dto.NodeDescriptor, error),
) ([]dto.NodeDescriptor, error) {
	if !s.cfg.CacheEnabled || s.store == nil {
		return compute(ctx)
	}

	key := navCachePrefix + viewer + ":" + path.CacheKey()
	var cached []dto.NodeDescriptor
	err := s.store.Get(ctx, key, &cached)
	if err == nil {
		s.observe(true)
		return cached, nil
	}
	s.observe(false)
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("navigation cache read failed", zap.Error(err), zap.String("key", key))
	}

	nodes, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, nodes, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("navigation cache write failed", zap.Error(err), zap.String("key", key))
	}
	return nodes, nil
}

// InvalidateSubject drops every cached list that could include the
// subject's subtree. The path segments below the subject share its id in
// the cache key, so one pattern covers them.
func (s *NavCacheService) InvalidateSubject(ctx context.Context, subjectID string) {
	s.invalidate(ctx, fmt.Sprintf("%s*%s:%s*", navCachePrefix, dto.NodeSubject, subjectID))
}

// InvalidateTerm drops cached lists scoped to a level+term.
func (s *NavCacheService) InvalidateTerm(ctx context.Context, levelID, termID string) {
	s.invalidate(ctx, fmt.Sprintf("%s*%s:%s/%s:%s*", navCachePrefix, dto.NodeLevel, levelID, dto.NodeTerm, termID))
}

// InvalidateAll drops the whole navigation cache. Used after taxonomy
// changes and imports, where the blast radius is unknowable.
func (s *NavCacheService) InvalidateAll(ctx context.Context) {
	s.invalidate(ctx, navCachePrefix+"*")
}

func (s *NavCacheService) observe(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveNavCache(hit)
	}
}

func (s *NavCacheService) invalidate(ctx context.Context, pattern string) {
	if !s.cfg.CacheEnabled || s.store == nil {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("navigation cache invalidation failed", zap.Error(err), zap.String("pattern", pattern))
	}
}
