package report

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service builds and renders reports, serving repeats from a Cache.
type Service struct {
	src   Source
	cache Cache
	log   *zap.Logger
	group singleflight.Group
}

// NewService creates a Service. A nil cache disables caching.
func NewService(src Source, cache Cache, log *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, cache: cache, log: log.Named("report")}
}

// Generate returns the time-spent report rendered in format f. Concurrent
// misses for the same format and generation share one rendering.
func (s *Service) Generate(ctx context.Context, f Format) ([]byte, error) {
	if _, err := ParseFormat(int(f)); err != nil {
		return nil, err
	}
	cached, gen, ok := s.cache.Lookup(ctx, f)
	if ok {
		return cached, nil
	}

	key := strconv.FormatInt(gen, 10) + ":" + f.String()
	v, err, shared := s.group.Do(key, func() (any, error) {
		rows, err := Build(ctx, s.src)
		if err != nil {
			return nil, err
		}
		body, err := Render(f, rows)
		if err != nil {
			return nil, err
		}
		s.cache.Store(ctx, gen, f, body)
		s.log.Debug("report rendered", zap.Stringer("format", f), zap.Int("rows", len(rows)), zap.Int("bytes", len(body)))
		return body, nil
	})
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			s.log.Error("generate report", zap.Stringer("format", f), zap.Error(err))
		}
		return nil, err
	}
	if shared {
		s.log.Debug("report shared", zap.Stringer("format", f))
	}
	return v.([]byte), nil
}

// Rows returns the report rows without rendering them.
func (s *Service) Rows(ctx context.Context) ([]Row, error) {
	return Build(ctx, s.src)
}

// Invalidate drops cached reports. It lets the Service stand in wherever a
// task.Invalidator is expected.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// CacheStats reports the cache counters, if the configured cache keeps any.
func (s *Service) CacheStats() (CacheStats, bool) {
	if c, ok := s.cache.(interface{ Stats() CacheStats }); ok {
		return c.Stats(), true
	}
	return CacheStats{}, false
}
