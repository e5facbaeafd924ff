package ranking

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/prohmpiriya/event-booking/internal/cache"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

//go:embed lua/record_view.lua
var recordViewScript string

const scriptRecordView = "record_view"

// EventResolver loads ranked events back from the ledger
type EventResolver interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// Config holds ranking settings
type Config struct {
	ViewTTL    time.Duration
	TopTTL     time.Duration
	DefaultTop int
	MaxTop     int
}

// DefaultConfig returns the standard ranking settings
func DefaultConfig() Config {
	return Config{
		ViewTTL:    24 * time.Hour,
		TopTTL:     2 * time.Minute,
		DefaultTop: 5,
		MaxTop:     50,
	}
}

// Engine tracks detail views per event and answers top-N queries
type Engine struct {
	store  cache.Store
	events EventResolver
	cfg    Config
	log    *logger.Logger
}

// NewEngine creates an Engine. Zero config values fall back to defaults.
func NewEngine(store cache.Store, events EventResolver, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ViewTTL <= 0 {
		cfg.ViewTTL = def.ViewTTL
	}
	if cfg.TopTTL <= 0 {
		cfg.TopTTL = def.TopTTL
	}
	if cfg.DefaultTop <= 0 {
		cfg.DefaultTop = def.DefaultTop
	}
	if cfg.MaxTop < cfg.DefaultTop {
		cfg.MaxTop = def.MaxTop
	}
	return &Engine{
		store:  store,
		events: events,
		cfg:    cfg,
		log:    logger.Get(),
	}
}

// NormalizeLimit maps a requested limit onto [1, MaxTop]. Zero or negative
// means the default.
func (e *Engine) NormalizeLimit(n int) int {
	if n <= 0 {
		return e.cfg.DefaultTop
	}
	if n > e.cfg.MaxTop {
		return e.cfg.MaxTop
	}
	return n
}

// RecordView increments the event's view counter and its ranking score in
// one script call. It returns the new count, or 0 when the store is down.
func (e *Engine) RecordView(ctx context.Context, eventID string) int64 {
	ctx, span := telemetry.StartSpan(ctx, "ranking.record_view")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	keys := []string{cache.ViewCounterKey(eventID), cache.RankingKey}
	ttl := int64(e.cfg.ViewTTL / time.Second)

	res, err := e.store.Eval(ctx, scriptRecordView, recordViewScript, keys, ttl, eventID)
	if err != nil {
		e.log.WarnContext(ctx, "failed to record view",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0
	}

	count, ok := toInt64(res)
	if !ok {
		e.log.WarnContext(ctx, "unexpected record_view result", zap.Any("result", res))
		return 0
	}
	span.SetAttributes(attribute.Int64("views", count))
	span.SetStatus(codes.Ok, "")
	return count
}

// TopN returns up to n events ordered by views desc, then event id asc.
// Members at the boundary score are all considered before the cut so the
// tie order does not depend on the store's own ordering. A ranking store
// failure yields an empty result.
func (e *Engine) TopN(ctx context.Context, n int) ([]domain.RankedEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "ranking.top_n")
	defer span.End()

	n = e.NormalizeLimit(n)
	span.SetAttributes(attribute.Int("limit", n))

	key := cache.TopKey(n)
	if raw, err := e.store.Get(ctx, key); err == nil {
		var cached []domain.RankedEvent
		if err := json.Unmarshal(raw, &cached); err == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			span.SetStatus(codes.Ok, "")
			return cached, nil
		}
		e.log.WarnContext(ctx, "cache degraded", zap.String("op", "decode"), zap.String("key", key))
	} else if !errors.Is(err, cache.ErrMiss) {
		e.log.WarnContext(ctx, "cache degraded", zap.String("op", "get"), zap.String("key", key), zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	// noted before resolving so a concurrent invalidation blocks the fill
	gen, genErr := cache.Generation(ctx, e.store, cache.EventsGenKey)

	members, err := e.candidates(ctx, n)
	if err != nil {
		e.log.WarnContext(ctx, "ranking unavailable", zap.Error(err))
		span.SetStatus(codes.Ok, "ranking unavailable")
		return []domain.RankedEvent{}, nil
	}

	result := make([]domain.RankedEvent, 0, len(members))
	for _, m := range members {
		event, err := e.events.GetByID(ctx, m.Member)
		if err != nil {
			if errors.Is(err, domain.ErrEventNotFound) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to resolve ranked event %s: %w", m.Member, err)
		}
		result = append(result, domain.RankedEvent{Event: *event, Views: int64(m.Score)})
	}

	if len(result) > 0 && genErr == nil {
		raw, err := json.Marshal(result)
		if err == nil {
			_, err = cache.SetIfGeneration(ctx, e.store, cache.EventsGenKey, gen, key, raw, e.cfg.TopTTL)
		}
		if err != nil {
			e.log.WarnContext(ctx, "cache degraded", zap.String("op", "set"), zap.String("key", key), zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(result)))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// candidates reads the top n members plus any members tied with the n-th,
// then applies the deterministic order and cut.
func (e *Engine) candidates(ctx context.Context, n int) ([]cache.ScoredMember, error) {
	members, err := e.store.ZRevRangeWithScores(ctx, cache.RankingKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	if len(members) == n {
		boundary := strconv.FormatFloat(members[n-1].Score, 'f', -1, 64)
		members, err = e.store.ZRevRangeByScoreWithScores(ctx, cache.RankingKey, boundary, "+inf")
		if err != nil {
			return nil, err
		}
	}

	sortMembers(members)
	if len(members) > n {
		members = members[:n]
	}
	return members, nil
}

func sortMembers(members []cache.ScoredMember) {
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		return members[i].Member < members[j].Member
	})
}

// Remove drops an event from the ranking and deletes its counter
func (e *Engine) Remove(ctx context.Context, eventID string) {
	if err := e.store.ZRem(ctx, cache.RankingKey, eventID); err != nil {
		e.log.WarnContext(ctx, "failed to remove ranking member", zap.String("event_id", eventID), zap.Error(err))
	}
	if err := e.store.Del(ctx, cache.ViewCounterKey(eventID)); err != nil {
		e.log.WarnContext(ctx, "failed to delete view counter", zap.String("event_id", eventID), zap.Error(err))
	}
}

// Prune removes ranking members whose view counter expired or whose event
// no longer exists. It returns the number of members removed.
func (e *Engine) Prune(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "ranking.prune")
	defer span.End()

	members, err := e.store.ZMembers(ctx, cache.RankingKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if len(members) == 0 {
		span.SetStatus(codes.Ok, "")
		return 0, nil
	}

	counterKeys := make([]string, len(members))
	for i, m := range members {
		counterKeys[i] = cache.ViewCounterKey(m)
	}
	present, err := e.store.Exists(ctx, counterKeys...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	stale := make([]string, 0)
	live := make([]string, 0, len(members))
	for i, m := range members {
		if present[i] {
			live = append(live, m)
		} else {
			stale = append(stale, m)
		}
	}

	if len(live) > 0 {
		existing, err := e.events.ExistingIDs(ctx, live)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		found := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			found[id] = struct{}{}
		}
		for _, m := range live {
			if _, ok := found[m]; !ok {
				stale = append(stale, m)
			}
		}
	}

	if len(stale) == 0 {
		span.SetStatus(codes.Ok, "")
		return 0, nil
	}
	if err := e.store.ZRem(ctx, cache.RankingKey, stale...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Int("pruned", len(stale)))
	span.SetStatus(codes.Ok, "")
	return len(stale), nil
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
