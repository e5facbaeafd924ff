package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// EventLoader is the ledger side of the read path
type EventLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context) ([]*domain.Event, error)
}

// ViewRecorder counts a detail view. It must not fail the read.
type ViewRecorder interface {
	RecordView(ctx context.Context, eventID string) int64
}

// Config holds read-through TTLs
type Config struct {
	EventTTL time.Duration
	ListTTL  time.Duration
}

// DefaultConfig returns the standard TTLs
func DefaultConfig() Config {
	return Config{
		EventTTL: 5 * time.Minute,
		ListTTL:  5 * time.Minute,
	}
}

// ReadThrough serves event reads cache-aside and owns invalidation
type ReadThrough struct {
	store  Store
	events EventLoader
	views  ViewRecorder
	cfg    Config
	log    *logger.Logger
}

// NewReadThrough creates a ReadThrough. views may be nil.
func NewReadThrough(store Store, events EventLoader, views ViewRecorder, cfg Config) *ReadThrough {
	def := DefaultConfig()
	if cfg.EventTTL <= 0 {
		cfg.EventTTL = def.EventTTL
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &ReadThrough{
		store:  store,
		events: events,
		views:  views,
		cfg:    cfg,
		log:    logger.Get(),
	}
}

// GetEvent returns an event from cache or the ledger and counts the view.
// A missing event is not cached and not counted.
func (r *ReadThrough) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "cache.read_through.get_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))
	key := EventKey(id)

	var event domain.Event
	if r.load(ctx, key, &event) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		r.recordView(ctx, id)
		span.SetStatus(codes.Ok, "")
		return &event, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	genKey := EventGenKey(id)
	gen, genOK := r.generation(ctx, genKey)

	loaded, err := r.events.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrEventNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	if genOK {
		r.fill(ctx, genKey, gen, key, loaded, r.cfg.EventTTL)
	}
	r.recordView(ctx, id)
	span.SetStatus(codes.Ok, "")
	return loaded, nil
}

// ListEvents returns all events ordered by date, cache-aside
func (r *ReadThrough) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "cache.read_through.list_events")
	defer span.End()

	var events []*domain.Event
	if r.load(ctx, EventListKey, &events) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		span.SetStatus(codes.Ok, "")
		return events, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	gen, genOK := r.generation(ctx, EventsGenKey)

	events, err := r.events.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if genOK {
		r.fill(ctx, EventsGenKey, gen, EventListKey, events, r.cfg.ListTTL)
	}
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// InvalidateEvent drops the event's detail entry and every "events:*" key.
// It is called after commit by every path that changes an event or its
// inventory. Generations are advanced before the deletes so a load that
// started before the commit cannot fill the cache afterwards. Failures are
// logged only.
func (r *ReadThrough) InvalidateEvent(ctx context.Context, id string) {
	ctx, span := telemetry.StartSpan(ctx, "cache.read_through.invalidate_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	genKeys := []string{EventsGenKey}
	if id != "" {
		genKeys = append(genKeys, EventGenKey(id))
	}
	if err := BumpGenerations(ctx, r.store, genKeys...); err != nil {
		r.degraded(ctx, "bump_generations", EventsGenKey, err)
	}

	if id != "" {
		if err := r.store.Del(ctx, EventKey(id)); err != nil {
			r.degraded(ctx, "del", EventKey(id), err)
		}
	}

	n, err := r.store.DeletePattern(ctx, EventsPattern)
	if err != nil {
		r.degraded(ctx, "delete_pattern", EventsPattern, err)
	}
	span.SetAttributes(attribute.Int64("keys_deleted", n))
}

// load decodes key into dst and reports a hit. Store and decode errors count as a miss.
func (r *ReadThrough) load(ctx context.Context, key string, dst interface{}) bool {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			r.degraded(ctx, "get", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.degraded(ctx, "decode", key, err)
		return false
	}
	return true
}

// generation notes genKey before a load. ok is false when the store is
// unreadable, in which case the load result is not cached.
func (r *ReadThrough) generation(ctx context.Context, genKey string) (string, bool) {
	gen, err := Generation(ctx, r.store, genKey)
	if err != nil {
		r.degraded(ctx, "get", genKey, err)
		return "", false
	}
	return gen, true
}

// fill caches value unless genKey moved past gen during the load
func (r *ReadThrough) fill(ctx context.Context, genKey, gen, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.degraded(ctx, "encode", key, err)
		return
	}
	written, err := SetIfGeneration(ctx, r.store, genKey, gen, key, raw, ttl)
	if err != nil {
		r.degraded(ctx, "set", key, err)
		return
	}
	if !written {
		r.log.Debug("cache fill skipped after invalidation", zap.String("key", key))
	}
}

func (r *ReadThrough) recordView(ctx context.Context, id string) {
	if r.views != nil {
		r.views.RecordView(ctx, id)
	}
}

func (r *ReadThrough) degraded(ctx context.Context, op, key string, err error) {
	r.log.WarnContext(ctx, "cache degraded",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
