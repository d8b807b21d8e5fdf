// Package rediscache caches table field lookups in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultTTL    = time.Hour
	defaultPrefix = "flowmigrate:table_field:"
)

// Lookup is a read-through cache in front of another TableFieldLookup.
// Cache failures are logged and never fail a lookup.
type Lookup struct {
	client redis.UniversalClient
	next   migrations.TableFieldLookup
	logger *slog.Logger
	ttl    time.Duration
	prefix string
}

// Option configures a Lookup.
type Option func(*Lookup)

// WithTTL sets how long resolved fields stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(l *Lookup) {
		l.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(l *Lookup) {
		l.prefix = prefix
	}
}

// NewLookup wraps next with a Redis cache.
func NewLookup(client redis.UniversalClient, next migrations.TableFieldLookup, logger *slog.Logger, opts ...Option) *Lookup {
	lookup := &Lookup{
		client: client,
		next:   next,
		logger: logger.With("module", "table_field_cache"),
		ttl:    defaultTTL,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(lookup)
	}

	return lookup
}

// NewClient connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewClient(ctx context.Context, url string) (redis.UniversalClient, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// FindByLegacyIDs serves cached fields from Redis and resolves the rest
// through the wrapped lookup in one call.
func (l *Lookup) FindByLegacyIDs(ctx context.Context, ids []int64) ([]*models.TableField, error) {
	if len(ids) == 0 {
		return []*models.TableField{}, nil
	}

	fields, missing := l.cached(ctx, ids)
	if len(missing) == 0 {
		return fields, nil
	}

	resolved, err := l.next.FindByLegacyIDs(ctx, missing)
	if err != nil {
		return nil, err
	}

	l.store(ctx, resolved)

	return append(fields, resolved...), nil
}

func (l *Lookup) key(id int64) string {
	return l.prefix + strconv.FormatInt(id, 10)
}

func (l *Lookup) cached(ctx context.Context, ids []int64) ([]*models.TableField, []int64) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = l.key(id)
	}

	values, err := l.client.MGet(ctx, keys...).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.WarnContext(ctx, "Table field cache read failed", "error", err)
		}

		return []*models.TableField{}, ids
	}

	fields := make([]*models.TableField, 0, len(ids))
	missing := make([]int64, 0)

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			missing = append(missing, ids[i])

			continue
		}

		var field models.TableField

		err := json.Unmarshal([]byte(raw), &field)
		if err != nil {
			l.logger.WarnContext(ctx, "Discarding corrupt cached table field", "key", keys[i], "error", err)
			missing = append(missing, ids[i])

			continue
		}

		fields = append(fields, &field)
	}

	return fields, missing
}

func (l *Lookup) store(ctx context.Context, fields []*models.TableField) {
	if len(fields) == 0 {
		return
	}

	pipe := l.client.Pipeline()

	for _, field := range fields {
		if field == nil {
			continue
		}

		data, err := json.Marshal(field)
		if err != nil {
			continue
		}

		pipe.Set(ctx, l.key(field.ID), data, l.ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Table field cache write failed", "error", err)
	}
}
