package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"logininfo/internal/settings"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// redisRecord is the stored envelope. Options stays a string so the options document is
// kept exactly as settings.MarshalOptions produced it.
type redisRecord struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Options   string    `json:"options"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewRedis constructs a redis-backed settings store.
func NewRedis(cfg Config) (settings.Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "logininfo:"
	}
	return &redisStore{
		client: client,
		prefix: prefix,
	}, nil
}

func (s *redisStore) recordKey() string {
	return s.prefix + "system_settings"
}

func (s *redisStore) seqKey() string {
	return s.prefix + "system_settings:seq"
}

func (s *redisStore) GetSingleton(ctx context.Context) (*settings.Record, error) {
	data, err := s.client.Get(ctx, s.recordKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", settings.ErrStoreUnavailable, err)
	}
	return decodeRedisRecord(data)
}

func (s *redisStore) Create(ctx context.Context, opts settings.Options) (*settings.Record, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", settings.ErrStoreUnavailable, err)
	}
	now := time.Now().UTC()
	rec := &settings.Record{ID: id, Options: opts, CreatedAt: now, UpdatedAt: now}
	data, err := encodeRedisRecord(rec)
	if err != nil {
		return nil, err
	}

	created, err := s.client.SetNX(ctx, s.recordKey(), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", settings.ErrStoreUnavailable, err)
	}
	if !created {
		return nil, settings.ErrRecordExists
	}
	return decodeRedisRecord(data)
}

func (s *redisStore) Update(ctx context.Context, rec *settings.Record, opts settings.Options) (*settings.Record, error) {
	if rec == nil {
		return nil, settings.ErrRecordNotFound
	}
	updated := *rec
	updated.Options = opts
	updated.UpdatedAt = time.Now().UTC()
	data, err := encodeRedisRecord(&updated)
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetXX(ctx, s.recordKey(), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", settings.ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, settings.ErrRecordNotFound
	}
	return decodeRedisRecord(data)
}

// Close releases the redis connection pool.
func (s *redisStore) Close() error {
	return s.client.Close()
}

func encodeRedisRecord(rec *settings.Record) ([]byte, error) {
	doc, err := settings.MarshalOptions(rec.Options)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(redisRecord{
		ID:        rec.ID,
		Title:     rec.Title,
		Options:   string(doc),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}); err != nil {
		return nil, fmt.Errorf("error encoding settings record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeRedisRecord(data []byte) (*settings.Record, error) {
	var stored redisRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("error decoding settings record: %w", err)
	}
	opts, err := settings.UnmarshalOptions([]byte(stored.Options))
	if err != nil {
		return nil, err
	}
	return &settings.Record{
		ID:        stored.ID,
		Title:     stored.Title,
		Options:   opts,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}
