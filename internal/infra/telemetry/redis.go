package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notekeep/recovery/internal/core/domain"
)

// RedisConfig holds Redis sink configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	// MaxEntries caps the event list; older entries are trimmed away.
	MaxEntries int64 `yaml:"max_entries"`
}

// RedisSink pushes qualifying error events onto a capped Redis list so an
// external crash-reporting consumer can drain them. Deliveries use a short
// timeout; a slow or absent Redis never blocks recovery.
type RedisSink struct {
	rdb        *redis.Client
	maxEntries int64
}

const redisEventKey = "recovery:events"

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	return &RedisSink{rdb: rdb, maxEntries: maxEntries}, nil
}

func (s *RedisSink) Name() string { return "redis" }

// eventRecord is the wire form of an event on the Redis list.
type eventRecord struct {
	Kind       string `json:"kind"`
	Group      string `json:"group"`
	Severity   string `json:"severity"`
	Component  string `json:"component"`
	Operation  string `json:"operation"`
	RetryCount int    `json:"retry_count"`
	Reason     string `json:"reason,omitempty"`
	ReportedAt int64  `json:"reported_at"`
}

// Record pushes one event and trims the list to its cap.
func (s *RedisSink) Record(ctx context.Context, ev domain.ErrorEvent) error {
	rec := eventRecord{
		Kind:       string(ev.Failure.Kind),
		Group:      string(ev.Failure.Kind.Group()),
		Severity:   ev.Severity.String(),
		Component:  ev.Context.Component,
		Operation:  ev.Context.Operation,
		RetryCount: ev.Context.RetryCount,
		Reason:     ev.Failure.Reason,
		ReportedAt: ev.ReportedAt.Unix(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.rdb.LPush(ctx, redisEventKey, data).Err(); err != nil {
		return fmt.Errorf("lpush failed: %w", err)
	}
	if err := s.rdb.LTrim(ctx, redisEventKey, 0, s.maxEntries-1).Err(); err != nil {
		return fmt.Errorf("ltrim failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
