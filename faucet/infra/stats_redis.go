package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"faucet-gateway/faucet/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por requester.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "faucet:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := string(ev.Outcome)
	if field == "" {
		return nil
	}

	pipe := s.rdb.Pipeline()
	for _, k := range s.keys(ev, at) {
		pipe.HIncrBy(ctx, k.name, k.field, 1)
		if k.expire && s.ttl > 0 {
			pipe.Expire(ctx, k.name, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

type statsKey struct {
	name   string
	field  string
	expire bool
}

func (s *RedisStatsStore) keys(ev domain.StatsEvent, at time.Time) []statsKey {
	field := string(ev.Outcome)
	keys := []statsKey{{name: s.prefix + ":total", field: field}}

	if s.bucket == "minute" {
		keys = append(keys, statsKey{
			name:   fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504")),
			field:  field,
			expire: true,
		})
	}

	if network := strings.TrimSpace(ev.Network); network != "" {
		keys = append(keys, statsKey{name: s.prefix + ":network", field: network + ":" + field})
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Requester)); k != "" {
			keys = append(keys, statsKey{name: s.prefix + ":key:" + k, field: field, expire: true})
		}
	}
	return keys
}
