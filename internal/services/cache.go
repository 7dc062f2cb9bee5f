package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
)

var ErrCacheMiss = errors.New("key not found")

// CacheService stores JSON values in redis, or in process memory when no
// redis client is configured.
type CacheService struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	local map[string]localEntry
	now   func() time.Time
}

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{
		client: client,
		prefix: "mon_ps:",
		local:  make(map[string]localEntry),
		now:    time.Now,
	}
}

// NewRedisClient parses a redis URL. An empty URL disables redis.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *CacheService) Backend() string {
	if s.client == nil {
		return "memory"
	}
	return "redis"
}

func (s *CacheService) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		e := localEntry{data: data}
		if expiration > 0 {
			e.expiresAt = s.now().Add(expiration)
		}
		s.local[key] = e
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	if s.client == nil {
		s.mu.Lock()
		e, ok := s.local[key]
		if ok && !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
			delete(s.local, key)
			ok = false
		}
		s.mu.Unlock()
		if !ok {
			return ErrCacheMiss
		}
		data = e.data
	} else {
		raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCacheMiss
			}
			return fmt.Errorf("failed to get cache: %w", err)
		}
		data = raw
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, k := range keys {
			delete(s.local, k)
		}
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// SetWithRetry retries transient write failures with a linear backoff.
func (s *CacheService) SetWithRetry(ctx context.Context, key string, value interface{}, expiration time.Duration, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = s.Set(ctx, key, value, expiration); err == nil {
			return nil
		}
		logrus.Warnf("Cache set failed (attempt %d/%d): %v", i+1, maxRetries, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 100 * time.Duration(i+1)):
		}
	}
	return err
}

// Cache key generators
func AnalysisCacheKey(req engine.Request, hubVersion int) string {
	matchID := req.MatchID
	if matchID == "" {
		matchID = engine.MatchID(req.Home, req.Away, req.CommenceTime)
	}
	return fmt.Sprintf("analysis:%s:%s:%s:%.2f:v%d",
		matchID, strings.ToLower(req.Referee), strings.ToUpper(req.OpponentStyle), req.MatchImportance, hubVersion)
}

func ShortsCacheKey(minProb float64, hubVersion int) string {
	return fmt.Sprintf("shorts:%.0f:v%d", minProb, hubVersion)
}
