package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

const (
	redisSessionKey    = "auth:session"
	redisTokenKey      = "auth:token"
	redisGenerationKey = "auth:generation"
)

// RedisStore persists the snapshot in Redis. All three keys are written in
// one transactional pipeline so Load never observes a partial save.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a RedisStore. The prefix namespaces the keys so
// several profiles can share one Redis instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

// Save writes session, token and generation keys with a TTL bounded by the
// session expiry.
func (s *RedisStore) Save(ctx context.Context, sess auth.Session) error {
	gen := uuid.NewString()
	data, err := json.Marshal(envelope{Generation: gen, Session: sess, AccessToken: sess.AccessToken})
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(redisSessionKey), data, ttl)
	pipe.Set(ctx, s.key(redisTokenKey), sess.AccessToken, ttl)
	pipe.Set(ctx, s.key(redisGenerationKey), gen, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}
	return nil
}

// Load reads the snapshot, clearing it when corrupt or expired.
func (s *RedisStore) Load(ctx context.Context) (*auth.Session, error) {
	data, err := s.client.Get(ctx, s.key(redisSessionKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: redis load: %w", err)
	}
	var rec envelope
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = s.Clear(ctx)
		return nil, nil
	}
	if !rec.Session.Valid(s.now()) {
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	sess := rec.Session
	return &sess, nil
}

// AccessToken returns the token key, if present.
func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key(redisTokenKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("session: redis token: %w", err)
	}
	return token, nil
}

// Clear removes every snapshot key.
func (s *RedisStore) Clear(ctx context.Context) error {
	keys := []string{s.key(redisSessionKey), s.key(redisTokenKey), s.key(redisGenerationKey)}
	if err := s.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis clear: %w", err)
	}
	return nil
}

// Generation returns the marker of the last committed save, empty when no
// snapshot is stored.
func (s *RedisStore) Generation(ctx context.Context) (string, error) {
	gen, err := s.client.Get(ctx, s.key(redisGenerationKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("session: redis generation: %w", err)
	}
	return gen, nil
}

func (s *RedisStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

var _ Store = (*RedisStore)(nil)
