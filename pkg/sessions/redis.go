package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// RedisStore implements Store on Redis, letting key expiry enforce the TTL
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a session store on an existing client
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(actorID int64) string {
	return fmt.Sprintf("%s:deposit_session:%d", r.prefix, actorID)
}

// Begin opens or replaces the actor's session
func (r *RedisStore) Begin(ctx context.Context, actorID int64, wallet entities.WalletName) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ActorID:   actorID,
		Wallet:    wallet,
		StartedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	if err := r.client.Set(ctx, r.key(actorID), data, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("error saving session: %w", err)
	}
	return session, nil
}

// Get returns the actor's live session
func (r *RedisStore) Get(ctx context.Context, actorID int64) (*Session, error) {
	data, err := r.client.Get(ctx, r.key(actorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("error decoding session: %w", err)
	}
	return &session, nil
}

// End removes the actor's session
func (r *RedisStore) End(ctx context.Context, actorID int64) error {
	if err := r.client.Del(ctx, r.key(actorID)).Err(); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}
