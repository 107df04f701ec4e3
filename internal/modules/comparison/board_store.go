// README: Board sessions stored in Redis with optimistic WATCH/MULTI updates.
package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lanepricing/internal/types"
)

const (
	boardKeyPrefix = "comparison:board:%s"
	// maxUpdateRetries bounds how often a contended update is retried.
	maxUpdateRetries = 5
)

type BoardStore interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id types.ID) (*Session, error)
	Update(ctx context.Context, id types.ID, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id types.ID) error
}

type RedisBoardStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisBoardStore(redis *redis.Client, ttl time.Duration) *RedisBoardStore {
	return &RedisBoardStore{redis: redis, ttl: ttl}
}

func (s *RedisBoardStore) Create(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ok, err := s.redis.SetNX(ctx, boardKey(sess.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *RedisBoardStore) Get(ctx context.Context, id types.ID) (*Session, error) {
	raw, err := s.redis.Get(ctx, boardKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode board %s: %w", id, err)
	}
	return &sess, nil
}

// Update reads the board, applies fn and writes it back inside a WATCH
// transaction. The TTL is refreshed on every successful write.
func (s *RedisBoardStore) Update(ctx context.Context, id types.ID, fn func(*Session) error) (*Session, error) {
	key := boardKey(id)
	var out *Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("decode board %s: %w", id, err)
		}
		if err := fn(&sess); err != nil {
			return err
		}
		next, err := json.Marshal(&sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err == nil {
			out = &sess
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrConflict
}

func (s *RedisBoardStore) Delete(ctx context.Context, id types.ID) error {
	n, err := s.redis.Del(ctx, boardKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boardKey(id types.ID) string {
	return fmt.Sprintf(boardKeyPrefix, string(id))
}
