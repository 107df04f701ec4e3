// README: Autosaved drafts kept in Redis, one key per price request.
package pricerequest

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
	draftKeyPrefix  = "pricerequest:draft:%s"
	maxDraftRetries = 5
)

type DraftStore interface {
	Get(ctx context.Context, id types.ID) (Draft, error)
	Save(ctx context.Context, id types.ID, change Draft) (Draft, error)
	Delete(ctx context.Context, id types.ID) error
}

type RedisDraftStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisDraftStore(redis *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{redis: redis, ttl: ttl}
}

// Get returns an empty draft when nothing is saved.
func (s *RedisDraftStore) Get(ctx context.Context, id types.ID) (Draft, error) {
	raw, err := s.redis.Get(ctx, draftKey(id)).Bytes()
	if err == redis.Nil {
		return Draft{}, nil
	}
	if err != nil {
		return Draft{}, err
	}
	return decodeDraft(id, raw)
}

// Save merges change into the stored draft and refreshes the TTL.
func (s *RedisDraftStore) Save(ctx context.Context, id types.ID, change Draft) (Draft, error) {
	key := draftKey(id)
	var out Draft

	txf := func(tx *redis.Tx) error {
		current := Draft{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if current, err = decodeDraft(id, raw); err != nil {
				return err
			}
		}
		merged := current.Merge(change)
		next, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			return nil
		})
		if err == nil {
			out = merged
		}
		return err
	}

	for i := 0; i < maxDraftRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Draft{}, err
		}
		return out, nil
	}
	return Draft{}, ErrConflict
}

func (s *RedisDraftStore) Delete(ctx context.Context, id types.ID) error {
	return s.redis.Del(ctx, draftKey(id)).Err()
}

func decodeDraft(id types.ID, raw []byte) (Draft, error) {
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return d, nil
}

func draftKey(id types.ID) string {
	return fmt.Sprintf(draftKeyPrefix, string(id))
}
