package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"kora-games/internal/domain"
	"kora-games/internal/progress"
)

// maxUpdateAttempts bounds optimistic retries when other writers keep changing the record.
const maxUpdateAttempts = 16

// ErrProgressContended is returned when Update loses the WATCH race maxUpdateAttempts times.
var ErrProgressContended = errors.New("progress record contended")

// ProgressStore keeps each installation's progress as one JSON value under progress.Key.
// Records never expire.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Load(ctx context.Context, installationID string) (domain.Progress, error) {
	return decodeProgress(s.client.Get(ctx, progress.Key(installationID)).Bytes())
}

func (s *ProgressStore) Save(ctx context.Context, installationID string, p domain.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, progress.Key(installationID), data, 0).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// Update applies fn under WATCH so concurrent writers on other instances cannot overwrite each
// other. fn runs again with the fresh record whenever the key changed before EXEC.
func (s *ProgressStore) Update(ctx context.Context, installationID string, fn func(domain.Progress) (domain.Progress, error)) (domain.Progress, error) {
	key := progress.Key(installationID)
	var out domain.Progress

	txf := func(tx *redis.Tx) error {
		current, err := decodeProgress(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			out = next
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Progress{}, err
		}
		return out, nil
	}
	return domain.Progress{}, ErrProgressContended
}

func decodeProgress(raw []byte, err error) (domain.Progress, error) {
	if isMiss(err) {
		return domain.NewProgress(), nil
	}
	if err != nil {
		return domain.Progress{}, fmt.Errorf("get progress: %w", err)
	}
	var p domain.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.Progress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return progress.Migrate(p), nil
}
