package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DraftRepository stores in-flight answer drafts in redis, keyed by attempt.
// The expiry path reads the latest draft when the client never submitted.
type DraftRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{Client: client, TTL: ttl}
}

func draftKey(attemptID string) string {
	return fmt.Sprintf("attempt:draft:%s", attemptID)
}

func (r *DraftRepository) Save(ctx context.Context, attemptID string, answers json.RawMessage) error {
	return r.Client.Set(ctx, draftKey(attemptID), []byte(answers), r.TTL).Err()
}

// Get returns nil with no error when no draft exists.
func (r *DraftRepository) Get(ctx context.Context, attemptID string) (json.RawMessage, error) {
	val, err := r.Client.Get(ctx, draftKey(attemptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(val), nil
}

func (r *DraftRepository) Delete(ctx context.Context, attemptID string) error {
	return r.Client.Del(ctx, draftKey(attemptID)).Err()
}
