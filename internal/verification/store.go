package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Challenge is the server-held half of the identity check. The code never
// leaves the server except inside the email.
type Challenge struct {
	Code          string `json:"code"`
	Name          string `json:"name,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
}

// ChallengeStore keeps challenges keyed by email with expiry. Putting a
// new challenge invalidates any prior unconsumed one for the same email.
type ChallengeStore interface {
	Put(ctx context.Context, email string, ch Challenge, ttl time.Duration) error
	// Consume atomically fetches and invalidates the challenge, so two
	// concurrent verifications cannot both read it. Nil when absent.
	Consume(ctx context.Context, email string) (*Challenge, error)
	// StartCooldown returns false when a resend cooldown is still active.
	StartCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error)
	// ClearCooldown releases an unused cooldown claim.
	ClearCooldown(ctx context.Context, email string) error
}

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) ChallengeStore {
	return &redisStore{client: client}
}

func codeKey(email string) string     { return "verify:code:" + email }
func cooldownKey(email string) string { return "verify:cooldown:" + email }

func (s *redisStore) Put(ctx context.Context, email string, ch Challenge, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, codeKey(email), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

func (s *redisStore) Consume(ctx context.Context, email string) (*Challenge, error) {
	data, err := s.client.GetDel(ctx, codeKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume challenge: %w", err)
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &ch, nil
}

func (s *redisStore) StartCooldown(ctx context.Context, email string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, cooldownKey(email), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set cooldown: %w", err)
	}
	return ok, nil
}

func (s *redisStore) ClearCooldown(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, cooldownKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to clear cooldown: %w", err)
	}
	return nil
}
