package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/servicedesk/internal/domain"
)

type redisDirectory struct {
	client *redis.Client
	key    string
}

// NewRedisDirectory keeps responders in a Redis hash keyed by lowercased email,
// shared by every service instance.
func NewRedisDirectory(client *redis.Client, key string) Directory {
	return &redisDirectory{client: client, key: key}
}

func (d *redisDirectory) Lookup(ctx context.Context, email string) (domain.Assignee, bool, error) {
	raw, err := d.client.HGet(ctx, d.key, normalizeEmail(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Assignee{}, false, nil
	}
	if err != nil {
		return domain.Assignee{}, false, fmt.Errorf("roster lookup: %w", err)
	}
	responder, err := decodeResponder(raw)
	if err != nil {
		return domain.Assignee{}, false, err
	}
	return responder, true, nil
}

func (d *redisDirectory) Put(ctx context.Context, responder domain.Assignee) error {
	raw, err := json.Marshal(responder)
	if err != nil {
		return fmt.Errorf("encode responder: %w", err)
	}
	return d.client.HSet(ctx, d.key, normalizeEmail(responder.Email), raw).Err()
}

func decodeResponder(raw []byte) (domain.Assignee, error) {
	var responder domain.Assignee
	if err := json.Unmarshal(raw, &responder); err != nil {
		return domain.Assignee{}, fmt.Errorf("decode responder: %w", err)
	}
	return responder, nil
}
