package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "session_revoked:"

// RevocationList is the server-side veto over sealed capsules. A capsule is
// self-contained and cannot be recalled from clients, so logout writes its
// ID here; the marker only has to outlive the capsule's own inactivity
// window, which bounds the Redis footprint.
type RevocationList struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRevocationList(client *redis.Client, ttl time.Duration) *RevocationList {
	return &RevocationList{Redis: client, TTL: ttl}
}

func (l *RevocationList) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return l.Redis.Set(ctx, revokedKeyPrefix+id, "1", l.TTL).Err()
}

func (l *RevocationList) IsRevoked(ctx context.Context, id string) (bool, error) {
	// Capsules sealed without an ID cannot be revoked individually, so they
	// are not accepted at all.
	if id == "" {
		return true, nil
	}
	exists, err := l.Redis.Exists(ctx, revokedKeyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}
