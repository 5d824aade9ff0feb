package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus is the stored online-state record for one user.
type PresenceStatus struct {
	UserID   int64     `json:"user_id"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
}

// PresenceStore mirrors identify/disconnect events into Redis so other
// parts of the application can show who is reachable over chat. The
// registry stays the source of truth for routing; this is advisory state.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

const (
	presenceKeyPrefix = "chat:presence:"
	presenceOnlineSet = "chat:presence:online"
)

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceStore{client: client, ttl: ttl}
}

func (p *PresenceStore) SetOnline(ctx context.Context, userID int64) error {
	now := time.Now()
	data, _ := json.Marshal(PresenceStatus{UserID: userID, IsOnline: true, LastSeen: now})

	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+strconv.FormatInt(userID, 10), data, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) SetOffline(ctx context.Context, userID int64) error {
	now := time.Now()
	data, _ := json.Marshal(PresenceStatus{UserID: userID, IsOnline: false, LastSeen: now})

	pipe := p.client.Pipeline()
	// Offline records stick around longer so pages can show last-seen.
	pipe.Set(ctx, presenceKeyPrefix+strconv.FormatInt(userID, 10), data, 24*time.Hour)
	pipe.SRem(ctx, presenceOnlineSet, userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceStore) IsOnline(ctx context.Context, userID int64) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, userID).Result()
}
