// Package redis mirrors connection lifecycle into Redis so the rest of
// the platform can see who is connected and since when. The relay only
// writes here; routing and presence catch-up never read it back.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys used:
// - <prefix>:conn:<userID>: set of connection meta JSON
// - <prefix>:presence:<userID> -> json {status,last_seen}

type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type ConnMeta struct {
	ConvID      string `json:"conv_id"`
	SocketID    string `json:"socket_id"`
	ConnectedAt int64  `json:"connected_at"`
}

func NewStore(r *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: r, prefix: prefix, ttl: ttl}
}

func (s *Store) connKey(userID string) string {
	return fmt.Sprintf("%s:conn:%s", s.prefix, userID)
}

func (s *Store) presenceKey(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

// AddConnection registers connection metadata (expires after ttl).
func (s *Store) AddConnection(ctx context.Context, userID, socketID, convID string) error {
	meta := ConnMeta{ConvID: convID, SocketID: socketID, ConnectedAt: time.Now().Unix()}
	j, _ := json.Marshal(meta)
	if err := s.client.SAdd(ctx, s.connKey(userID), j).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), s.ttl).Err()
	pres, _ := json.Marshal(map[string]any{"status": "online", "last_seen": time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), pres, s.ttl).Err()
}

// RemoveConnection drops the matching set member; when the user has no
// connections left the presence key flips to offline.
func (s *Store) RemoveConnection(ctx context.Context, userID, socketID string) error {
	key := s.connKey(userID)
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		var cm ConnMeta
		_ = json.Unmarshal([]byte(m), &cm)
		if cm.SocketID == socketID {
			_ = s.client.SRem(ctx, key, m).Err()
		}
	}
	cnt, _ := s.client.SCard(ctx, key).Result()
	if cnt == 0 {
		pres, _ := json.Marshal(map[string]any{"status": "offline", "last_seen": time.Now().Unix()})
		return s.client.Set(ctx, s.presenceKey(userID), pres, 0).Err()
	}
	return nil
}
