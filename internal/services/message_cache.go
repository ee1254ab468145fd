package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
	"github.com/skillconnect/skillconnect-backend/internal/database"
)

const (
	recentPairKeyPrefix = "dm:pair:"
	recentPairKeySuffix = ":recent"
	recentPairMaxLen    = 50
	recentPairTTL       = 1 * time.Hour
)

func recentPairKey(pairKey string) string {
	return recentPairKeyPrefix + pairKey + recentPairKeySuffix
}

// PushMessageToRecentCache adds a message to the Redis recent cache for its
// pair (newest at head). Call after the Mongo insert. LPUSH + LTRIM keeps
// the last 50.
func PushMessageToRecentCache(msg conversation.Message) {
	if database.RedisClient == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := recentPairKey(msg.Pair())
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	pipe := database.RedisClient.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, recentPairMaxLen-1)
	pipe.Expire(ctx, key, recentPairTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("message_cache: push failed for pair %s: %v", msg.Pair(), err)
	}
}

// RecentBetween returns the cached tail of a conversation (oldest first).
// Serves the quick-load path of the history endpoint; the conversation
// view always reads the full history from Mongo instead.
func RecentBetween(ctx context.Context, a, b string) ([]conversation.Message, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	key := recentPairKey(conversation.PairKey(a, b))
	raw, err := database.RedisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var msgs []conversation.Message
	for i := len(raw) - 1; i >= 0; i-- {
		var m conversation.Message
		if json.Unmarshal([]byte(raw[i]), &m) != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// WarmRecentPairCache stores the tail of a freshly loaded pair history in
// Redis (oldest at tail). msgs must be oldest-first.
func WarmRecentPairCache(ctx context.Context, pairKey string, msgs []conversation.Message) {
	if database.RedisClient == nil || len(msgs) == 0 {
		return
	}

	if len(msgs) > recentPairMaxLen {
		msgs = msgs[len(msgs)-recentPairMaxLen:]
	}

	key := recentPairKey(pairKey)
	pipe := database.RedisClient.Pipeline()
	pipe.Del(ctx, key)
	for i := len(msgs) - 1; i >= 0; i-- {
		data, err := json.Marshal(msgs[i])
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, recentPairTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("message_cache: warm failed for pair %s: %v", pairKey, err)
	}
}
