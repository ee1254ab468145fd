package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
	"github.com/skillconnect/skillconnect-backend/internal/database"
)

const (
	// One Redis channel per user; an inserted message is published to both
	// participants' channels so the sidebar updates even when the
	// conversation is not open.
	userChannelPrefix  = "dm:user:"
	userChannelPattern = "dm:user:*"
	subscriberBuffer   = 32
)

// Bus delivers inserted messages to subscribed viewers. A single shared
// Redis pattern subscription per instance feeds a local hub; Subscribe
// registers a buffered channel for one user. Implements
// conversation.EventBus.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string]map[*busSubscription]struct{}
	started sync.Once
}

// DMBus is the process-wide message event bus.
var DMBus = &Bus{subs: make(map[string]map[*busSubscription]struct{})}

type busSubscription struct {
	bus  *Bus
	user string
	ch   chan conversation.Message
	once sync.Once
}

func (s *busSubscription) Events() <-chan conversation.Message { return s.ch }

func (s *busSubscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a live feed for one user's messages.
func (b *Bus) Subscribe(user string) (conversation.Subscription, error) {
	sub := &busSubscription{
		bus:  b,
		user: user,
		ch:   make(chan conversation.Message, subscriberBuffer),
	}
	b.mu.Lock()
	if b.subs[user] == nil {
		b.subs[user] = make(map[*busSubscription]struct{})
	}
	b.subs[user][sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

func (b *Bus) remove(sub *busSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.user]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.user)
	}
}

// Publish sends an inserted message to both participants' channels.
// Called after the store insert succeeds.
func (b *Bus) Publish(ctx context.Context, m conversation.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	users := []string{m.FromUser}
	if m.ToUser != m.FromUser {
		users = append(users, m.ToUser)
	}
	for _, u := range users {
		if err := database.RedisClient.Publish(ctx, userChannelPrefix+u, data).Err(); err != nil {
			return err
		}
	}
	return nil
}

// fanOut delivers a message to the local subscribers of one user.
// Non-blocking: a subscriber that cannot keep up drops the event (the
// client reconciles from history on its next load).
func (b *Bus) fanOut(user string, m conversation.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[user] {
		select {
		case sub.ch <- m:
		default:
			log.Printf("realtime: dropping event for slow subscriber (user %s)", user)
		}
	}
}

// Start ensures a single shared Redis listener per instance.
func (b *Bus) Start(ctx context.Context) {
	b.started.Do(func() {
		go b.run(ctx)
	})
}

func (b *Bus) run(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; realtime bus not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, userChannelPattern)
			defer pubsub.Close()

			log.Printf("✅ Realtime bus subscriber started (pattern: %s)", userChannelPattern)

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("realtime: subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				user := strings.TrimPrefix(msg.Channel, userChannelPrefix)
				var m conversation.Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					log.Printf("realtime: failed to unmarshal event: %v", err)
					continue
				}
				b.fanOut(user, m)
			}
		}()
	}
}
