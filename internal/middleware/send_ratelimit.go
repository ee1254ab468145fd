package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-user message send limit: 1 msg/s sustained, burst 5. Applied by the
// message handlers (HTTP and WebSocket) rather than as HTTP middleware so
// both paths share one limiter per user.

const (
	sendRateLimitRPS    = 1
	sendRateLimitBurst  = 5
	sendCleanupInterval = 5 * time.Minute
	sendLimiterTTL      = 30 * time.Minute
)

var (
	sendEntries    = make(map[string]*limiterEntry)
	sendEntriesMu  sync.Mutex
	sendCleanupRun bool
)

// AllowSend reports whether the user may send another message right now.
func AllowSend(userID string) bool {
	sendEntriesMu.Lock()
	startSendCleanupOnce()
	e, ok := sendEntries[userID]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(sendRateLimitRPS), sendRateLimitBurst),
			lastUse: time.Now(),
		}
		sendEntries[userID] = e
	}
	e.lastUse = time.Now()
	limiter := e.limiter
	sendEntriesMu.Unlock()
	return limiter.Allow()
}

func startSendCleanupOnce() {
	if sendCleanupRun {
		return
	}
	sendCleanupRun = true
	go func() {
		ticker := time.NewTicker(sendCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			sendEntriesMu.Lock()
			now := time.Now()
			for id, e := range sendEntries {
				if now.Sub(e.lastUse) > sendLimiterTTL {
					delete(sendEntries, id)
				}
			}
			sendEntriesMu.Unlock()
		}
	}()
}
