// Package conversation owns the in-memory state of one user's messaging
// experience: the sidebar of conversation partners with last-message
// previews, the ordered feed for the open conversation, and the profile of
// the selected partner. History comes from the message store, live updates
// from the event bus; the view merges the two, deduplicating by message
// identifier.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/skillconnect/skillconnect-backend/internal/models"
)

// MessageStore is the historical query side of the store collaborator.
type MessageStore interface {
	// History returns every message the viewer sent or received,
	// newest first.
	History(ctx context.Context, viewer string) ([]Message, error)
	// Between returns the full conversation between two users,
	// oldest first.
	Between(ctx context.Context, a, b string) ([]Message, error)
	// Insert stores a new message and returns it with its assigned
	// identifier and timestamp.
	Insert(ctx context.Context, from, to, content string) (Message, error)
}

// ProfileStore resolves user profiles. A missing profile is reported via
// models-level not-found handling by the implementation and shows up here
// as an error the view treats as "no profile yet".
type ProfileStore interface {
	Get(ctx context.Context, id string) (models.Profile, error)
}

// Subscription is a live feed of inserted messages for one user.
type Subscription interface {
	Events() <-chan Message
	Close()
}

// EventBus delivers newly inserted messages to subscribed viewers.
// Delivery is at-least-once and ordered within a conversation pair.
type EventBus interface {
	Subscribe(user string) (Subscription, error)
}

// State of the currently open conversation.
type State int

const (
	StateNone State = iota
	StateLoading
	StateEmpty
	StatePopulated
)

var (
	ErrEmptyMessage = errors.New("conversation: message content is empty")
	ErrNoRecipient  = errors.New("conversation: no recipient")
	ErrClosed       = errors.New("conversation: view is closed")
)

// View is the conversation state manager for a single viewer. Methods are
// safe for concurrent use; live events arrive on the subscription
// goroutine while selections and sends come from the caller.
type View struct {
	viewer   string
	store    MessageStore
	profiles ProfileStore
	bus      EventBus

	mu        sync.Mutex
	state     State
	selected  string
	epoch     uint64
	feed      []Message
	seen      map[string]struct{}
	summaries []Summary
	partner   models.Profile
	sub       Subscription
	closed    bool

	notify func(Message)
}

// NewView creates a view for viewer. Call Initialize before use and Close
// when the session ends.
func NewView(viewer string, store MessageStore, profiles ProfileStore, bus EventBus) *View {
	return &View{
		viewer:   viewer,
		store:    store,
		profiles: profiles,
		bus:      bus,
		seen:     make(map[string]struct{}),
	}
}

// Initialize loads the viewer's full history, reduces it to one summary
// per partner (most recent message wins) and starts the live subscription.
func (v *View) Initialize(ctx context.Context) error {
	history, err := v.store.History(ctx, v.viewer)
	if err != nil {
		return err
	}

	latest := LatestByPartner(v.viewer, history)
	summaries := make([]Summary, 0, len(latest))
	for _, m := range latest {
		other := m.Other(v.viewer)
		profile, err := v.profiles.Get(ctx, other)
		if err != nil {
			// Partner profile missing or unreadable: keep the entry with
			// just the identity so the sidebar still shows the activity.
			profile = models.Profile{ID: other}
		}
		summaries = append(summaries, Summary{
			Partner:       profile,
			LastMessage:   m.Content,
			LastMessageID: m.ID,
			LastActivity:  m.CreatedAt,
		})
	}

	sub, err := v.bus.Subscribe(v.viewer)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	v.summaries = summaries
	v.sub = sub
	v.mu.Unlock()

	go func() {
		for m := range sub.Events() {
			v.OnEvent(m)
			if v.notify != nil && m.Involves(v.viewer) {
				v.notify(m)
			}
		}
	}()
	return nil
}

// SetNotify registers fn, called from the subscription goroutine after
// each live event has been applied. Must be set before Initialize.
func (v *View) SetNotify(fn func(Message)) {
	v.notify = fn
}

// Select opens the conversation with other: loads the pair history as the
// feed and resolves the partner's profile. A Select superseded by a newer
// one discards its late-arriving result instead of installing it over the
// newer conversation.
func (v *View) Select(ctx context.Context, other string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.epoch++
	epoch := v.epoch
	v.selected = other
	v.state = StateLoading
	v.feed = nil
	v.seen = make(map[string]struct{})
	profile, haveProfile := v.summaryProfileLocked(other)
	v.mu.Unlock()

	msgs, err := v.store.Between(ctx, v.viewer, other)
	if err != nil {
		v.mu.Lock()
		if v.epoch == epoch {
			v.state = StateNone
			v.selected = ""
		}
		v.mu.Unlock()
		return err
	}

	if !haveProfile {
		p, perr := v.profiles.Get(ctx, other)
		if perr == nil {
			profile = p
			haveProfile = true
		} else {
			profile = models.Profile{ID: other}
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.epoch != epoch {
		// Selection changed while the fetch was in flight.
		return nil
	}

	v.feed = msgs
	v.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		v.seen[m.ID] = struct{}{}
	}
	v.partner = profile
	if len(msgs) == 0 {
		v.state = StateEmpty
		// Sidebar shows the about-to-start conversation even before the
		// first send.
		v.ensurePlaceholderLocked(profile)
	} else {
		v.state = StatePopulated
	}
	return nil
}

// OnEvent merges a live-inserted message. The feed is only touched when
// the message belongs to the currently open conversation; the sidebar is
// updated for any conversation of the viewer. Duplicate deliveries are
// no-ops.
func (v *View) OnEvent(m Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	// A stale subscription could still deliver after a session handoff;
	// never merge messages the viewer is not part of.
	if !m.Involves(v.viewer) {
		return
	}

	if v.selected != "" && (v.state == StateEmpty || v.state == StatePopulated) &&
		m.Pair() == PairKey(v.viewer, v.selected) {
		if _, dup := v.seen[m.ID]; !dup {
			v.seen[m.ID] = struct{}{}
			v.insertOrderedLocked(m)
			v.state = StatePopulated
		}
	}

	v.touchSummaryLocked(m)
}

// Send validates and stores a new message to other. The feed is not
// updated here; the live echo from the bus appends it, so a failed send
// leaves no local trace and the caller can retry with the same content.
func (v *View) Send(ctx context.Context, other, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyMessage
	}
	if other == "" {
		return Message{}, ErrNoRecipient
	}
	return v.store.Insert(ctx, v.viewer, other, content)
}

// State returns the state of the open conversation.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Selected returns the currently open partner id, "" when none.
func (v *View) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Feed returns a copy of the open conversation's messages, oldest first.
func (v *View) Feed() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.feed))
	copy(out, v.feed)
	return out
}

// Summaries returns a copy of the sidebar entries, newest activity first.
func (v *View) Summaries() []Summary {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Summary, len(v.summaries))
	copy(out, v.summaries)
	return out
}

// SelectedProfile returns the profile of the open conversation's partner.
func (v *View) SelectedProfile() models.Profile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.partner
}

// Close tears down the live subscription. The view must not be used after.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// insertOrderedLocked places m at its chronological position. Events
// usually arrive in order per pair, so this walks from the tail.
func (v *View) insertOrderedLocked(m Message) {
	i := len(v.feed)
	for i > 0 && m.Before(v.feed[i-1]) {
		i--
	}
	v.feed = append(v.feed, Message{})
	copy(v.feed[i+1:], v.feed[i:])
	v.feed[i] = m
}

// touchSummaryLocked overwrites (or creates) the partner's sidebar entry
// with the new message and moves it to the front.
func (v *View) touchSummaryLocked(m Message) {
	other := m.Other(v.viewer)
	for i := range v.summaries {
		if v.summaries[i].Partner.ID != other {
			continue
		}
		s := v.summaries[i]
		s.LastMessage = m.Content
		s.LastMessageID = m.ID
		s.LastActivity = m.CreatedAt
		v.summaries = append(v.summaries[:i], v.summaries[i+1:]...)
		v.summaries = append([]Summary{s}, v.summaries...)
		return
	}
	v.summaries = append([]Summary{{
		Partner:       models.Profile{ID: other},
		LastMessage:   m.Content,
		LastMessageID: m.ID,
		LastActivity:  m.CreatedAt,
	}}, v.summaries...)
}

// ensurePlaceholderLocked prepends a zero-message entry for profile unless
// the partner already has one.
func (v *View) ensurePlaceholderLocked(profile models.Profile) {
	for i := range v.summaries {
		if v.summaries[i].Partner.ID == profile.ID {
			return
		}
	}
	v.summaries = append([]Summary{{Partner: profile}}, v.summaries...)
}

// summaryProfileLocked returns the partner profile snapshot from the
// sidebar when one is already known (cheap path for profile resolution).
func (v *View) summaryProfileLocked(other string) (models.Profile, bool) {
	for i := range v.summaries {
		if v.summaries[i].Partner.ID == other && v.summaries[i].Partner.Username != "" {
			return v.summaries[i].Partner, true
		}
	}
	return models.Profile{}, false
}
