package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillconnect/skillconnect-backend/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	messages []Message
	inserts  int
	nextID   int
	// gate, when set for a pair key, blocks Between until released
	gates map[string]chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{gates: make(map[string]chan struct{})}
}

func (s *fakeStore) add(id, from, to, content string, at time.Time) Message {
	m := Message{ID: id, FromUser: from, ToUser: to, Content: content, CreatedAt: at}
	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m
}

func (s *fakeStore) History(ctx context.Context, viewer string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.Involves(viewer) {
			out = append(out, m)
		}
	}
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *fakeStore) Between(ctx context.Context, a, b string) ([]Message, error) {
	s.mu.Lock()
	gate := s.gates[PairKey(a, b)]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.Pair() == PairKey(a, b) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) Insert(ctx context.Context, from, to, content string) (Message, error) {
	s.mu.Lock()
	s.inserts++
	s.nextID++
	m := Message{
		ID:        fmt.Sprintf("m%03d", s.nextID),
		FromUser:  from,
		ToUser:    to,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return m, nil
}

type fakeProfiles struct {
	mu      sync.Mutex
	known   map[string]models.Profile
	lookups int
}

func newFakeProfiles(ids ...string) *fakeProfiles {
	p := &fakeProfiles{known: make(map[string]models.Profile)}
	for _, id := range ids {
		p.known[id] = models.Profile{ID: id, Username: id, DisplayName: "user " + id}
	}
	return p
}

func (p *fakeProfiles) Get(ctx context.Context, id string) (models.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups++
	prof, ok := p.known[id]
	if !ok {
		return models.Profile{}, fmt.Errorf("profile %s not found", id)
	}
	return prof, nil
}

type fakeSub struct {
	ch   chan Message
	once sync.Once
}

func (s *fakeSub) Events() <-chan Message { return s.ch }
func (s *fakeSub) Close()                 { s.once.Do(func() { close(s.ch) }) }

type fakeBus struct {
	mu   sync.Mutex
	subs []*fakeSub
}

func (b *fakeBus) Subscribe(user string) (Subscription, error) {
	sub := &fakeSub{ch: make(chan Message, 16)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *fakeBus) emit(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		s.ch <- m
	}
}

func newTestView(t *testing.T, viewer string, store *fakeStore, profiles *fakeProfiles) (*View, *fakeBus) {
	t.Helper()
	bus := &fakeBus{}
	v := NewView(viewer, store, profiles, bus)
	require.NoError(t, v.Initialize(context.Background()))
	t.Cleanup(v.Close)
	return v, bus
}

func at(sec int) time.Time {
	return time.Date(2025, 6, 1, 12, 0, sec, 0, time.UTC)
}

func TestInitializeBuildsSummariesNewestFirst(t *testing.T) {
	store := newFakeStore()
	store.add("m1", "alice", "bob", "hi bob", at(1))
	store.add("m2", "bob", "alice", "hi alice", at(2))
	store.add("m3", "carol", "alice", "hey", at(3))

	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob", "carol"))

	sums := v.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "carol", sums[0].Partner.ID)
	assert.Equal(t, "hey", sums[0].LastMessage)
	assert.Equal(t, "bob", sums[1].Partner.ID)
	assert.Equal(t, "hi alice", sums[1].LastMessage)
}

func TestLatestByPartnerDeterministic(t *testing.T) {
	// Same set in different orders, with a timestamp tie between m2 and m9
	// for the same partner: the larger identifier must win either way.
	msgs := []Message{
		{ID: "m2", FromUser: "bob", ToUser: "alice", Content: "older id", CreatedAt: at(5)},
		{ID: "m9", FromUser: "alice", ToUser: "bob", Content: "newer id", CreatedAt: at(5)},
		{ID: "m1", FromUser: "carol", ToUser: "alice", Content: "first", CreatedAt: at(1)},
	}
	reversed := []Message{msgs[2], msgs[1], msgs[0]}

	for _, input := range [][]Message{msgs, reversed} {
		latest := LatestByPartner("alice", input)
		require.Len(t, latest, 2)
		assert.Equal(t, "m9", latest[0].ID)
		assert.Equal(t, "newer id", latest[0].Content)
		assert.Equal(t, "m1", latest[1].ID)
	}
}

func TestSelectEmptyConversationSynthesizesPlaceholder(t *testing.T) {
	store := newFakeStore()
	profiles := newFakeProfiles("bob")
	v, _ := newTestView(t, "alice", store, profiles)

	require.NoError(t, v.Select(context.Background(), "bob"))

	assert.Equal(t, StateEmpty, v.State())
	assert.Empty(t, v.Feed())

	sums := v.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, "bob", sums[0].Partner.ID)
	assert.Equal(t, "user bob", sums[0].Partner.DisplayName)
	assert.Empty(t, sums[0].LastMessage)
	assert.True(t, sums[0].LastActivity.IsZero())
}

func TestOnEventDeduplicatesByID(t *testing.T) {
	store := newFakeStore()
	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob"))
	require.NoError(t, v.Select(context.Background(), "bob"))

	m := Message{ID: "m1", FromUser: "bob", ToUser: "alice", Content: "hi", CreatedAt: at(1)}
	v.OnEvent(m)
	v.OnEvent(m)
	v.OnEvent(m)

	feed := v.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "m1", feed[0].ID)
	assert.Equal(t, StatePopulated, v.State())
}

func TestOnEventFiltersOtherPairsFromFeed(t *testing.T) {
	store := newFakeStore()
	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob", "carol"))
	require.NoError(t, v.Select(context.Background(), "bob"))

	v.OnEvent(Message{ID: "m1", FromUser: "bob", ToUser: "alice", Content: "for feed", CreatedAt: at(1)})
	v.OnEvent(Message{ID: "m2", FromUser: "carol", ToUser: "alice", Content: "sidebar only", CreatedAt: at(2)})
	// Not the viewer's message at all: ignored entirely.
	v.OnEvent(Message{ID: "m3", FromUser: "carol", ToUser: "dave", Content: "noise", CreatedAt: at(3)})

	feed := v.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "m1", feed[0].ID)

	sums := v.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "carol", sums[0].Partner.ID)
	assert.Equal(t, "sidebar only", sums[0].LastMessage)
	assert.Equal(t, "bob", sums[1].Partner.ID)
}

func TestOnEventKeepsFeedOrderedWithTieBreak(t *testing.T) {
	store := newFakeStore()
	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob"))
	require.NoError(t, v.Select(context.Background(), "bob"))

	// Delivered out of order, with m4/m5 sharing a timestamp.
	v.OnEvent(Message{ID: "m5", FromUser: "bob", ToUser: "alice", CreatedAt: at(3)})
	v.OnEvent(Message{ID: "m2", FromUser: "alice", ToUser: "bob", CreatedAt: at(1)})
	v.OnEvent(Message{ID: "m4", FromUser: "bob", ToUser: "alice", CreatedAt: at(3)})
	v.OnEvent(Message{ID: "m3", FromUser: "bob", ToUser: "alice", CreatedAt: at(2)})

	feed := v.Feed()
	ids := make([]string, 0, len(feed))
	for _, m := range feed {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m2", "m3", "m4", "m5"}, ids)
}

func TestSendRejectsWhitespaceWithoutStoreWrite(t *testing.T) {
	store := newFakeStore()
	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob"))
	require.NoError(t, v.Select(context.Background(), "bob"))

	_, err := v.Send(context.Background(), "bob", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = v.Send(context.Background(), "bob", "\n\t")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.Equal(t, 0, store.inserts)
	assert.Empty(t, v.Feed())
}

func TestSendAppendsOnlyViaEcho(t *testing.T) {
	store := newFakeStore()
	v, bus := newTestView(t, "alice", store, newFakeProfiles("bob"))
	require.NoError(t, v.Select(context.Background(), "bob"))

	sent, err := v.Send(context.Background(), "bob", "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, store.inserts)

	// No optimistic insert: the feed stays empty until the echo arrives.
	assert.Empty(t, v.Feed())

	bus.emit(sent)
	require.Eventually(t, func() bool {
		return len(v.Feed()) == 1
	}, time.Second, 5*time.Millisecond)

	feed := v.Feed()
	assert.Equal(t, "hello", feed[0].Content)
	assert.Equal(t, "alice", feed[0].FromUser)
	assert.Equal(t, "bob", feed[0].ToUser)

	sums := v.Summaries()
	require.NotEmpty(t, sums)
	assert.Equal(t, "bob", sums[0].Partner.ID)
	assert.Equal(t, "hello", sums[0].LastMessage)
}

func TestStaleSelectDoesNotOverwriteNewerSelection(t *testing.T) {
	store := newFakeStore()
	store.add("m1", "bob", "alice", "from bob", at(1))
	store.add("m2", "carol", "alice", "from carol", at(2))

	gate := make(chan struct{})
	store.gates[PairKey("alice", "bob")] = gate

	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob", "carol"))

	done := make(chan error, 1)
	go func() { done <- v.Select(context.Background(), "bob") }()

	// Switch to carol while bob's history fetch is still in flight.
	require.Eventually(t, func() bool {
		return v.Selected() == "bob" && v.State() == StateLoading
	}, time.Second, time.Millisecond)
	require.NoError(t, v.Select(context.Background(), "carol"))

	close(gate)
	require.NoError(t, <-done)

	assert.Equal(t, "carol", v.Selected())
	feed := v.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "from carol", feed[0].Content)
	assert.Equal(t, "carol", v.SelectedProfile().ID)
}

func TestSelectedProfilePrefersSummarySnapshot(t *testing.T) {
	store := newFakeStore()
	store.add("m1", "bob", "alice", "hi", at(1))
	profiles := newFakeProfiles("bob")

	v, _ := newTestView(t, "alice", store, profiles)
	lookupsAfterInit := profiles.lookups

	require.NoError(t, v.Select(context.Background(), "bob"))
	assert.Equal(t, "bob", v.SelectedProfile().ID)
	assert.Equal(t, lookupsAfterInit, profiles.lookups, "select should reuse the summary snapshot")
}

func TestSelectColdPathLooksUpProfile(t *testing.T) {
	store := newFakeStore()
	profiles := newFakeProfiles("carol")
	v, _ := newTestView(t, "alice", store, profiles)

	require.NoError(t, v.Select(context.Background(), "carol"))
	assert.Equal(t, "user carol", v.SelectedProfile().DisplayName)
	assert.Equal(t, 1, profiles.lookups)
}

func TestReselectResetsFeed(t *testing.T) {
	store := newFakeStore()
	store.add("m1", "bob", "alice", "bob says", at(1))
	v, _ := newTestView(t, "alice", store, newFakeProfiles("bob", "carol"))

	require.NoError(t, v.Select(context.Background(), "bob"))
	require.Len(t, v.Feed(), 1)

	require.NoError(t, v.Select(context.Background(), "carol"))
	assert.Equal(t, StateEmpty, v.State())
	assert.Empty(t, v.Feed())

	// An event for the previous pair must not reach the new feed.
	v.OnEvent(Message{ID: "m2", FromUser: "bob", ToUser: "alice", Content: "late", CreatedAt: at(2)})
	assert.Empty(t, v.Feed())
}
