package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat-be/internal/repository/memory"
	"pdfchat-be/pkg/events"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/store"
)

type mapStore struct {
	mu        sync.Mutex
	m         map[string]*store.Session
	onEvicted func(*store.Session)
}

func newMapStore() *mapStore {
	return &mapStore{m: map[string]*store.Session{}}
}

func (s *mapStore) Get(id string) (*store.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	return e, ok
}

func (s *mapStore) Save(e *store.Session) {
	s.mu.Lock()
	s.m[e.ID] = e
	s.mu.Unlock()
}

func (s *mapStore) Delete(id string) {
	s.mu.Lock()
	e, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if ok && s.onEvicted != nil {
		s.onEvicted(e)
	}
}

func (s *mapStore) OnEvicted(fn func(*store.Session)) { s.onEvicted = fn }

func (s *mapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// fakeChat remembers everything it was asked, in order.
type fakeChat struct {
	mu       sync.Mutex
	received []string
}

func (c *fakeChat) Respond(ctx context.Context, text string) (*rag.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, text)
	return &rag.Reply{Text: fmt.Sprintf("chat reply %d", len(c.received)), Mode: rag.ModeChat}, nil
}

func (c *fakeChat) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

type fakeDoc struct {
	path     string
	filename string
	closed   atomic.Bool
}

func (d *fakeDoc) Respond(ctx context.Context, text string) (*rag.Reply, error) {
	return &rag.Reply{
		Text:    "from " + d.filename,
		Mode:    rag.ModeDocument,
		Sources: []rag.Source{{ChunkID: "p1-c1", Page: 1}},
	}, nil
}

func (d *fakeDoc) Info() rag.DocumentInfo {
	return rag.DocumentInfo{Path: d.path, Filename: d.filename, Chunks: 1}
}

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeBuilder struct {
	mu    sync.Mutex
	chats map[string][]*fakeChat
	docs  []*fakeDoc
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{chats: map[string][]*fakeChat{}}
}

func (b *fakeBuilder) NewChat(id string) rag.Responder {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &fakeChat{}
	b.chats[id] = append(b.chats[id], c)
	return c
}

func (b *fakeBuilder) NewDocument(ctx context.Context, id, path, filename string) (rag.DocumentResponder, error) {
	if strings.Contains(path, "corrupt") {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "unreadable PDF"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &fakeDoc{path: path, filename: filename}
	b.docs = append(b.docs, d)
	return d, nil
}

func (b *fakeBuilder) chatsFor(id string) []*fakeChat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chats[id]
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, e.EventType())
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

func newTestRegistry() (*Registry, *mapStore, *fakeBuilder, *recordingPublisher) {
	st := newMapStore()
	b := newFakeBuilder()
	pub := &recordingPublisher{}
	return NewRegistry(st, b, pub, nil), st, b, pub
}

func TestRegistry_DocumentTakesPriorityAndDetachRestoresChat(t *testing.T) {
	r, _, b, pub := newTestRegistry()
	ctx := context.Background()

	reply, err := r.RouteMessage(ctx, "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, rag.ModeChat, reply.Mode)
	assert.False(t, r.HasDocument("s1"))

	info, err := r.AttachDocument(ctx, "s1", "/uploads/a.pdf", "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", info.Filename)
	assert.True(t, r.HasDocument("s1"))

	reply, err = r.RouteMessage(ctx, "s1", "what does it say?")
	require.NoError(t, err)
	assert.Equal(t, rag.ModeDocument, reply.Mode)
	assert.Len(t, reply.Sources, 1)

	assert.True(t, r.DetachDocument(ctx, "s1"))
	assert.False(t, r.HasDocument("s1"))
	assert.True(t, b.docs[0].closed.Load())

	reply, err = r.RouteMessage(ctx, "s1", "back to chat")
	require.NoError(t, err)
	assert.Equal(t, rag.ModeChat, reply.Mode)

	// the chat session survived the document round trip
	chats := b.chatsFor("s1")
	require.Len(t, chats, 1)
	assert.Equal(t, []string{"hello", "back to chat"}, chats[0].Received())

	assert.Equal(t, []string{
		events.TypeChatReplied,
		events.TypePDFAttached,
		events.TypeChatReplied,
		events.TypePDFDetached,
		events.TypeChatReplied,
	}, pub.Types())
}

func TestRegistry_AttachWithoutPriorChat(t *testing.T) {
	r, _, b, _ := newTestRegistry()

	_, err := r.AttachDocument(context.Background(), "fresh", "/uploads/x.pdf", "x.pdf")
	require.NoError(t, err)

	reply, err := r.RouteMessage(context.Background(), "fresh", "question")
	require.NoError(t, err)
	assert.Equal(t, rag.ModeDocument, reply.Mode)
	assert.Empty(t, b.chatsFor("fresh"))
}

func TestRegistry_EmptyMessageCreatesNoState(t *testing.T) {
	r, st, b, _ := newTestRegistry()

	_, err := r.RouteMessage(context.Background(), "s1", "   ")

	assert.ErrorIs(t, err, rag.ErrEmptyInput)
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, b.chatsFor("s1"))
}

func TestRegistry_FailedAttachLeavesStateUntouched(t *testing.T) {
	r, st, b, pub := newTestRegistry()
	ctx := context.Background()

	_, err := r.AttachDocument(ctx, "new", "/uploads/corrupt.pdf", "corrupt.pdf")
	assert.True(t, rag.IsDocumentLoad(err))
	assert.Equal(t, 0, st.Len())

	_, err = r.AttachDocument(ctx, "s1", "/uploads/good.pdf", "good.pdf")
	require.NoError(t, err)
	_, err = r.AttachDocument(ctx, "s1", "/uploads/corrupt.pdf", "corrupt.pdf")
	require.Error(t, err)

	info, ok := r.Document("s1")
	require.True(t, ok)
	assert.Equal(t, "good.pdf", info.Filename)
	require.Len(t, b.docs, 1)
	assert.False(t, b.docs[0].closed.Load(), "the attached document stays open")
	assert.Equal(t, []string{events.TypePDFAttached}, pub.Types())

	reply, err := r.RouteMessage(ctx, "s1", "still there?")
	require.NoError(t, err)
	assert.Equal(t, "from good.pdf", reply.Text)
}

func TestRegistry_AttachReplacesAndReleasesPrevious(t *testing.T) {
	r, _, b, _ := newTestRegistry()
	ctx := context.Background()

	_, err := r.AttachDocument(ctx, "s1", "/uploads/one.pdf", "one.pdf")
	require.NoError(t, err)
	_, err = r.AttachDocument(ctx, "s1", "/uploads/two.pdf", "two.pdf")
	require.NoError(t, err)

	require.Len(t, b.docs, 2)
	assert.True(t, b.docs[0].closed.Load())
	assert.False(t, b.docs[1].closed.Load())

	info, ok := r.Document("s1")
	require.True(t, ok)
	assert.Equal(t, "two.pdf", info.Filename)
}

func TestRegistry_DetachWithoutDocument(t *testing.T) {
	r, st, _, _ := newTestRegistry()
	ctx := context.Background()

	assert.False(t, r.DetachDocument(ctx, "unknown"))
	assert.Equal(t, 0, st.Len())

	_, err := r.RouteMessage(ctx, "s1", "hi")
	require.NoError(t, err)
	assert.False(t, r.DetachDocument(ctx, "s1"))
}

func TestRegistry_EvictDropsEverything(t *testing.T) {
	r, st, b, pub := newTestRegistry()
	ctx := context.Background()

	_, err := r.RouteMessage(ctx, "s1", "remember me")
	require.NoError(t, err)
	_, err = r.AttachDocument(ctx, "s1", "/uploads/a.pdf", "a.pdf")
	require.NoError(t, err)

	assert.True(t, r.Evict(ctx, "s1"))
	assert.False(t, r.Evict(ctx, "s1"))
	assert.Equal(t, 0, st.Len())
	assert.True(t, b.docs[0].closed.Load())
	assert.False(t, r.HasDocument("s1"))

	_, err = r.RouteMessage(ctx, "s1", "who am I?")
	require.NoError(t, err)

	chats := b.chatsFor("s1")
	require.Len(t, chats, 2)
	assert.Equal(t, []string{"who am I?"}, chats[1].Received())

	types := pub.Types()
	assert.Contains(t, types, events.TypeSessionReset)
	assert.NotContains(t, types, events.TypeSessionEvicted)
}

func TestRegistry_IdleExpiryReleasesDocument(t *testing.T) {
	repo := memory.NewSessionRepository(20*time.Millisecond, time.Hour)
	b := newFakeBuilder()
	pub := &recordingPublisher{}
	r := NewRegistry(repo, b, pub, nil)
	ctx := context.Background()

	_, err := r.AttachDocument(ctx, "idle", "/uploads/a.pdf", "a.pdf")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	repo.DeleteExpired()

	assert.True(t, b.docs[0].closed.Load())
	assert.False(t, r.HasDocument("idle"))
	assert.Contains(t, pub.Types(), events.TypeSessionEvicted)
}

func TestRegistry_ExpiredEntryReplacedBeforeSweep(t *testing.T) {
	repo := memory.NewSessionRepository(20*time.Millisecond, time.Hour)
	b := newFakeBuilder()
	pub := &recordingPublisher{}
	r := NewRegistry(repo, b, pub, nil)
	ctx := context.Background()

	_, err := r.AttachDocument(ctx, "s1", "/uploads/a.pdf", "a.pdf")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	// no sweep: the new message must still release the expired document
	reply, err := r.RouteMessage(ctx, "s1", "hello again")
	require.NoError(t, err)

	assert.Equal(t, rag.ModeChat, reply.Mode)
	assert.True(t, b.docs[0].closed.Load())
	assert.Contains(t, pub.Types(), events.TypeSessionEvicted)
}

func TestRegistry_ConcurrentSessionsStayIsolated(t *testing.T) {
	r, _, b, _ := newTestRegistry()
	ctx := context.Background()

	const sessions, messages = 16, 20
	var wg sync.WaitGroup
	for s := 0; s < sessions; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", s)
			for m := 0; m < messages; m++ {
				_, err := r.RouteMessage(ctx, id, fmt.Sprintf("%s-m%d", id, m))
				assert.NoError(t, err)
			}
		}(s)
	}
	wg.Wait()

	for s := 0; s < sessions; s++ {
		id := fmt.Sprintf("s%d", s)
		chats := b.chatsFor(id)
		require.Len(t, chats, 1, id)

		got := chats[0].Received()
		require.Len(t, got, messages)
		for m, text := range got {
			assert.Equal(t, fmt.Sprintf("%s-m%d", id, m), text)
		}
	}
}

func TestRegistry_RacingFirstMessagesShareOneSession(t *testing.T) {
	r, _, b, _ := newTestRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.RouteMessage(ctx, "shared", fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	chats := b.chatsFor("shared")
	require.Len(t, chats, 1)
	assert.Len(t, chats[0].Received(), 32)
}

type failingResponder struct{}

func (failingResponder) Respond(ctx context.Context, text string) (*rag.Reply, error) {
	return nil, rag.Upstream("chat", errors.New("timeout"))
}

type failingBuilder struct{ *fakeBuilder }

func (failingBuilder) NewChat(string) rag.Responder { return failingResponder{} }

func TestRegistry_UpstreamErrorIsReturned(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRegistry(newMapStore(), failingBuilder{newFakeBuilder()}, pub, nil)

	_, err := r.RouteMessage(context.Background(), "s1", "hi")

	assert.True(t, rag.IsUpstream(err))
	assert.Empty(t, pub.Types())
}

func TestRegistry_TouchNeverOverwritesReplacement(t *testing.T) {
	r, st, _, _ := newTestRegistry()

	stale := store.NewSession("s1")
	st.Save(stale)

	// the stale entry expired and a new one took its place
	replacement := store.NewSession("s1")
	st.mu.Lock()
	st.m["s1"] = replacement
	st.mu.Unlock()

	r.touch(stale)

	cur, ok := st.Get("s1")
	require.True(t, ok)
	assert.Same(t, replacement, cur)
	assert.False(t, replacement.Closed())
}

func TestRegistry_TouchRestoresSweptEntry(t *testing.T) {
	r, st, _, _ := newTestRegistry()

	entry := store.NewSession("s1")
	r.touch(entry)

	cur, ok := st.Get("s1")
	require.True(t, ok)
	assert.Same(t, entry, cur)
}
