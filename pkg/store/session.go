package store

import (
	"sync"
	"time"

	"pdfchat-be/pkg/rag"
)

// Session is the in-memory state behind one session id.
//
// Two locks are involved: turn is held for a whole operation so messages of
// one session are answered in order, state guards the fields below for
// cheap readers such as status lookups. Writers take turn, then state.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn  sync.Mutex
	state sync.RWMutex

	chat     rag.Responder
	document rag.DocumentResponder
	closed   bool
}

func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now()}
}

// Begin serializes an operation on this session. Call the returned func when done.
func (s *Session) Begin() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) Chat() rag.Responder {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.chat
}

func (s *Session) SetChat(r rag.Responder) {
	s.state.Lock()
	s.chat = r
	s.state.Unlock()
}

func (s *Session) Document() rag.DocumentResponder {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.document
}

// SwapDocument installs d (nil detaches) and returns the previous document.
func (s *Session) SwapDocument(d rag.DocumentResponder) rag.DocumentResponder {
	s.state.Lock()
	defer s.state.Unlock()
	prev := s.document
	s.document = d
	return prev
}

// Close marks the session dead and hands back its document for release.
// Only the first call reports true.
func (s *Session) Close() (rag.DocumentResponder, bool) {
	s.state.Lock()
	defer s.state.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	doc := s.document
	s.document = nil
	s.chat = nil
	return doc, true
}

func (s *Session) Closed() bool {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.closed
}
