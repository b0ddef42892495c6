package session

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/events"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/store"
)

var tracer = otel.Tracer("pdfchat-be/pkg/rag/session")

// Store holds session entries. Save also refreshes any idle expiry.
type Store interface {
	Get(sessionID string) (*store.Session, bool)
	Save(session *store.Session)
	Delete(sessionID string)
	OnEvicted(fn func(session *store.Session))
}

// Registry maps session ids to their chat and document state and routes
// each message to the right responder. A document, when attached, takes
// priority over plain chat.
type Registry struct {
	mu      sync.Mutex
	store   Store
	builder Builder
	events  events.Publisher
	logger  logger.ILogger
}

func NewRegistry(st Store, builder Builder, publisher events.Publisher, log logger.ILogger) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	r := &Registry{
		store:   st,
		builder: builder,
		events:  publisher,
		logger:  log,
	}
	st.OnEvicted(r.onEvicted)
	return r
}

// acquire returns the live entry for id, creating it if needed, with its turn
// lock held. Racing callers for a new id get the same entry.
func (r *Registry) acquire(sessionID string) (*store.Session, func()) {
	for {
		entry := r.getOrCreate(sessionID)
		done := entry.Begin()
		if !entry.Closed() {
			return entry, done
		}
		// evicted while we waited for the lock
		done()
	}
}

func (r *Registry) getOrCreate(sessionID string) *store.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.store.Get(sessionID); ok && !entry.Closed() {
		return entry
	}
	entry := store.NewSession(sessionID)
	r.store.Save(entry)
	r.logger.Debug("REGISTRY", "Session created", map[string]interface{}{"session_id": sessionID})
	return entry
}

// touch restarts the idle expiry of a live entry. It never replaces another
// entry that took over the id in the meantime.
func (r *Registry) touch(entry *store.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.Closed() {
		return
	}
	if cur, ok := r.store.Get(entry.ID); ok && cur != entry {
		return
	}
	r.store.Save(entry)
}

// lookup never creates state.
func (r *Registry) lookup(sessionID string) (*store.Session, bool) {
	entry, ok := r.store.Get(sessionID)
	if !ok || entry.Closed() {
		return nil, false
	}
	return entry, true
}

// RouteMessage answers text within the session: from the attached document
// when there is one, otherwise as plain chat.
func (r *Registry) RouteMessage(ctx context.Context, sessionID, text string) (*rag.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, rag.ErrEmptyInput
	}

	ctx, span := tracer.Start(ctx, "registry.RouteMessage")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	entry, done := r.acquire(sessionID)
	defer done()

	var responder rag.Responder
	if doc := entry.Document(); doc != nil {
		responder = doc
	} else {
		if entry.Chat() == nil {
			entry.SetChat(r.builder.NewChat(sessionID))
		}
		responder = entry.Chat()
	}

	reply, err := responder.Respond(ctx, text)
	r.touch(entry)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("reply.mode", reply.Mode))

	r.publish(ctx, events.NewSessionEvent(events.TypeChatReplied, sessionID, map[string]interface{}{
		"mode":    reply.Mode,
		"sources": len(reply.Sources),
	}))
	return reply, nil
}

// AttachDocument indexes the PDF at path and makes it the session's active
// document, replacing and releasing any previous one. Indexing happens
// before the session is touched, so a failure leaves the session as it was.
func (r *Registry) AttachDocument(ctx context.Context, sessionID, path, filename string) (rag.DocumentInfo, error) {
	ctx, span := tracer.Start(ctx, "registry.AttachDocument")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.String("document.filename", filename))

	doc, err := r.builder.NewDocument(ctx, sessionID, path, filename)
	if err != nil {
		span.RecordError(err)
		return rag.DocumentInfo{}, err
	}

	entry, done := r.acquire(sessionID)
	prev := entry.SwapDocument(doc)
	r.touch(entry)
	done()

	if prev != nil {
		r.release(sessionID, prev)
	}

	info := doc.Info()
	r.logger.Info("REGISTRY", "Document attached", map[string]interface{}{
		"session_id": sessionID,
		"filename":   info.Filename,
		"chunks":     info.Chunks,
		"replaced":   prev != nil,
	})
	r.publish(ctx, events.NewSessionEvent(events.TypePDFAttached, sessionID, map[string]interface{}{
		"filename": info.Filename,
		"chunks":   info.Chunks,
		"skipped":  info.Skipped,
	}))
	return info, nil
}

// DetachDocument drops the active document; messages go back to plain chat
// with its memory intact. It reports false when there was nothing to remove.
func (r *Registry) DetachDocument(ctx context.Context, sessionID string) bool {
	entry, ok := r.lookup(sessionID)
	if !ok {
		return false
	}

	done := entry.Begin()
	prev := entry.SwapDocument(nil)
	r.touch(entry)
	done()

	if prev == nil {
		return false
	}
	r.release(sessionID, prev)
	r.publish(ctx, events.NewSessionEvent(events.TypePDFDetached, sessionID, map[string]interface{}{
		"filename": prev.Info().Filename,
	}))
	return true
}

func (r *Registry) HasDocument(sessionID string) bool {
	_, ok := r.Document(sessionID)
	return ok
}

// Document describes the active document of the session, if any.
func (r *Registry) Document(sessionID string) (rag.DocumentInfo, bool) {
	entry, ok := r.lookup(sessionID)
	if !ok {
		return rag.DocumentInfo{}, false
	}
	doc := entry.Document()
	if doc == nil {
		return rag.DocumentInfo{}, false
	}
	return doc.Info(), true
}

// Evict forgets the whole session: memory, document and uploaded file.
func (r *Registry) Evict(ctx context.Context, sessionID string) bool {
	entry, ok := r.lookup(sessionID)
	if !ok {
		return false
	}

	done := entry.Begin()
	doc, first := entry.Close()
	done()
	if !first {
		return false
	}

	r.mu.Lock()
	if cur, ok := r.store.Get(sessionID); ok && cur == entry {
		r.store.Delete(sessionID)
	}
	r.mu.Unlock()

	if doc != nil {
		r.release(sessionID, doc)
	}
	r.publish(ctx, events.NewSessionEvent(events.TypeSessionReset, sessionID, nil))
	return true
}

// onEvicted handles entries expired by the store. Entries already closed by
// Evict are ignored.
func (r *Registry) onEvicted(entry *store.Session) {
	doc, first := entry.Close()
	if !first {
		return
	}
	if doc != nil {
		r.release(entry.ID, doc)
	}
	r.logger.Info("REGISTRY", "Idle session evicted", map[string]interface{}{"session_id": entry.ID})
	r.publish(context.Background(), events.NewSessionEvent(events.TypeSessionEvicted, entry.ID, map[string]interface{}{
		"had_pdf": doc != nil,
	}))
}

func (r *Registry) release(sessionID string, doc rag.DocumentResponder) {
	if err := doc.Close(); err != nil {
		r.logger.Warn("REGISTRY", "Failed to release document", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (r *Registry) publish(ctx context.Context, event events.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Warn("REGISTRY", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
