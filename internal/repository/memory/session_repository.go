package memory

import (
	"time"

	"pdfchat-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. An entry expires after
// ttl without a Save; every Save starts the ttl again.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl, cleanupInterval time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (r *SessionRepository) Save(session *store.Session) {
	if cur, found := r.cache.Get(session.ID); !found || cur != session {
		// an expired entry the janitor has not swept yet would be overwritten
		// silently; deleting it first runs the eviction callback
		r.cache.Delete(session.ID)
	}
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

// OnEvicted registers fn for entries leaving the cache, both on expiry and on Delete.
func (r *SessionRepository) OnEvicted(fn func(session *store.Session)) {
	r.cache.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*store.Session); ok {
			fn(s)
		}
	})
}

// DeleteExpired runs the expiry sweep now instead of waiting for the janitor.
func (r *SessionRepository) DeleteExpired() {
	r.cache.DeleteExpired()
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
