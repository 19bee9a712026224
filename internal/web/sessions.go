package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/finreveal/site/internal/contact"
	"github.com/finreveal/site/internal/site"
	"github.com/google/uuid"
)

// SessionCookie names the cookie that ties a browser to its contact form.
const SessionCookie = "finreveal_session"

// session is one visitor: a contact form and where the visitor is.
type session struct {
	id       string
	form     *contact.Controller
	location *site.Location

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
}

func (s *session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen.Before(cutoff)
}

// controllerFactory builds the form of a new session. The location is the
// form's navigator.
type controllerFactory func(loc *site.Location) *contact.Controller

// sessionStore keeps the live sessions and expires idle ones. Expiring a
// session closes its form, which is how a visitor leaving unmounts it. At
// most maxSessions are kept; a new one evicts the least recently seen.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session

	ttl         time.Duration
	maxSessions int
	newForm     controllerFactory
	now         func() time.Time
	metrics     *Metrics
}

func newSessionStore(ttl time.Duration, maxSessions int,
	newForm controllerFactory, m *Metrics) *sessionStore {

	return &sessionStore{
		sessions:    make(map[string]*session),
		ttl:         ttl,
		maxSessions: maxSessions,
		newForm:     newForm,
		now:         time.Now,
		metrics:     m,
	}
}

// Lookup returns the session of the cookie, or nil.
func (s *sessionStore) Lookup(r *http.Request) *session {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[cookie.Value]
	if !ok {
		return nil
	}
	sess.touch(s.now())

	return sess
}

// Ensure returns the visitor's session, starting one and setting the
// cookie when there is none.
func (s *sessionStore) Ensure(w http.ResponseWriter, r *http.Request) *session {
	if sess := s.Lookup(r); sess != nil {
		return sess
	}

	id := uuid.NewString()
	loc := site.NewLocation(r.URL.Path)
	sess := &session{
		id:       id,
		form:     s.newForm(loc),
		location: loc,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	var evicted []*session
	for s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		evicted = append(evicted, s.evictOldestLocked())
	}
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	for _, old := range evicted {
		old.form.Close()
		log.Debugf("Evicted session %s", old.id)
	}

	if s.metrics != nil {
		s.metrics.Sessions.Set(float64(count))
		s.metrics.Evicted.Add(float64(len(evicted)))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Debugf("Started session %s", id)

	return sess
}

// evictOldestLocked forgets the least recently seen session and returns it.
// The store must not be empty.
func (s *sessionStore) evictOldestLocked() *session {
	var (
		oldestID string
		oldest   *session
		seen     time.Time
	)
	for id, sess := range s.sessions {
		sess.mu.Lock()
		lastSeen := sess.lastSeen
		sess.mu.Unlock()

		if oldest == nil || lastSeen.Before(seen) {
			oldestID, oldest, seen = id, sess, lastSeen
		}
	}
	delete(s.sessions, oldestID)

	return oldest
}

// Expire closes and forgets every session idle for longer than the TTL.
func (s *sessionStore) Expire() int {
	cutoff := s.now().Add(-s.ttl)

	var expired []*session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.form.Close()
		log.Debugf("Expired session %s", sess.id)
	}

	if s.metrics != nil {
		s.metrics.Sessions.Set(float64(count))
	}

	return len(expired)
}

// Len returns the number of live sessions.
func (s *sessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// CloseAll closes every form, used on shutdown.
func (s *sessionStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.form.Close()
	}
}

// runJanitor expires sessions and prunes the limiter every interval until
// ctx is done.
func (s *Server) runJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if n := s.sessions.Expire(); n > 0 {
				log.DebugS(ctx, "Expired idle sessions", "count", n)
			}
			s.limiter.Prune()
		}
	}
}
