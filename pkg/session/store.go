// Package session holds the process-wide record of who is logged in.
//
// A Session is either Unauthenticated or Authenticated with a UserProfile;
// the profile cannot be reached without first checking the variant. The Store
// has exactly one writer path (SetAuthenticated / Clear) and publishes every
// write to subscribers before returning.
package session

import (
	"sync"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// Kind enumerates the Session variants.
type Kind int

const (
	KindUnauthenticated Kind = iota
	KindAuthenticated
)

func (k Kind) String() string {
	if k == KindAuthenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Session is an immutable snapshot. The zero value is Unauthenticated.
type Session struct {
	kind Kind
	user sdk.UserProfile
}

// Unauthenticated returns the logged-out session.
func Unauthenticated() Session { return Session{} }

// Authenticated returns a session for user.
func Authenticated(user sdk.UserProfile) Session {
	return Session{kind: KindAuthenticated, user: user}
}

func (s Session) Kind() Kind { return s.kind }

// User returns the profile and true only for an authenticated session.
func (s Session) User() (sdk.UserProfile, bool) {
	if s.kind != KindAuthenticated {
		return sdk.UserProfile{}, false
	}
	return s.user, true
}

func (s Session) IsAuthenticated() bool { return s.kind == KindAuthenticated }

// IsAdmin is false for unauthenticated sessions and for any role other than admin.
func (s Session) IsAdmin() bool {
	return s.kind == KindAuthenticated && s.user.IsAdmin()
}

// Store is the single source of truth for the current Session.
type Store struct {
	mu        sync.Mutex
	current   Session
	listeners map[int]func(Session)
	nextID    int

	// publishMu keeps deliveries in write order.
	publishMu sync.Mutex
}

// NewStore returns a store holding an unauthenticated session.
func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Session))}
}

// Read returns the current session.
func (s *Store) Read() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetAuthenticated replaces the profile wholesale; there is no field merge.
func (s *Store) SetAuthenticated(user sdk.UserProfile) {
	s.write(Authenticated(user))
}

// Clear transitions to Unauthenticated.
func (s *Store) Clear() {
	s.write(Unauthenticated())
}

// Subscribe registers fn for every write. Listeners must not write to the
// store synchronously.
func (s *Store) Subscribe(fn func(Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) write(next Session) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	s.current = next
	ls := make([]func(Session), 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(next)
	}
}
