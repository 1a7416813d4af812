// Package session holds per-user search state and per-card records between
// requests. State is in-memory only: a new search replaces the session and a
// process restart drops everything, which is acceptable for this product.
package session

import (
	"sync"

	"github.com/kyiv-estate/rentscout/internal/model"
)

// RenderMode records how a card was delivered, so a later in-place edit
// knows whether to rewrite a caption or a plain text body.
type RenderMode string

const (
	RenderPhoto RenderMode = "photo"
	RenderText  RenderMode = "text"
)

// Session is one user's current result set and page cursor.
type Session struct {
	Results []model.Offer
	Page    int
}

// CardRecord remembers the offer behind one sent card.
type CardRecord struct {
	Offer       model.Offer
	Mode        RenderMode
	CalcApplied bool
}

// Store is the injected session/card state. All methods are safe for
// concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cards    map[string]*CardRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		cards:    make(map[string]*CardRecord),
	}
}

// Replace installs a fresh session for the key, discarding any previous one.
// In-flight work for the old session completes harmlessly; its results are
// simply never read again.
func (s *Store) Replace(key string, results []model.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = &Session{Results: results}
}

// Get returns the session for the key, or nil.
func (s *Store) Get(key string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key]
}

// SetPage moves the session's page cursor. Unknown keys are ignored.
func (s *Store) SetPage(key string, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		sess.Page = page
	}
}

// PutCard records the offer behind a sent card.
func (s *Store) PutCard(cardID string, rec CardRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[cardID] = &rec
}

// Card returns the record for a card id, or nil.
func (s *Store) Card(cardID string) *CardRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards[cardID]
}

// FindOffer scans a session's results for the first offer from the given
// posting. Used as a fallback when a card record has been lost.
func (s *Store) FindOffer(key string, postingID int) (model.Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return model.Offer{}, false
	}
	for _, o := range sess.Results {
		if o.Identity == postingID {
			return o, true
		}
	}
	return model.Offer{}, false
}
