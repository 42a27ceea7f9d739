// Package session keeps interactive mapping sessions in memory between HTTP
// calls.
package session

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/dgallion1/docmap/internal/schema"
	"github.com/google/uuid"
)

// Session pairs a parsed document with the mapping state built against it.
type Session struct {
	mu sync.Mutex

	ID        string
	Filename  string
	DocHash   string
	CreatedAt time.Time
	UpdatedAt time.Time

	doc   *docmodel.Model
	state mapping.Session
}

// New starts a session for doc, seeded with existing and auto-guessed
// entries.
func New(filename string, data []byte, doc *docmodel.Model, fields []schema.Field, existing mapping.Mapping) *Session {
	id := uuid.NewString()
	now := time.Now()
	return &Session{
		ID:        id,
		Filename:  filename,
		DocHash:   ContentHashHex(data)[:16],
		CreatedAt: now,
		UpdatedAt: now,
		doc:       doc,
		state:     mapping.NewSession(id, fields, doc.Nodes(), existing),
	}
}

// Update applies fn to the mapping state. The state is replaced only when fn
// succeeds.
func (s *Session) Update(fn func(doc *docmodel.Model, st mapping.Session) (mapping.Session, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.doc, s.state)
	if err != nil {
		return err
	}
	s.state = next
	s.UpdatedAt = time.Now()
	return nil
}

// Mapping returns a copy of the current mapping.
func (s *Session) Mapping() mapping.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Mapping.Clone()
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string               `json:"session_id"`
	Filename  string               `json:"filename"`
	DocHash   string               `json:"doc_hash"`
	Fields    []schema.Field       `json:"fields"`
	Groups    []schema.Group       `json:"groups"`
	Preview   []mapping.PreviewRow `json:"preview"`
	Mapping   mapping.Mapping      `json:"mapping"`
	Progress  mapping.Progress     `json:"progress"`
	Conflicts []mapping.Conflict   `json:"conflicts"`
	Selected  string               `json:"selected,omitempty"`
	Values    map[string]string    `json:"values"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	conflicts := s.state.Mapping.Conflicts()
	if conflicts == nil {
		conflicts = []mapping.Conflict{}
	}
	values := make(map[string]string, len(s.state.Values))
	for k, v := range s.state.Values {
		values[k] = v
	}
	return Snapshot{
		ID:        s.ID,
		Filename:  s.Filename,
		DocHash:   s.DocHash,
		Fields:    s.state.Fields,
		Groups:    schema.GroupFields(s.state.Fields),
		Preview:   s.state.Preview(),
		Mapping:   s.state.Mapping.Clone(),
		Progress:  s.state.Progress(),
		Conflicts: conflicts,
		Selected:  s.state.Selected,
		Values:    values,
		UpdatedAt: s.UpdatedAt,
	}
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdatedAt
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and returns how many it dropped.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUpdate()) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run calls Cleanup every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, onCleanup func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 && onCleanup != nil {
				onCleanup(n)
			}
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
