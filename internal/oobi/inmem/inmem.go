// Package inmem implements oobi.Store entirely in process memory.
package inmem

import (
	"sync"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/oobi"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/transport"
)

// Store is an in-memory oobi.Store, safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	byKey map[string]oobi.SignedReply // key: identifier.String() + "#" + route
}

// New builds an empty in-memory Store.
func New() *Store {
	return &Store{byKey: make(map[string]oobi.SignedReply)}
}

func key(id primitive.Identifier, route string) string { return id.String() + "#" + route }

func (s *Store) SaveOOBI(signed oobi.SignedReply) error {
	subject, ok := oobi.SubjectOf(signed.Reply.Data)
	if !ok {
		return oobi.ErrNoSubject
	}
	k := key(subject, signed.Reply.Route)

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, found := s.byKey[k]
	if found && signed.Reply.Timestamp <= existing.Reply.Timestamp {
		return nil
	}
	s.byKey[k] = signed
	return nil
}

func (s *Store) GetLocScheme(id primitive.Identifier) ([]transport.LocScheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	signed, ok := s.byKey[key(id, event.LocationSchemeRoute)]
	if !ok {
		return nil, nil
	}
	return oobi.DecodeLocSchemes(signed.Reply.Data), nil
}

func (s *Store) GetEndRole(id primitive.Identifier, role transport.Role) ([]primitive.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	signed, ok := s.byKey[key(id, event.EndRoleRoute+"/"+string(role))]
	if !ok {
		return nil, nil
	}
	return oobi.DecodeEndRoles(signed.Reply.Data), nil
}

var _ oobi.Store = (*Store)(nil)
