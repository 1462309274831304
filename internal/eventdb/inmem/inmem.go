// Package inmem implements eventdb.Store entirely in process memory, the
// backend used by tests and by a watcher or witness instance that does not
// need to survive a restart.
package inmem

import (
	"fmt"
	"sync"

	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/primitive"
)

type receiptSet struct {
	nt []primitive.NonTransferableReceiptCouple
	t  []primitive.TransferableReceiptQuadruple
}

// Store is an in-memory eventdb.Store, safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	logs        map[string][]eventdb.StoredEvent
	receipts    map[string]*receiptSet
	duplicitous map[string][][]byte
}

// New builds an empty in-memory Store.
func New() *Store {
	return &Store{
		logs:        make(map[string][]eventdb.StoredEvent),
		receipts:    make(map[string]*receiptSet),
		duplicitous: make(map[string][][]byte),
	}
}

func sigKey(prefix primitive.Identifier) string { return prefix.String() }

func receiptKey(prefix primitive.Identifier, sn uint64) string {
	return fmt.Sprintf("%s#%d", prefix.String(), sn)
}

func (s *Store) AppendLog(prefix primitive.Identifier, ev eventdb.StoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sigKey(prefix)
	log := s.logs[key]
	if ev.Sn != uint64(len(log)) {
		return fmt.Errorf("inmem: append at sn %d, expected %d", ev.Sn, len(log))
	}
	s.logs[key] = append(log, ev)
	return nil
}

func (s *Store) GetLog(prefix primitive.Identifier, params eventdb.QueryParams) ([]eventdb.StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[sigKey(prefix)]

	if params.BySn != nil {
		for _, ev := range log {
			if ev.Sn == *params.BySn {
				return []eventdb.StoredEvent{ev}, nil
			}
		}
		return nil, nil
	}

	out := make([]eventdb.StoredEvent, 0, len(log))
	for _, ev := range log {
		if params.From != nil && ev.Sn < *params.From {
			continue
		}
		if params.To != nil && ev.Sn > *params.To {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) ExistingDigestAtSn(prefix primitive.Identifier, sn uint64) (primitive.Digest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.logs[sigKey(prefix)] {
		if ev.Sn == sn {
			return ev.Digest, true, nil
		}
	}
	return primitive.Digest{}, false, nil
}

func (s *Store) receiptsFor(prefix primitive.Identifier, sn uint64) *receiptSet {
	key := receiptKey(prefix, sn)
	rs, ok := s.receipts[key]
	if !ok {
		rs = &receiptSet{}
		s.receipts[key] = rs
	}
	return rs
}

func (s *Store) AppendNonTransferableReceipt(prefix primitive.Identifier, sn uint64, couple primitive.NonTransferableReceiptCouple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.receiptsFor(prefix, sn)
	for _, existing := range rs.nt {
		if existing.Witness.Equal(couple.Witness) {
			return nil // idempotent
		}
	}
	rs.nt = append(rs.nt, couple)
	return nil
}

func (s *Store) AppendTransferableReceipt(prefix primitive.Identifier, sn uint64, quad primitive.TransferableReceiptQuadruple) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.receiptsFor(prefix, sn)
	for _, existing := range rs.t {
		if existing.SignerSeal.Prefix.Equal(quad.SignerSeal.Prefix) {
			return nil
		}
	}
	rs.t = append(rs.t, quad)
	return nil
}

func (s *Store) GetNonTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.NonTransferableReceiptCouple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rs, ok := s.receipts[receiptKey(prefix, sn)]; ok {
		return append([]primitive.NonTransferableReceiptCouple(nil), rs.nt...), nil
	}
	return nil, nil
}

func (s *Store) GetTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.TransferableReceiptQuadruple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rs, ok := s.receipts[receiptKey(prefix, sn)]; ok {
		return append([]primitive.TransferableReceiptQuadruple(nil), rs.t...), nil
	}
	return nil, nil
}

func (s *Store) AddDuplicitous(prefix primitive.Identifier, sn uint64, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey(prefix, sn)
	s.duplicitous[key] = append(s.duplicitous[key], raw)
	return nil
}

func (s *Store) GetDuplicitous(prefix primitive.Identifier, sn uint64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duplicitous[receiptKey(prefix, sn)], nil
}
