// Package kvlog implements eventdb.Store over a CometBFT dbm.DB, giving a
// witness or watcher process durable on-disk storage (goleveldb) or a
// drop-in memory backend (memdb) behind the same key layout, mirroring how
// the teacher wraps dbm.DB for its own ledger store.
package kvlog

import (
	"encoding/json"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/primitive"
)

// Store is an eventdb.Store backed by a CometBFT dbm.DB. Keys are laid out
// as "<prefix text>/log/<sn>", "<prefix text>/rcpt/<sn>" and
// "<prefix text>/dup/<sn>" so a prefix's whole log can be range-scanned.
type Store struct {
	db dbm.DB
}

// New wraps db as an eventdb.Store.
func New(db dbm.DB) *Store {
	return &Store{db: db}
}

func logKey(prefix primitive.Identifier, sn uint64) []byte {
	return []byte(fmt.Sprintf("%s/log/%020d", prefix.String(), sn))
}

func receiptKey(prefix primitive.Identifier, sn uint64) []byte {
	return []byte(fmt.Sprintf("%s/rcpt/%020d", prefix.String(), sn))
}

func duplicitousKey(prefix primitive.Identifier, sn uint64) []byte {
	return []byte(fmt.Sprintf("%s/dup/%020d", prefix.String(), sn))
}

type receiptRecord struct {
	NonTransferable []primitive.NonTransferableReceiptCouple `json:"nt,omitempty"`
	Transferable    []primitive.TransferableReceiptQuadruple `json:"t,omitempty"`
}

func (s *Store) AppendLog(prefix primitive.Identifier, ev eventdb.StoredEvent) error {
	key := logKey(prefix, ev.Sn)
	existing, err := s.db.Get(key)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("kvlog: an event already exists at %s", key)
	}
	if ev.Sn > 0 {
		prev, err := s.db.Get(logKey(prefix, ev.Sn-1))
		if err != nil {
			return err
		}
		if prev == nil {
			return fmt.Errorf("kvlog: no event at sn %d to append sn %d after", ev.Sn-1, ev.Sn)
		}
	}
	buf, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.db.SetSync(key, buf)
}

func (s *Store) GetLog(prefix primitive.Identifier, params eventdb.QueryParams) ([]eventdb.StoredEvent, error) {
	if params.BySn != nil {
		raw, err := s.db.Get(logKey(prefix, *params.BySn))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		var ev eventdb.StoredEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		return []eventdb.StoredEvent{ev}, nil
	}

	start := []byte(fmt.Sprintf("%s/log/", prefix.String()))
	end := []byte(fmt.Sprintf("%s/log/\xff", prefix.String()))
	iter, err := s.db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []eventdb.StoredEvent
	for ; iter.Valid(); iter.Next() {
		var ev eventdb.StoredEvent
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, err
		}
		if params.From != nil && ev.Sn < *params.From {
			continue
		}
		if params.To != nil && ev.Sn > *params.To {
			continue
		}
		out = append(out, ev)
	}
	return out, iter.Error()
}

func (s *Store) ExistingDigestAtSn(prefix primitive.Identifier, sn uint64) (primitive.Digest, bool, error) {
	raw, err := s.db.Get(logKey(prefix, sn))
	if err != nil {
		return primitive.Digest{}, false, err
	}
	if raw == nil {
		return primitive.Digest{}, false, nil
	}
	var ev eventdb.StoredEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return primitive.Digest{}, false, err
	}
	return ev.Digest, true, nil
}

func (s *Store) loadReceipts(prefix primitive.Identifier, sn uint64) (receiptRecord, error) {
	raw, err := s.db.Get(receiptKey(prefix, sn))
	if err != nil || raw == nil {
		return receiptRecord{}, err
	}
	var rec receiptRecord
	err = json.Unmarshal(raw, &rec)
	return rec, err
}

func (s *Store) saveReceipts(prefix primitive.Identifier, sn uint64, rec receiptRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.SetSync(receiptKey(prefix, sn), buf)
}

func (s *Store) AppendNonTransferableReceipt(prefix primitive.Identifier, sn uint64, couple primitive.NonTransferableReceiptCouple) error {
	rec, err := s.loadReceipts(prefix, sn)
	if err != nil {
		return err
	}
	for _, existing := range rec.NonTransferable {
		if existing.Witness.Equal(couple.Witness) {
			return nil
		}
	}
	rec.NonTransferable = append(rec.NonTransferable, couple)
	return s.saveReceipts(prefix, sn, rec)
}

func (s *Store) AppendTransferableReceipt(prefix primitive.Identifier, sn uint64, quad primitive.TransferableReceiptQuadruple) error {
	rec, err := s.loadReceipts(prefix, sn)
	if err != nil {
		return err
	}
	for _, existing := range rec.Transferable {
		if existing.SignerSeal.Prefix.Equal(quad.SignerSeal.Prefix) {
			return nil
		}
	}
	rec.Transferable = append(rec.Transferable, quad)
	return s.saveReceipts(prefix, sn, rec)
}

func (s *Store) GetNonTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.NonTransferableReceiptCouple, error) {
	rec, err := s.loadReceipts(prefix, sn)
	return rec.NonTransferable, err
}

func (s *Store) GetTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.TransferableReceiptQuadruple, error) {
	rec, err := s.loadReceipts(prefix, sn)
	return rec.Transferable, err
}

func (s *Store) AddDuplicitous(prefix primitive.Identifier, sn uint64, raw []byte) error {
	key := duplicitousKey(prefix, sn)
	existing, err := s.db.Get(key)
	if err != nil {
		return err
	}
	var entries [][]byte
	if existing != nil {
		if err := json.Unmarshal(existing, &entries); err != nil {
			return err
		}
	}
	entries = append(entries, raw)
	buf, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.SetSync(key, buf)
}

func (s *Store) GetDuplicitous(prefix primitive.Identifier, sn uint64) ([][]byte, error) {
	raw, err := s.db.Get(duplicitousKey(prefix, sn))
	if err != nil || raw == nil {
		return nil, err
	}
	var entries [][]byte
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
