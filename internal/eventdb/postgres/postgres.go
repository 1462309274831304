// Package postgres implements eventdb.Store over a Postgres database via
// database/sql and lib/pq, the backend a long-lived controller or witness
// deployment runs against instead of the in-memory or kvlog stores.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/primitive"
)

// Schema is the DDL New's caller should apply (via a migration tool) before
// first use.
const Schema = `
CREATE TABLE IF NOT EXISTS kel_events (
	prefix     TEXT NOT NULL,
	sn         BIGINT NOT NULL,
	digest     TEXT NOT NULL,
	event_type TEXT NOT NULL,
	raw        BYTEA NOT NULL,
	PRIMARY KEY (prefix, sn)
);

CREATE TABLE IF NOT EXISTS kel_receipts (
	prefix          TEXT NOT NULL,
	sn              BIGINT NOT NULL,
	non_transferable JSONB NOT NULL DEFAULT '[]',
	transferable     JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (prefix, sn)
);

CREATE TABLE IF NOT EXISTS kel_duplicitous (
	prefix TEXT NOT NULL,
	sn     BIGINT NOT NULL,
	raw    BYTEA NOT NULL
);
`

// Store is an eventdb.Store backed by Postgres.
type Store struct {
	db *sql.DB
}

// New wraps db as an eventdb.Store. Callers are responsible for applying
// Schema and for the *sql.DB's lifecycle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) AppendLog(prefix primitive.Identifier, ev eventdb.StoredEvent) error {
	digest, err := ev.Digest.Text()
	if err != nil {
		return err
	}
	var next uint64
	if err := s.db.QueryRowContext(context.Background(), `
		SELECT COALESCE(MAX(sn) + 1, 0) FROM kel_events WHERE prefix = $1`,
		prefix.String(),
	).Scan(&next); err != nil {
		return err
	}
	if ev.Sn != next {
		return fmt.Errorf("postgres: append at sn %d, log tail expects sn %d", ev.Sn, next)
	}
	_, err = s.db.ExecContext(context.Background(), `
		INSERT INTO kel_events (prefix, sn, digest, event_type, raw)
		VALUES ($1, $2, $3, $4, $5)`,
		prefix.String(), ev.Sn, digest, string(ev.Type), ev.Raw,
	)
	return err
}

func (s *Store) GetLog(prefix primitive.Identifier, params eventdb.QueryParams) ([]eventdb.StoredEvent, error) {
	ctx := context.Background()
	var rows *sql.Rows
	var err error
	switch {
	case params.BySn != nil:
		rows, err = s.db.QueryContext(ctx, `
			SELECT sn, digest, event_type, raw FROM kel_events
			WHERE prefix = $1 AND sn = $2`, prefix.String(), *params.BySn)
	case params.From != nil || params.To != nil:
		from, to := int64(0), int64(1<<62)
		if params.From != nil {
			from = int64(*params.From)
		}
		if params.To != nil {
			to = int64(*params.To)
		}
		rows, err = s.db.QueryContext(ctx, `
			SELECT sn, digest, event_type, raw FROM kel_events
			WHERE prefix = $1 AND sn BETWEEN $2 AND $3
			ORDER BY sn`, prefix.String(), from, to)
	default:
		rows, err = s.db.QueryContext(ctx, `
			SELECT sn, digest, event_type, raw FROM kel_events
			WHERE prefix = $1 ORDER BY sn`, prefix.String())
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: query kel_events: %w", err)
	}
	defer rows.Close()

	var out []eventdb.StoredEvent
	for rows.Next() {
		var sn int64
		var digestText, eventType string
		var raw []byte
		if err := rows.Scan(&sn, &digestText, &eventType, &raw); err != nil {
			return nil, err
		}
		digest, _, err := primitive.ParseDigest(digestText)
		if err != nil {
			return nil, err
		}
		out = append(out, eventdb.StoredEvent{Sn: uint64(sn), Digest: digest, Type: event.Type(eventType), Raw: raw})
	}
	return out, rows.Err()
}

func (s *Store) ExistingDigestAtSn(prefix primitive.Identifier, sn uint64) (primitive.Digest, bool, error) {
	var digestText string
	err := s.db.QueryRowContext(context.Background(), `
		SELECT digest FROM kel_events WHERE prefix = $1 AND sn = $2`,
		prefix.String(), sn,
	).Scan(&digestText)
	if err == sql.ErrNoRows {
		return primitive.Digest{}, false, nil
	}
	if err != nil {
		return primitive.Digest{}, false, err
	}
	digest, _, err := primitive.ParseDigest(digestText)
	return digest, true, err
}

func (s *Store) loadReceiptColumns(prefix primitive.Identifier, sn uint64) (nt []primitive.NonTransferableReceiptCouple, tr []primitive.TransferableReceiptQuadruple, err error) {
	var ntJSON, trJSON []byte
	err = s.db.QueryRowContext(context.Background(), `
		SELECT non_transferable, transferable FROM kel_receipts WHERE prefix = $1 AND sn = $2`,
		prefix.String(), sn,
	).Scan(&ntJSON, &trJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if len(ntJSON) > 0 {
		if err = json.Unmarshal(ntJSON, &nt); err != nil {
			return nil, nil, err
		}
	}
	if len(trJSON) > 0 {
		if err = json.Unmarshal(trJSON, &tr); err != nil {
			return nil, nil, err
		}
	}
	return nt, tr, nil
}

func (s *Store) saveReceiptColumns(prefix primitive.Identifier, sn uint64, nt []primitive.NonTransferableReceiptCouple, tr []primitive.TransferableReceiptQuadruple) error {
	ntJSON, err := json.Marshal(nt)
	if err != nil {
		return err
	}
	trJSON, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(context.Background(), `
		INSERT INTO kel_receipts (prefix, sn, non_transferable, transferable)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (prefix, sn) DO UPDATE SET non_transferable = $3, transferable = $4`,
		prefix.String(), sn, ntJSON, trJSON,
	)
	return err
}

func (s *Store) AppendNonTransferableReceipt(prefix primitive.Identifier, sn uint64, couple primitive.NonTransferableReceiptCouple) error {
	nt, tr, err := s.loadReceiptColumns(prefix, sn)
	if err != nil {
		return err
	}
	for _, existing := range nt {
		if existing.Witness.Equal(couple.Witness) {
			return nil
		}
	}
	nt = append(nt, couple)
	return s.saveReceiptColumns(prefix, sn, nt, tr)
}

func (s *Store) AppendTransferableReceipt(prefix primitive.Identifier, sn uint64, quad primitive.TransferableReceiptQuadruple) error {
	nt, tr, err := s.loadReceiptColumns(prefix, sn)
	if err != nil {
		return err
	}
	for _, existing := range tr {
		if existing.SignerSeal.Prefix.Equal(quad.SignerSeal.Prefix) {
			return nil
		}
	}
	tr = append(tr, quad)
	return s.saveReceiptColumns(prefix, sn, nt, tr)
}

func (s *Store) GetNonTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.NonTransferableReceiptCouple, error) {
	nt, _, err := s.loadReceiptColumns(prefix, sn)
	return nt, err
}

func (s *Store) GetTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.TransferableReceiptQuadruple, error) {
	_, tr, err := s.loadReceiptColumns(prefix, sn)
	return tr, err
}

func (s *Store) AddDuplicitous(prefix primitive.Identifier, sn uint64, raw []byte) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO kel_duplicitous (prefix, sn, raw) VALUES ($1, $2, $3)`,
		prefix.String(), sn, raw,
	)
	return err
}

func (s *Store) GetDuplicitous(prefix primitive.Identifier, sn uint64) ([][]byte, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT raw FROM kel_duplicitous WHERE prefix = $1 AND sn = $2`,
		prefix.String(), sn,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}
