// Package eventdb defines the storage abstraction key event logs and
// transaction event logs are persisted through, and the query shapes the
// processor and the identifier package issue against it. Concrete backends
// live in the inmem, kvlog, and postgres subpackages.
package eventdb

import (
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/primitive"
)

// StoredEvent is one entry of a key or transaction event log as persisted:
// its sequence number, self-addressing digest, event type tag, and the
// exact wire bytes it was validated against.
type StoredEvent struct {
	Sn     uint64
	Digest primitive.Digest
	Type   event.Type
	Raw    []byte
}

// QueryParams narrows a GetLog call. A nil BySn with zero From/To returns
// the whole log; BySn takes precedence over a range.
type QueryParams struct {
	BySn     *uint64
	From, To *uint64 // inclusive range, both optional
}

// Store is the append-only event log plus its receipt and duplicity side
// tables, keyed by identifier prefix. One Store instance serves both KELs
// and TELs: a registry or credential identifier is just another prefix.
type Store interface {
	// AppendLog appends ev to the log for prefix. Implementations must
	// reject an append whose Sn is not exactly one past the current tail.
	AppendLog(prefix primitive.Identifier, ev StoredEvent) error

	// GetLog returns the matching entries for prefix in sequence order.
	GetLog(prefix primitive.Identifier, params QueryParams) ([]StoredEvent, error)

	// ExistingDigestAtSn reports the digest already logged at (prefix, sn),
	// if any -- the duplicity check validator.DuplicateChecker needs.
	ExistingDigestAtSn(prefix primitive.Identifier, sn uint64) (primitive.Digest, bool, error)

	// AppendNonTransferableReceipt records a witness's receipt couple over
	// the event at (prefix, sn).
	AppendNonTransferableReceipt(prefix primitive.Identifier, sn uint64, couple primitive.NonTransferableReceiptCouple) error

	// AppendTransferableReceipt records a transferable signer's receipt
	// quadruple over the event at (prefix, sn).
	AppendTransferableReceipt(prefix primitive.Identifier, sn uint64, quad primitive.TransferableReceiptQuadruple) error

	// GetNonTransferableReceipts returns the witness receipt couples
	// collected so far for the event at (prefix, sn).
	GetNonTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.NonTransferableReceiptCouple, error)

	// GetTransferableReceipts returns the transferable receipt quadruples
	// collected so far for the event at (prefix, sn).
	GetTransferableReceipts(prefix primitive.Identifier, sn uint64) ([]primitive.TransferableReceiptQuadruple, error)

	// AddDuplicitous records a second, conflicting raw event seen at
	// (prefix, sn) once duplicity has already been detected by the caller.
	AddDuplicitous(prefix primitive.Identifier, sn uint64, raw []byte) error

	// GetDuplicitous returns every conflicting raw event recorded at
	// (prefix, sn).
	GetDuplicitous(prefix primitive.Identifier, sn uint64) ([][]byte, error)
}
