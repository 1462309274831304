package identifier

import (
	"sync"

	"github.com/keri-id/controller/internal/event"
)

// Topic classifies a filed exn message by what it asks the recipient to do.
type Topic string

const (
	// TopicReceipt holds exn messages that are not recognized as a
	// delegation request or a multisig proposal -- the catch-all inbox a
	// KERI mailbox serves for receipts, presentations, and anything else
	// routed peer-to-peer rather than broadcast.
	TopicReceipt  Topic = "receipt"
	TopicMultisig Topic = "multisig"
	TopicDelegate Topic = "delegate"
)

// TopicOf classifies route into the mailbox topic it files under.
func TopicOf(route string) Topic {
	switch route {
	case event.DelegateRequestRoute:
		return TopicDelegate
	case event.MultisigProposeRoute:
		return TopicMultisig
	default:
		return TopicReceipt
	}
}

// Mailbox is a Controller's inbox for exn messages, partitioned by topic so
// a group co-signer can drain pending multisig proposals independently of
// delegation requests or receipts.
type Mailbox struct {
	mu     sync.Mutex
	queued map[Topic][]event.Exchange
}

// NewMailbox builds an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{queued: make(map[Topic][]event.Exchange)}
}

// File appends exn to the queue its Route resolves to.
func (m *Mailbox) File(exn event.Exchange) {
	t := TopicOf(exn.Route)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[t] = append(m.queued[t], exn)
}

// Drain removes and returns every exn queued under topic.
func (m *Mailbox) Drain(topic Topic) []event.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.queued[topic]
	delete(m.queued, topic)
	return out
}

// Peek returns every exn queued under topic without removing them.
func (m *Mailbox) Peek(topic Topic) []event.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.Exchange(nil), m.queued[topic]...)
}
