// Package notify implements the synchronous notification bus the processor
// publishes on after every validation outcome: escrow routing, an operator
// dashboard, and metrics all subscribe to the same stream rather than the
// processor calling each of them directly.
package notify

import (
	"fmt"
	"log"
	"sync"
)

// Kind tags a notification's reason. KelEventAdded, ReceiptAdded and
// TelEventAdded report normal progress; the rest report a validation
// outcome that routed an event or message into one of the nine escrows.
type Kind string

const (
	KelEventAdded      Kind = "kel_event_added"
	ReceiptAdded       Kind = "receipt_added"
	OutOfOrder         Kind = "out_of_order"
	PartiallySigned    Kind = "partially_signed"
	PartiallyWitnessed Kind = "partially_witnessed"
	MissingDelegator   Kind = "missing_delegator"
	DuplicitousEvent   Kind = "duplicitous_event"
	ReplyOutOfOrder    Kind = "reply_out_of_order"
	TelEventAdded      Kind = "tel_event_added"
	TelOutOfOrder      Kind = "tel_out_of_order"
	MissingIssuer      Kind = "missing_issuer"
	MissingRegistry    Kind = "missing_registry"
)

// Notification is one event on the bus: its Kind and a Kind-specific payload.
type Notification struct {
	Kind    Kind
	Payload any
}

// Handler reacts to a Notification. It runs synchronously on the
// publishing goroutine; a handler that itself calls Publish recurses
// through the bus rather than queuing, bounded by maxDepth.
type Handler func(Notification)

// maxDepth bounds Publish recursion (a handler publishing in response to a
// notification, whose handler publishes again, ...), guarding against an
// accidental infinite notification loop.
const maxDepth = 8

// Bus is a synchronous, kind-keyed publish/subscribe notification bus.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
	depth    int
	overflow bool
	log      *log.Logger
}

// NewBus builds an empty Bus. logger may be nil, in which case log.Default() is used.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{handlers: make(map[Kind][]Handler), log: logger}
}

// Subscribe registers h to run whenever a Notification of kind is published.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish invokes every handler subscribed to n.Kind, in subscription order.
// If any nested Publish made by those handlers exceeded maxDepth, the
// outermost Publish returns an error as well.
func (b *Bus) Publish(n Notification) (err error) {
	b.mu.Lock()
	if b.depth >= maxDepth {
		b.overflow = true
		b.mu.Unlock()
		return fmt.Errorf("notify: recursive publish depth exceeded %d for kind %s", maxDepth, n.Kind)
	}
	b.depth++
	handlers := append([]Handler(nil), b.handlers[n.Kind]...)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth--
		if b.depth == 0 && b.overflow {
			b.overflow = false
			err = fmt.Errorf("notify: recursive publish depth exceeded %d below kind %s", maxDepth, n.Kind)
		}
		b.mu.Unlock()
	}()

	for _, h := range handlers {
		h(n)
	}
	if len(handlers) == 0 {
		b.log.Printf("notify: no subscribers for %s", n.Kind)
	}
	return nil
}
