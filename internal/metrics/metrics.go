// Package metrics exposes Prometheus counters for every outcome the
// notification bus reports: accepted events, escrow routing, and
// duplicity. A Registry subscribes to a notify.Bus once at startup and
// from then on tracks counts purely as a side effect of Publish calls the
// processor already makes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/keri-id/controller/internal/notify"
)

// Registry holds every counter keri-controllerd exports.
type Registry struct {
	eventsAccepted *prometheus.CounterVec
	escrowed       *prometheus.CounterVec
	duplicitous    prometheus.Counter
}

// NewRegistry builds a Registry and registers its counters against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	eventsAccepted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keri_events_accepted_total",
			Help: "Number of KEL/TEL events and receipts accepted into the log, by kind",
		},
		[]string{"kind"})
	reg.MustRegister(eventsAccepted)

	escrowed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keri_events_escrowed_total",
			Help: "Number of events or replies routed into an escrow, by reason",
		},
		[]string{"reason"})
	reg.MustRegister(escrowed)

	duplicitous := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keri_duplicitous_events_total",
			Help: "Number of events detected as duplicitous at a previously-seen sn",
		})
	reg.MustRegister(duplicitous)

	return &Registry{eventsAccepted: eventsAccepted, escrowed: escrowed, duplicitous: duplicitous}
}

// Subscribe wires every notify.Kind this Registry tracks into bus.
func (r *Registry) Subscribe(bus *notify.Bus) {
	bus.Subscribe(notify.KelEventAdded, func(notify.Notification) { r.eventsAccepted.With(prometheus.Labels{"kind": "kel"}).Inc() })
	bus.Subscribe(notify.TelEventAdded, func(notify.Notification) { r.eventsAccepted.With(prometheus.Labels{"kind": "tel"}).Inc() })
	bus.Subscribe(notify.ReceiptAdded, func(notify.Notification) { r.eventsAccepted.With(prometheus.Labels{"kind": "receipt"}).Inc() })

	bus.Subscribe(notify.OutOfOrder, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "out_of_order"}).Inc() })
	bus.Subscribe(notify.PartiallySigned, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "partially_signed"}).Inc() })
	bus.Subscribe(notify.PartiallyWitnessed, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "partially_witnessed"}).Inc() })
	bus.Subscribe(notify.MissingDelegator, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "missing_delegator"}).Inc() })
	bus.Subscribe(notify.ReplyOutOfOrder, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "reply_out_of_order"}).Inc() })
	bus.Subscribe(notify.TelOutOfOrder, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "tel_out_of_order"}).Inc() })
	bus.Subscribe(notify.MissingIssuer, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "missing_issuer"}).Inc() })
	bus.Subscribe(notify.MissingRegistry, func(notify.Notification) { r.escrowed.With(prometheus.Labels{"reason": "missing_registry"}).Inc() })

	bus.Subscribe(notify.DuplicitousEvent, func(notify.Notification) { r.duplicitous.Inc() })
}
