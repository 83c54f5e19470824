package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outboxSentTotal counts successful hand-offs to the delivery collaborator.
var outboxSentTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "feedesk",
	Subsystem: "outbox",
	Name:      "sent_total",
	Help:      "Total messages successfully handed to the delivery surface.",
})

// outboxFailedTotal counts terminal delivery failures.
var outboxFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "feedesk",
	Subsystem: "outbox",
	Name:      "failed_total",
	Help:      "Total messages that failed delivery.",
})

// outboxQueuedTotal counts messages accepted into the outbox.
var outboxQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "feedesk",
	Subsystem: "outbox",
	Name:      "queued_total",
	Help:      "Total messages enqueued for delivery.",
})
