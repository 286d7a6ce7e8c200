package ws

import (
	"go.uber.org/zap"

	"github.com/zoq/relay/internal/event"
)

// Router fans an event out to every live handle of a target user. Delivery is
// fire-and-forget: a zero count means the recipient is offline, which is a
// normal outcome, not an error.
type Router struct {
	registry *Registry
	metrics  *Metrics
	logger   *zap.Logger
}

func NewRouter(registry *Registry, metrics *Metrics, logger *zap.Logger) *Router {
	return &Router{registry: registry, metrics: metrics, logger: logger}
}

// Deliver pushes the event to each handle bound to userID and returns how
// many pushes landed. Pushes are independent: a closed or backed-up handle
// counts as zero effect and never stalls the rest.
func (r *Router) Deliver(userID string, env event.Envelope) int {
	payload, err := env.Encode()
	if err != nil {
		r.logger.Error("encode event", zap.String("type", string(env.Type)), zap.Error(err))
		return 0
	}

	delivered := 0
	for _, c := range r.registry.HandlesFor(userID) {
		if c.TrySend(payload) {
			delivered++
		}
	}

	r.metrics.deliveries.Add(float64(delivered))
	if delivered == 0 {
		r.metrics.deliveryMisses.Inc()
	}
	return delivered
}
