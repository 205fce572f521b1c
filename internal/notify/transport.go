// Package notify holds the outbound delivery transports. The core only
// records attempts and outcomes; the transports own the wire protocols.
package notify

import "errors"

var ErrNoTransport = errors.New("no transport configured for channel")

// Transport delivers one message to one recipient. Implementations
// fail closed: any error means the attempt is recorded as failed.
type Transport interface {
	Send(recipient, message string) error
}

// Router maps channel names to transports.
type Router struct {
	transports map[string]Transport
}

func NewRouter() *Router {
	return &Router{transports: make(map[string]Transport)}
}

func (r *Router) Register(channel string, t Transport) {
	r.transports[channel] = t
}

func (r *Router) Send(channel, recipient, message string) error {
	t, ok := r.transports[channel]
	if !ok {
		return ErrNoTransport
	}
	return t.Send(recipient, message)
}
