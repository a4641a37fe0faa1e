package filter

import (
	"time"

	"github.com/benbjohnson/clock"

	"sectionrouting/identity"
	"sectionrouting/messages"
)

// Result is the outcome of filtering a message: whether it is new or
// already known within the filter's TTL window.
type Result int

const (
	NewMessage Result = iota
	KnownMessage
)

// IsNew reports whether r is NewMessage.
func (r Result) IsNew() bool {
	return r == NewMessage
}

// IncomingTTL is the default retention for the incoming dedup filter.
const IncomingTTL = 20 * time.Minute

// OutgoingTTL is the default retention for the outgoing dedup filter.
const OutgoingTTL = 10 * time.Minute

// outgoingKey pairs a message digest with a recipient, since the same
// message may legitimately fan out to different peers.
type outgoingKey struct {
	digest messages.Digest
	peer   string // PublicId encoded bytes, comparable as a map key
}

// RoutingMessageFilter throttles (deduplicates) incoming and outgoing
// routing messages. Incoming dedup is global per message; outgoing dedup
// is per (message, recipient).
type RoutingMessageFilter struct {
	incoming *TTLFilter[messages.Digest, struct{}]
	outgoing *TTLFilter[outgoingKey, struct{}]
}

// NewRoutingMessageFilter creates a RoutingMessageFilter using clk for both TTL clocks (pass
// nil for the real wall clock; tests pass a clock.Mock).
func NewRoutingMessageFilter(clk clock.Clock) *RoutingMessageFilter {
	return &RoutingMessageFilter{
		incoming: New[messages.Digest, struct{}](int64(IncomingTTL), 0, clk),
		outgoing: New[outgoingKey, struct{}](int64(OutgoingTTL), 0, clk),
	}
}

// FilterIncoming applies the global incoming dedup. Direct messages
// bypass the filter entirely and always report NewMessage.
func (f *RoutingMessageFilter) FilterIncoming(msg messages.Message) (Result, error) {
	if msg.Dst.IsDirect() {
		return NewMessage, nil
	}
	d, err := messages.ComputeDigest(msg)
	if err != nil {
		return KnownMessage, err
	}
	f.incoming.Insert(d, struct{}{})
	if f.incoming.Count(d) > 1 {
		return KnownMessage, nil
	}
	return NewMessage, nil
}

// FilterOutgoing applies the per-(message, recipient) outgoing dedup.
// Direct messages bypass the filter entirely and always report
// NewMessage. A serialisation failure is reported as KnownMessage so the
// caller treats it as "do not send" rather than panicking.
func (f *RoutingMessageFilter) FilterOutgoing(msg messages.Message, peer identity.PublicId) (Result, error) {
	if msg.Dst.IsDirect() {
		return NewMessage, nil
	}
	d, err := messages.ComputeDigest(msg)
	if err != nil {
		return KnownMessage, err
	}
	key := outgoingKey{digest: d, peer: string(peer.Bytes())}
	_, hadPrior := f.outgoing.Insert(key, struct{}{})
	if hadPrior {
		return KnownMessage, nil
	}
	return NewMessage, nil
}
