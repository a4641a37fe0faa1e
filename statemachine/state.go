package statemachine

import (
	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/location"
	"sectionrouting/messages"
	"sectionrouting/timer"
)

// State is one of Bootstrapping, Joining, a combined Adult/Elder member
// state, or the terminal Terminated sink. Every handler returns the
// state to transition to; returning the receiver itself means "stay".
// There are no implicit suspension points: a handler either completes
// synchronously or schedules a timeout token and returns, to be resumed
// later by HandleTimeout.
type State interface {
	// Name identifies the state for logging and Display-style output.
	Name() string

	// HandleTransportEvent processes one event from the NetworkService.
	HandleTransportEvent(ev TransportEvent, box event.Box) (State, error)

	// HandleTimeout processes a fired timer token. Tokens whose purpose
	// the current state no longer recognises are ignored.
	HandleTimeout(tok timer.Token, box event.Box) (State, error)

	// HandleMessage processes a decoded Message from sender (nil for a
	// message with no known connection, e.g. already disconnected).
	HandleMessage(sender *chain.ConnectionInfo, msg messages.Message, box event.Box) (State, error)

	// HandleSendMessage services a user action to originate a message.
	HandleSendMessage(src location.SrcLocation, dst location.DstLocation, content []byte) error
}

// acceptsVariant reports whether tag is one of the variants a state is
// willing to process, per its message verification policy.
func acceptsVariant(tag messages.VariantTag, allowed ...messages.VariantTag) bool {
	for _, a := range allowed {
		if a == tag {
			return true
		}
	}
	return false
}
