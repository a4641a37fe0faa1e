package statemachine

import (
	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/location"
	"sectionrouting/messages"
	"sectionrouting/timer"
)

// Terminated is the terminal sink state: no further events are emitted
// and no further work is drained.
type Terminated struct{}

func (*Terminated) Name() string { return "Terminated" }

func (t *Terminated) HandleTransportEvent(TransportEvent, event.Box) (State, error) {
	return t, nil
}

func (t *Terminated) HandleTimeout(timer.Token, event.Box) (State, error) {
	return t, nil
}

func (t *Terminated) HandleMessage(*chain.ConnectionInfo, messages.Message, event.Box) (State, error) {
	return t, nil
}

func (t *Terminated) HandleSendMessage(location.SrcLocation, location.DstLocation, []byte) error {
	return errNotBootstrapped
}
