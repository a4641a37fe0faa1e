// Package event defines the user-visible events the state machine emits
// and the EventBox capability the host/test harness supplies to receive
// them.
package event

import (
	"github.com/sirupsen/logrus"

	"sectionrouting/address"
)

// ConnectedKind distinguishes a first join from a post-relocation
// re-join.
type ConnectedKind int

const (
	ConnectedFirst ConnectedKind = iota
	ConnectedRelocate
)

// Kind tags which event variant is populated.
type Kind int

const (
	KindConnected Kind = iota
	KindMessageReceived
	KindSectionSplit
	KindPromoted
	KindDemoted
	KindRestartRequired
	KindTerminated
)

// Event is emitted toward the application. Exactly one field beyond Kind
// is meaningful, selected by Kind.
type Event struct {
	Kind Kind

	Connected ConnectedKind

	MessageReceived struct {
		Src     address.Name
		Dst     address.Name
		Content []byte
	}

	NewPrefix address.Prefix
}

// Box is the capability the state machine depends on to emit events; the
// host and the test harness each supply their own implementation
// (channel-backed, slice-backed, etc).
type Box interface {
	SendEvent(Event)
}

// Connected builds a Connected event.
func Connected(kind ConnectedKind) Event { return Event{Kind: KindConnected, Connected: kind} }

// MessageReceived builds a MessageReceived event.
func MessageReceived(src, dst address.Name, content []byte) Event {
	e := Event{Kind: KindMessageReceived}
	e.MessageReceived.Src = src
	e.MessageReceived.Dst = dst
	e.MessageReceived.Content = content
	return e
}

// SectionSplit builds a SectionSplit event.
func SectionSplit(newPrefix address.Prefix) Event {
	return Event{Kind: KindSectionSplit, NewPrefix: newPrefix}
}

// Promoted builds a Promoted event.
func Promoted() Event { return Event{Kind: KindPromoted} }

// Demoted builds a Demoted event.
func Demoted() Event { return Event{Kind: KindDemoted} }

// RestartRequired builds a RestartRequired event.
func RestartRequired() Event { return Event{Kind: KindRestartRequired} }

// Terminated builds a Terminated event: terminal, no further events
// follow it.
func Terminated() Event { return Event{Kind: KindTerminated} }

// SliceBox is a simple Box backed by an in-memory slice, for tests that
// need to assert on exactly which events were emitted.
type SliceBox struct {
	Events []Event
}

// SendEvent implements Box.
func (b *SliceBox) SendEvent(e Event) {
	b.Events = append(b.Events, e)
}

// LogBox is the production Box: it has no application behind it to
// deliver events to, so it logs each one via logrus instead.
type LogBox struct{}

// SendEvent implements Box.
func (LogBox) SendEvent(e Event) {
	switch e.Kind {
	case KindConnected:
		logrus.Infof("event: connected (kind=%d)", e.Connected)
	case KindMessageReceived:
		logrus.Infof("event: message received %s -> %s (%d bytes)", e.MessageReceived.Src, e.MessageReceived.Dst, len(e.MessageReceived.Content))
	case KindSectionSplit:
		logrus.Infof("event: section split, new prefix %s", e.NewPrefix)
	case KindPromoted:
		logrus.Info("event: promoted to elder")
	case KindDemoted:
		logrus.Info("event: demoted to adult")
	case KindRestartRequired:
		logrus.Warn("event: restart required")
	case KindTerminated:
		logrus.Info("event: terminated")
	}
}
