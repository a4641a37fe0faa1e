package statemachine

import (
	"github.com/sirupsen/logrus"

	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/location"
	"sectionrouting/timer"
)

// sendAction is a user request to originate a message, submitted through
// Machine's own channel so it joins the single round-robin select over
// transport events, timer firings, and user actions.
type sendAction struct {
	src     location.SrcLocation
	dst     location.DstLocation
	content []byte
	result  chan error
}

// Machine drives one node's State through its lifecycle. It owns a single
// cooperative task: no state is shared with any other Machine in the same
// process, and every event it dequeues is processed to completion before
// the next is taken.
type Machine struct {
	ns    NetworkService
	tm    *timer.Timer
	box   event.Box
	state State

	actions chan sendAction
	done    chan struct{}
}

// New starts a fresh Machine in the Bootstrapping state.
func New(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier, box event.Box) *Machine {
	return &Machine{
		ns:      ns,
		tm:      tm,
		box:     box,
		state:   NewBootstrapping(cfg, fullId, ns, tm, verifier),
		actions: make(chan sendAction),
		done:    make(chan struct{}),
	}
}

// NewGenesis starts a Machine directly in the combined Adult/Elder state,
// bypassing Bootstrapping/Joining entirely. This is for the first node of
// a brand new network: there is no section to join, since info names the
// section it is itself founding.
func NewGenesis(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier, box event.Box, info chain.EldersInfo) *Machine {
	return &Machine{
		ns:      ns,
		tm:      tm,
		box:     box,
		state:   NewMember(cfg, fullId, ns, tm, verifier, info),
		actions: make(chan sendAction),
		done:    make(chan struct{}),
	}
}

// Run executes the round-robin select over transport events, timer
// firings, and user actions until the state machine reaches Terminated or
// Stop is called. It is meant to be run on its own goroutine; Machine's
// exported methods are the only safe way to interact with it from
// elsewhere.
func (m *Machine) Run() {
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.ns.Events():
			if !ok {
				return
			}
			m.advanceTransport(ev)
		case tok, ok := <-m.tm.Fired():
			if !ok {
				return
			}
			m.advanceTimeout(tok)
		case act, ok := <-m.actions:
			if !ok {
				return
			}
			act.result <- m.state.HandleSendMessage(act.src, act.dst, act.content)
		}
		if _, terminal := m.state.(*Terminated); terminal {
			return
		}
	}
}

func (m *Machine) advanceTransport(ev TransportEvent) {
	next, err := m.state.HandleTransportEvent(ev, m.box)
	if err != nil {
		logrus.Warnf("%s: handling transport event: %v", m.state.Name(), err)
		return
	}
	m.state = next
}

func (m *Machine) advanceTimeout(tok timer.Token) {
	next, err := m.state.HandleTimeout(tok, m.box)
	if err != nil {
		logrus.Warnf("%s: handling timeout: %v", m.state.Name(), err)
		return
	}
	m.state = next
}

// Stop ends Run's loop at its next iteration. It does not transition the
// state to Terminated; it simply stops driving it (e.g. for pause/resume
// snapshotting — see Pause).
func (m *Machine) Stop() {
	close(m.done)
}

// SendMessage submits content for src/dst through the running state
// machine and waits for its result.
func (m *Machine) SendMessage(src location.SrcLocation, dst location.DstLocation, content []byte) error {
	act := sendAction{src: src, dst: dst, content: content, result: make(chan error, 1)}
	m.actions <- act
	return <-act.result
}

// StateName is the "id"-adjacent read-only query exposing which state the
// machine currently occupies, for diagnostics.
func (m *Machine) StateName() string {
	return m.state.Name()
}

// AsMember reports whether the machine is currently in the combined
// Adult/Elder state, and returns it for the read-only queries
// (our_prefix, is_elder, section_elders, neighbour_prefixes) that only
// make sense once joined.
func (m *Machine) AsMember() (*Member, bool) {
	mem, ok := m.state.(*Member)
	return mem, ok
}

// PausedState is the opaque, versioned snapshot produced by Pause and
// consumed by Resume. None of its fields are exported and it has no
// serialised form, so a snapshot lives only in the process that took it.
type PausedState struct {
	version int
	member  *pausedMember
}

type pausedMember struct {
	our        chain.EldersInfo
	neighbours map[string]chain.EldersInfo
	isElder    bool
}

const pausedStateVersion = 1

// Pause snapshots the current state if it is the combined Adult/Elder
// state; it returns false for any other state (bootstrapping/joining
// snapshots would be meaningless to resume into, since their progress is
// tied to in-flight timeout tokens that do not survive a process
// restart).
func (m *Machine) Pause() (PausedState, bool) {
	mem, ok := m.AsMember()
	if !ok {
		return PausedState{}, false
	}
	neighbours := make(map[string]chain.EldersInfo, len(mem.chain.Neighbours))
	for k, v := range mem.chain.Neighbours {
		neighbours[k] = v
	}
	return PausedState{
		version: pausedStateVersion,
		member: &pausedMember{
			our:        mem.chain.Our,
			neighbours: neighbours,
			isElder:    mem.isElder,
		},
	}, true
}

// Resume restores a Machine's Member state from a snapshot returned by
// Pause in this process.
func Resume(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier, box event.Box, saved PausedState) *Machine {
	mem := NewMember(cfg, fullId, ns, tm, verifier, saved.member.our)
	for _, info := range saved.member.neighbours {
		mem.chain.UpdateNeighbour(info)
	}
	mem.isElder = saved.member.isElder
	return &Machine{
		ns:      ns,
		tm:      tm,
		box:     box,
		state:   mem,
		actions: make(chan sendAction),
		done:    make(chan struct{}),
	}
}
