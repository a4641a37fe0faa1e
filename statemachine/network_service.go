package statemachine

import (
	"context"

	"sectionrouting/chain"
)

// TransportEventKind tags which field of TransportEvent is populated.
type TransportEventKind int

const (
	EvBootstrappedTo TransportEventKind = iota
	EvBootstrapFailed
	EvNewMessage
	EvConnectionFailure
	EvConnectedTo
)

// TransportEvent is one of the events the transport contract emits toward
// the state machine.
type TransportEvent struct {
	Kind TransportEventKind

	ConnInfo chain.ConnectionInfo // BootstrappedTo, ConnectionFailure, ConnectedTo
	From     chain.ConnectionInfo // NewMessage
	Bytes    []byte               // NewMessage
}

// NetworkService is the transport contract consumed by the state machine.
// The underlying transport and its connection events are out of scope
// for the routing core proper; this interface is the named external
// collaborator it dispatches to. See package transport/p2p for a concrete
// libp2p-backed implementation.
type NetworkService interface {
	// Bootstrap begins dialling configured contacts; eventually emits
	// BootstrappedTo or BootstrapFailed on Events().
	Bootstrap(ctx context.Context) error

	// Send transmits bytes to peer. Messages to the same peer are
	// delivered in FIFO order as presented here.
	Send(peer chain.ConnectionInfo, data []byte) error

	// Disconnect tears down the connection to peer, if any.
	Disconnect(peer chain.ConnectionInfo) error

	// RemoveAndDisconnectAll tears down every connection.
	RemoveAndDisconnectAll() error

	// Events is the channel of transport-level notifications.
	Events() <-chan TransportEvent
}

// ConsensusGateway is the named external collaborator for quorum
// decisions. The exact quorum fraction for MessageSignature aggregation
// is delegated to the consensus engine and not fixed by this module.
type ConsensusGateway interface {
	// HasQuorum reports whether signerCount signatures out of a source
	// section whose current elder set has size elderSetSize meets the
	// consensus engine's quorum policy.
	HasQuorum(signerCount, elderSetSize int) bool
}

// MajorityConsensusGateway is a simple strict-majority implementation,
// usable as a default when no BFT engine is wired in (e.g. single-section
// genesis, or tests).
type MajorityConsensusGateway struct{}

// HasQuorum implements ConsensusGateway as signerCount*2 > elderSetSize.
func (MajorityConsensusGateway) HasQuorum(signerCount, elderSetSize int) bool {
	return signerCount*2 > elderSetSize
}
