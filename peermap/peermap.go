// Package peermap tracks which peers are currently connected, keyed by
// address, and answers the state machine's connectivity questions.
package peermap

import (
	"sync"

	"sectionrouting/address"
	"sectionrouting/chain"
)

// PeerMap is a set of (Name, ConnectionInfo) entries. Adding an address
// already present is idempotent; disconnect is idempotent.
type PeerMap struct {
	mu    sync.RWMutex
	byAddr map[string]chain.P2pNode
}

// New creates an empty PeerMap.
func New() *PeerMap {
	return &PeerMap{byAddr: make(map[string]chain.P2pNode)}
}

// Connect adds node to the map. Connecting an address already present
// replaces its binding (e.g. after re-introduction) without error.
func (m *PeerMap) Connect(node chain.P2pNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAddr[node.ConnInfo.Addr] = node
}

// Disconnect removes the peer at addr, if present. Idempotent.
func (m *PeerMap) Disconnect(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byAddr, addr)
}

// IsConnected reports whether addr is currently in the map.
func (m *PeerMap) IsConnected(addr string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byAddr[addr]
	return ok
}

// Get returns the P2pNode bound to addr, if connected.
func (m *PeerMap) Get(addr string) (chain.P2pNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.byAddr[addr]
	return n, ok
}

// ByName returns the P2pNode with the given name, if connected.
func (m *PeerMap) ByName(name address.Name) (chain.P2pNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.byAddr {
		if n.Name() == name {
			return n, true
		}
	}
	return chain.P2pNode{}, false
}

// All returns every currently connected peer.
func (m *PeerMap) All() []chain.P2pNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chain.P2pNode, 0, len(m.byAddr))
	for _, n := range m.byAddr {
		out = append(out, n)
	}
	return out
}

// Len reports the number of connected peers.
func (m *PeerMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byAddr)
}

// RemoveAll disconnects every peer.
func (m *PeerMap) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byAddr = make(map[string]chain.P2pNode)
}
