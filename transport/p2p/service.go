// Package p2p is a libp2p-backed implementation of statemachine.NetworkService:
// one host, one stream protocol carrying the overlay's wire messages, with
// mDNS used for local peer discovery.
package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"

	"sectionrouting/chain"
	"sectionrouting/statemachine"
)

// ProtocolID is the libp2p stream protocol this package speaks; every
// wire Message (see package messages) is sent as a single stream write.
const ProtocolID = protocol.ID("/sectionrouting/wire/1.0.0")

// Service implements statemachine.NetworkService over a libp2p host.
type Service struct {
	host host.Host
	tag  string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	known  map[peer.ID]chain.ConnectionInfo
	events chan statemachine.TransportEvent
}

// New creates and starts a libp2p host listening on listenAddr, and wires
// up the incoming-stream handler and mDNS discovery notifee.
func New(listenAddr, discoveryTag string) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create libp2p host: %w", err)
	}

	s := &Service{
		host:   h,
		tag:    discoveryTag,
		ctx:    ctx,
		cancel: cancel,
		known:  make(map[peer.ID]chain.ConnectionInfo),
		events: make(chan statemachine.TransportEvent, 256),
	}

	h.SetStreamHandler(ProtocolID, s.handleStream)

	if _, err := mdns.NewMdnsService(h, discoveryTag, s); err != nil {
		logrus.Warnf("mdns discovery unavailable: %v", err)
	}

	return s, nil
}

// Bootstrap dials no contacts: Service keeps no contact list of its own,
// so Bootstrap returns nil without emitting any event. Contacts are
// dialled through DialSeeds, which emits BootstrappedTo/BootstrapFailed
// for each.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.dialSeeds(ctx, nil)
}

// DialSeeds dials the given multiaddr contacts. It is split out from
// Bootstrap so the config-driven list (config.Config.Network.BootstrapPeers)
// can be supplied by the caller that constructs Service.
func (s *Service) DialSeeds(ctx context.Context, contacts []string) error {
	return s.dialSeeds(ctx, contacts)
}

func (s *Service) dialSeeds(ctx context.Context, contacts []string) error {
	var firstErr error
	for _, addr := range contacts {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			s.emit(statemachine.TransportEvent{Kind: statemachine.EvBootstrapFailed})
			if firstErr == nil {
				firstErr = fmt.Errorf("invalid bootstrap addr %s: %w", addr, err)
			}
			continue
		}
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = s.host.Connect(dialCtx, *info)
		cancel()
		if err != nil {
			s.emit(statemachine.TransportEvent{Kind: statemachine.EvBootstrapFailed})
			if firstErr == nil {
				firstErr = fmt.Errorf("connect %s: %w", addr, err)
			}
			continue
		}
		ci := chain.ConnectionInfo{Addr: addr}
		s.mu.Lock()
		s.known[info.ID] = ci
		s.mu.Unlock()
		s.emit(statemachine.TransportEvent{Kind: statemachine.EvBootstrappedTo, ConnInfo: ci})
	}
	return firstErr
}

// Send opens a new libp2p stream to peer (over an existing connection
// when there is one), writes data and closes the stream, mirroring
// PeerManagement.SendAsync.
func (s *Service) Send(peerInfo chain.ConnectionInfo, data []byte) error {
	addrInfo, err := peer.AddrInfoFromString(peerInfo.Addr)
	if err != nil {
		return fmt.Errorf("invalid peer addr %s: %w", peerInfo.Addr, err)
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	st, err := s.host.NewStream(ctx, addrInfo.ID, ProtocolID)
	if err != nil {
		s.emit(statemachine.TransportEvent{Kind: statemachine.EvConnectionFailure, ConnInfo: peerInfo})
		return fmt.Errorf("open stream to %s: %w", peerInfo.Addr, err)
	}
	defer st.Close()
	if _, err := st.Write(data); err != nil {
		return fmt.Errorf("write to %s: %w", peerInfo.Addr, err)
	}
	return nil
}

// Disconnect closes the connection to peer, if any.
func (s *Service) Disconnect(peerInfo chain.ConnectionInfo) error {
	addrInfo, err := peer.AddrInfoFromString(peerInfo.Addr)
	if err != nil {
		return fmt.Errorf("invalid peer addr %s: %w", peerInfo.Addr, err)
	}
	if err := s.host.Network().ClosePeer(addrInfo.ID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.known, addrInfo.ID)
	s.mu.Unlock()
	return nil
}

// RemoveAndDisconnectAll tears down every known connection.
func (s *Service) RemoveAndDisconnectAll() error {
	s.mu.Lock()
	ids := make([]peer.ID, 0, len(s.known))
	for id := range s.known {
		ids = append(ids, id)
	}
	s.known = make(map[peer.ID]chain.ConnectionInfo)
	s.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := s.host.Network().ClosePeer(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Events returns the channel of transport notifications the state
// machine's round-robin select reads from.
func (s *Service) Events() <-chan statemachine.TransportEvent {
	return s.events
}

// Close shuts the host down and stops emitting events.
func (s *Service) Close() error {
	s.cancel()
	err := s.host.Close()
	close(s.events)
	return err
}

// HandlePeerFound implements mdns.Notifee: connect to a discovered peer
// and surface it as a ConnectedTo event, adapted from core.Node's
// HandlePeerFound.
func (s *Service) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == s.host.ID() {
		return
	}
	s.mu.RLock()
	_, known := s.known[info.ID]
	s.mu.RUnlock()
	if known {
		return
	}
	if err := s.host.Connect(s.ctx, info); err != nil {
		logrus.Warnf("mdns: connect to discovered peer %s: %v", info.ID, err)
		return
	}
	ci := chain.ConnectionInfo{Addr: info.String()}
	s.mu.Lock()
	s.known[info.ID] = ci
	s.mu.Unlock()
	s.emit(statemachine.TransportEvent{Kind: statemachine.EvConnectedTo, ConnInfo: ci})
}

func (s *Service) handleStream(st network.Stream) {
	defer st.Close()
	remote := st.Conn().RemotePeer()
	data, err := readAll(st)
	if err != nil {
		logrus.Warnf("p2p: read from %s: %v", remote, err)
		s.emit(statemachine.TransportEvent{Kind: statemachine.EvConnectionFailure, ConnInfo: chain.ConnectionInfo{Addr: remote.String()}})
		return
	}
	s.mu.RLock()
	from, ok := s.known[remote]
	s.mu.RUnlock()
	if !ok {
		from = chain.ConnectionInfo{Addr: remote.String()}
	}
	s.emit(statemachine.TransportEvent{Kind: statemachine.EvNewMessage, From: from, Bytes: data})
}

func (s *Service) emit(ev statemachine.TransportEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func readAll(st network.Stream) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := st.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
	}
}
