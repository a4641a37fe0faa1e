package statemachine

import (
	"context"

	"github.com/sirupsen/logrus"

	"sectionrouting/address"
	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/location"
	"sectionrouting/messages"
	"sectionrouting/pkg/utils"
	"sectionrouting/timer"
)

// Bootstrapping dials one or more hard-coded contacts and waits for a
// BootstrapResponse.
type Bootstrapping struct {
	cfg     Config
	fullId  identity.FullId
	ns      NetworkService
	tm      *timer.Timer
	verifier identity.Verifier

	pendingRequests map[string]struct{}         // addr -> present
	timeoutTokens   map[timer.Token]string      // token -> addr
	relocateDetails *messages.SignedRelocateDetails
}

// NewBootstrapping starts a fresh (non-relocating) Bootstrapping state and
// kicks off the transport's own bootstrap procedure.
func NewBootstrapping(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier) *Bootstrapping {
	b := &Bootstrapping{
		cfg:             cfg,
		fullId:          fullId,
		ns:              ns,
		tm:              tm,
		verifier:        verifier,
		pendingRequests: make(map[string]struct{}),
		timeoutTokens:   make(map[timer.Token]string),
	}
	if err := ns.Bootstrap(context.Background()); err != nil {
		logrus.Warnf("Bootstrapping: transport bootstrap failed to start: %v", err)
	}
	return b
}

// NewRelocating starts a Bootstrapping state for a node that is being
// relocated into another section, sending BootstrapRequest to each of
// the destination section's known elders directly.
func NewRelocating(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier, details messages.SignedRelocateDetails, contacts []chain.ConnectionInfo) *Bootstrapping {
	b := &Bootstrapping{
		cfg:             cfg,
		fullId:          fullId,
		ns:              ns,
		tm:              tm,
		verifier:        verifier,
		pendingRequests: make(map[string]struct{}),
		timeoutTokens:   make(map[timer.Token]string),
		relocateDetails: &details,
	}
	for _, c := range contacts {
		b.sendBootstrapRequest(c)
	}
	return b
}

func (b *Bootstrapping) Name() string { return "Bootstrapping" }

func (b *Bootstrapping) getDestination() address.Name {
	if b.relocateDetails != nil {
		return b.relocateDetails.Destination
	}
	return b.fullId.Name()
}

func (b *Bootstrapping) sendBootstrapRequest(dst chain.ConnectionInfo) {
	if _, already := b.pendingRequests[dst.Addr]; already {
		return
	}
	b.pendingRequests[dst.Addr] = struct{}{}

	tok := b.tm.Schedule(BootstrapTimeout)
	b.timeoutTokens[tok] = dst.Addr

	logrus.Debugf("Bootstrapping(%s): sending BootstrapRequest to %s", b.fullId.Name(), dst.Addr)

	msg := messages.Message{
		Src: location.NodeSrc(b.fullId.Name()),
		Dst: location.Direct,
		Variant: messages.Variant{
			Tag:              messages.VariantBootstrapRequest,
			BootstrapRequest: &messages.BootstrapRequest{Destination: b.getDestination()},
		},
	}
	bytes, err := messages.Encode(msg)
	if err != nil {
		logrus.Warnf("Bootstrapping: failed to encode BootstrapRequest: %v", err)
		return
	}
	if err := b.ns.Send(dst, bytes); err != nil {
		logrus.Warnf("Bootstrapping: send to %s failed: %v", dst.Addr, err)
	}
}

func (b *Bootstrapping) requestFailed() {
	if len(b.pendingRequests) == 0 {
		if err := b.ns.Bootstrap(context.Background()); err != nil {
			logrus.Warnf("Bootstrapping: re-bootstrap failed to start: %v", err)
		}
	}
}

func (b *Bootstrapping) reconnectToNewSection(newContacts []chain.ConnectionInfo) {
	_ = b.ns.RemoveAndDisconnectAll()
	b.pendingRequests = make(map[string]struct{})
	b.timeoutTokens = make(map[timer.Token]string)
	for _, c := range newContacts {
		b.sendBootstrapRequest(c)
	}
}

// joinSection adopts a name inside info's prefix (extended by
// cfg.ExtraSplitBits bits of slack toward the destination) if our current
// name does not already match, builds a RelocatePayload if relocating,
// and returns the Joining state to transition into.
func (b *Bootstrapping) joinSection(info chain.EldersInfo) (State, error) {
	oldFullId := b.fullId
	destination := b.getDestination()

	namePrefix := address.NewPrefix(info.Prefix.BitCount+b.cfg.ExtraSplitBits, destination)
	if !namePrefix.Matches(b.fullId.Name()) {
		lo, hi := namePrefix.RangeInclusive()
		newId, err := identity.WithinRange(lo, hi)
		if err != nil {
			return b, utils.Wrap(err, "bootstrapping: regenerate id within range")
		}
		logrus.Infof("Bootstrapping: changing name to %s", newId.Name())
		b.fullId = newId
	}

	var payload *messages.RelocatePayload
	if b.relocateDetails != nil {
		payload = &messages.RelocatePayload{
			OldPublicId: oldFullId.PublicId(),
			NewPublicId: b.fullId.PublicId(),
			Destination: destination,
		}
		b.relocateDetails = nil
	}

	return NewJoining(b.cfg, b.fullId, b.ns, b.tm, b.verifier, info, payload), nil
}

func (b *Bootstrapping) HandleTransportEvent(ev TransportEvent, box event.Box) (State, error) {
	switch ev.Kind {
	case EvBootstrappedTo:
		b.sendBootstrapRequest(ev.ConnInfo)
		return b, nil
	case EvBootstrapFailed:
		logrus.Infof("Bootstrapping(%s): failed to bootstrap, terminating", b.fullId.Name())
		box.SendEvent(event.Terminated())
		return &Terminated{}, nil
	case EvConnectionFailure:
		delete(b.pendingRequests, ev.ConnInfo.Addr)
		b.requestFailed()
		return b, nil
	case EvConnectedTo:
		return b, nil
	case EvNewMessage:
		msg, err := decodeMessage(ev.Bytes)
		if err != nil {
			logrus.Debugf("Bootstrapping: dropping undecodable message from %s: %v", ev.From.Addr, err)
			return b, nil
		}
		return b.HandleMessage(&ev.From, msg, box)
	}
	return b, nil
}

func (b *Bootstrapping) HandleTimeout(tok timer.Token, box event.Box) (State, error) {
	addr, ok := b.timeoutTokens[tok]
	if !ok {
		return b, nil
	}
	delete(b.timeoutTokens, tok)

	if _, pending := b.pendingRequests[addr]; !pending {
		return b, nil
	}
	logrus.Debugf("Bootstrapping: timed out waiting on %s", addr)
	delete(b.pendingRequests, addr)
	_ = b.ns.Disconnect(chain.ConnectionInfo{Addr: addr})
	b.requestFailed()
	return b, nil
}

func (b *Bootstrapping) HandleMessage(sender *chain.ConnectionInfo, msg messages.Message, box event.Box) (State, error) {
	if sender == nil {
		return b, nil
	}
	if _, ok := b.pendingRequests[sender.Addr]; !ok {
		logrus.Debugf("Bootstrapping: ignoring message from unexpected peer %s", sender.Addr)
		_ = b.ns.Disconnect(*sender)
		return b, nil
	}

	if msg.Variant.Tag != messages.VariantBootstrapResponse || msg.Variant.BootstrapResponse == nil {
		logrus.Debugf("Bootstrapping: dropping unexpected variant %d", msg.Variant.Tag)
		return b, nil
	}

	resp := msg.Variant.BootstrapResponse
	switch resp.Kind {
	case messages.BootstrapJoin:
		logrus.Infof("Bootstrapping: joining section %s (given by %s)", resp.EldersInfo.Prefix, sender.Addr)
		return b.joinSection(resp.EldersInfo)
	case messages.BootstrapRebootstrap:
		logrus.Infof("Bootstrapping: redirected to %d new contacts", len(resp.NewContacts))
		b.reconnectToNewSection(resp.NewContacts)
		return b, nil
	default:
		return b, nil
	}
}

// HandleSendMessage keeps a legacy compatibility path (returning success
// instead of an error while not yet bootstrapped) behind a configuration
// flag, for callers that depend on the old behaviour.
func (b *Bootstrapping) HandleSendMessage(_ location.SrcLocation, _ location.DstLocation, _ []byte) error {
	logrus.Warnf("Bootstrapping(%s): cannot send message, not bootstrapped", b.fullId.Name())
	if b.cfg.Compat.BootstrappingSendMessageReturnsOK {
		return nil
	}
	return errNotBootstrapped
}
