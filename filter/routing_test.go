package filter

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"sectionrouting/address"
	"sectionrouting/identity"
	"sectionrouting/location"
	"sectionrouting/messages"
)

func testMessage(t *testing.T) messages.Message {
	t.Helper()
	n, err := address.RandomName()
	if err != nil {
		t.Fatalf("random name: %v", err)
	}
	return messages.Message{
		Src: location.NodeSrc(n),
		Dst: location.NodeDst(n),
		Variant: messages.Variant{
			Tag:         messages.VariantUserMessage,
			UserMessage: &messages.UserMessage{Content: []byte("hello")},
		},
	}
}

func testPublicId(t *testing.T) identity.PublicId {
	t.Helper()
	id, err := identity.Gen()
	if err != nil {
		t.Fatalf("gen id: %v", err)
	}
	return id.PublicId()
}

func TestFilterIncomingDedups(t *testing.T) {
	mock := clock.NewMock()
	f := NewRoutingMessageFilter(mock)
	msg := testMessage(t)

	r1, err := f.FilterIncoming(msg)
	if err != nil || !r1.IsNew() {
		t.Fatalf("first delivery should be new: %v %v", r1, err)
	}
	r2, err := f.FilterIncoming(msg)
	if err != nil || r2.IsNew() {
		t.Fatalf("second delivery should be known: %v %v", r2, err)
	}

	mock.Add(IncomingTTL + time.Millisecond)
	r3, err := f.FilterIncoming(msg)
	if err != nil || !r3.IsNew() {
		t.Fatalf("delivery after TTL should be new again: %v %v", r3, err)
	}
}

func TestFilterOutgoingPerPeer(t *testing.T) {
	mock := clock.NewMock()
	f := NewRoutingMessageFilter(mock)
	msg := testMessage(t)
	p1 := testPublicId(t)
	p2 := testPublicId(t)

	r1, err := f.FilterOutgoing(msg, p1)
	if err != nil || !r1.IsNew() {
		t.Fatalf("first send to p1 should be new: %v %v", r1, err)
	}
	r2, err := f.FilterOutgoing(msg, p1)
	if err != nil || r2.IsNew() {
		t.Fatalf("second send to p1 should be known: %v %v", r2, err)
	}
	r3, err := f.FilterOutgoing(msg, p2)
	if err != nil || !r3.IsNew() {
		t.Fatalf("first send to a different peer should still be new: %v %v", r3, err)
	}
}

func TestDirectMessagesBypassBothFilters(t *testing.T) {
	mock := clock.NewMock()
	f := NewRoutingMessageFilter(mock)
	n, _ := address.RandomName()
	msg := messages.Message{
		Src:     location.NodeSrc(n),
		Dst:     location.Direct,
		Variant: messages.Variant{Tag: messages.VariantBootstrapRequest, BootstrapRequest: &messages.BootstrapRequest{Destination: n}},
	}
	p := testPublicId(t)

	for i := 0; i < 3; i++ {
		r, err := f.FilterIncoming(msg)
		if err != nil || !r.IsNew() {
			t.Fatalf("direct message must always be new (incoming), iteration %d: %v %v", i, r, err)
		}
		r, err = f.FilterOutgoing(msg, p)
		if err != nil || !r.IsNew() {
			t.Fatalf("direct message must always be new (outgoing), iteration %d: %v %v", i, r, err)
		}
	}
}
