package p2p

import (
	"context"
	"testing"
	"time"

	"sectionrouting/chain"
	"sectionrouting/statemachine"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := New("/ip4/127.0.0.1/tcp/0", "sectionrouting-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func selfAddr(s *Service) string {
	addrs := s.host.Addrs()
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].String() + "/p2p/" + s.host.ID().String()
}

func TestSendDeliversNewMessageEvent(t *testing.T) {
	a := newTestService(t)
	b := newTestService(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.DialSeeds(ctx, []string{selfAddr(b)}); err != nil {
		t.Fatalf("DialSeeds: %v", err)
	}

	peerB := chain.ConnectionInfo{Addr: selfAddr(b)}
	if err := a.Send(peerB, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case ev := <-b.Events():
		if ev.Kind != statemachine.EvNewMessage {
			t.Fatalf("event kind = %v, want EvNewMessage", ev.Kind)
		}
		if string(ev.Bytes) != "hello" {
			t.Fatalf("payload = %q, want %q", ev.Bytes, "hello")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for NewMessage event")
	}
}

func TestBootstrapEmitsBootstrappedTo(t *testing.T) {
	a := newTestService(t)
	b := newTestService(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.DialSeeds(ctx, []string{selfAddr(b)}); err != nil {
		t.Fatalf("DialSeeds: %v", err)
	}

	select {
	case ev := <-a.Events():
		if ev.Kind != statemachine.EvBootstrappedTo {
			t.Fatalf("event kind = %v, want EvBootstrappedTo", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for BootstrappedTo event")
	}
}

func TestBootstrapFailsOnInvalidAddress(t *testing.T) {
	a := newTestService(t)
	if err := a.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap with no contacts should succeed trivially: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.DialSeeds(ctx, []string{"not-a-multiaddr"}); err == nil {
		t.Fatalf("expected an error dialing an invalid address")
	}
}
