package event

import (
	"testing"

	"sectionrouting/address"
)

func TestMessageReceivedPopulatesFields(t *testing.T) {
	var src, dst address.Name
	src[0] = 1
	dst[0] = 2
	e := MessageReceived(src, dst, []byte("hi"))
	if e.Kind != KindMessageReceived {
		t.Fatalf("Kind = %v, want KindMessageReceived", e.Kind)
	}
	if e.MessageReceived.Src != src || e.MessageReceived.Dst != dst {
		t.Fatalf("src/dst not preserved")
	}
	if string(e.MessageReceived.Content) != "hi" {
		t.Fatalf("content = %q, want %q", e.MessageReceived.Content, "hi")
	}
}

func TestSliceBoxAccumulatesEvents(t *testing.T) {
	var b SliceBox
	b.SendEvent(Promoted())
	b.SendEvent(Demoted())
	if len(b.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(b.Events))
	}
	if b.Events[0].Kind != KindPromoted || b.Events[1].Kind != KindDemoted {
		t.Fatalf("unexpected event order: %#v", b.Events)
	}
}

func TestLogBoxSendEventDoesNotPanicOnAnyKind(t *testing.T) {
	var lb LogBox
	kinds := []Event{
		Connected(ConnectedFirst),
		MessageReceived(address.Name{}, address.Name{}, nil),
		SectionSplit(address.Prefix{}),
		Promoted(),
		Demoted(),
		RestartRequired(),
		Terminated(),
	}
	for _, e := range kinds {
		lb.SendEvent(e)
	}
}
