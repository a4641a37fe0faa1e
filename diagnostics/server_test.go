package diagnostics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"

	"sectionrouting/address"
	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/statemachine"
	"sectionrouting/timer"
)

type noopNetworkService struct {
	events chan statemachine.TransportEvent
}

func newNoopNetworkService() *noopNetworkService {
	return &noopNetworkService{events: make(chan statemachine.TransportEvent)}
}

func (n *noopNetworkService) Bootstrap(context.Context) error               { return nil }
func (n *noopNetworkService) Send(chain.ConnectionInfo, []byte) error       { return nil }
func (n *noopNetworkService) Disconnect(chain.ConnectionInfo) error         { return nil }
func (n *noopNetworkService) RemoveAndDisconnectAll() error                 { return nil }
func (n *noopNetworkService) Events() <-chan statemachine.TransportEvent    { return n.events }

type alwaysValidVerifier struct{}

func (alwaysValidVerifier) Verify(identity.PublicId, [32]byte, identity.Signature) bool { return true }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	self, err := identity.Gen()
	if err != nil {
		t.Fatalf("identity.Gen: %v", err)
	}
	info := chain.NewEldersInfo(address.EmptyPrefix, 0, []chain.P2pNode{
		{PublicId: self.PublicId(), ConnInfo: chain.ConnectionInfo{Addr: "self"}},
	})
	cfg := statemachine.DefaultConfig()
	cfg.Clock = clock.NewMock()
	tm := timer.New(cfg.Clock)
	m := statemachine.NewGenesis(cfg, self, newNoopNetworkService(), tm, alwaysValidVerifier{}, &event.SliceBox{}, info)
	return NewServer(m, cfg.Network.ElderSize)
}

func doGet(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandlePrefixReturnsEmptyPrefixForGenesis(t *testing.T) {
	s := newTestServer(t)
	rec := doGet(s, "/prefix")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Prefix string `json:"prefix"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Prefix != address.EmptyPrefix.String() {
		t.Fatalf("prefix = %q, want %q", body.Prefix, address.EmptyPrefix.String())
	}
}

func TestHandleElderReportsTrueForGenesisFounder(t *testing.T) {
	s := newTestServer(t)
	rec := doGet(s, "/elder")
	var body struct {
		IsElder bool `json:"is_elder"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.IsElder {
		t.Fatalf("expected the genesis founder to be reported as an elder")
	}
}

func TestHandleInvariantsCheckReturnsCheckID(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/invariants/check", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		CheckID    string `json:"check_id"`
		Violations []any  `json:"violations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CheckID == "" {
		t.Fatalf("expected a non-empty check_id")
	}
}
