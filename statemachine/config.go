package statemachine

import (
	"time"

	"github.com/benbjohnson/clock"
)

// BootstrapTimeout is how long a single bootstrap contact is given to
// respond before it is dropped and another attempt is made.
const BootstrapTimeout = 20 * time.Second

// DefaultJoinTimeout is the default duration Joining waits for
// NodeApproval before acting on its restart policy. Must be >=
// BootstrapTimeout.
const DefaultJoinTimeout = 30 * time.Second

// NetworkParams are the section-shape parameters a chain must satisfy.
type NetworkParams struct {
	ElderSize       int
	SafeSectionSize int
}

// DefaultNetworkParams are the commonly used test and devnet defaults.
var DefaultNetworkParams = NetworkParams{ElderSize: 7, SafeSectionSize: 30}

// RestartPolicy selects what Joining does when JOIN_TIMEOUT elapses.
type RestartPolicy int

const (
	// RestartPolicyRebootstrap re-enters Bootstrapping using the same
	// contact set.
	RestartPolicyRebootstrap RestartPolicy = iota
	// RestartPolicyRestartRequired emits event.RestartRequired and
	// terminates the state machine, leaving restart to the host.
	RestartPolicyRestartRequired
)

// CompatConfig holds behaviour preserved for migration: the Bootstrapping
// state returns success (rather than an error) when asked to send a user
// message before bootstrap completes, which is arguably a bug but is kept
// configurable to avoid breaking existing callers.
type CompatConfig struct {
	BootstrappingSendMessageReturnsOK bool
}

// DefaultCompatConfig preserves the legacy behaviour by default.
var DefaultCompatConfig = CompatConfig{BootstrappingSendMessageReturnsOK: true}

// Config bundles every tunable the state machine needs.
type Config struct {
	Network        NetworkParams
	JoinTimeout    time.Duration
	RestartPolicy  RestartPolicy
	Compat         CompatConfig
	ExtraSplitBits int // extra prefix bits, toward the destination, that a joining node's name must match

	// Clock backs the routing dedup filters' TTL bookkeeping; tests
	// substitute a clock.Mock for deterministic expiry.
	Clock clock.Clock
}

// DefaultConfig returns sensible defaults for a section-routing node.
func DefaultConfig() Config {
	return Config{
		Network:        DefaultNetworkParams,
		JoinTimeout:    DefaultJoinTimeout,
		RestartPolicy:  RestartPolicyRebootstrap,
		Compat:         DefaultCompatConfig,
		ExtraSplitBits: 3,
		Clock:          clock.New(),
	}
}
