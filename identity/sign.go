package identity

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Signature is an opaque, wire-transmissible signature over a message
// digest.
type Signature []byte

// Sign produces a Signature over digest using f's secret key. Signing and
// verification are treated as an external oracle by the routing core;
// this is the one concrete implementation the rest of the module depends
// on through the Verifier interface below, so it can be substituted in
// tests.
func (f FullId) Sign(digest [32]byte) Signature {
	sig := ecdsa.Sign(f.secret, digest[:])
	return Signature(sig.Serialize())
}

// Verifier checks a signature against a public id's key. The routing
// state machine depends on this interface, not on a concrete crypto
// library, so a test harness can substitute an always-valid or
// always-invalid stub.
type Verifier interface {
	Verify(id PublicId, digest [32]byte, sig Signature) bool
}

// ECDSAVerifier is the production Verifier, backed by secp256k1/ECDSA.
type ECDSAVerifier struct{}

// Verify implements Verifier.
func (ECDSAVerifier) Verify(id PublicId, digest [32]byte, sig Signature) bool {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsed.Verify(digest[:], id.key)
}

// VerifyError describes a failed verification with a reason. No function
// in this package returns it; ECDSAVerifier.Verify reports a malformed or
// non-matching signature alike as false.
type VerifyError struct {
	Reason string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("identity: verification failed: %s", e.Reason)
}
