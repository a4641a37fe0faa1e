package identity

import (
	"crypto/sha256"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	full, err := Gen()
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	digest := sha256.Sum256([]byte("routing message digest"))
	sig := full.Sign(digest)

	if !(ECDSAVerifier{}).Verify(full.PublicId(), digest, sig) {
		t.Fatalf("signature did not verify against its own public id")
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	full, err := Gen()
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	other, err := Gen()
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	digest := sha256.Sum256([]byte("routing message digest"))
	sig := full.Sign(digest)

	if (ECDSAVerifier{}).Verify(other.PublicId(), digest, sig) {
		t.Fatalf("signature verified against the wrong public id")
	}
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	full, err := Gen()
	if err != nil {
		t.Fatalf("Gen: %v", err)
	}
	digest := sha256.Sum256([]byte("routing message digest"))
	sig := full.Sign(digest)

	tampered := sha256.Sum256([]byte("a different message"))
	if (ECDSAVerifier{}).Verify(full.PublicId(), tampered, sig) {
		t.Fatalf("signature verified against a tampered digest")
	}
}
