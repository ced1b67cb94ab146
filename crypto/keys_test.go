package crypto

import (
	"bytes"
	"testing"
)

func TestSignVerify(t *testing.T) {
	seed := RandomSeed(32)
	prv, err := PrivateKeyFromSeed(seed)
	if err != nil {
		t.Fatal(err)
	}
	pub := prv.Public()

	msg := []byte("hello peer")
	sig, err := prv.Sign(msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := pub.Verify(msg, sig)
	if err != nil || !ok {
		t.Fatalf("signature did not verify: ok=%v err=%v", ok, err)
	}

	// tampered message must not verify
	ok, _ = pub.Verify(append(bytes.Clone(msg), 0x00), sig)
	if ok {
		t.Fatal("signature verified for tampered message")
	}

	sig2, err := NewSignatureFromBytes(sig.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sig.Bytes(), sig2.Bytes()) {
		t.Fatal("signature round-trip mismatch")
	}
}
