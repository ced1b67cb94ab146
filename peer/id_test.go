package peer

import "testing"

func TestIdentityRoundTrip(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	s := id.ID().String()
	back, err := ParseID(s)
	if err != nil {
		t.Fatal(err)
	}
	if back != id.ID() {
		t.Fatalf("round-trip mismatch: %s != %s", back, id.ID())
	}
}

func TestIdentitySignVerify(t *testing.T) {
	id, err := NewIdentity()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("ping")
	sig, err := id.Sign(msg)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := id.Verify(msg, sig)
	if err != nil || !ok {
		t.Fatalf("verify failed: ok=%v err=%v", ok, err)
	}
}

func TestIDOrdering(t *testing.T) {
	a := NewID([]byte{0x01})
	b := NewID([]byte{0x02})
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected !(b < a)")
	}
}
