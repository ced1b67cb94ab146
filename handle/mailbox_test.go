package handle

import "testing"

func TestMailboxSendRecv(t *testing.T) {
	mb := New[int](2)
	if err := mb.Send(1); err != nil {
		t.Fatal(err)
	}
	if err := mb.Send(2); err != nil {
		t.Fatal(err)
	}
	ok, err := mb.TrySend(3)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected TrySend to report no capacity")
	}

	if v := <-mb.Recv(); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
	mb.Release()

	ok, err = mb.TrySend(3)
	if err != nil || !ok {
		t.Fatalf("expected TrySend to succeed after release, ok=%v err=%v", ok, err)
	}
}

func TestMailboxClose(t *testing.T) {
	mb := New[int](1)
	mb.Close()
	if err := mb.Send(1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
