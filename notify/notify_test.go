package notify

import (
	"context"
	"testing"
)

func TestChannelDeliversSignals(t *testing.T) {
	ch := NewChannel(4)
	ctx := context.Background()

	ch.Disconnect(ctx, Disconnect{UserID: "u1", Reason: ReasonLogout})
	ch.Disconnect(ctx, Disconnect{UserID: "u2", Reason: ReasonTokenTheft})

	first := <-ch.Events()
	if first.UserID != "u1" || first.Reason != ReasonLogout {
		t.Fatalf("unexpected first event: %+v", first)
	}
	second := <-ch.Events()
	if second.UserID != "u2" || second.Reason != ReasonTokenTheft {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if ch.Dropped() != 0 {
		t.Fatalf("nothing should have been dropped, got %d", ch.Dropped())
	}
}

func TestChannelDropsWhenFull(t *testing.T) {
	ch := NewChannel(1)
	ctx := context.Background()

	ch.Disconnect(ctx, Disconnect{UserID: "u1", Reason: ReasonNewLogin})
	ch.Disconnect(ctx, Disconnect{UserID: "u2", Reason: ReasonNewLogin})
	ch.Disconnect(ctx, Disconnect{UserID: "u3", Reason: ReasonNewLogin})

	if ch.Dropped() != 2 {
		t.Fatalf("expected 2 dropped signals, got %d", ch.Dropped())
	}

	delivered := <-ch.Events()
	if delivered.UserID != "u1" {
		t.Fatalf("expected the first signal delivered, got %+v", delivered)
	}
}

func TestChannelDropsOnCanceledContext(t *testing.T) {
	ch := NewChannel(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Fill the buffer so the send blocks, then the canceled context drops.
	ch.Disconnect(context.Background(), Disconnect{UserID: "u1", Reason: ReasonLogout})
	ch.Disconnect(ctx, Disconnect{UserID: "u2", Reason: ReasonLogout})

	if ch.Dropped() != 1 {
		t.Fatalf("expected 1 dropped signal, got %d", ch.Dropped())
	}
}

func TestChannelMinimumBuffer(t *testing.T) {
	ch := NewChannel(0)

	ch.Disconnect(context.Background(), Disconnect{UserID: "u1", Reason: ReasonLogout})
	if ch.Dropped() != 0 {
		t.Fatal("a zero buffer request still buffers one signal")
	}
}

func TestNoOpDiscards(t *testing.T) {
	var n NoOp
	n.Disconnect(context.Background(), Disconnect{UserID: "u1", Reason: ReasonLogout})
}
