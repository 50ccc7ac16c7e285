package notify

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemory(4)
	events, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	evt := Event{
		Kind:       KindAttendanceMarked,
		Subject:    "Machine Learning",
		Time:       "10:00AM - 11:00 AM",
		Room:       "AB-I 405",
		RollNumber: 101,
		At:         time.Now().UTC(),
	}
	if err := bus.Publish(ctx, evt); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-events:
		if got.RollNumber != 101 || got.Kind != KindAttendanceMarked {
			t.Fatalf("received %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSessionChannel(t *testing.T) {
	evt := Event{Subject: "ML", Time: "10-11", Room: "R405"}
	want := "attendance.session.ML|10-11|R405"
	if got := evt.SessionChannel(); got != want {
		t.Errorf("SessionChannel() = %q, want %q", got, want)
	}
}
