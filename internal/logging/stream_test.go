package logging

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "event"})
	}

	events, next := hub.Tail(10)
	if len(events) != 3 {
		t.Fatalf("expected capacity-bound tail, got %d events", len(events))
	}
	if events[0].Sequence != 3 || events[2].Sequence != 5 {
		t.Fatalf("unexpected sequences %d..%d", events[0].Sequence, events[2].Sequence)
	}
	if next != 5 {
		t.Fatalf("expected next sequence 5, got %d", next)
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("expected first buffered sequence 3, got %d", first)
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(16)
	for i := 0; i < 4; i++ {
		hub.Publish(LogEvent{Message: "event"})
	}

	events, next, err := hub.Fetch(context.Background(), 2, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after sequence 2, got %d", len(events))
	}
	if events[0].Sequence != 3 || events[1].Sequence != 4 {
		t.Fatalf("unexpected sequences %d, %d", events[0].Sequence, events[1].Sequence)
	}
	if next != 4 {
		t.Fatalf("expected next sequence 4, got %d", next)
	}

	events, _, err = hub.Fetch(context.Background(), 4, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events past the newest sequence, got %d", len(events))
	}
}

func TestStreamHubFetchWaitUnblocksOnPublish(t *testing.T) {
	hub := NewStreamHub(16)
	type result struct {
		events []LogEvent
		err    error
	}
	done := make(chan result, 1)
	go func() {
		events, _, err := hub.Fetch(context.Background(), 0, 1, true)
		done <- result{events: events, err: err}
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(LogEvent{Message: "wake"})

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Fetch returned error: %v", res.err)
		}
		if len(res.events) != 1 || res.events[0].Message != "wake" {
			t.Fatalf("unexpected events %+v", res.events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not unblock after publish")
	}
}

func TestStreamHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewStreamHub(16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, _, err := hub.Fetch(ctx, 0, 1, true)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not observe context cancellation")
	}
}

func TestStreamHubNilSafe(t *testing.T) {
	var hub *StreamHub
	hub.Publish(LogEvent{Message: "ignored"})
	if events, _ := hub.Tail(5); events != nil {
		t.Fatalf("expected nil tail from nil hub, got %v", events)
	}
	if _, _, err := hub.Fetch(context.Background(), 0, 1, false); err != nil {
		t.Fatalf("nil hub Fetch returned error: %v", err)
	}
}
