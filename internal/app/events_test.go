package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

type fakeBus struct {
	mu   sync.Mutex
	msgs []types.EventMessage
	err  error
}

func (b *fakeBus) Publish(ctx context.Context, msg types.EventMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *fakeBus) StartForwarder(ctx context.Context, onMsg func(types.EventMessage)) error {
	return nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

func anomalyEvent(batchID string) types.EventMessage {
	return types.EventMessage{
		Type: types.EventAnomaly,
		Payload: types.EnrichedReading{
			Reading:   types.Reading{ID: "r1", BatchID: batchID, DeviceID: "d1"},
			IsAnomaly: true,
			Severity:  types.SeverityHigh,
		},
	}
}

func TestFanoutPublishesLocallyAndToBus(t *testing.T) {
	t.Parallel()
	log := mustTestLogger(t)
	hub := realtime.NewHub(log, nil)
	fb := &fakeBus{}
	fanout := newFanoutPublisher(log, nil, hub, fb)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- fanout.Run(ctx) }()

	client := hub.Subscribe(realtime.ChannelAnomalies)
	defer hub.Unsubscribe(client)

	fanout.Publish(anomalyEvent("B-1"))

	select {
	case msg := <-client.Outbound:
		if msg.Payload.BatchID != "B-1" {
			t.Fatalf("local subscriber got wrong event: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("local subscriber did not receive the event")
	}

	deadline := time.After(2 * time.Second)
	for fb.count() != 1 {
		select {
		case <-deadline:
			t.Fatalf("bus publish count: got=%d want=1", fb.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("fanout loop returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fanout loop did not stop on cancel")
	}
}

func TestFanoutPublishNeverBlocksOnFullQueue(t *testing.T) {
	t.Parallel()
	log := mustTestLogger(t)
	hub := realtime.NewHub(log, nil)
	fanout := newFanoutPublisher(log, nil, hub, &fakeBus{})

	// No Run loop draining the queue.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < busQueueSize+10; i++ {
			fanout.Publish(anomalyEvent("B-full"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked with a full bus queue")
	}
	if got := len(fanout.queue); got != busQueueSize {
		t.Fatalf("queue should cap at %d, got %d", busQueueSize, got)
	}
}

func TestAlertForwarderStopsOnCancel(t *testing.T) {
	t.Parallel()
	log := mustTestLogger(t)
	hub := realtime.NewHub(log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- runAlertForwarder(ctx, log, hub) }()

	deadline := time.After(2 * time.Second)
	for hub.SubscriberCount(realtime.ChannelAnomalies) != 1 {
		select {
		case <-deadline:
			t.Fatalf("forwarder never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("forwarder returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("forwarder did not stop on cancel")
	}

	deadline = time.After(2 * time.Second)
	for hub.SubscriberCount(realtime.ChannelAnomalies) != 0 {
		select {
		case <-deadline:
			t.Fatalf("forwarder left its subscription behind")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
