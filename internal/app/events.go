package app

import (
	"context"
	"time"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/realtime/bus"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

const (
	busQueueSize      = 256
	busPublishTimeout = 5 * time.Second
)

// fanoutPublisher hands events to local subscribers and queues them for the
// cross-instance bus. Publish never blocks: a full queue drops the bus copy,
// local delivery is unaffected. The hub never feeds the bus, so messages
// arriving from other instances cannot loop back.
type fanoutPublisher struct {
	log     *logger.Logger
	metrics *observability.Metrics
	hub     *realtime.Hub
	bus     bus.Bus
	queue   chan types.EventMessage
}

func newFanoutPublisher(log *logger.Logger, metrics *observability.Metrics, hub *realtime.Hub, b bus.Bus) *fanoutPublisher {
	return &fanoutPublisher{
		log:     log.With("component", "EventFanout"),
		metrics: metrics,
		hub:     hub,
		bus:     b,
		queue:   make(chan types.EventMessage, busQueueSize),
	}
}

func (p *fanoutPublisher) Publish(msg types.EventMessage) {
	p.hub.Publish(msg)
	select {
	case p.queue <- msg:
	default:
		p.metrics.IncEventDropped("bus")
		p.log.Warn("bus queue full, dropping event copy",
			"type", string(msg.Type),
			"batchId", msg.Payload.BatchID,
		)
	}
}

// Run drains the queue into the bus until ctx ends. Publish failures are
// counted and logged; the loop keeps going.
func (p *fanoutPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.queue:
			pubCtx, cancel := context.WithTimeout(context.Background(), busPublishTimeout)
			err := p.bus.Publish(pubCtx, msg)
			cancel()
			if err != nil {
				p.metrics.IncBusError()
				p.log.Warn("bus publish failed", "type", string(msg.Type), "error", err)
				continue
			}
			p.metrics.IncBusPublished()
		}
	}
}

// runAlertForwarder relays anomaly events to the webhook alerter through a
// hub subscription, keeping alert latency away from the ingestion path. The
// hub's drop-on-full-buffer policy bounds how far a slow webhook can fall
// behind.
func runAlertForwarder(ctx context.Context, log *logger.Logger, hub *realtime.Hub) error {
	client := hub.Subscribe(realtime.ChannelAnomalies)
	defer hub.Unsubscribe(client)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-client.Outbound:
			if !ok {
				return nil
			}
			observability.ReportAnomaly(ctx, log, msg)
		}
	}
}
