package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/observability"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/envutil"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/platform/logger"
	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

const (
	ChannelReadings  = "readings"
	ChannelAnomalies = "anomalies"

	outboundBufferSize       = 32
	defaultHeartbeatInterval = 15 * time.Second
)

func heartbeatInterval() time.Duration {
	d := envutil.Duration("SSE_HEARTBEAT_INTERVAL", defaultHeartbeatInterval)
	if d <= 0 {
		return defaultHeartbeatInterval
	}
	return d
}

// ChannelFor maps an event type to the channel it is broadcast on.
func ChannelFor(t types.EventType) string {
	if t == types.EventAnomaly {
		return ChannelAnomalies
	}
	return ChannelReadings
}

// ParseChannels turns the raw ?channels= value into known channel names.
// Empty or junk-only input subscribes to everything.
func ParseChannels(raw string) []string {
	known := map[string]bool{ChannelReadings: true, ChannelAnomalies: true}
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		ch := strings.ToLower(strings.TrimSpace(part))
		if !known[ch] || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	if len(out) == 0 {
		return []string{ChannelReadings, ChannelAnomalies}
	}
	return out
}

// Hub fans event messages out to subscribed clients. Broadcast never blocks:
// clients that cannot keep up lose messages, not the producer.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	metrics       *observability.Metrics
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		log:           log.With("component", "EventHub"),
		metrics:       metrics,
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Subscribe registers a new client on the given channels.
func (h *Hub) Subscribe(channels ...string) *Client {
	client := &Client{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan types.EventMessage, outboundBufferSize),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, channel := range channels {
		channel = strings.TrimSpace(channel)
		if channel == "" {
			continue
		}
		client.Channels[channel] = true
		clients, ok := h.subscriptions[channel]
		if !ok {
			clients = make(map[*Client]bool)
			h.subscriptions[channel] = clients
		}
		clients[client] = true
	}
	h.log.Debug("client subscribed", "clientId", client.ID, "channels", channels)
	return client
}

// Unsubscribe detaches the client from every channel and closes it. Safe to
// call once per client.
func (h *Hub) Unsubscribe(client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	for channel := range client.Channels {
		if clients, ok := h.subscriptions[channel]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, channel)
			}
		}
	}
	client.Channels = make(map[string]bool)
	h.mu.Unlock()

	close(client.done)
	close(client.Outbound)
	h.log.Debug("client unsubscribed", "clientId", client.ID)
}

// Publish broadcasts the message on the channel its type belongs to.
func (h *Hub) Publish(msg types.EventMessage) {
	h.broadcast(ChannelFor(msg.Type), msg)
}

func (h *Hub) broadcast(channel string, msg types.EventMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.metrics.IncEventPublished(channel)
	for client := range h.subscriptions[channel] {
		select {
		case client.Outbound <- msg:
		default:
			h.metrics.IncEventDropped(channel)
			h.log.Warn("dropping event, client buffer full", "clientId", client.ID, "channel", channel)
		}
	}
}

// SubscriberCount reports how many clients listen on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}

// ServeHTTP streams the client's feed as server-sent events until the
// request context ends or the client is unsubscribed. The event name is the
// message type, so EventSource listeners can filter on "reading"/"anomaly".
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval())
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("stream client disconnected", "clientId", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("failed to marshal event message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, payload)
			flusher.Flush()
		}
	}
}
