package realtime

import (
	"github.com/google/uuid"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// Client is one subscriber's end of the hub. Outbound is buffered; the hub
// never blocks on it, so a client that stops draining loses messages.
type Client struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan types.EventMessage
	done     chan struct{}
}
