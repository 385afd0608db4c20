package bus

import (
	"context"

	"github.com/Pramod-Bandara/PharmaTrust-Docker-sub000/internal/types"
)

// Bus bridges event messages across engine instances. Implementations carry
// hub traffic only; they are never called from the ingestion path.
type Bus interface {
	Publish(ctx context.Context, msg types.EventMessage) error
	StartForwarder(ctx context.Context, onMsg func(m types.EventMessage)) error
	Close() error
}
