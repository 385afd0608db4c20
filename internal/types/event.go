package types

// EventType discriminates fan-out messages.
type EventType string

const (
	EventReading EventType = "reading"
	EventAnomaly EventType = "anomaly"
)

// EventMessage is the payload contract carried by every fan-out transport.
type EventMessage struct {
	Type    EventType       `json:"type"`
	Payload EnrichedReading `json:"payload"`
}
