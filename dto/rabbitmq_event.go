package dto

import (
	"encoding/json"
	"time"

	"github.com/customeros/mailbridge/internal/enum"
)

// Event is the envelope of every message on the mailbridge exchanges.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	// EventType is the Go type name of Data, used to route to a listener.
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

type EventMetadata struct {
	UberTraceId string    `json:"uber-trace-id"`
	AppSource   string    `json:"appSource"`
	Timestamp   time.Time `json:"timestamp"`
}
