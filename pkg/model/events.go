package model

// EventType tags a realtime broadcast message.
type EventType string

// Event types broadcast to organization subscribers.
const (
	EventProjectCreated    EventType = "PROJECT_CREATED"
	EventProjectUpdated    EventType = "PROJECT_UPDATED"
	EventProjectDeleted    EventType = "PROJECT_DELETED"
	EventTaskCreated       EventType = "TASK_CREATED"
	EventTaskUpdated       EventType = "TASK_UPDATED"
	EventTaskDeleted       EventType = "TASK_DELETED"
	EventResourceCreated   EventType = "RESOURCE_CREATED"
	EventResourceUpdated   EventType = "RESOURCE_UPDATED"
	EventResourceDeleted   EventType = "RESOURCE_DELETED"
	EventInitiativeCreated EventType = "INITIATIVE_CREATED"
	EventInitiativeUpdated EventType = "INITIATIVE_UPDATED"
	EventTasksAutoAssigned EventType = "TASKS_AUTO_ASSIGNED"
	EventConnected         EventType = "CONNECTED"
)

// Event is the tagged record delivered to realtime subscribers.
// Delivery is best-effort and fire-and-forget.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}
