// Package sse implements Server-Sent Events for the change feed that
// keeps every caregiver's device in sync.
package sse

import (
	"time"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

// Changes propagate to authorized clients asynchronously; devices treat
// the feed as eventually consistent and reconcile against the store on
// reconnect.

// EventType represents the type of SSE event.
type EventType string

const (
	// EventChildCreated represents a child profile creation event.
	EventChildCreated EventType = "child.created"
	// EventChildUpdated represents a child profile update event.
	EventChildUpdated EventType = "child.updated"
	// EventChildDeleted represents a child profile deletion event.
	EventChildDeleted EventType = "child.deleted"
	// EventChildShared represents a collaborator being added to a profile.
	EventChildShared EventType = "child.shared"
	// EventChildUnshared represents a collaborator being removed from a profile.
	EventChildUnshared EventType = "child.unshared"

	// EventInvitationCreated represents an invitation creation event.
	EventInvitationCreated EventType = "invitation.created"
	// EventInvitationUpdated represents an invitation state transition.
	EventInvitationUpdated EventType = "invitation.updated"

	// EventRecordCreated represents a care record creation event.
	EventRecordCreated EventType = "record.created"
	// EventRecordUpdated represents a care record update event.
	EventRecordUpdated EventType = "record.updated"
	// EventRecordDeleted represents a care record deletion event.
	EventRecordDeleted EventType = "record.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// Audience lists the account IDs allowed to receive this event.
	// Empty means broadcast to all connected clients (heartbeats only;
	// every record event carries its owner-plus-collaborators audience).
	Audience []string `json:"-"`
}

// ChildEventData is the data payload for child profile events.
type ChildEventData struct {
	Child *domain.ChildProfile `json:"child"`
}

// ChildShareEventData is the data payload for share/unshare events.
type ChildShareEventData struct {
	ChildID    string   `json:"child_id"`
	UserID     string   `json:"user_id"`
	SharedWith []string `json:"shared_with"`
}

// InvitationEventData is the data payload for invitation events.
type InvitationEventData struct {
	Invitation *domain.Invitation `json:"invitation"`
}

// RecordEventData is the data payload for care record events.
type RecordEventData struct {
	EntityType string `json:"entity_type"`
	Record     any    `json:"record"`
}

// RecordDeletedEventData is the data payload for record delete events.
type RecordDeletedEventData struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewRecordEvent creates an event of the given type delivered only to the
// accounts in audience.
func NewRecordEvent(eventType EventType, data any, audience []string) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Audience:  audience,
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a heartbeat event for all clients.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: time.Now()},
		Timestamp: time.Now(),
	}
}
