package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operations tracked by the engine.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

var validOperations = map[string]bool{
	OpInsert: true,
	OpUpdate: true,
	OpDelete: true,
}

// Event is a notification that a tracked mutation occurred on a resource.
// It is ephemeral: once accepted it lives on inside the delivery records it
// fans out to.
type Event struct {
	TenantID   uuid.UUID              `json:"-"`
	TenantSlug string                 `json:"organization_id"`
	Name       string                 `json:"event,omitempty"`
	Resource   string                 `json:"table"`
	Operation  string                 `json:"operation"`
	Record     map[string]interface{} `json:"record"`
	OldRecord  map[string]interface{} `json:"old_record,omitempty"`
	OccurredAt time.Time              `json:"timestamp"`
}

func (e *Event) Validate() error {
	if e.Resource == "" {
		return errors.New("event resource cannot be empty")
	}
	if !validOperations[e.Operation] {
		return fmt.Errorf("invalid operation %q", e.Operation)
	}
	if e.Record == nil {
		return errors.New("event record cannot be nil")
	}
	return nil
}

// Names returns every event name this event can be subscribed under.
// Two schema generations coexist: composite names like "students.insert"
// and bare operation names like "insert". An explicitly supplied name
// (e.g. "student.created") is matched first.
func (e *Event) Names() []string {
	names := make([]string, 0, 3)
	if e.Name != "" {
		names = append(names, e.Name)
	}

	composite := e.Resource + "." + e.Operation
	if composite != e.Name {
		names = append(names, composite)
	}

	if e.Operation != e.Name {
		names = append(names, e.Operation)
	}

	return names
}

// DisplayName is the event name carried on the wire and in delivery records.
func (e *Event) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Resource + "." + e.Operation
}

// RecordID extracts the record's "id" field, if one is present.
func (e *Event) RecordID() string {
	if e.Record == nil {
		return ""
	}
	id, ok := e.Record["id"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", id)
}
