package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies a synchronized collection.
type EntityType string

const (
	EntityBeds     EntityType = "beds"
	EntityRooms    EntityType = "rooms"
	EntityIslands  EntityType = "islands"
	EntityNurses   EntityType = "nurses"
	EntityPatients EntityType = "patients"
	EntityAlerts   EntityType = "help-alerts"
)

// AllEntityTypes lists every synchronized collection.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityBeds,
		EntityRooms,
		EntityIslands,
		EntityNurses,
		EntityPatients,
		EntityAlerts,
	}
}

// Valid reports whether the entity type is a known collection.
func (e EntityType) Valid() bool {
	switch e {
	case EntityBeds, EntityRooms, EntityIslands, EntityNurses, EntityPatients, EntityAlerts:
		return true
	}
	return false
}

// Document is a single entity as held by the local store. The payload is
// opaque to the sync core; Pending is true until the server has confirmed
// the operation that created or last modified the document.
type Document struct {
	ID      string          `json:"id"`
	Pending bool            `json:"pending"`
	Payload json.RawMessage `json:"payload"`
}

// TempIDPrefix marks client-generated identifiers awaiting server confirmation.
const TempIDPrefix = "temp_"

// NewTempID generates a placeholder identifier for an entity created while
// offline. It is replaced by the server-assigned ID once the queued create
// is confirmed.
func NewTempID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s%d_%s", TempIDPrefix, time.Now().UnixMilli(), suffix)
}

// IsTempID reports whether id is a client-generated placeholder.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// DocumentFromServer builds a confirmed document from a server entity body.
// The body must carry an "id" field; numeric IDs are normalized to their
// decimal string form.
func DocumentFromServer(body json.RawMessage) (Document, error) {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return Document{}, fmt.Errorf("parse server entity: %w", err)
	}
	if len(probe.ID) == 0 || string(probe.ID) == "null" {
		return Document{}, fmt.Errorf("server entity has no id")
	}

	// Server IDs arrive as numbers or opaque strings; normalize both to string.
	id := strings.Trim(string(probe.ID), `"`)
	if id == "" {
		return Document{}, fmt.Errorf("server entity has empty id")
	}
	return Document{
		ID:      id,
		Pending: false,
		Payload: body,
	}, nil
}
