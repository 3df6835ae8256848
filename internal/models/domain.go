package models

import "encoding/json"

// Domain payloads for the ward API. The sync core treats these as opaque
// document payloads; they are decoded at the edges (CLI rendering, boundary
// normalization) only.

// RoomRef is the embedded room reference carried by bed documents.
type RoomRef struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// Bed is a hospital bed inside a room.
type Bed struct {
	ID       json.Number `json:"id,omitempty"`
	BedLabel string      `json:"bedLabel"`
	RoomID   json.Number `json:"roomId,omitempty"`
	Room     *RoomRef    `json:"room,omitempty"`
	QRCode   string      `json:"qrcode,omitempty"`
	Occupied Flag        `json:"isOccupied,omitempty"`
}

// Room groups beds inside an island (ward area).
type Room struct {
	ID       json.Number `json:"id,omitempty"`
	Name     string      `json:"name"`
	Beds     int         `json:"beds,omitempty"`
	IslandID json.Number `json:"islandId,omitempty"`
}

// Island is a ward area grouping rooms.
type Island struct {
	ID          json.Number `json:"id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
}

// Nurse is a staff member assignable to islands.
type Nurse struct {
	ID       json.Number `json:"id,omitempty"`
	Name     string      `json:"name"`
	Email    string      `json:"email,omitempty"`
	IslandID json.Number `json:"islandId,omitempty"`
}

// Patient is an admitted or registered patient.
type Patient struct {
	ID       json.Number `json:"id,omitempty"`
	Name     string      `json:"name"`
	Document string      `json:"document,omitempty"`
	BedID    json.Number `json:"bedId,omitempty"`
}

// HelpAlert is a patient-triggered call for help bound to a bed.
type HelpAlert struct {
	ID          json.Number `json:"id,omitempty"`
	BedID       json.Number `json:"bedId,omitempty"`
	AdmissionID json.Number `json:"admissionId,omitempty"`
	TriggeredAt string      `json:"triggeredAt,omitempty"`
}

// Admission links a patient to a bed. Admission operations are online-only.
type Admission struct {
	ID        json.Number `json:"id,omitempty"`
	PatientID json.Number `json:"patientId"`
	BedID     json.Number `json:"bedId"`
	Active    Flag        `json:"active,omitempty"`
}
