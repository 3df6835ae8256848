package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// WardServer is a minimal in-memory rendition of the ward API for
// integration tests. It serves the rooms collection with the envelope
// response shape and can simulate an outage.
type WardServer struct {
	mu      sync.Mutex
	failing bool
	nextID  int
	rooms   []map[string]interface{}

	// Requests counts handled requests by "METHOD path".
	Requests map[string]int

	Server *httptest.Server
}

// NewWardServer starts the fake API.
func NewWardServer() *WardServer {
	ws := &WardServer{
		nextID:   1,
		Requests: make(map[string]int),
	}
	ws.Server = httptest.NewServer(http.HandlerFunc(ws.handle))
	return ws
}

// URL returns the server base URL.
func (ws *WardServer) URL() string {
	return ws.Server.URL
}

// Close shuts the server down.
func (ws *WardServer) Close() {
	ws.Server.Close()
}

// SetFailing toggles outage simulation. While failing, every request
// gets a 503.
func (ws *WardServer) SetFailing(failing bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.failing = failing
}

// SeedRoom adds a room directly to the fake state and returns its ID.
func (ws *WardServer) SeedRoom(fields map[string]interface{}) int {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	id := ws.nextID
	ws.nextID++
	room := map[string]interface{}{"id": id}
	for k, v := range fields {
		room[k] = v
	}
	ws.rooms = append(ws.rooms, room)
	return id
}

// RoomCount returns how many rooms the server holds.
func (ws *WardServer) RoomCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.rooms)
}

func (ws *WardServer) handle(w http.ResponseWriter, r *http.Request) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.Requests[r.Method+" "+r.URL.Path]++

	if ws.failing {
		writeEnvelope(w, http.StatusServiceUnavailable, nil, "service unavailable")
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rooms":
		writeEnvelope(w, http.StatusOK, ws.rooms, "")

	case r.Method == http.MethodPost && r.URL.Path == "/rooms":
		var fields map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil, "invalid body")
			return
		}
		if name, _ := fields["name"].(string); name == "" {
			writeEnvelope(w, http.StatusUnprocessableEntity, nil, "name required")
			return
		}
		room := map[string]interface{}{"id": ws.nextID}
		ws.nextID++
		for k, v := range fields {
			room[k] = v
		}
		ws.rooms = append(ws.rooms, room)
		writeEnvelope(w, http.StatusCreated, room, "created")

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/rooms/"):
		id := strings.TrimPrefix(r.URL.Path, "/rooms/")
		var fields map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil, "invalid body")
			return
		}
		for i, room := range ws.rooms {
			if fmt.Sprint(room["id"]) == id {
				for k, v := range fields {
					room[k] = v
				}
				ws.rooms[i] = room
				writeEnvelope(w, http.StatusOK, room, "updated")
				return
			}
		}
		writeEnvelope(w, http.StatusNotFound, nil, "room not found")

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/rooms/"):
		id := strings.TrimPrefix(r.URL.Path, "/rooms/")
		for i, room := range ws.rooms {
			if fmt.Sprint(room["id"]) == id {
				ws.rooms = append(ws.rooms[:i], ws.rooms[i+1:]...)
				writeEnvelope(w, http.StatusOK, nil, "deleted")
				return
			}
		}
		writeEnvelope(w, http.StatusNotFound, nil, "room not found")

	default:
		writeEnvelope(w, http.StatusNotFound, nil, "unknown route")
	}
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]interface{}{}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	_ = json.NewEncoder(w).Encode(body)
}
