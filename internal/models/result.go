package models

import "encoding/json"

// Result is the uniform outcome of a repository operation. Callers do not
// need to distinguish "succeeded online" from "queued offline" except for
// cosmetic messaging: OK covers both, Offline marks the deferred case.
type Result struct {
	OK      bool            `json:"ok"`
	Offline bool            `json:"offline,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OnlineOK wraps a confirmed server response.
func OnlineOK(data json.RawMessage) Result {
	return Result{OK: true, Data: data}
}

// QueuedOK wraps an optimistic local write that will sync later.
func QueuedOK(data json.RawMessage, message string) Result {
	return Result{OK: true, Offline: true, Data: data, Message: message}
}

// Rejected wraps a semantic rejection carrying the server message.
func Rejected(message string) Result {
	return Result{OK: false, Message: message}
}

// ResultData marshals v into a Result data payload, ignoring marshal errors
// for values that are always marshalable (internal document types).
func ResultData(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
