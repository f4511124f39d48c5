package protocol

import "github.com/jason-s-yu/twentyeight/internal/gameerr"

// Envelope types.
const (
	TypeAck   = "ack"
	TypeEvent = "event"
)

// CodeOK is the result code of a successful acknowledgement.
const CodeOK = "OK"

// Ack answers one inbound frame.
type Ack struct {
	Type  string      `json:"type"`
	ID    string      `json:"id,omitempty"`
	Op    Op          `json:"op,omitempty"`
	OK    bool        `json:"ok"`
	Code  string      `json:"code"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Success acknowledges f with an optional result.
func Success(f Frame, data interface{}) Ack {
	return Ack{Type: TypeAck, ID: f.ID, Op: f.Op, OK: true, Code: CodeOK, Data: data}
}

// Failure acknowledges f with the error's kind and reason. Unclassified errors are reported
// as internal without their details.
func Failure(f Frame, err error) Ack {
	return Ack{
		Type:  TypeAck,
		ID:    f.ID,
		Op:    f.Op,
		Code:  string(gameerr.KindOf(err)),
		Error: gameerr.Reason(err),
	}
}

// Notification is a server-initiated message.
type Notification struct {
	Type  string      `json:"type"`
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Notify wraps an outbound event.
func Notify(event string, data interface{}) Notification {
	return Notification{Type: TypeEvent, Event: event, Data: data}
}
