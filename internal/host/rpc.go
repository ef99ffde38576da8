// Package host speaks the game host's plugin RPC: line-delimited JSON-RPC
// 2.0 messages over the process's standard streams. The host pushes
// lifecycle requests and game notifications down, and the plugin issues
// roster, store, and chat-output calls back up.
package host

import (
	"encoding/json"
	"fmt"
)

const jsonrpcVersion = "2.0"

// Message is a single JSON-RPC payload. A message with a method and an id is
// a request expecting a reply (init/stop); a method without an id is a
// notification; a message without a method is a response to one of our
// calls.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsResponse reports whether the message answers a call we issued.
func (m *Message) IsResponse() bool {
	return m.Method == "" && len(m.ID) > 0
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("host rpc error %d: %s", e.Code, e.Message)
}

// newRequest builds an outgoing call with the given string id.
func newRequest(id, method string, params any) (*Message, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	msg := &Message{JSONRPC: jsonrpcVersion, ID: rawID, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		msg.Params = raw
	}
	return msg, nil
}

// newNotification builds an outgoing fire-and-forget message.
func newNotification(method string, params any) (*Message, error) {
	msg := &Message{JSONRPC: jsonrpcVersion, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		msg.Params = raw
	}
	return msg, nil
}

// newResponse builds a reply to a host-initiated request.
func newResponse(id json.RawMessage, result any) (*Message, error) {
	msg := &Message{JSONRPC: jsonrpcVersion, ID: id}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		msg.Result = raw
	}
	return msg, nil
}
