package protocol

import (
	"encoding/json"
	"io"
)

// Direction selects which half of the channel a request drives.
type Direction string

const (
	// DirectionSend asks the engine to reorder an outgoing identifier list.
	DirectionSend Direction = "send"

	// DirectionReceive notifies the engine of an observed identifier list.
	DirectionReceive Direction = "receive"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// InvRequest is the record the carrier network layer submits for every
// inventory announcement it is about to relay or has just observed.
type InvRequest struct {
	Direction Direction `json:"direction"`
	PeerID    int       `json:"peer_id"`
	InvType   string    `json:"inv_type"`
	Hashes    []string  `json:"hashes"`
	Timestamp int64     `json:"timestamp"`
}

// InvResponse is the engine's answer. ReorderedHashes is only set for send
// requests; receive requests are acknowledged with a bare status, the
// extracted bits flow into the persisted incoming queue instead.
type InvResponse struct {
	Status          string   `json:"status"`
	ReorderedHashes []string `json:"reordered_hashes,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// EnqueueRequest submits a new secret message to the outgoing queue.
type EnqueueRequest struct {
	Message string `json:"message"`
}

// EnqueueResponse acknowledges a queued message.
type EnqueueResponse struct {
	ID   int64 `json:"id"`
	Bits int   `json:"bits"`
}

// DecodeMessage deserializes a JSON message from a reader.
func DecodeMessage[T any](r io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(r).Decode(&msg)
	return &msg, err
}

// SerializeMessage serializes a message to JSON bytes.
func SerializeMessage[T any](msg *T) ([]byte, error) {
	return json.Marshal(msg)
}
