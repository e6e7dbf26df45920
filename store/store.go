package store

import (
	"errors"
	"time"

	"github.com/Josh050608/orim-convert/codec"
)

// ErrNoPending is returned by NextChunk when the outgoing queue is empty.
var ErrNoPending = errors.New("store: no pending outgoing message")

// OutgoingMessage is one queued secret message. Bits are consumed front to
// back across many encode calls; BitsSent tracks the offset of the first
// unsent bit.
type OutgoingMessage struct {
	ID          int64
	Message     string
	Bits        codec.BitString
	BitsSent    int
	FullySent   bool
	CreatedAt   time.Time
	CompletedAt time.Time
}

// DecodedMessage is a reassembled message recovered from the channel.
type DecodedMessage struct {
	ID        int64
	Message   string
	DecodedAt time.Time
}

// Store is the persistence boundary of the engine. Implementations must be
// safe for concurrent use; the engine additionally serializes the
// fetch-then-advance sequence on the send path itself.
type Store interface {
	// EnqueueOutgoing appends a message and its bit serialization to the
	// send queue.
	EnqueueOutgoing(message string, bits codec.BitString) (int64, error)

	// NextChunk returns up to max unsent bits of the oldest incomplete
	// outgoing message, or ErrNoPending.
	NextChunk(max int) (id int64, chunk codec.BitString, err error)

	// Advance moves the send offset of a message forward by n bits and
	// reports whether the message is now fully sent.
	Advance(id int64, n int) (done bool, err error)

	// AppendIncoming records a decoded bit fragment in arrival order.
	AppendIncoming(peerID int, bits codec.BitString) error

	// IncomingBits returns the concatenation of all buffered fragments in
	// arrival order, plus a snapshot id covering exactly those fragments.
	// Fragments appended after the snapshot are not included.
	IncomingBits() (bits codec.BitString, snapshot int64, err error)

	// ConsumeIncoming atomically replaces the fragments covered by the
	// snapshot with the given unconsumed remainder. Fragments appended
	// after the snapshot stay buffered behind the remainder.
	ConsumeIncoming(snapshot int64, remainder codec.BitString) error

	// SaveDecoded records a reassembled message.
	SaveDecoded(message string) (int64, error)

	// DecodedMessages lists reassembled messages, newest first.
	DecodedMessages(limit int) ([]DecodedMessage, error)

	// OutgoingMessages lists queued messages, oldest first.
	OutgoingMessages(limit int) ([]OutgoingMessage, error)

	Close() error
}
