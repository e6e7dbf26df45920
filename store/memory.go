package store

import (
	"sync"
	"time"

	"github.com/Josh050608/orim-convert/codec"
)

// MemoryStore implements Store without a database, for tests and ephemeral
// runs.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	outgoing []*OutgoingMessage
	incoming []incomingFragment
	decoded  []DecodedMessage
}

type incomingFragment struct {
	id   int64
	bits codec.BitString
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) EnqueueOutgoing(message string, bits codec.BitString) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.outgoing = append(s.outgoing, &OutgoingMessage{
		ID:        id,
		Message:   message,
		Bits:      bits,
		CreatedAt: time.Now(),
	})
	return id, nil
}

func (s *MemoryStore) pending() *OutgoingMessage {
	for _, m := range s.outgoing {
		if !m.FullySent {
			return m
		}
	}
	return nil
}

func (s *MemoryStore) NextChunk(max int) (int64, codec.BitString, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.pending()
	if m == nil {
		return 0, "", ErrNoPending
	}
	end := m.BitsSent + max
	if end > m.Bits.Len() {
		end = m.Bits.Len()
	}
	return m.ID, m.Bits[m.BitsSent:end], nil
}

func (s *MemoryStore) Advance(id int64, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.outgoing {
		if m.ID != id {
			continue
		}
		m.BitsSent += n
		if m.BitsSent >= m.Bits.Len() {
			m.BitsSent = m.Bits.Len()
			m.FullySent = true
			m.CompletedAt = time.Now()
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (s *MemoryStore) AppendIncoming(peerID int, bits codec.BitString) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.incoming = append(s.incoming, incomingFragment{id: id, bits: bits})
	return nil
}

func (s *MemoryStore) IncomingBits() (codec.BitString, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		all      codec.BitString
		snapshot int64
	)
	for _, f := range s.incoming {
		all += f.bits
		snapshot = f.id
	}
	return all, snapshot, nil
}

func (s *MemoryStore) ConsumeIncoming(snapshot int64, remainder codec.BitString) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]incomingFragment, 0, len(s.incoming)+1)
	if len(remainder) > 0 {
		kept = append(kept, incomingFragment{id: snapshot, bits: remainder})
	}
	for _, f := range s.incoming {
		if f.id > snapshot {
			kept = append(kept, f)
		}
	}
	s.incoming = kept
	return nil
}

func (s *MemoryStore) SaveDecoded(message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.decoded = append(s.decoded, DecodedMessage{
		ID:        id,
		Message:   message,
		DecodedAt: time.Now(),
	})
	return id, nil
}

func (s *MemoryStore) DecodedMessages(limit int) ([]DecodedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DecodedMessage, 0, limit)
	for i := len(s.decoded) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.decoded[i])
	}
	return out, nil
}

func (s *MemoryStore) OutgoingMessages(limit int) ([]OutgoingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OutgoingMessage, 0, limit)
	for _, m := range s.outgoing {
		if len(out) == limit {
			break
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
