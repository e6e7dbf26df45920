package server

import (
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Josh050608/orim-convert/codec"
	"github.com/Josh050608/orim-convert/framing"
	"github.com/Josh050608/orim-convert/protocol"
	"github.com/Josh050608/orim-convert/store"
	"github.com/Josh050608/orim-convert/testutil"
)

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(EngineConfig{
		Key:   testutil.Key(),
		Store: store.NewMemoryStore(),
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return e
}

func sendRequest(hashes []string) *protocol.InvRequest {
	return &protocol.InvRequest{
		Direction: protocol.DirectionSend,
		PeerID:    1,
		InvType:   "tx",
		Hashes:    hashes,
	}
}

func receiveRequest(hashes []string) *protocol.InvRequest {
	return &protocol.InvRequest{
		Direction: protocol.DirectionReceive,
		PeerID:    2,
		InvType:   "tx",
		Hashes:    hashes,
	}
}

func sortedCopy(hashes []string) []string {
	out := append([]string(nil), hashes...)
	sort.Strings(out)
	return out
}

// relay pushes rounds of fresh hash batches through sender and receiver
// until the sender's queue is drained.
func relay(t *testing.T, sender, receiver *Engine, batch int) {
	t.Helper()
	for round := 0; ; round++ {
		require.Less(t, round, 50, "queue did not drain")

		msgs, err := sender.Store().OutgoingMessages(100)
		require.NoError(t, err)
		pending := false
		for _, m := range msgs {
			if !m.FullySent {
				pending = true
				break
			}
		}
		if !pending {
			return
		}

		hashes := testutil.Hashes(batch, int64(1000+round))
		resp := sender.HandleRequest(sendRequest(hashes))
		require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Error)
		require.Equal(t, sortedCopy(hashes), sortedCopy(resp.ReorderedHashes))

		resp = receiver.HandleRequest(receiveRequest(resp.ReorderedHashes))
		require.Equal(t, protocol.StatusSuccess, resp.Status, resp.Error)
	}
}

// Full channel round trip: a queued text message crosses via nothing but
// the relative order of small hash batches and is reassembled on the other
// side.
func TestMessageRoundTrip(t *testing.T) {
	sender := newTestEngine(t)
	receiver := newTestEngine(t)

	_, bits, err := sender.Enqueue("Hello")
	require.NoError(t, err)
	require.Equal(t, 40, bits)

	relay(t, sender, receiver, 5)

	decoded, err := receiver.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 1, decoded)

	msgs, err := receiver.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Hello", msgs[0].Message)
}

// A content announcement frame survives the channel and is recognized even
// though its bytes are not printable as a whole.
func TestAnnouncementRoundTrip(t *testing.T) {
	sender := newTestEngine(t)
	receiver := newTestEngine(t)

	_, bits, err := sender.Announce(testCID)
	require.NoError(t, err)
	require.Equal(t, framing.FrameBits, bits)

	relay(t, sender, receiver, 20)

	decoded, err := receiver.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 1, decoded)

	msgs, err := receiver.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, testCID, msgs[0].Message)
}

// An empty queue still reorders: the carrier must not be able to tell an
// idle channel from an active one by whether hashes come back permuted.
func TestSendIdleQueueEncodesDummy(t *testing.T) {
	sender := newTestEngine(t)
	receiver := newTestEngine(t)

	hashes := testutil.Hashes(5, 42)
	resp := sender.HandleRequest(sendRequest(hashes))
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	require.Equal(t, sortedCopy(hashes), sortedCopy(resp.ReorderedHashes))

	resp = receiver.HandleRequest(receiveRequest(resp.ReorderedHashes))
	require.Equal(t, protocol.StatusSuccess, resp.Status)

	buffered, _, err := receiver.Store().IncomingBits()
	require.NoError(t, err)
	require.Equal(t, codec.ZeroBits(7), buffered)

	// And nothing was consumed from the (empty) queue.
	msgs, err := sender.Store().OutgoingMessages(10)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

// Lists too small to reorder pass through untouched.
func TestSendTooFewHashes(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.Enqueue("Hi")
	require.NoError(t, err)

	hashes := testutil.Hashes(1, 43)
	resp := e.HandleRequest(sendRequest(hashes))
	require.Equal(t, protocol.StatusSuccess, resp.Status)
	require.Equal(t, hashes, resp.ReorderedHashes)

	// The queue offset did not move.
	msgs, err := e.Store().OutgoingMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Zero(t, msgs[0].BitsSent)
}

func TestUnknownDirection(t *testing.T) {
	e := newTestEngine(t)
	resp := e.HandleRequest(&protocol.InvRequest{Direction: "sideways"})
	require.Equal(t, protocol.StatusError, resp.Status)
	require.Contains(t, resp.Error, "sideways")
}

func TestReceiveMalformedHashes(t *testing.T) {
	e := newTestEngine(t)
	resp := e.HandleRequest(receiveRequest([]string{"zz", "00"}))
	require.Equal(t, protocol.StatusError, resp.Status)

	buffered, _, err := e.Store().IncomingBits()
	require.NoError(t, err)
	require.Empty(t, string(buffered))
}

// A printable message sitting directly in front of a frame must not be lost
// when the frame is cut out of the buffer.
func TestTryDecodeSalvagesMessageBeforeFrame(t *testing.T) {
	e := newTestEngine(t)

	frame, err := framing.PackContentID(testCID)
	require.NoError(t, err)
	require.NoError(t, e.Store().AppendIncoming(1, framing.BitsFromBytes([]byte("Hi"))+frame))

	decoded, err := e.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 2, decoded)

	msgs, err := e.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, testCID, msgs[0].Message)
	require.Equal(t, "Hi", msgs[1].Message)
}

// Fragments that do not yet form a full printable byte stay buffered for the
// next pass.
func TestTryDecodeKeepsIncompleteFragments(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Store().AppendIncoming(1, "0100"))

	decoded, err := e.TryDecode()
	require.NoError(t, err)
	require.Zero(t, decoded)

	buffered, _, err := e.Store().IncomingBits()
	require.NoError(t, err)
	require.Equal(t, codec.BitString("0100"), buffered)
}

// raceAppendStore injects a fragment right after the decoder snapshots the
// buffer, reproducing a receive landing mid-pass.
type raceAppendStore struct {
	store.Store
	inject codec.BitString
	once   sync.Once
}

func (s *raceAppendStore) IncomingBits() (codec.BitString, int64, error) {
	bits, snapshot, err := s.Store.IncomingBits()
	s.once.Do(func() {
		_ = s.Store.AppendIncoming(9, s.inject)
	})
	return bits, snapshot, err
}

// A fragment received while a decoder pass is running must not be wiped when
// the pass consumes its snapshot.
func TestTryDecodeKeepsFragmentsAppendedDuringPass(t *testing.T) {
	inject := framing.BitsFromBytes([]byte("Yo"))
	st := &raceAppendStore{Store: store.NewMemoryStore(), inject: inject}
	e, err := NewEngine(EngineConfig{
		Key:   testutil.Key(),
		Store: st,
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	require.NoError(t, st.Store.AppendIncoming(1, framing.BitsFromBytes([]byte("Hi"))))

	decoded, err := e.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 1, decoded)

	buffered, _, err := st.Store.IncomingBits()
	require.NoError(t, err)
	require.Equal(t, inject, buffered)

	// The next pass picks the surviving fragment up.
	decoded, err = e.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 1, decoded)

	msgs, err := e.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "Yo", msgs[0].Message)
	require.Equal(t, "Hi", msgs[1].Message)
}

// failingConsumeStore fails the first consume, as a full disk would.
type failingConsumeStore struct {
	store.Store
	failures int
}

func (s *failingConsumeStore) ConsumeIncoming(snapshot int64, remainder codec.BitString) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("disk full")
	}
	return s.Store.ConsumeIncoming(snapshot, remainder)
}

// A consume failure aborts the pass before anything is saved, so retrying
// never emits the same message twice.
func TestTryDecodeConsumeFailureDoesNotDuplicate(t *testing.T) {
	st := &failingConsumeStore{Store: store.NewMemoryStore(), failures: 1}
	e, err := NewEngine(EngineConfig{
		Key:   testutil.Key(),
		Store: st,
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	require.NoError(t, st.Store.AppendIncoming(1, framing.BitsFromBytes([]byte("Hi"))))

	_, err = e.TryDecode()
	require.Error(t, err)

	msgs, err := e.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Empty(t, msgs)

	decoded, err := e.TryDecode()
	require.NoError(t, err)
	require.Equal(t, 1, decoded)

	msgs, err = e.Store().DecodedMessages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "Hi", msgs[0].Message)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(EngineConfig{Store: store.NewMemoryStore()})
	require.Error(t, err)

	_, err = NewEngine(EngineConfig{Key: testutil.Key()})
	require.Error(t, err)
}
