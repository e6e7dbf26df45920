package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/Josh050608/orim-convert/codec"
	"github.com/Josh050608/orim-convert/framing"
	"github.com/Josh050608/orim-convert/protocol"
	"github.com/Josh050608/orim-convert/store"
)

// DefaultDecodeInterval is how often the background decoder attempts
// reassembly of the incoming bit buffer.
const DefaultDecodeInterval = 5 * time.Second

var (
	bitsSentCounter        = metrics.GetOrCreateCounter("orim_bits_sent_total")
	bitsReceivedCounter    = metrics.GetOrCreateCounter("orim_bits_received_total")
	messagesSentCounter    = metrics.GetOrCreateCounter("orim_messages_sent_total")
	messagesDecodedCounter = metrics.GetOrCreateCounter("orim_messages_decoded_total")
	encodeErrorCounter     = metrics.GetOrCreateCounter("orim_encode_errors_total")
	decodeErrorCounter     = metrics.GetOrCreateCounter("orim_decode_errors_total")
)

// Engine wires the codec pipeline to the persisted queues.
type Engine struct {
	key   []byte
	store store.Store
	log   *slog.Logger

	decodeInterval time.Duration

	// Serializes fetch-chunk / encode / advance so concurrent send requests
	// cannot interleave bits from the same message.
	sendMu sync.Mutex
}

// EngineConfig collects the engine's construction parameters.
type EngineConfig struct {
	// Key is the shared PRF key, raw bytes.
	Key []byte

	// Store holds the message queues.
	Store store.Store

	// Log is the structured logger; nil means slog.Default.
	Log *slog.Logger

	// DecodeInterval overrides DefaultDecodeInterval when positive.
	DecodeInterval time.Duration
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if len(cfg.Key) == 0 {
		return nil, fmt.Errorf("engine: shared key is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	interval := cfg.DecodeInterval
	if interval <= 0 {
		interval = DefaultDecodeInterval
	}
	return &Engine{
		key:            cfg.Key,
		store:          cfg.Store,
		log:            log,
		decodeInterval: interval,
	}, nil
}

// HandleRequest routes a carrier request to the matching side of the
// channel.
func (e *Engine) HandleRequest(req *protocol.InvRequest) *protocol.InvResponse {
	switch req.Direction {
	case protocol.DirectionSend:
		return e.handleSend(req)
	case protocol.DirectionReceive:
		return e.handleReceive(req)
	default:
		return &protocol.InvResponse{
			Status: protocol.StatusError,
			Error:  fmt.Sprintf("unknown direction %q", req.Direction),
		}
	}
}

// handleSend reorders an outgoing hash list so it carries the next chunk of
// queued secret bits. With fewer than two hashes, or with an empty queue and
// nothing to hide, the hashes still come back reordered or untouched so the
// carrier sees a normal response either way.
func (e *Engine) handleSend(req *protocol.InvRequest) *protocol.InvResponse {
	n := len(req.Hashes)
	if n < 2 {
		return &protocol.InvResponse{
			Status:          protocol.StatusSuccess,
			ReorderedHashes: req.Hashes,
		}
	}

	capacity, err := codec.Capacity(n)
	if err != nil {
		return e.sendError(req, err)
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	id, chunk, err := e.store.NextChunk(capacity)
	dummy := false
	switch {
	case errors.Is(err, store.ErrNoPending):
		// Keep the traffic shape independent of queue state: encode an
		// all-zero run instead of skipping the reorder.
		chunk = codec.ZeroBits(capacity)
		dummy = true
	case err != nil:
		return e.sendError(req, err)
	}

	reordered, consumed, err := protocol.EncodeOrder(req.Hashes, e.key, chunk)
	if err != nil {
		if errors.Is(err, codec.ErrRankOverflow) {
			// Arithmetic invariant violation: a defect, not an input
			// problem. Log loudly and abort the call.
			e.log.Error("rank invariant violated on encode",
				"peer_id", req.PeerID, "n", n, "err", err)
		}
		return e.sendError(req, err)
	}

	if !dummy {
		done, err := e.store.Advance(id, consumed)
		if err != nil {
			return e.sendError(req, err)
		}
		bitsSentCounter.Add(consumed)
		if done {
			messagesSentCounter.Inc()
			e.log.Info("outgoing message fully sent", "message_id", id)
		}
		e.log.Debug("encoded chunk",
			"peer_id", req.PeerID, "inv_type", req.InvType,
			"n", n, "bits", consumed, "message_id", id)
	}

	return &protocol.InvResponse{
		Status:          protocol.StatusSuccess,
		ReorderedHashes: reordered,
	}
}

func (e *Engine) sendError(req *protocol.InvRequest, err error) *protocol.InvResponse {
	encodeErrorCounter.Inc()
	e.log.Warn("send request failed", "peer_id", req.PeerID, "err", err)
	return &protocol.InvResponse{Status: protocol.StatusError, Error: err.Error()}
}

// handleReceive extracts the bit run hidden in an observed hash order and
// buffers it for the decoder loop. Failures drop the fragment; nothing is
// returned to the carrier beyond an acknowledgement.
func (e *Engine) handleReceive(req *protocol.InvRequest) *protocol.InvResponse {
	n := len(req.Hashes)
	if n < 2 {
		return &protocol.InvResponse{Status: protocol.StatusSuccess}
	}

	bits, err := protocol.DecodeOrder(req.Hashes, e.key)
	if err != nil {
		decodeErrorCounter.Inc()
		e.log.Warn("receive request failed", "peer_id", req.PeerID, "err", err)
		return &protocol.InvResponse{Status: protocol.StatusError, Error: err.Error()}
	}

	if err := e.store.AppendIncoming(req.PeerID, bits); err != nil {
		decodeErrorCounter.Inc()
		e.log.Warn("buffering fragment failed", "peer_id", req.PeerID, "err", err)
		return &protocol.InvResponse{Status: protocol.StatusError, Error: err.Error()}
	}

	bitsReceivedCounter.Add(bits.Len())
	e.log.Debug("extracted fragment",
		"peer_id", req.PeerID, "inv_type", req.InvType, "n", n, "bits", bits.Len())
	return &protocol.InvResponse{Status: protocol.StatusSuccess}
}

// Enqueue adds a secret message to the outgoing queue and returns its id and
// bit length.
func (e *Engine) Enqueue(message string) (int64, int, error) {
	if message == "" {
		return 0, 0, fmt.Errorf("engine: empty message")
	}
	bits := framing.BitsFromBytes([]byte(message))
	id, err := e.store.EnqueueOutgoing(message, bits)
	if err != nil {
		return 0, 0, err
	}
	e.log.Info("queued outgoing message", "message_id", id, "bits", bits.Len())
	return id, bits.Len(), nil
}

// Announce queues a content announcement frame for transmission.
func (e *Engine) Announce(cid string) (int64, int, error) {
	bits, err := framing.PackContentID(cid)
	if err != nil {
		return 0, 0, err
	}
	id, err := e.store.EnqueueOutgoing(cid, bits)
	if err != nil {
		return 0, 0, err
	}
	e.log.Info("queued content announcement", "message_id", id, "cid", cid)
	return id, bits.Len(), nil
}

// TryDecode makes one reassembly pass over the incoming bit buffer. Content
// frames are scanned first because their magic starts with a byte the
// printable heuristic refuses anyway; plain messages are then taken as the
// longest printable prefix. Returns the number of messages recovered.
//
// The printable-prefix delimiter is a known weakness: binary noise or an
// idle-channel padding run landing in front of a message can block or
// truncate it. That ambiguity is inherent to the wire format and is left
// visible instead of being patched around.
func (e *Engine) TryDecode() (int, error) {
	// The snapshot id bounds what a later consume may clear: fragments
	// appended while this pass runs stay buffered for the next one.
	buf, snapshot, err := e.store.IncomingBits()
	if err != nil {
		return 0, err
	}

	decoded := 0
	for {
		if cid, consumed, ok := framing.ScanContentID(buf); ok {
			// Salvage any printable message sitting in front of the frame
			// before the frame (and whatever noise precedes it) goes away.
			msg, _ := framing.AssemblePrintable(buf[:consumed-framing.FrameBits])
			buf = buf[consumed:]
			// Consume before saving so a failed consume cannot re-emit an
			// already saved prefix on the next pass.
			if err := e.store.ConsumeIncoming(snapshot, buf); err != nil {
				return decoded, err
			}
			if msg != "" {
				if _, err := e.store.SaveDecoded(msg); err != nil {
					return decoded, err
				}
				messagesDecodedCounter.Inc()
				decoded++
				e.log.Info("decoded message", "message", msg)
			}
			if _, err := e.store.SaveDecoded(cid); err != nil {
				return decoded, err
			}
			messagesDecodedCounter.Inc()
			decoded++
			e.log.Info("decoded content announcement", "cid", cid)
			continue
		}

		msg, consumed := framing.AssemblePrintable(buf)
		if msg == "" {
			break
		}
		buf = buf[consumed:]
		if err := e.store.ConsumeIncoming(snapshot, buf); err != nil {
			return decoded, err
		}
		if _, err := e.store.SaveDecoded(msg); err != nil {
			return decoded, err
		}
		messagesDecodedCounter.Inc()
		decoded++
		e.log.Info("decoded message", "message", msg)
	}
	return decoded, nil
}

// RunDecoder periodically attempts reassembly until ctx is cancelled.
func (e *Engine) RunDecoder(ctx context.Context) {
	ticker := time.NewTicker(e.decodeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := e.TryDecode(); err != nil {
				e.log.Error("decoder pass failed", "err", err)
			}
		}
	}
}

// Store exposes the engine's store for inspection endpoints.
func (e *Engine) Store() store.Store { return e.store }
