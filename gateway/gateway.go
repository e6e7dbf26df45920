package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/Josh050608/orim-convert/protocol"
)

// State is the gateway's position in its call cycle, exposed for
// diagnostics.
type State int32

const (
	StateIdle State = iota
	StateRequestSent
	StateResponseReceived
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestSent:
		return "request_sent"
	case StateResponseReceived:
		return "response_received"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// DefaultWaitTimeout bounds how long a caller blocks for the channel before
// giving up and falling back.
const DefaultWaitTimeout = 100 * time.Millisecond

// Gateway serializes carrier calls onto the engine channel.
type Gateway struct {
	ch          Channel
	enabled     bool
	waitTimeout time.Duration
	log         *slog.Logger

	// slot is a one-token semaphore: holding the token is holding the
	// channel.
	slot  chan struct{}
	state atomic.Int32
}

// Config holds the gateway's construction parameters.
type Config struct {
	// Channel is the engine channel; required unless Enabled is false.
	Channel Channel

	// Enabled gates the whole channel; a disabled gateway is a pure
	// pass-through.
	Enabled bool

	// WaitTimeout bounds the wait for the channel to free up. Zero means
	// DefaultWaitTimeout.
	WaitTimeout time.Duration

	// Log is the structured logger; nil means slog.Default.
	Log *slog.Logger
}

// New creates a gateway.
func New(cfg Config) *Gateway {
	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		ch:          cfg.Channel,
		enabled:     cfg.Enabled && cfg.Channel != nil,
		waitTimeout: waitTimeout,
		log:         log,
		slot:        make(chan struct{}, 1),
	}
}

// State reports the slot holder's position in its call cycle. Only the
// caller holding the channel token writes it; callers that fall back without
// acquiring the token leave it untouched.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// acquire takes the channel token within the bounded wait. It returns false
// if the channel stayed busy, in which case the caller must fall back.
func (g *Gateway) acquire(ctx context.Context) bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(g.waitTimeout)
	defer timer.Stop()
	select {
	case g.slot <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (g *Gateway) release() {
	<-g.slot
}

// ReorderHashes asks the engine to embed queued secret bits into the order
// of an outgoing hash list. It always returns a usable order: on any
// failure, timeout, or if the engine's answer is not a permutation of the
// input, the caller's original order comes back unchanged.
func (g *Gateway) ReorderHashes(ctx context.Context, peerID int, invType string, hashes []string) []string {
	if !g.enabled || len(hashes) < 2 {
		return hashes
	}

	callID := uuid.NewString()
	if !g.acquire(ctx) {
		g.log.Debug("channel busy, passing order through", "call_id", callID, "peer_id", peerID)
		return hashes
	}
	defer g.release()

	g.state.Store(int32(StateRequestSent))
	defer g.state.Store(int32(StateIdle))

	resp, err := g.ch.Call(ctx, &protocol.InvRequest{
		Direction: protocol.DirectionSend,
		PeerID:    peerID,
		InvType:   invType,
		Hashes:    hashes,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		g.state.Store(int32(StateTimedOut))
		g.log.Debug("engine call failed, passing order through",
			"call_id", callID, "peer_id", peerID, "err", err)
		return hashes
	}
	g.state.Store(int32(StateResponseReceived))

	if resp.Status != protocol.StatusSuccess {
		g.log.Debug("engine refused request, passing order through",
			"call_id", callID, "peer_id", peerID, "engine_err", resp.Error)
		return hashes
	}
	if !samePermutation(hashes, resp.ReorderedHashes) {
		// The engine must never change the identifier set, only its order.
		g.log.Warn("engine response is not a permutation of the input, discarding",
			"call_id", callID, "peer_id", peerID)
		return hashes
	}
	return resp.ReorderedHashes
}

// NotifyReceived reports an observed hash order to the engine so it can
// extract embedded bits. Failures are dropped silently; the carrier has
// nothing useful to do with them.
func (g *Gateway) NotifyReceived(ctx context.Context, peerID int, invType string, hashes []string) {
	if !g.enabled || len(hashes) < 2 {
		return
	}

	callID := uuid.NewString()
	if !g.acquire(ctx) {
		g.log.Debug("channel busy, dropping notification", "call_id", callID, "peer_id", peerID)
		return
	}
	defer g.release()

	g.state.Store(int32(StateRequestSent))
	defer g.state.Store(int32(StateIdle))

	_, err := g.ch.Call(ctx, &protocol.InvRequest{
		Direction: protocol.DirectionReceive,
		PeerID:    peerID,
		InvType:   invType,
		Hashes:    hashes,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		g.state.Store(int32(StateTimedOut))
		g.log.Debug("engine call failed, dropping notification",
			"call_id", callID, "peer_id", peerID, "err", err)
		return
	}
	g.state.Store(int32(StateResponseReceived))
}

// samePermutation reports whether b contains exactly the elements of a,
// counting duplicates.
func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, h := range a {
		counts[h]++
	}
	for _, h := range b {
		counts[h]--
		if counts[h] < 0 {
			return false
		}
	}
	return true
}
