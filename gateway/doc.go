// Package gateway is the carrier-side entry point to the engine. The carrier
// network layer calls it from one worker goroutine per peer connection; the
// gateway serializes those calls onto the single engine channel, which must
// observe strict request/response alternation.
//
// Every path through the gateway is failure-proof by construction: if the
// channel is busy past the bounded wait, the call times out, or the engine
// answers with anything suspicious, the encode side hands back the original
// identifier order untouched and the receive side drops the notification.
// No error ever propagates into the carrier protocol.
package gateway
