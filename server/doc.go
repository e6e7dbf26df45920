// Package server implements the engine service: it accepts inventory
// reorder/observe requests from the carrier network layer, drives the
// encode/decode pipeline, and owns the persisted message queues.
//
// The engine is deliberately forgiving at its boundary. A send request that
// cannot be encoded comes back with the original hash order so the carrier
// protocol never stalls; a receive notification that cannot be decoded is
// dropped after logging. The one exception is a rank outside [0, n!), which
// indicates an internal arithmetic defect and is surfaced as an error rather
// than silently clamped.
package server
