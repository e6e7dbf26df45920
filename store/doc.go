// Package store persists the engine's session state: the outgoing message
// queue, the incoming bit fragment buffer, and decoded messages.
//
// Persistence exists for crash recovery and inspection only; identifier
// lists and transmit orders are call-scoped and never stored. The SQLite
// implementation is the production store, the in-memory one backs tests.
package store
