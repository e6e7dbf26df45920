// Package protocol defines the wire records exchanged with the carrier
// network layer and the full encode/decode pipeline that turns secret bits
// into identifier orderings and back.
//
// Encode path: bit run -> rank (codec) -> relative permutation (codec) ->
// composed with the canonical order (crypto) -> final transmit order.
// Decode is the exact mirror: the canonical order is recomputed from the
// observed identifiers, the relative permutation recovered against it, and
// the rank turned back into bits.
//
// The identifier set is never changed, only its relative order. To anyone
// without the shared key the transmit order is indistinguishable from a
// uniformly random shuffle.
package protocol
