// Package crypto derives the key-dependent canonical ordering that sender and
// receiver must agree on before any bits can ride on a permutation.
//
// Each identifier is mapped to a pseudorandom scalar with HMAC-SHA256 under
// the shared key. Sorting identifiers by their scalars yields the canonical
// order: a reference permutation that both sides compute identically from the
// identifier set alone, no matter what order the identifiers arrived in.
// Without the key the scalars, and therefore the reference order, are
// indistinguishable from random.
package crypto
