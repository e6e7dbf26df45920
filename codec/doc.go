// Package codec implements the arithmetic core of the ordering channel: the
// bidirectional mapping between secret bit runs and permutations of n
// elements.
//
// The mapping goes through an integer rank in [0, n!). Bit runs are turned
// into ranks with a complete-binary-tree variable-length code that wastes
// less than two bits of capacity regardless of n, and ranks are turned into
// permutations through the factorial number system (Lehmer codes).
//
// All rank arithmetic uses math/big: n! exceeds 64-bit range beyond n = 20,
// and the supported range goes well past that (n up to 64 is validated by
// the test suite; larger n works but has no practical carrier).
//
// Everything in this package is a pure function and safe for concurrent use.
package codec
