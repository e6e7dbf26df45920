package crypto

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyKey is returned when no shared key material is supplied.
	ErrEmptyKey = errors.New("crypto: empty shared key")

	// ErrTooFewIdentifiers is returned for sets of fewer than two
	// identifiers, which admit no reordering.
	ErrTooFewIdentifiers = errors.New("crypto: need at least 2 identifiers")

	// ErrEmptyIdentifier is returned when an identifier token is empty.
	ErrEmptyIdentifier = errors.New("crypto: empty identifier")
)

// ScalarSize is the width of a PRF output in bytes. The full HMAC-SHA256
// output is kept so that sort-order ties between distinct identifiers are
// out of reach in practice.
const ScalarSize = sha256.Size

// Scalar is the keyed pseudorandom value derived from one identifier.
type Scalar [ScalarSize]byte

// Cmp compares two scalars as big-endian unsigned integers.
func (s Scalar) Cmp(o Scalar) int {
	return bytes.Compare(s[:], o[:])
}

// PRF computes the keyed scalar for a single identifier: HMAC-SHA256(key, id).
func PRF(key, identifier []byte) Scalar {
	mac := hmac.New(sha256.New, key)
	mac.Write(identifier)
	var s Scalar
	copy(s[:], mac.Sum(nil))
	return s
}

// CanonicalOrder derives the deterministic reference ordering of a set of
// identifiers under a shared key. The result is the permutation sigma such
// that identifiers[sigma[0]], identifiers[sigma[1]], ... are sorted by their
// PRF scalars ascending.
//
// The output depends only on the identifier set and the key, not on the
// order the identifiers are passed in. Scalar ties cannot realistically
// occur for distinct identifiers; should one happen anyway, the stable sort
// breaks it by original index, keeping the result deterministic.
func CanonicalOrder(identifiers [][]byte, key []byte) ([]int, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	n := len(identifiers)
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewIdentifiers, n)
	}

	scalars := make([]Scalar, n)
	mac := hmac.New(sha256.New, key)
	for i, id := range identifiers {
		if len(id) == 0 {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyIdentifier, i)
		}
		mac.Reset()
		mac.Write(id)
		copy(scalars[i][:], mac.Sum(nil))
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scalars[order[a]].Cmp(scalars[order[b]]) < 0
	})
	return order, nil
}
