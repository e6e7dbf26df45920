package protocol

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Josh050608/orim-convert/codec"
	"github.com/Josh050608/orim-convert/crypto"
)

// ErrMalformedHash reports an identifier that is not a non-empty hex string.
var ErrMalformedHash = errors.New("protocol: malformed identifier hash")

func parseHashes(hashes []string) ([][]byte, error) {
	ids := make([][]byte, len(hashes))
	for i, h := range hashes {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrMalformedHash, i, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: index %d is empty", ErrMalformedHash, i)
		}
		ids[i] = raw
	}
	return ids, nil
}

// EncodeOrder embeds the leading bits of a run into the relative order of a
// hash list. It returns the reordered list and the number of real input bits
// the new order carries. The returned list is always a permutation of the
// input; only relative order changes.
func EncodeOrder(hashes []string, key []byte, bits codec.BitString) ([]string, int, error) {
	ids, err := parseHashes(hashes)
	if err != nil {
		return nil, 0, err
	}
	n := len(ids)

	canonical, err := crypto.CanonicalOrder(ids, key)
	if err != nil {
		return nil, 0, err
	}

	rank, consumed, err := codec.BitsToRank(bits, n)
	if err != nil {
		return nil, 0, err
	}
	relative, err := codec.RankToPermutation(rank, n)
	if err != nil {
		return nil, 0, err
	}

	// Final[i] = canonical[relative[i]], then back to the caller's hashes.
	out := make([]string, n)
	for i, r := range relative {
		out[i] = hashes[canonical[r]]
	}
	return out, consumed, nil
}

// DecodeOrder recovers the embedded bit run from an observed hash list. The
// canonical order is recomputed from the observed set, which matches the
// sender's because CanonicalOrder does not depend on input order; the
// relative permutation is then the canonical position of each observed
// element.
func DecodeOrder(hashes []string, key []byte) (codec.BitString, error) {
	ids, err := parseHashes(hashes)
	if err != nil {
		return "", err
	}
	n := len(ids)

	canonical, err := crypto.CanonicalOrder(ids, key)
	if err != nil {
		return "", err
	}

	// relative[i] = canonical-rank of the element observed at position i.
	relative := make([]int, n)
	for pos, idx := range canonical {
		relative[idx] = pos
	}

	rank, err := codec.PermutationToRank(relative)
	if err != nil {
		return "", err
	}
	return codec.RankToBits(rank, n)
}
