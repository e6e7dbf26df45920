package codec

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrTooFewElements is returned for n < 2: a single element carries no
	// ordering information.
	ErrTooFewElements = errors.New("codec: need at least 2 elements")

	// ErrRankOverflow reports a rank outside [0, n!). Ranks produced by this
	// package are bounded by construction, so hitting this on an internally
	// computed value is a fatal defect and must not be papered over.
	ErrRankOverflow = errors.New("codec: rank out of range [0, n!)")

	// ErrBadBitString reports a BitString containing bytes other than '0'
	// and '1'.
	ErrBadBitString = errors.New("codec: malformed bit string")
)

var one = big.NewInt(1)

// Factorial returns n! as a big integer. Factorial(0) and Factorial(1) are 1.
func Factorial(n int) *big.Int {
	return new(big.Int).MulRange(1, int64(n))
}

// treeParams holds the derived constants of the complete-binary-tree code for
// a given n.
//
//	N         = n!
//	m         = smallest integer with 2^m >= N
//	threshold = 2N - 2^m   (m-bit values below it take the long code)
//	shortBase = N - 2^(m-1) (rank offset of the short code)
//
// When N is a power of two, threshold equals 2^m and every value takes the
// long code, which collapses the scheme to a plain fixed-width code.
type treeParams struct {
	nFact     *big.Int
	m         int
	threshold *big.Int
	shortBase *big.Int
}

func paramsFor(n int) treeParams {
	nFact := Factorial(n)
	m := new(big.Int).Sub(nFact, one).BitLen()
	if m < 1 {
		m = 1
	}
	pow := new(big.Int).Lsh(one, uint(m))
	threshold := new(big.Int).Lsh(nFact, 1)
	threshold.Sub(threshold, pow)
	shortBase := new(big.Int).Rsh(pow, 1)
	shortBase.Sub(nFact, shortBase)
	return treeParams{nFact: nFact, m: m, threshold: threshold, shortBase: shortBase}
}

// Capacity returns the maximum number of bits a single permutation of n
// elements can carry (the long-code width m).
func Capacity(n int) (int, error) {
	if n < 2 {
		return 0, fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	return paramsFor(n).m, nil
}

// BitsToRank maps the leading bits of a run onto a permutation rank in
// [0, n!) and reports how many real input bits the rank encodes.
//
// With m-bit prefix value v: v below the threshold takes the long code
// (rank = v, m bits consumed); otherwise the short code applies
// (rank = shortBase + v>>1, m-1 bits consumed). Runs shorter than m bits are
// zero-padded before the threshold test; padding is never counted as
// consumed, so consumed can be anywhere in [0, m].
//
// The returned rank is strictly below n! for every input. That bound is
// re-checked before returning and a violation surfaces as ErrRankOverflow
// rather than a truncated rank.
func BitsToRank(bits BitString, n int) (*big.Int, int, error) {
	if n < 2 {
		return nil, 0, fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	p := paramsFor(n)

	padded := padRight(bits, p.m)
	vm, err := bitsValue(padded[:p.m])
	if err != nil {
		return nil, 0, err
	}

	var rank *big.Int
	var width int
	if vm.Cmp(p.threshold) < 0 {
		rank = vm
		width = p.m
	} else {
		// Drop the last bit of the m-bit prefix and offset into the short
		// half of the tree.
		rank = new(big.Int).Add(p.shortBase, vm.Rsh(vm, 1))
		width = p.m - 1
	}

	if rank.Sign() < 0 || rank.Cmp(p.nFact) >= 0 {
		return nil, 0, fmt.Errorf("%w: rank=%v n=%d", ErrRankOverflow, rank, n)
	}

	consumed := width
	if bits.Len() < consumed {
		consumed = bits.Len()
	}
	return rank, consumed, nil
}

// RankToBits is the left inverse of BitsToRank: it recovers the encoded bit
// run from a rank. Ranks below the threshold decode to m bits, the rest to
// m-1 bits.
func RankToBits(rank *big.Int, n int) (BitString, error) {
	if n < 2 {
		return "", fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	p := paramsFor(n)
	if rank.Sign() < 0 || rank.Cmp(p.nFact) >= 0 {
		return "", fmt.Errorf("%w: rank=%v n=%d", ErrRankOverflow, rank, n)
	}

	if rank.Cmp(p.threshold) < 0 {
		return formatBits(rank, p.m), nil
	}
	v := new(big.Int).Sub(rank, p.shortBase)
	return formatBits(v, p.m-1), nil
}
