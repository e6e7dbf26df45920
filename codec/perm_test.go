package codec

import (
	"fmt"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// Worked end-to-end example for n=3: the run "101" pads to "101" (m=3),
// value 5 is at or above the threshold 4, so the short code applies:
// rank = 2 + 5>>1 = 4, Lehmer [2,0,0], permutation [2,0,1].
func TestThreeElementExample(t *testing.T) {
	rank, consumed, err := BitsToRank("101", 3)
	require.NoError(t, err)
	require.Equal(t, int64(4), rank.Int64())
	require.Equal(t, 2, consumed)

	lehmer, err := RankToLehmer(rank, 3)
	require.NoError(t, err)
	require.Equal(t, []int{2, 0, 0}, lehmer)

	perm, err := RankToPermutation(rank, 3)
	require.NoError(t, err)
	require.Equal(t, []int{2, 0, 1}, perm)

	back, err := PermutationToRank(perm)
	require.NoError(t, err)
	require.Equal(t, int64(4), back.Int64())
}

// Every rank in [0, n!) must map to a distinct permutation and back.
func TestRankPermutationBijection(t *testing.T) {
	for n := 2; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			nFact := Factorial(n).Int64()
			seen := make(map[string]bool, nFact)

			for r := int64(0); r < nFact; r++ {
				rank := big.NewInt(r)
				perm, err := RankToPermutation(rank, n)
				require.NoError(t, err)
				require.Len(t, perm, n)

				key := fmt.Sprint(perm)
				require.False(t, seen[key], "duplicate permutation %v at rank %d", perm, r)
				seen[key] = true

				back, err := PermutationToRank(perm)
				require.NoError(t, err)
				require.Zero(t, back.Cmp(rank))
			}
			require.Len(t, seen, int(nFact))
		})
	}
}

// Lexicographic order: rank 0 is the identity, rank n!-1 is the full
// reversal. Holds for n where ranks exceed 64 bits too.
func TestRankExtremes(t *testing.T) {
	for _, n := range []int{4, 21, 60} {
		perm, err := RankToPermutation(new(big.Int), n)
		require.NoError(t, err)
		for i, v := range perm {
			require.Equal(t, i, v)
		}

		last := new(big.Int).Sub(Factorial(n), big.NewInt(1))
		perm, err = RankToPermutation(last, n)
		require.NoError(t, err)
		for i, v := range perm {
			require.Equal(t, n-1-i, v)
		}

		back, err := PermutationToRank(perm)
		require.NoError(t, err)
		require.Zero(t, back.Cmp(last))
	}
}

// Ranks past 20! do not fit in 64 bits; the round trip must still be exact.
func TestLargeRankRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{21, 25, 40, 64} {
		nFact := Factorial(n)
		for trial := 0; trial < 20; trial++ {
			rank := new(big.Int).Rand(rng, nFact)

			perm, err := RankToPermutation(rank, n)
			require.NoError(t, err)

			back, err := PermutationToRank(perm)
			require.NoError(t, err)
			require.Zero(t, back.Cmp(rank), "n=%d rank=%v back=%v", n, rank, back)
		}
	}
}

func TestLehmerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, n := range []int{2, 5, 12, 30} {
		nFact := Factorial(n)
		for trial := 0; trial < 10; trial++ {
			rank := new(big.Int).Rand(rng, nFact)

			lehmer, err := RankToLehmer(rank, n)
			require.NoError(t, err)
			require.Len(t, lehmer, n)
			for i, d := range lehmer {
				require.GreaterOrEqual(t, d, 0)
				require.Less(t, d, n-i)
			}

			back, err := LehmerToRank(lehmer)
			require.NoError(t, err)
			require.Zero(t, back.Cmp(rank))
		}
	}
}

func TestRejectsBadInput(t *testing.T) {
	_, err := RankToLehmer(Factorial(4), 4)
	require.ErrorIs(t, err, ErrRankOverflow)

	_, err = RankToLehmer(big.NewInt(0), 1)
	require.ErrorIs(t, err, ErrTooFewElements)

	_, err = RankToPermutation(big.NewInt(-1), 4)
	require.ErrorIs(t, err, ErrRankOverflow)

	_, err = PermutationToRank([]int{0, 0, 1})
	require.ErrorIs(t, err, ErrBadPermutation)

	_, err = PermutationToRank([]int{0, 2})
	require.ErrorIs(t, err, ErrBadPermutation)

	_, err = PermutationToRank([]int{1, 2, 3})
	require.ErrorIs(t, err, ErrBadPermutation)

	_, err = PermutationToRank([]int{0})
	require.ErrorIs(t, err, ErrTooFewElements)

	_, err = LehmerToRank([]int{0, 2})
	require.ErrorIs(t, err, ErrBadPermutation)
}
