package codec

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrBadPermutation reports a slice that is not a permutation of 0..n-1.
var ErrBadPermutation = errors.New("codec: not a permutation of 0..n-1")

// RankToLehmer converts a rank in [0, n!) to its factorial-number-system
// digits. Digit i is the quotient of the running remainder by (n-1-i)!, so it
// always lies in [0, n-i).
func RankToLehmer(rank *big.Int, n int) ([]int, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	if rank.Sign() < 0 || rank.Cmp(Factorial(n)) >= 0 {
		return nil, fmt.Errorf("%w: rank=%v n=%d", ErrRankOverflow, rank, n)
	}

	lehmer := make([]int, n)
	rem := new(big.Int).Set(rank)
	for i := 0; i < n; i++ {
		q, r := new(big.Int).DivMod(rem, Factorial(n-1-i), new(big.Int))
		lehmer[i] = int(q.Int64()) // q < n-i, always fits
		rem = r
	}
	return lehmer, nil
}

// LehmerToRank is the inverse of RankToLehmer: rank = sum L_i * (n-1-i)!.
func LehmerToRank(lehmer []int) (*big.Int, error) {
	n := len(lehmer)
	if n < 2 {
		return nil, fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	rank := new(big.Int)
	for i, d := range lehmer {
		if d < 0 || d >= n-i {
			return nil, fmt.Errorf("%w: digit %d at position %d out of [0, %d)", ErrBadPermutation, d, i, n-i)
		}
		rank.Add(rank, new(big.Int).Mul(big.NewInt(int64(d)), Factorial(n-1-i)))
	}
	return rank, nil
}

// RankToPermutation maps a rank in [0, n!) to the permutation at that
// position in lexicographic order. Digit i of the Lehmer code selects and
// removes an element from the pool of still-unused values.
func RankToPermutation(rank *big.Int, n int) ([]int, error) {
	lehmer, err := RankToLehmer(rank, n)
	if err != nil {
		return nil, err
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	perm := make([]int, 0, n)
	for _, d := range lehmer {
		perm = append(perm, pool[d])
		pool = append(pool[:d], pool[d+1:]...)
	}
	return perm, nil
}

// PermutationToLehmer computes the Lehmer code of a permutation: digit i is
// the number of later entries smaller than entry i (an inversion count).
// Quadratic, which is fine for the n <= 64 this channel operates on.
func PermutationToLehmer(perm []int) ([]int, error) {
	n := len(perm)
	if n < 2 {
		return nil, fmt.Errorf("%w: n=%d", ErrTooFewElements, n)
	}
	seen := make([]bool, n)
	for _, v := range perm {
		if v < 0 || v >= n || seen[v] {
			return nil, fmt.Errorf("%w: value %d", ErrBadPermutation, v)
		}
		seen[v] = true
	}

	lehmer := make([]int, n)
	for i := 0; i < n; i++ {
		count := 0
		for j := i + 1; j < n; j++ {
			if perm[j] < perm[i] {
				count++
			}
		}
		lehmer[i] = count
	}
	return lehmer, nil
}

// PermutationToRank is the exact inverse of RankToPermutation.
func PermutationToRank(perm []int) (*big.Int, error) {
	lehmer, err := PermutationToLehmer(perm)
	if err != nil {
		return nil, err
	}
	return LehmerToRank(lehmer)
}
