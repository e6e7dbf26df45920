package testutil

import (
	"encoding/hex"
	"math/rand"
)

// Key returns a fixed shared key for tests.
func Key() []byte {
	return []byte("test_shared_key_0123456789abcdef")
}

// OtherKey returns a second, different key for wrong-key scenarios.
func OtherKey() []byte {
	return []byte("another_key_entirely_fedcba98765")
}

// Hashes returns n distinct 32-byte hex hashes drawn from a deterministic
// stream seeded with seed.
func Hashes(n int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	out := make([]string, n)
	for i := range out {
		raw := make([]byte, 32)
		rng.Read(raw)
		out[i] = hex.EncodeToString(raw)
	}
	return out
}

// Shuffled returns a copy of hashes in an order drawn from seed.
func Shuffled(hashes []string, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	out := append([]string(nil), hashes...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Bits returns a deterministic pseudorandom bit string of the given length.
func Bits(length int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	out := make([]byte, length)
	for i := range out {
		if rng.Intn(2) == 1 {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return string(out)
}
