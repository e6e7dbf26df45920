// Package testutil provides deterministic fixtures for testing the ordering
// channel: reproducible hash lists and a fixed shared key, so tests assert
// on stable values instead of regenerating random inputs ad hoc.
package testutil
