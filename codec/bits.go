package codec

import (
	"fmt"
	"math/big"
	"strings"
)

// BitString is a run of bits represented as a string of '0' and '1'
// characters, most significant bit first. The representation matches what the
// persisted queues store, which keeps bit runs directly inspectable.
type BitString string

// Len returns the number of bits in the run.
func (b BitString) Len() int { return len(b) }

// ZeroBits returns a run of n zero bits.
func ZeroBits(n int) BitString {
	return BitString(strings.Repeat("0", n))
}

// bitsValue interprets b as a big-endian binary integer. An empty run is
// zero.
func bitsValue(b BitString) (*big.Int, error) {
	v := new(big.Int)
	for i := 0; i < len(b); i++ {
		v.Lsh(v, 1)
		switch b[i] {
		case '1':
			v.SetBit(v, 0, 1)
		case '0':
		default:
			return nil, fmt.Errorf("%w: byte %q at offset %d", ErrBadBitString, b[i], i)
		}
	}
	return v, nil
}

// formatBits renders v as exactly width bits. v must fit in width bits.
func formatBits(v *big.Int, width int) BitString {
	if width == 0 {
		return ""
	}
	s := v.Text(2)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return BitString(s)
}

// padRight extends b with zero bits up to width.
func padRight(b BitString, width int) BitString {
	if len(b) >= width {
		return b
	}
	return b + ZeroBits(width-len(b))
}
