package framing

import (
	"strings"

	"github.com/Josh050608/orim-convert/codec"
)

// BitsFromBytes serializes bytes to a bit run, most significant bit of each
// byte first.
func BitsFromBytes(data []byte) codec.BitString {
	var sb strings.Builder
	sb.Grow(len(data) * 8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return codec.BitString(sb.String())
}

// BytesFromBits packs complete 8-bit groups back into bytes. Trailing bits
// that do not fill a byte are ignored.
func BytesFromBits(bits codec.BitString) []byte {
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if bits[i+j] == '1' {
				b |= 1
			}
		}
		out = append(out, b)
	}
	return out
}

// printable reports whether b is in the printable ASCII range used as the
// message delimiter heuristic.
func printable(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

// AssemblePrintable scans the accumulated bit buffer from the start and
// extracts the longest printable-ASCII prefix as a message. It returns the
// message and the number of bits it consumed (always a multiple of 8). An
// empty message means no full printable byte was available yet.
func AssemblePrintable(bits codec.BitString) (string, int) {
	raw := BytesFromBits(bits)
	end := 0
	for end < len(raw) && printable(raw[end]) {
		end++
	}
	return string(raw[:end]), end * 8
}
