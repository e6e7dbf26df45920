package framing

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/Josh050608/orim-convert/codec"
)

// Content announcement frame layout, in bits:
//
//	magic (16) | content ID (46 bytes * 8) | crc (8)
//
// The magic 0x00FF cannot occur inside a base58 content ID, which keeps the
// frame transparent to the printable-message heuristic: the leading zero
// byte stops it right before the frame.
const (
	// ContentIDLength is the length of a base58 CIDv0 content identifier.
	ContentIDLength = 46

	// FrameBits is the total size of a packed announcement frame.
	FrameBits = 16 + ContentIDLength*8 + 8

	frameMagic     = 0x00ff
	frameMagicBits = "0000000011111111"
)

// ErrBadContentID reports a string that is not a plausible CIDv0.
var ErrBadContentID = errors.New("framing: malformed content identifier")

func frameCRC(payload []byte) byte {
	return byte(crc32.ChecksumIEEE(payload) & 0xff)
}

// PackContentID packs a content identifier into an announcement frame.
func PackContentID(cid string) (codec.BitString, error) {
	if len(cid) != ContentIDLength {
		return "", fmt.Errorf("%w: length %d, want %d", ErrBadContentID, len(cid), ContentIDLength)
	}
	if !strings.HasPrefix(cid, "Qm") {
		return "", fmt.Errorf("%w: missing Qm prefix", ErrBadContentID)
	}

	payload := []byte(cid)
	frame := make([]byte, 0, 2+ContentIDLength+1)
	frame = append(frame, frameMagic>>8, frameMagic&0xff)
	frame = append(frame, payload...)
	frame = append(frame, frameCRC(payload))
	return BitsFromBytes(frame), nil
}

// ScanContentID slides bit by bit over the buffer looking for an
// announcement frame. Byte alignment is not assumed: the codec emits
// variable-length runs, so a frame can start at any bit offset. On a match
// whose checksum verifies, it returns the content ID and the number of bits
// consumed, which includes any noise bits preceding the frame.
func ScanContentID(bits codec.BitString) (cid string, consumed int, ok bool) {
	if len(bits) < FrameBits {
		return "", 0, false
	}
	limit := len(bits) - FrameBits
	for i := 0; i <= limit; i++ {
		if string(bits[i:i+16]) != frameMagicBits {
			continue
		}
		payload := BytesFromBits(bits[i+16 : i+16+ContentIDLength*8])
		crc := BytesFromBits(bits[i+16+ContentIDLength*8 : i+FrameBits])
		if len(crc) != 1 || crc[0] != frameCRC(payload) {
			continue
		}
		id := string(payload)
		if !strings.HasPrefix(id, "Qm") {
			continue
		}
		return id, i + FrameBits, true
	}
	return "", 0, false
}
