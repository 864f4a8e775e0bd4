package report

import (
	"fmt"
)

// shuffle is the byte reorder the device applies before transmitting.
// The permutation is its own inverse, so one table serves both
// directions.
var shuffle = [Size]int{2, 4, 0, 7, 1, 6, 5, 3}

// magicWord is "Htemp99e" with the nibbles of every byte swapped. It
// is subtracted from each report as the last stage of de-obfuscation.
var magicWord [Size]byte

func init() {
	for i, w := range []byte("Htemp99e") {
		magicWord[i] = w<<4 | w>>4
	}
}

// Cipher reverses the obfuscation applied by the monitor firmware.
// This is not a cryptographic cipher: the scheme is a fixed, publicly
// documented shuffle/XOR/rotate/subtract with no security properties.
//
// The key is the 8-byte block the host sends in the feature report at
// connect time; the reference tools send all zeros, which makes the
// XOR stage a no-op. Decode is a value transformation of
// (raw, state) -> (item, state): in rolling mode the keystream origin
// advances one byte per successfully decoded report, otherwise the
// state resets for every report.
type Cipher struct {
	key     [Size]byte
	offset  int
	rolling bool
}

// NewCipher builds a cipher for the given feature-report key. A nil
// or empty key selects the all-zero key; any other length is
// rejected.
func NewCipher(key []byte, rolling bool) (*Cipher, error) {
	c := &Cipher{rolling: rolling}
	switch len(key) {
	case 0:
	case Size:
		copy(c.key[:], key)
	default:
		return nil, fmt.Errorf("cipher key must be %d bytes, got %d", Size, len(key))
	}
	return c, nil
}

// Key returns the feature-report key the device must be initialised
// with for this cipher to produce valid plaintext.
func (c *Cipher) Key() []byte {
	key := make([]byte, Size)
	copy(key, c.key[:])
	return key
}

// Decode de-obfuscates one raw report and extracts its item.
func (c *Cipher) Decode(raw []byte) (Item, error) {
	if len(raw) != Size {
		return Item{}, ErrInvalidLength
	}

	// Undo the transmit shuffle and the keystream XOR.
	var mixed [Size]byte
	for i, s := range shuffle {
		mixed[i] = raw[s] ^ c.key[(i+c.offset)%Size]
	}

	// Rotate the whole 64-bit word right by 3 bits, then subtract the
	// magic word byte-wise (mod 256).
	var buf [Size]byte
	for i := range buf {
		prev := mixed[(i+Size-1)%Size]
		buf[i] = (mixed[i]>>3 | prev<<5) - magicWord[i]
	}

	item, err := parse(buf)
	if err != nil {
		return Item{}, err
	}
	if c.rolling {
		c.offset = (c.offset + 1) % Size
	}
	return item, nil
}
