package portal

import (
	"fmt"
)

// Nibbles is a trie path, one 4-bit value per element, in its unpacked form.
// On the wire it is packed two nibbles per byte behind a flag byte: 0x00 for
// an even length, 0x1N for an odd length where N is the first nibble.
type Nibbles []byte

// NewNibbles validates and copies an unpacked nibble path.
func NewNibbles(unpacked []byte) (Nibbles, error) {
	if len(unpacked) > MaxNibblesLength {
		return nil, fmt.Errorf("%w: nibble path of length %d", ErrEncoding, len(unpacked))
	}
	for i, nibble := range unpacked {
		if nibble > 0x0f {
			return nil, fmt.Errorf("%w: nibble %d has value %#x", ErrEncoding, i, nibble)
		}
	}
	return append(Nibbles{}, unpacked...), nil
}

// Encode packs the path.
func (n Nibbles) Encode() []byte {
	out := make([]byte, 0, 1+len(n)/2)
	rest := n
	if len(n)%2 == 1 {
		out = append(out, 0x10|n[0])
		rest = n[1:]
	} else {
		out = append(out, 0x00)
	}
	for i := 0; i < len(rest); i += 2 {
		out = append(out, rest[i]<<4|rest[i+1])
	}
	return out
}

// DecodeNibbles unpacks a path produced by Encode.
func DecodeNibbles(data []byte) (Nibbles, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty nibbles", ErrEncoding)
	}
	if 2*(len(data)-1) > MaxNibblesLength {
		return nil, fmt.Errorf("%w: packed nibbles of %d bytes", ErrEncoding, len(data))
	}
	var out Nibbles
	switch flag := data[0] >> 4; flag {
	case 0:
		if data[0]&0x0f != 0 {
			return nil, fmt.Errorf("%w: non-zero padding in even nibbles", ErrEncoding)
		}
		out = make(Nibbles, 0, 2*(len(data)-1))
	case 1:
		out = make(Nibbles, 0, 2*(len(data)-1)+1)
		out = append(out, data[0]&0x0f)
	default:
		return nil, fmt.Errorf("%w: invalid nibbles flag %#x", ErrEncoding, flag)
	}
	for _, b := range data[1:] {
		out = append(out, b>>4, b&0x0f)
	}
	if len(out) > MaxNibblesLength {
		return nil, fmt.Errorf("%w: nibble path of length %d", ErrEncoding, len(out))
	}
	return out, nil
}

func (n Nibbles) String() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, len(n))
	for i, nibble := range n {
		buf[i] = hexDigits[nibble&0x0f]
	}
	return string(buf)
}
