package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Word is a 256-bit unsigned value. Unlike uint256.Int it accepts the zero
// padded hex produced by eth_getProof for storage keys.
type Word uint256.Int

// NewWord returns the word holding v.
func NewWord(v uint64) Word {
	return Word(*uint256.NewInt(v))
}

// Int returns the word as *uint256.Int, sharing memory.
func (w *Word) Int() *uint256.Int {
	return (*uint256.Int)(w)
}

// Bytes32 returns the big-endian 32-byte representation.
func (w *Word) Bytes32() [32]byte {
	return w.Int().Bytes32()
}

func (w Word) String() string {
	return w.Int().Hex()
}

// MarshalJSON encodes the word as a 32-byte hex string.
func (w Word) MarshalJSON() ([]byte, error) {
	b := w.Bytes32()
	return json.Marshal(hexutil.Encode(b[:]))
}

// UnmarshalJSON accepts a quoted hex string (padded or not), a quoted
// decimal string or a bare decimal number.
func (w *Word) UnmarshalJSON(input []byte) error {
	s := string(input)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return w.setHex(s[2:])
	}
	if err := w.Int().SetFromDecimal(s); err != nil {
		return fmt.Errorf("invalid word %q: %w", s, err)
	}
	return nil
}

func (w *Word) setHex(s string) error {
	if len(s) == 0 || len(s) > 64 {
		return fmt.Errorf("invalid hex word length %d", len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex word: %w", err)
	}
	w.Int().SetBytes(b)
	return nil
}
