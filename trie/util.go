package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const (
	HashLength = common.HashLength
	// KeyNibbles is the path length of a 32 byte trie key.
	KeyNibbles = 2 * HashLength
)

// Hasher is the trie node hash function, keccak256.
var Hasher = func(data ...[]byte) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	for i := 0; i < len(data); i++ {
		hasher.Write(data[i])
	}
	var h common.Hash
	hasher.Sum(h[:0])
	return h
}

// UnpackNibbles splits every byte of key into its high and low nibble.
func UnpackNibbles(key []byte) []byte {
	nibbles := make([]byte, 2*len(key))
	for i, b := range key {
		nibbles[2*i] = b >> 4
		nibbles[2*i+1] = b & 0x0f
	}
	return nibbles
}

// StripSuffix returns full without suffix, or false when suffix does not
// end full.
func StripSuffix(full, suffix []byte) ([]byte, bool) {
	if !bytes.HasSuffix(full, suffix) {
		return nil, false
	}
	return full[:len(full)-len(suffix)], true
}

// compactToNibbles decodes a hex-prefix encoded short node key into its
// nibbles and whether the node is a leaf.
func compactToNibbles(compact []byte) ([]byte, bool, error) {
	if len(compact) == 0 {
		return nil, false, fmt.Errorf("%w: empty compact key", errDecodeInvalid)
	}
	flags := compact[0] >> 4
	if flags > 3 {
		return nil, false, fmt.Errorf("%w: compact key flags %#x", errDecodeInvalid, flags)
	}
	leaf := flags&2 != 0
	nibbles := UnpackNibbles(compact)
	if flags&1 == 1 {
		return nibbles[1:], leaf, nil
	}
	if nibbles[1] != 0 {
		return nil, false, fmt.Errorf("%w: non-zero compact key padding", errDecodeInvalid)
	}
	return nibbles[2:], leaf, nil
}

// hasPrefix reports whether path starts with prefix.
func hasPrefix(path, prefix []byte) bool {
	return len(path) >= len(prefix) && bytes.Equal(path[:len(prefix)], prefix)
}
