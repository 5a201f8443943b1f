// Package portal defines the Portal Network content keys and values produced
// for one block and their wire encodings.
//
// Keys and values are closed sum types: every variant implements ContentKey
// or ContentValue and no type outside this package can. The byte encodings
// follow the SSZ containers of the history and state network specifications:
// a selector byte followed by the container serialization.
package portal

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/sha256-simd"
)

// Network identifies the Portal sub-network a content item belongs to.
type Network int

const (
	HistoryNetwork Network = iota
	StateNetwork
)

func (n Network) String() string {
	switch n {
	case HistoryNetwork:
		return "history"
	case StateNetwork:
		return "state"
	default:
		return "unknown"
	}
}

// Content key selectors.
const (
	SelectorBlockHeaderWithProof    byte = 0x00
	SelectorAccountTrieNode         byte = 0x20
	SelectorContractStorageTrieNode byte = 0x21
	SelectorContractBytecode        byte = 0x22
)

// Size limits of the variable length SSZ fields.
const (
	MaxHeaderLength      = 2048
	MaxTrieNodeLength    = 1024
	MaxTrieProofLength   = 65
	MaxByteCodeLength    = 32768
	MaxNibblesLength     = 64
	AccumulatorProofSize = 15
)

var (
	// ErrEncoding is returned when a content key or value cannot be
	// serialized or parsed.
	ErrEncoding = errors.New("portal: encoding error")

	ErrUnknownSelector = errors.New("portal: unknown content key selector")
)

// ContentID returns the DHT identifier of a content key, sha256 of its
// encoding.
func ContentID(key ContentKey) common.Hash {
	return common.Hash(sha256.Sum256(key.Encode()))
}
