package portal

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ssz "github.com/ferranbt/fastssz"
)

// ContentKey is the closed set of content key variants.
type ContentKey interface {
	// Network the content is gossiped on.
	Network() Network
	// Selector is the leading byte of the encoding.
	Selector() byte
	// Encode returns the injective byte encoding of the key.
	Encode() []byte

	contentKey()
}

// BlockHeaderKey addresses a block header with its proof, history network.
type BlockHeaderKey struct {
	BlockHash common.Hash
}

// AccountTrieNodeKey addresses a node of the account trie.
type AccountTrieNodeKey struct {
	Path     Nibbles
	NodeHash common.Hash
}

// ContractStorageTrieNodeKey addresses a node of a contract storage trie.
type ContractStorageTrieNodeKey struct {
	AddressHash common.Hash
	Path        Nibbles
	NodeHash    common.Hash
}

// ContractBytecodeKey addresses contract bytecode.
type ContractBytecodeKey struct {
	AddressHash common.Hash
	CodeHash    common.Hash
}

func (BlockHeaderKey) contentKey()             {}
func (AccountTrieNodeKey) contentKey()         {}
func (ContractStorageTrieNodeKey) contentKey() {}
func (ContractBytecodeKey) contentKey()        {}

func (BlockHeaderKey) Network() Network             { return HistoryNetwork }
func (AccountTrieNodeKey) Network() Network         { return StateNetwork }
func (ContractStorageTrieNodeKey) Network() Network { return StateNetwork }
func (ContractBytecodeKey) Network() Network        { return StateNetwork }

func (BlockHeaderKey) Selector() byte             { return SelectorBlockHeaderWithProof }
func (AccountTrieNodeKey) Selector() byte         { return SelectorAccountTrieNode }
func (ContractStorageTrieNodeKey) Selector() byte { return SelectorContractStorageTrieNode }
func (ContractBytecodeKey) Selector() byte        { return SelectorContractBytecode }

// Encode: selector || block_hash
func (k BlockHeaderKey) Encode() []byte {
	out := make([]byte, 0, 1+hashSize)
	out = append(out, k.Selector())
	return append(out, k.BlockHash[:]...)
}

// Encode: selector || offset(path) || node_hash || path
func (k AccountTrieNodeKey) Encode() []byte {
	path := k.Path.Encode()
	out := make([]byte, 0, 1+offsetSize+hashSize+len(path))
	out = append(out, k.Selector())
	out = ssz.WriteOffset(out, offsetSize+hashSize)
	out = append(out, k.NodeHash[:]...)
	return append(out, path...)
}

// Encode: selector || address_hash || offset(path) || node_hash || path
func (k ContractStorageTrieNodeKey) Encode() []byte {
	path := k.Path.Encode()
	out := make([]byte, 0, 1+2*hashSize+offsetSize+len(path))
	out = append(out, k.Selector())
	out = append(out, k.AddressHash[:]...)
	out = ssz.WriteOffset(out, 2*hashSize+offsetSize)
	out = append(out, k.NodeHash[:]...)
	return append(out, path...)
}

// Encode: selector || address_hash || code_hash
func (k ContractBytecodeKey) Encode() []byte {
	out := make([]byte, 0, 1+2*hashSize)
	out = append(out, k.Selector())
	out = append(out, k.AddressHash[:]...)
	return append(out, k.CodeHash[:]...)
}

func (k BlockHeaderKey) String() string {
	return fmt.Sprintf("BlockHeader{hash: %s}", k.BlockHash.TerminalString())
}

func (k AccountTrieNodeKey) String() string {
	return fmt.Sprintf("AccountTrieNode{path: %q, node: %s}", k.Path, k.NodeHash.TerminalString())
}

func (k ContractStorageTrieNodeKey) String() string {
	return fmt.Sprintf("ContractStorageTrieNode{address: %s, path: %q, node: %s}",
		k.AddressHash.TerminalString(), k.Path, k.NodeHash.TerminalString())
}

func (k ContractBytecodeKey) String() string {
	return fmt.Sprintf("ContractBytecode{address: %s, code: %s}",
		k.AddressHash.TerminalString(), k.CodeHash.TerminalString())
}

// DecodeKey parses an encoded content key of either network.
func DecodeKey(data []byte) (ContentKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content key", ErrEncoding)
	}
	body := data[1:]
	switch data[0] {
	case SelectorBlockHeaderWithProof:
		if len(body) != hashSize {
			return nil, fmt.Errorf("%w: block header key of %d bytes", ErrEncoding, len(body))
		}
		return BlockHeaderKey{BlockHash: common.BytesToHash(body)}, nil

	case SelectorAccountTrieNode:
		const fixed = offsetSize + hashSize
		offsets, err := readOffsets(body, []int{0}, fixed)
		if err != nil {
			return nil, err
		}
		path, err := DecodeNibbles(body[offsets[0]:])
		if err != nil {
			return nil, err
		}
		return AccountTrieNodeKey{
			Path:     path,
			NodeHash: common.BytesToHash(body[offsetSize:fixed]),
		}, nil

	case SelectorContractStorageTrieNode:
		const fixed = 2*hashSize + offsetSize
		offsets, err := readOffsets(body, []int{hashSize}, fixed)
		if err != nil {
			return nil, err
		}
		path, err := DecodeNibbles(body[offsets[0]:])
		if err != nil {
			return nil, err
		}
		return ContractStorageTrieNodeKey{
			AddressHash: common.BytesToHash(body[:hashSize]),
			Path:        path,
			NodeHash:    common.BytesToHash(body[hashSize+offsetSize : fixed]),
		}, nil

	case SelectorContractBytecode:
		if len(body) != 2*hashSize {
			return nil, fmt.Errorf("%w: bytecode key of %d bytes", ErrEncoding, len(body))
		}
		return ContractBytecodeKey{
			AddressHash: common.BytesToHash(body[:hashSize]),
			CodeHash:    common.BytesToHash(body[hashSize:]),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownSelector, data[0])
	}
}
