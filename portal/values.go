package portal

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	ssz "github.com/ferranbt/fastssz"
)

// ContentValue is the closed set of content value variants.
type ContentValue interface {
	// Encode returns the wire encoding, or ErrEncoding when a field
	// exceeds its SSZ limit.
	Encode() ([]byte, error)

	contentValue()
}

// TrieProof is an ordered root-first sequence of raw trie nodes.
type TrieProof [][]byte

// PreMergeAccumulatorProof proves a pre-merge header against the epoch
// accumulator.
type PreMergeAccumulatorProof [AccumulatorProofSize]common.Hash

// HeaderWithProof is the value of a BlockHeaderKey. A nil Proof encodes the
// "none" union variant.
type HeaderWithProof struct {
	Header *gethtypes.Header
	Proof  *PreMergeAccumulatorProof
}

// AccountTrieNodeWithProof is the value of an AccountTrieNodeKey: the
// account trie proof up to and including the node.
type AccountTrieNodeWithProof struct {
	Proof     TrieProof
	BlockHash common.Hash
}

// ContractStorageTrieNodeWithProof is the value of a
// ContractStorageTrieNodeKey.
type ContractStorageTrieNodeWithProof struct {
	StorageProof TrieProof
	AccountProof TrieProof
	BlockHash    common.Hash
}

// ContractBytecodeWithProof is the value of a ContractBytecodeKey.
type ContractBytecodeWithProof struct {
	Code         []byte
	AccountProof TrieProof
	BlockHash    common.Hash
}

func (HeaderWithProof) contentValue()                  {}
func (AccountTrieNodeWithProof) contentValue()         {}
func (ContractStorageTrieNodeWithProof) contentValue() {}
func (ContractBytecodeWithProof) contentValue()        {}

const (
	proofSelectorNone        byte = 0x00
	proofSelectorAccumulator byte = 0x01
)

// Validate checks the proof against the SSZ list limits.
func (p TrieProof) Validate() error {
	if len(p) > MaxTrieProofLength {
		return fmt.Errorf("%w: trie proof of %d nodes exceeds %d", ErrEncoding, len(p), MaxTrieProofLength)
	}
	for i, node := range p {
		if len(node) > MaxTrieNodeLength {
			return fmt.Errorf("%w: trie node %d of %d bytes exceeds %d", ErrEncoding, i, len(node), MaxTrieNodeLength)
		}
	}
	return nil
}

func (p TrieProof) encodeTo(dst []byte) []byte {
	return encodeByteList(dst, p)
}

func (p TrieProof) size() int {
	n := offsetSize * len(p)
	for _, node := range p {
		n += len(node)
	}
	return n
}

func decodeTrieProof(buf []byte) (TrieProof, error) {
	nodes, err := decodeByteList(buf, MaxTrieProofLength, MaxTrieNodeLength)
	if err != nil {
		return nil, err
	}
	return TrieProof(nodes), nil
}

// Equal reports whether both proofs hold the same nodes.
func (p TrieProof) Equal(other TrieProof) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if !bytes.Equal(p[i], other[i]) {
			return false
		}
	}
	return true
}

// Encode: offset(header) || offset(proof) || rlp(header) || proof union
func (v HeaderWithProof) Encode() ([]byte, error) {
	if v.Header == nil {
		return nil, fmt.Errorf("%w: nil header", ErrEncoding)
	}
	header, err := rlp.EncodeToBytes(v.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if len(header) > MaxHeaderLength {
		return nil, fmt.Errorf("%w: header of %d bytes exceeds %d", ErrEncoding, len(header), MaxHeaderLength)
	}
	const fixed = 2 * offsetSize
	out := make([]byte, 0, fixed+len(header)+1+AccumulatorProofSize*hashSize)
	out = ssz.WriteOffset(out, fixed)
	out = ssz.WriteOffset(out, fixed+len(header))
	out = append(out, header...)
	if v.Proof == nil {
		return append(out, proofSelectorNone), nil
	}
	out = append(out, proofSelectorAccumulator)
	for _, h := range v.Proof {
		out = append(out, h[:]...)
	}
	return out, nil
}

// Encode: offset(proof) || block_hash || proof
func (v AccountTrieNodeWithProof) Encode() ([]byte, error) {
	if err := v.Proof.Validate(); err != nil {
		return nil, err
	}
	const fixed = offsetSize + hashSize
	out := make([]byte, 0, fixed+v.Proof.size())
	out = ssz.WriteOffset(out, fixed)
	out = append(out, v.BlockHash[:]...)
	return v.Proof.encodeTo(out), nil
}

// Encode: offset(storage_proof) || offset(account_proof) || block_hash ||
// storage_proof || account_proof
func (v ContractStorageTrieNodeWithProof) Encode() ([]byte, error) {
	if err := v.StorageProof.Validate(); err != nil {
		return nil, fmt.Errorf("storage proof: %w", err)
	}
	if err := v.AccountProof.Validate(); err != nil {
		return nil, fmt.Errorf("account proof: %w", err)
	}
	const fixed = 2*offsetSize + hashSize
	storageSize := v.StorageProof.size()
	out := make([]byte, 0, fixed+storageSize+v.AccountProof.size())
	out = ssz.WriteOffset(out, fixed)
	out = ssz.WriteOffset(out, fixed+storageSize)
	out = append(out, v.BlockHash[:]...)
	out = v.StorageProof.encodeTo(out)
	return v.AccountProof.encodeTo(out), nil
}

// Encode: offset(code) || offset(account_proof) || block_hash || code ||
// account_proof
func (v ContractBytecodeWithProof) Encode() ([]byte, error) {
	if len(v.Code) > MaxByteCodeLength {
		return nil, fmt.Errorf("%w: bytecode of %d bytes exceeds %d", ErrEncoding, len(v.Code), MaxByteCodeLength)
	}
	if err := v.AccountProof.Validate(); err != nil {
		return nil, fmt.Errorf("account proof: %w", err)
	}
	const fixed = 2*offsetSize + hashSize
	out := make([]byte, 0, fixed+len(v.Code)+v.AccountProof.size())
	out = ssz.WriteOffset(out, fixed)
	out = ssz.WriteOffset(out, fixed+len(v.Code))
	out = append(out, v.BlockHash[:]...)
	out = append(out, v.Code...)
	return v.AccountProof.encodeTo(out), nil
}

// DecodeValue parses the encoded value that belongs to key.
func DecodeValue(key ContentKey, data []byte) (ContentValue, error) {
	switch key.(type) {
	case BlockHeaderKey:
		return decodeHeaderWithProof(data)
	case AccountTrieNodeKey:
		return decodeAccountTrieNodeWithProof(data)
	case ContractStorageTrieNodeKey:
		return decodeContractStorageTrieNodeWithProof(data)
	case ContractBytecodeKey:
		return decodeContractBytecodeWithProof(data)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownSelector, key)
	}
}

func decodeHeaderWithProof(data []byte) (HeaderWithProof, error) {
	const fixed = 2 * offsetSize
	offsets, err := readOffsets(data, []int{0, offsetSize}, fixed)
	if err != nil {
		return HeaderWithProof{}, err
	}
	rawHeader, rawProof := data[offsets[0]:offsets[1]], data[offsets[1]:]
	if len(rawHeader) > MaxHeaderLength {
		return HeaderWithProof{}, fmt.Errorf("%w: header of %d bytes exceeds %d", ErrEncoding, len(rawHeader), MaxHeaderLength)
	}
	header := new(gethtypes.Header)
	if err := rlp.DecodeBytes(rawHeader, header); err != nil {
		return HeaderWithProof{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if len(rawProof) == 0 {
		return HeaderWithProof{}, fmt.Errorf("%w: missing header proof selector", ErrEncoding)
	}
	switch rawProof[0] {
	case proofSelectorNone:
		if len(rawProof) != 1 {
			return HeaderWithProof{}, fmt.Errorf("%w: trailing bytes after none proof", ErrEncoding)
		}
		return HeaderWithProof{Header: header}, nil
	case proofSelectorAccumulator:
		if len(rawProof) != 1+AccumulatorProofSize*hashSize {
			return HeaderWithProof{}, fmt.Errorf("%w: %w", ErrEncoding, ssz.ErrVectorLength)
		}
		proof := new(PreMergeAccumulatorProof)
		for i := range proof {
			proof[i] = common.BytesToHash(rawProof[1+i*hashSize : 1+(i+1)*hashSize])
		}
		return HeaderWithProof{Header: header, Proof: proof}, nil
	default:
		return HeaderWithProof{}, fmt.Errorf("%w: unknown header proof selector %#x", ErrEncoding, rawProof[0])
	}
}

func decodeAccountTrieNodeWithProof(data []byte) (AccountTrieNodeWithProof, error) {
	const fixed = offsetSize + hashSize
	offsets, err := readOffsets(data, []int{0}, fixed)
	if err != nil {
		return AccountTrieNodeWithProof{}, err
	}
	proof, err := decodeTrieProof(data[offsets[0]:])
	if err != nil {
		return AccountTrieNodeWithProof{}, err
	}
	return AccountTrieNodeWithProof{
		Proof:     proof,
		BlockHash: common.BytesToHash(data[offsetSize:fixed]),
	}, nil
}

func decodeContractStorageTrieNodeWithProof(data []byte) (ContractStorageTrieNodeWithProof, error) {
	const fixed = 2*offsetSize + hashSize
	offsets, err := readOffsets(data, []int{0, offsetSize}, fixed)
	if err != nil {
		return ContractStorageTrieNodeWithProof{}, err
	}
	storageProof, err := decodeTrieProof(data[offsets[0]:offsets[1]])
	if err != nil {
		return ContractStorageTrieNodeWithProof{}, fmt.Errorf("storage proof: %w", err)
	}
	accountProof, err := decodeTrieProof(data[offsets[1]:])
	if err != nil {
		return ContractStorageTrieNodeWithProof{}, fmt.Errorf("account proof: %w", err)
	}
	return ContractStorageTrieNodeWithProof{
		StorageProof: storageProof,
		AccountProof: accountProof,
		BlockHash:    common.BytesToHash(data[2*offsetSize : fixed]),
	}, nil
}

func decodeContractBytecodeWithProof(data []byte) (ContractBytecodeWithProof, error) {
	const fixed = 2*offsetSize + hashSize
	offsets, err := readOffsets(data, []int{0, offsetSize}, fixed)
	if err != nil {
		return ContractBytecodeWithProof{}, err
	}
	code := data[offsets[0]:offsets[1]]
	if len(code) > MaxByteCodeLength {
		return ContractBytecodeWithProof{}, fmt.Errorf("%w: bytecode of %d bytes exceeds %d", ErrEncoding, len(code), MaxByteCodeLength)
	}
	accountProof, err := decodeTrieProof(data[offsets[1]:])
	if err != nil {
		return ContractBytecodeWithProof{}, fmt.Errorf("account proof: %w", err)
	}
	return ContractBytecodeWithProof{
		Code:         append([]byte{}, code...),
		AccountProof: accountProof,
		BlockHash:    common.BytesToHash(data[2*offsetSize : fixed]),
	}, nil
}
