package trie

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/stretchr/testify/require"

	"github.com/morph-dev/portal-state-network-utils/portal"
)

// compact is the hex-prefix encoding of a short node key.
func compact(nibbles []byte, leaf bool) []byte {
	flags := byte(0)
	if leaf {
		flags = 2
	}
	out := make([]byte, 0, len(nibbles)/2+1)
	if len(nibbles)%2 == 1 {
		out = append(out, (flags|1)<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, flags<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func mustEncode(t *testing.T, v interface{}) []byte {
	t.Helper()
	enc, err := rlp.EncodeToBytes(v)
	require.NoError(t, err)
	return enc
}

func leafNode(t *testing.T, key []byte, value []byte) []byte {
	return mustEncode(t, []interface{}{compact(key, true), value})
}

func extensionNode(t *testing.T, key []byte, child []byte) []byte {
	return mustEncode(t, []interface{}{compact(key, false), childValue(child)})
}

// branchNode places each child raw node at its nibble, by hash or embedded
// when shorter than a hash.
func branchNode(t *testing.T, children map[byte][]byte, value []byte) []byte {
	elems := make([]interface{}, 17)
	for i := 0; i < 16; i++ {
		elems[i] = []byte{}
	}
	for nibble, child := range children {
		elems[nibble] = childValue(child)
	}
	elems[16] = value
	return mustEncode(t, elems)
}

func childValue(child []byte) interface{} {
	if len(child) < HashLength {
		return rlp.RawValue(child)
	}
	return Hasher(child).Bytes()
}

func testKey(i uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	return crypto.Keccak256Hash(buf[:])
}

// proofList collects proof nodes in the order the trie emits them, root
// first.
type proofList [][]byte

func (l *proofList) Put(key []byte, value []byte) error {
	*l = append(*l, common.CopyBytes(value))
	return nil
}

func (l *proofList) Delete(key []byte) error {
	panic("not supported")
}

// testTrie is a go-ethereum trie holding n keys with 32 byte values so no
// leaf is embedded in its parent.
func testTrie(t *testing.T, n int) *gethtrie.Trie {
	t.Helper()
	tr := gethtrie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
	for i := 0; i < n; i++ {
		key := testKey(uint64(i))
		tr.MustUpdate(key[:], mustEncode(t, crypto.Keccak256(key[:])))
	}
	return tr
}

func prove(t *testing.T, tr *gethtrie.Trie, key common.Hash) [][]byte {
	t.Helper()
	var proof proofList
	require.NoError(t, tr.Prove(key[:], &proof))
	return proof
}

func accountKeyFn(nodeHash common.Hash, path portal.Nibbles) portal.ContentKey {
	return portal.AccountTrieNodeKey{Path: path, NodeHash: nodeHash}
}

func accountValueFn(proof portal.TrieProof) portal.ContentValue {
	return portal.AccountTrieNodeWithProof{Proof: proof}
}
