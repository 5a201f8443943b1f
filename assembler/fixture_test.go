package assembler

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/morph-dev/portal-state-network-utils/types"
)

const (
	testAccounts = 200
	testSlots    = 50
)

var (
	contractAddress = common.BigToAddress(big.NewInt(7))
	contractCode    = []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x00}
)

type proofList []hexutil.Bytes

func (l *proofList) Put(key []byte, value []byte) error {
	*l = append(*l, common.CopyBytes(value))
	return nil
}

func (l *proofList) Delete(key []byte) error {
	panic("not supported")
}

func newTrie() *gethtrie.Trie {
	return gethtrie.NewEmpty(triedb.NewDatabase(rawdb.NewMemoryDatabase(), nil))
}

func prove(t *testing.T, tr *gethtrie.Trie, key []byte) []hexutil.Bytes {
	t.Helper()
	var proof proofList
	require.NoError(t, tr.Prove(key, &proof))
	return proof
}

func slotValue(slot uint64) *uint256.Int {
	return uint256.NewInt(1000 + slot)
}

// testState holds an account trie of testAccounts accounts. The account at
// contractAddress has code and a storage trie of testSlots slots.
type testState struct {
	accounts *gethtrie.Trie
	storage  *gethtrie.Trie
}

func newTestState(t *testing.T) *testState {
	storage := newTrie()
	for slot := uint64(0); slot < testSlots; slot++ {
		w := types.NewWord(slot)
		value, err := rlp.EncodeToBytes(slotValue(slot).Bytes())
		require.NoError(t, err)
		key := StorageKeyHash(&w)
		storage.MustUpdate(key[:], value)
	}

	accounts := newTrie()
	for i := 1; i <= testAccounts; i++ {
		address := common.BigToAddress(big.NewInt(int64(i)))
		account := &gethtypes.StateAccount{
			Nonce:    uint64(i),
			Balance:  uint256.NewInt(uint64(i) * 1e9),
			Root:     gethtypes.EmptyRootHash,
			CodeHash: gethtypes.EmptyCodeHash.Bytes(),
		}
		if address == contractAddress {
			account.Root = storage.Hash()
			account.CodeHash = crypto.Keccak256(contractCode)
		}
		enc, err := rlp.EncodeToBytes(account)
		require.NoError(t, err)
		accounts.MustUpdate(crypto.Keccak256(address[:]), enc)
	}
	return &testState{accounts: accounts, storage: storage}
}

func (s *testState) header() *gethtypes.Header {
	return &gethtypes.Header{
		Number:     big.NewInt(1_000_000),
		Difficulty: big.NewInt(1),
		GasLimit:   30_000_000,
		Time:       1_600_000_000,
		Root:       s.accounts.Hash(),
	}
}

// accountState returns the proven state of address, with the storage of the
// given slots when address is the contract.
func (s *testState) accountState(t *testing.T, address common.Address, slots ...uint64) *types.AccountState {
	state := &types.AccountState{
		Address:      address,
		AccountProof: prove(t, s.accounts, crypto.Keccak256(address[:])),
		CodeHash:     gethtypes.EmptyCodeHash,
		StorageHash:  gethtypes.EmptyRootHash,
	}
	if address != contractAddress {
		return state
	}
	state.Code = contractCode
	state.CodeHash = crypto.Keccak256Hash(contractCode)
	state.StorageHash = s.storage.Hash()
	for _, slot := range slots {
		key := types.NewWord(slot)
		hashed := StorageKeyHash(&key)
		state.StorageProof = append(state.StorageProof, &types.StorageItem{
			Key:   key,
			Value: types.Word(*slotValue(slot)),
			Proof: prove(t, s.storage, hashed[:]),
		})
	}
	return state
}

func (s *testState) blockData(t *testing.T, states ...*types.AccountState) *types.BlockData {
	data := &types.BlockData{Header: s.header(), HeaderAccumulatorProof: new(types.AccumulatorProof), State: states}
	for i := range data.HeaderAccumulatorProof {
		data.HeaderAccumulatorProof[i] = common.BigToHash(big.NewInt(int64(i)))
	}
	return data
}
