package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// AccumulatorProofLength is the number of digests in a pre-merge header
// accumulator inclusion proof.
const AccumulatorProofLength = 15

var (
	ErrMissingHeader       = errors.New("block data: missing header")
	ErrEmptyAccountProof   = errors.New("block data: empty account proof")
	ErrAccumulatorProofLen = errors.New("block data: accumulator proof must have 15 digests")
	ErrMissingProof        = errors.New("block data: missing header accumulator proof")
)

// BlockData is the execution state of a single block: its header and the
// proven state of every touched account.
type BlockData struct {
	Header                 *gethtypes.Header `json:"header"`
	HeaderAccumulatorProof *AccumulatorProof `json:"headerAccumulatorProof"`
	State                  []*AccountState   `json:"state"`
}

// AccountState mirrors an eth_getProof response, optionally extended with
// the contract bytecode. A nil Code means the bytecode is not part of the
// snapshot; an empty one is the bytecode of a codeless account.
type AccountState struct {
	Address      common.Address  `json:"address"`
	AccountProof []hexutil.Bytes `json:"accountProof"`
	Balance      Word            `json:"balance"`
	CodeHash     common.Hash     `json:"codeHash"`
	Nonce        hexutil.Uint64  `json:"nonce"`
	StorageHash  common.Hash     `json:"storageHash"`
	StorageProof []*StorageItem  `json:"storageProof"`
	Code         hexutil.Bytes   `json:"code"`
}

// MarshalJSON writes code only when it is present, keeping empty bytecode
// distinct from absent bytecode.
func (a AccountState) MarshalJSON() ([]byte, error) {
	type account AccountState
	enc := struct {
		account
		Code *hexutil.Bytes `json:"code,omitempty"`
	}{account: account(a)}
	if a.Code != nil {
		enc.Code = &a.Code
	}
	return json.Marshal(enc)
}

// StorageItem is a single proven storage slot.
type StorageItem struct {
	Key   Word            `json:"key"`
	Value Word            `json:"value"`
	Proof []hexutil.Bytes `json:"proof"`
}

// AccumulatorProof is passed through verbatim into the header record.
type AccumulatorProof [AccumulatorProofLength]common.Hash

func (p *AccumulatorProof) UnmarshalJSON(input []byte) error {
	var hashes []common.Hash
	if err := json.Unmarshal(input, &hashes); err != nil {
		return err
	}
	if len(hashes) != AccumulatorProofLength {
		return fmt.Errorf("%w, got %d", ErrAccumulatorProofLen, len(hashes))
	}
	copy(p[:], hashes)
	return nil
}

// HasCode reports whether the bytecode is part of the snapshot.
func (a *AccountState) HasCode() bool {
	return a.Code != nil
}

// RawAccountProof returns the account proof as plain byte slices.
func (a *AccountState) RawAccountProof() [][]byte {
	return rawProof(a.AccountProof)
}

// RawProof returns the storage proof as plain byte slices.
func (s *StorageItem) RawProof() [][]byte {
	return rawProof(s.Proof)
}

func rawProof(proof []hexutil.Bytes) [][]byte {
	nodes := make([][]byte, len(proof))
	for i, node := range proof {
		nodes[i] = node
	}
	return nodes
}

// BlockHash returns the hash of the header.
func (b *BlockData) BlockHash() common.Hash {
	return b.Header.Hash()
}

// BlockNumber returns the header number.
func (b *BlockData) BlockNumber() uint64 {
	return b.Header.Number.Uint64()
}

// Validate checks the structural requirements the content assembler relies
// on. It does not verify any proof.
func (b *BlockData) Validate() error {
	if b.Header == nil || b.Header.Number == nil {
		return ErrMissingHeader
	}
	if b.HeaderAccumulatorProof == nil {
		return ErrMissingProof
	}
	for i, account := range b.State {
		if account == nil {
			return fmt.Errorf("block data: account %d is null", i)
		}
		if len(account.AccountProof) == 0 {
			return fmt.Errorf("%w: account %s", ErrEmptyAccountProof, account.Address)
		}
		for j, item := range account.StorageProof {
			if item == nil {
				return fmt.Errorf("block data: account %s storage item %d is null", account.Address, j)
			}
		}
	}
	return nil
}

// ReadBlockData decodes and validates block data from r.
func ReadBlockData(r io.Reader) (*BlockData, error) {
	var data BlockData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode block data: %w", err)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// LoadBlockData reads block data from a JSON file.
func LoadBlockData(path string) (*BlockData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := ReadBlockData(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// BlockDataPath returns the file that holds block number inside dir.
func BlockDataPath(dir string, number uint64) string {
	return filepath.Join(dir, strconv.FormatUint(number, 10)+".json")
}

// LoadBlockDataFromDir loads <dir>/<number>.json and checks that it holds
// the requested block.
func LoadBlockDataFromDir(dir string, number uint64) (*BlockData, error) {
	data, err := LoadBlockData(BlockDataPath(dir, number))
	if err != nil {
		return nil, err
	}
	if data.BlockNumber() != number {
		return nil, fmt.Errorf("block data: file for block %d holds block %d", number, data.BlockNumber())
	}
	return data, nil
}

// WriteJSON encodes the block data as indented JSON.
func (b *BlockData) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}
