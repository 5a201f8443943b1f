// Package assembler turns the block data of one block into Portal Network
// content: the header record for the history network and the decomposed
// account tries, storage tries and bytecode for the state network.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/morph-dev/portal-state-network-utils/log"
	"github.com/morph-dev/portal-state-network-utils/portal"
	"github.com/morph-dev/portal-state-network-utils/trie"
	"github.com/morph-dev/portal-state-network-utils/types"
)

var logger = log.NewLogger("assembler")

// ErrIntegrity is returned when an account's bytecode does not hash to its
// code hash. The block data cannot be trusted past this point.
var ErrIntegrity = errors.New("assembler: bytecode does not match code hash")

// Content holds both sets produced for a block.
type Content struct {
	History *portal.ContentSet
	State   *portal.ContentSet
}

// Assembler decomposes block data. The zero value is ready to use and
// assembles with one worker per CPU.
type Assembler struct {
	// Workers bounds the number of accounts decomposed concurrently.
	Workers int
}

func NewAssembler(workers int) *Assembler {
	return &Assembler{Workers: workers}
}

func (a *Assembler) workers() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.NumCPU()
}

// Assemble produces the history and state content of data.
func (a *Assembler) Assemble(ctx context.Context, data *types.BlockData) (*Content, error) {
	history, err := CreateHistoryContent(data)
	if err != nil {
		return nil, err
	}
	state, err := a.CreateStateContent(ctx, data)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Uint64("block", data.BlockNumber()).
		Int("history", history.Len()).
		Int("state", state.Len()).
		Msg("Assembled block content")
	return &Content{History: history, State: state}, nil
}

// CreateHistoryContent returns the single header record of the block.
func CreateHistoryContent(data *types.BlockData) (*portal.ContentSet, error) {
	if data.Header == nil {
		return nil, types.ErrMissingHeader
	}
	if data.HeaderAccumulatorProof == nil {
		return nil, types.ErrMissingProof
	}
	proof := portal.PreMergeAccumulatorProof(*data.HeaderAccumulatorProof)
	set := portal.NewContentSet()
	set.Insert(
		portal.BlockHeaderKey{BlockHash: data.BlockHash()},
		portal.HeaderWithProof{Header: data.Header, Proof: &proof},
	)
	return set, nil
}

// CreateStateContent decomposes every account of data. Accounts are
// processed concurrently and merged in their order in data, so the first
// account reaching a shared node provides its value.
func (a *Assembler) CreateStateContent(ctx context.Context, data *types.BlockData) (*portal.ContentSet, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	blockHash := data.BlockHash()

	sets := make([]*portal.ContentSet, len(data.State))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i, account := range data.State {
		i, account := i, account
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			set, err := accountContent(blockHash, account)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Uint64("block", data.BlockNumber()).Msg("Failed to create state content")
		return nil, err
	}

	state := portal.NewContentSet()
	debug := logger.IsDebugEnabled()
	for i, set := range sets {
		added := state.Merge(set)
		if debug {
			logger.Debug().
				Str("address", data.State[i].Address.Hex()).
				Int("records", set.Len()).
				Int("added", added).
				Msg("Merged account content")
		}
	}
	return state, nil
}

// accountContent builds the records of one account into a fresh set.
func accountContent(blockHash common.Hash, account *types.AccountState) (*portal.ContentSet, error) {
	set := portal.NewContentSet()
	addressHash := trie.Hasher(account.Address[:])
	accountProof := portal.TrieProof(account.RawAccountProof())

	err := trie.DecomposeProof(addressHash, accountProof,
		func(nodeHash common.Hash, path portal.Nibbles) portal.ContentKey {
			return portal.AccountTrieNodeKey{Path: path, NodeHash: nodeHash}
		},
		func(proof portal.TrieProof) portal.ContentValue {
			return portal.AccountTrieNodeWithProof{Proof: proof, BlockHash: blockHash}
		},
		set,
	)
	if err != nil {
		return nil, fmt.Errorf("account %s: account proof: %w", account.Address, err)
	}

	if account.HasCode() {
		if codeHash := trie.Hasher(account.Code); codeHash != account.CodeHash {
			return nil, fmt.Errorf("%w: account %s declares %s, code hashes to %s",
				ErrIntegrity, account.Address, account.CodeHash, codeHash)
		}
		set.Insert(
			portal.ContractBytecodeKey{AddressHash: addressHash, CodeHash: account.CodeHash},
			portal.ContractBytecodeWithProof{Code: account.Code, AccountProof: accountProof, BlockHash: blockHash},
		)
	}

	for j, item := range account.StorageProof {
		err := trie.DecomposeProof(StorageKeyHash(&item.Key), item.RawProof(),
			func(nodeHash common.Hash, path portal.Nibbles) portal.ContentKey {
				return portal.ContractStorageTrieNodeKey{AddressHash: addressHash, Path: path, NodeHash: nodeHash}
			},
			func(proof portal.TrieProof) portal.ContentValue {
				return portal.ContractStorageTrieNodeWithProof{
					StorageProof: proof,
					AccountProof: accountProof,
					BlockHash:    blockHash,
				}
			},
			set,
		)
		if err != nil {
			return nil, fmt.Errorf("account %s: storage item %d (key %s): %w", account.Address, j, item.Key, err)
		}
	}
	return set, nil
}

// StorageKeyHash is the storage trie key of a slot: keccak256 of the slot
// as a 32 byte big endian word.
func StorageKeyHash(slot *types.Word) common.Hash {
	b := slot.Bytes32()
	return trie.Hasher(b[:])
}
