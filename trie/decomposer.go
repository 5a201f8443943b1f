// Package trie splits Merkle-Patricia trie proofs into per-node content
// records.
package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/morph-dev/portal-state-network-utils/portal"
)

// ErrStructuralProof is returned when a proof does not follow the path of
// its target key.
var ErrStructuralProof = errors.New("trie: structural proof error")

// KeyFunc builds the content key of the node with hash nodeHash reached by
// path from the root.
type KeyFunc func(nodeHash common.Hash, path portal.Nibbles) portal.ContentKey

// ValueFunc builds the content value of a node from the proof slice that
// ends with it.
type ValueFunc func(proof portal.TrieProof) portal.ContentValue

// DecomposeProof walks proof along the path of target and inserts one record
// per node into set. A node already present in set keeps its value.
//
// Records are only added when the whole proof is consistent with target: on
// error set is left unchanged.
func DecomposeProof(target common.Hash, proof [][]byte, keyFn KeyFunc, valueFn ValueFunc, set *portal.ContentSet) error {
	staged, err := decompose(target, proof, keyFn, valueFn, set)
	if err != nil {
		return err
	}
	for _, r := range staged {
		set.Insert(r.Key, r.Value)
	}
	return nil
}

func decompose(target common.Hash, proof [][]byte, keyFn KeyFunc, valueFn ValueFunc, existing *portal.ContentSet) ([]portal.Record, error) {
	fullPath := UnpackNibbles(target[:])
	remaining := fullPath
	valueReached := false

	staged := make([]portal.Record, 0, len(proof))
	for i, raw := range proof {
		if valueReached {
			return nil, fmt.Errorf("%w: node %d follows a value node", ErrStructuralProof, i)
		}
		consumed, ok := StripSuffix(fullPath, remaining)
		if !ok {
			return nil, fmt.Errorf("%w: node %d: remaining path is not a suffix of the key", ErrStructuralProof, i)
		}
		path, err := portal.NewNibbles(consumed)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrStructuralProof, i, err)
		}

		key := keyFn(Hasher(raw), path)
		if !existing.Has(key) && !stagedHas(staged, key) {
			end := i + 1
			staged = append(staged, portal.Record{
				Key:   key,
				Value: valueFn(portal.TrieProof(proof[:end:end])),
			})
		}

		node, err := DecodeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %w", ErrStructuralProof, i, err)
		}
		switch t := node.Traverse(remaining).(type) {
		case TraversalNext:
			remaining = t.Remaining
		case TraversalValue:
			remaining = nil
			valueReached = true
		case TraversalEmpty:
			return nil, fmt.Errorf("%w: node %d: %s", ErrStructuralProof, i, t.Reason)
		}
	}
	return staged, nil
}

// stagedHas handles a proof that repeats a node at the same path.
func stagedHas(staged []portal.Record, key portal.ContentKey) bool {
	encoded := string(key.Encode())
	for _, r := range staged {
		if string(r.Key.Encode()) == encoded {
			return true
		}
	}
	return false
}
