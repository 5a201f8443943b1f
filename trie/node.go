package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var errDecodeInvalid = errors.New("trie: invalid encoded node")

// Node is a decoded Merkle-Patricia trie node.
type Node interface {
	// Traverse consumes a prefix of path and reports where the walk goes on.
	// Embedded children are walked in place.
	Traverse(path []byte) Traversal
}

// BranchNode has one child reference per nibble and an optional value.
type BranchNode struct {
	Children [16]childRef
	Value    []byte
}

// ExtensionNode shares Key between all paths below Child.
type ExtensionNode struct {
	Key   []byte
	Child childRef
}

// LeafNode terminates the path Key with Value.
type LeafNode struct {
	Key   []byte
	Value []byte
}

// childRef points at a child either by hash or by its embedded encoding.
// The zero value is an empty slot.
type childRef struct {
	hash     common.Hash
	embedded Node
}

func (c childRef) isEmpty() bool {
	return c.embedded == nil && c.hash == (common.Hash{})
}

// Traversal is the outcome of walking a path through one node: a
// TraversalNext, a TraversalValue or a TraversalEmpty.
type Traversal interface {
	traversal()
}

// TraversalNext continues in the node with hash Next, with Remaining left to
// consume.
type TraversalNext struct {
	Next      common.Hash
	Remaining []byte
}

// TraversalValue means the path ends in this node.
type TraversalValue struct {
	Value []byte
}

// TraversalEmpty means the path does not exist below this node.
type TraversalEmpty struct {
	Reason string
}

func (TraversalNext) traversal()  {}
func (TraversalValue) traversal() {}
func (TraversalEmpty) traversal() {}

func (t TraversalEmpty) String() string {
	return t.Reason
}

func (n *BranchNode) Traverse(path []byte) Traversal {
	if len(path) == 0 {
		if len(n.Value) == 0 {
			return TraversalEmpty{Reason: "branch has no value"}
		}
		return TraversalValue{Value: n.Value}
	}
	child := n.Children[path[0]]
	if child.isEmpty() {
		return TraversalEmpty{Reason: fmt.Sprintf("empty branch slot %x", path[0])}
	}
	return child.traverse(path[1:])
}

func (n *ExtensionNode) Traverse(path []byte) Traversal {
	if !hasPrefix(path, n.Key) {
		return TraversalEmpty{Reason: "path diverges from extension key"}
	}
	return n.Child.traverse(path[len(n.Key):])
}

func (n *LeafNode) Traverse(path []byte) Traversal {
	if len(path) != len(n.Key) || !hasPrefix(path, n.Key) {
		return TraversalEmpty{Reason: "path diverges from leaf key"}
	}
	return TraversalValue{Value: n.Value}
}

func (c childRef) traverse(remaining []byte) Traversal {
	if c.embedded != nil {
		return c.embedded.Traverse(remaining)
	}
	return TraversalNext{Next: c.hash, Remaining: remaining}
}

// DecodeNode parses a raw trie node.
func DecodeNode(raw []byte) (Node, error) {
	elems, rest, err := rlp.SplitList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDecodeInvalid, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errDecodeInvalid, len(rest))
	}
	count, err := rlp.CountValues(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDecodeInvalid, err)
	}
	switch count {
	case 2:
		return decodeShort(elems)
	case 17:
		return decodeBranch(elems)
	default:
		return nil, fmt.Errorf("%w: expected 2 or 17 elements, got %d", errDecodeInvalid, count)
	}
}

func decodeShort(elems []byte) (Node, error) {
	compact, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: short node key: %w", errDecodeInvalid, err)
	}
	key, leaf, err := compactToNibbles(compact)
	if err != nil {
		return nil, err
	}
	if leaf {
		value, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: leaf value: %w", errDecodeInvalid, err)
		}
		return &LeafNode{Key: key, Value: value}, nil
	}
	child, _, err := decodeRef(rest)
	if err != nil {
		return nil, fmt.Errorf("extension child: %w", err)
	}
	if child.isEmpty() {
		return nil, fmt.Errorf("%w: extension without child", errDecodeInvalid)
	}
	return &ExtensionNode{Key: key, Child: child}, nil
}

func decodeBranch(elems []byte) (Node, error) {
	n := new(BranchNode)
	for i := range n.Children {
		child, rest, err := decodeRef(elems)
		if err != nil {
			return nil, fmt.Errorf("branch child %d: %w", i, err)
		}
		n.Children[i], elems = child, rest
	}
	value, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, fmt.Errorf("%w: branch value: %w", errDecodeInvalid, err)
	}
	if len(value) > 0 {
		n.Value = value
	}
	return n, nil
}

func decodeRef(buf []byte) (childRef, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return childRef{}, buf, fmt.Errorf("%w: %w", errDecodeInvalid, err)
	}
	switch {
	case kind == rlp.List:
		size := len(buf) - len(rest)
		if size >= HashLength {
			return childRef{}, buf, fmt.Errorf("%w: embedded node of %d bytes", errDecodeInvalid, size)
		}
		embedded, err := DecodeNode(buf[:size])
		if err != nil {
			return childRef{}, buf, err
		}
		return childRef{embedded: embedded}, rest, nil
	case kind == rlp.String && len(val) == 0:
		return childRef{}, rest, nil
	case kind == rlp.String && len(val) == HashLength:
		return childRef{hash: common.BytesToHash(val)}, rest, nil
	default:
		return childRef{}, buf, fmt.Errorf("%w: child reference of %d bytes", errDecodeInvalid, len(val))
	}
}
