package portal

import (
	"fmt"

	ssz "github.com/ferranbt/fastssz"
)

const (
	offsetSize = 4
	hashSize   = 32
)

// readOffsets reads count offsets from the fixed part of a container whose
// variable fields start at fixedSize. Offsets must be monotonic and within
// buf.
func readOffsets(buf []byte, positions []int, fixedSize int) ([]int, error) {
	offsets := make([]int, len(positions))
	prev := fixedSize
	for i, pos := range positions {
		if pos+offsetSize > len(buf) {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, ssz.ErrSize)
		}
		o := int(ssz.ReadOffset(buf[pos : pos+offsetSize]))
		if (i == 0 && o != fixedSize) || o < prev || o > len(buf) {
			return nil, fmt.Errorf("%w: %w", ErrEncoding, ssz.ErrOffset)
		}
		offsets[i] = o
		prev = o
	}
	return offsets, nil
}

// encodeByteList appends a list of variable size byte strings: one offset
// per element followed by the elements.
func encodeByteList(dst []byte, items [][]byte) []byte {
	offset := offsetSize * len(items)
	for _, item := range items {
		dst = ssz.WriteOffset(dst, offset)
		offset += len(item)
	}
	for _, item := range items {
		dst = append(dst, item...)
	}
	return dst
}

// decodeByteList is the inverse of encodeByteList.
func decodeByteList(buf []byte, maxItems, maxItemSize int) ([][]byte, error) {
	if len(buf) == 0 {
		return [][]byte{}, nil
	}
	if len(buf) < offsetSize {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, ssz.ErrSize)
	}
	first := int(ssz.ReadOffset(buf))
	if first%offsetSize != 0 || first == 0 || first > len(buf) {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, ssz.ErrOffset)
	}
	count := first / offsetSize
	if count > maxItems {
		return nil, fmt.Errorf("%w: list of %d items exceeds %d", ErrEncoding, count, maxItems)
	}
	positions := make([]int, count)
	for i := range positions {
		positions[i] = i * offsetSize
	}
	offsets, err := readOffsets(buf, positions, first)
	if err != nil {
		return nil, err
	}
	items := make([][]byte, count)
	for i, start := range offsets {
		end := len(buf)
		if i+1 < count {
			end = offsets[i+1]
		}
		if end-start > maxItemSize {
			return nil, fmt.Errorf("%w: item %d of %d bytes exceeds %d", ErrEncoding, i, end-start, maxItemSize)
		}
		items[i] = append([]byte{}, buf[start:end]...)
	}
	return items, nil
}
