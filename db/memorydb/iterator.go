package memorydb

import (
	"bytes"
	"errors"
	"sort"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
)

var errInvalidIterator = errors.New("memorydb: invalid iterator")

type entry struct {
	key   []byte
	value []byte
}

// Iterator walks a snapshot of the entries taken when it was created.
type Iterator struct {
	entries []entry
	cursor  int
	closed  bool
}

func inRange(key, start, end []byte, reverse bool) bool {
	if reverse {
		start, end = end, start
		return bytes.Compare(key, start) > 0 && (end == nil || bytes.Compare(key, end) <= 0)
	}
	return bytes.Compare(key, start) >= 0 && (end == nil || bytes.Compare(key, end) < 0)
}

// Iterator walks keys from start towards end, end excluded. The order is
// reversed when start is bigger than end.
func (db *DB) Iterator(start []byte, end []byte) contentdb.Iterator {
	db.lock.Lock()
	defer db.lock.Unlock()

	reverse := end != nil && bytes.Compare(start, end) > 0
	var entries []entry
	for key, value := range db.db {
		if inRange([]byte(key), start, end, reverse) {
			entries = append(entries, entry{key: []byte(key), value: value})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		less := bytes.Compare(entries[i].key, entries[j].key) < 0
		if reverse {
			return !less
		}
		return less
	})
	return &Iterator{entries: entries}
}

func (iter *Iterator) Next() error {
	if !iter.Valid() {
		return errInvalidIterator
	}
	iter.cursor++
	return nil
}

func (iter *Iterator) Valid() bool {
	return !iter.closed && iter.cursor < len(iter.entries)
}

func (iter *Iterator) Key() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return iter.entries[iter.cursor].key, nil
}

func (iter *Iterator) Value() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return append([]byte{}, iter.entries[iter.cursor].value...), nil
}

func (iter *Iterator) Close() {
	iter.closed = true
	iter.entries = nil
}
