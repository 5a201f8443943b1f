package badgerdb

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v2"
)

var errInvalidIterator = errors.New("invalid iterator")

type Iterator struct {
	start   []byte
	end     []byte
	reverse bool
	tx      *badger.Txn
	iter    *badger.Iterator
}

func (iter *Iterator) Next() error {
	if !iter.Valid() {
		return errInvalidIterator
	}
	iter.iter.Next()
	return nil
}

func (iter *Iterator) Valid() bool {
	if !iter.iter.Valid() {
		return false
	}

	if iter.end != nil {
		if !iter.reverse {
			if bytes.Compare(iter.end, iter.iter.Item().Key()) <= 0 {
				return false
			}
		} else {
			if bytes.Compare(iter.iter.Item().Key(), iter.end) <= 0 {
				return false
			}
		}
	}

	return true
}

func (iter *Iterator) Key() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return iter.iter.Item().KeyCopy(nil), nil
}

func (iter *Iterator) Value() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return iter.iter.Item().ValueCopy(nil)
}

// Close releases the iterator and its read transaction.
func (iter *Iterator) Close() {
	iter.iter.Close()
	iter.tx.Discard()
}
