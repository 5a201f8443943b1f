package memorydb

import (
	"errors"
	"sync"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
)

var (
	errBatchDiscarded = errors.New("memorydb: batch was discarded")
	errBatchApplied   = errors.New("memorydb: batch was already applied")
)

type batchOp struct {
	key    string
	value  []byte
	delete bool
}

// batch buffers writes and applies them under the database lock. Transaction
// and Bulk are the same thing in memory.
type batch struct {
	mu        sync.Mutex
	db        *DB
	ops       []batchOp
	applied   bool
	discarded bool
}

func (b *batch) set(namespace, key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	b.ops = append(b.ops, batchOp{key: string(key), value: append([]byte{}, value...)})
	return nil
}

func (b *batch) del(namespace, key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	b.ops = append(b.ops, batchOp{key: string(key), delete: true})
	return nil
}

func (b *batch) apply() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.discarded:
		return errBatchDiscarded
	case b.applied:
		return errBatchApplied
	}

	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.db.db, op.key)
		} else {
			b.db.db[op.key] = op.value
		}
	}
	b.applied = true
	b.ops = nil
	return nil
}

func (b *batch) discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.discarded = true
	b.ops = nil
}

// Transaction applies its writes atomically on Commit.
type Transaction struct {
	batch
}

func (tx *Transaction) Set(namespace []byte, key []byte, value []byte) error {
	return tx.set(namespace, key, value)
}

func (tx *Transaction) Delete(namespace []byte, key []byte) error {
	return tx.del(namespace, key)
}

func (tx *Transaction) Commit() error {
	return tx.apply()
}

func (tx *Transaction) Discard() {
	tx.discard()
}

// Bulk applies its writes on Flush.
type Bulk struct {
	batch
}

func (bulk *Bulk) Set(namespace []byte, key []byte, value []byte) error {
	return bulk.set(namespace, key, value)
}

func (bulk *Bulk) Delete(namespace []byte, key []byte) error {
	return bulk.del(namespace, key)
}

func (bulk *Bulk) Flush() error {
	return bulk.apply()
}

func (bulk *Bulk) DiscardLast() {
	bulk.discard()
}
