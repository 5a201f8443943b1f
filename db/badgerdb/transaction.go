package badgerdb

import (
	"time"

	"github.com/dgraph-io/badger/v2"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
)

// Transaction wraps a read-write badger transaction.
type Transaction struct {
	db    *DB
	tx    *badger.Txn
	stats writeStats
}

func (tx *Transaction) Set(namespace []byte, key []byte, value []byte) error {
	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	value = contentdb.ConvNilToBytes(value)
	if err := tx.tx.Set(key, value); err != nil {
		return err
	}
	tx.stats.set(key, value)
	return nil
}

func (tx *Transaction) Delete(namespace []byte, key []byte) error {
	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	if err := tx.tx.Delete(key); err != nil {
		return err
	}
	tx.stats.delete()
	return nil
}

func (tx *Transaction) Commit() error {
	start := time.Now()
	err := tx.tx.Commit()
	tx.stats.report(tx.db, "commit", start, 100*time.Millisecond, time.Hour)
	return err
}

func (tx *Transaction) Discard() {
	tx.tx.Discard()
}
