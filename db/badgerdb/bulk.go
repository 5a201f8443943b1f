package badgerdb

import (
	"time"

	"github.com/dgraph-io/badger/v2"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
)

// Bulk wraps a badger write batch, which commits internally whenever it
// reaches the maximum transaction size.
type Bulk struct {
	db    *DB
	batch *badger.WriteBatch
	stats writeStats
}

func (bulk *Bulk) Set(namespace []byte, key []byte, value []byte) error {
	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	value = contentdb.ConvNilToBytes(value)
	if err := bulk.batch.Set(key, value); err != nil {
		return err
	}
	bulk.stats.set(key, value)
	return nil
}

func (bulk *Bulk) Delete(namespace []byte, key []byte) error {
	key = contentdb.ConvNilToBytes(contentdb.PrependNamespace(namespace, key))
	if err := bulk.batch.Delete(key); err != nil {
		return err
	}
	bulk.stats.delete()
	return nil
}

func (bulk *Bulk) Flush() error {
	start := time.Now()
	err := bulk.batch.Flush()
	bulk.stats.report(bulk.db, "flush", start, 100*time.Millisecond, 500*time.Millisecond)
	return err
}

func (bulk *Bulk) DiscardLast() {
	bulk.batch.Cancel()
}
