package memorydb

import (
	"sync"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
)

func NewDB() *DB {
	return &DB{
		db: make(map[string][]byte),
	}
}

// Enforce database and transaction implements interfaces
var _ contentdb.DB = (*DB)(nil)

type DB struct {
	lock sync.Mutex
	db   map[string][]byte
}

func (db *DB) Type() string {
	return "memorydb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)
	value = contentdb.ConvNilToBytes(value)

	db.db[string(key)] = append([]byte{}, value...)
	return nil
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	delete(db.db, string(key))
	return nil
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	value, exists := db.db[string(key)]
	return value, exists, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	_, ok := db.db[string(key)]

	return ok, nil
}

func (db *DB) Close() error {
	return nil
}

func (db *DB) NewTx() contentdb.Transaction {
	return &Transaction{batch{db: db}}
}

func (db *DB) NewBulk() contentdb.Bulk {
	return &Bulk{batch{db: db}}
}
