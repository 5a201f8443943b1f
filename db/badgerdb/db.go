package badgerdb

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"

	contentdb "github.com/morph-dev/portal-state-network-utils/db"
	"github.com/morph-dev/portal-state-network-utils/log"
)

const (
	badgerDbDiscardRatio   = 0.5 // run gc when 50% of samples can be collected
	badgerDbGcInterval     = 10 * time.Minute
	badgerDbGcSize         = 1 << 20 // 1 MB
	badgerValueLogFileSize = 1<<26 - 1
)

var (
	logger     *extendedLog
	loggerOnce sync.Once
)

// NewDB creates new database or load existing database in the directory
func NewDB(dir string) (*DB, error) {
	loggerOnce.Do(func() {
		logger = &extendedLog{Logger: log.NewLogger("db")}
	})
	db, err := newBadgerDB(dir)

	if err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) runBadgerGC() {
	defer close(db.gcDone)
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	lastGcT := time.Now()
	_, lastDbVlogSize := db.db.Size()
	for {
		select {
		case <-ticker.C:
			// check current db size
			currentDblsmSize, currentDbVlogSize := db.db.Size()

			// exceed badgerDbGcInterval time or badgerDbGcSize is increase slowly (it means resource is free)
			if time.Since(lastGcT) > badgerDbGcInterval || lastDbVlogSize+badgerDbGcSize > currentDbVlogSize {
				startGcT := time.Now()
				logger.Debug().Str("name", db.name).Int64("lsmSize", currentDblsmSize).Int64("vlogSize", currentDbVlogSize).Msg("Start to GC at badger")
				err := db.db.RunValueLogGC(badgerDbDiscardRatio)
				if err != nil {
					if err == badger.ErrNoRewrite {
						logger.Debug().Str("name", db.name).Str("msg", err.Error()).Msg("Nothing to GC at badger")
					} else {
						logger.Error().Str("name", db.name).Err(err).Msg("Fail to GC at badger")
					}
					lastDbVlogSize = currentDbVlogSize
				} else {
					afterGcDblsmSize, afterGcDbVlogSize := db.db.Size()

					logger.Debug().Str("name", db.name).Int64("lsmSize", afterGcDblsmSize).Int64("vlogSize", afterGcDbVlogSize).
						Dur("takenTime", time.Since(startGcT)).Msg("Finish to GC at badger")
					lastDbVlogSize = afterGcDbVlogSize
				}
				lastGcT = time.Now()
			}

		case <-db.ctx.Done():
			return
		}
	}
}

// newBadgerDB create a DB instance that uses badger db and implements DB interface.
// An input parameter, dir, is a root directory to store db files.
func newBadgerDB(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir)

	// content values are at most a few tens of kilobytes; keep memory flat
	opts.ValueLogLoadingMode = options.FileIO
	opts.TableLoadingMode = options.FileIO
	opts.ValueThreshold = 1024 // store values, whose size is smaller than 1k, to a lsm tree -> to invoke flushing memtable

	// to reduce size of value log file; 1GB -> 64 MB
	opts.ValueLogFileSize = badgerValueLogFileSize

	// route badger logs through the module logger instead of stderr
	opts.Logger = logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	database := &DB{
		db:         db,
		ctx:        ctx,
		cancelFunc: cancelFunc,
		gcDone:     make(chan struct{}),
		name:       dir,
	}

	go database.runBadgerGC()

	return database, nil
}

// Enforce database and transaction implements interfaces
var _ contentdb.DB = (*DB)(nil)

type DB struct {
	db         *badger.DB
	ctx        context.Context
	cancelFunc context.CancelFunc
	gcDone     chan struct{}
	name       string
}

func (db *DB) Type() string {
	return "badgerdb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)
	value = contentdb.ConvNilToBytes(value)

	err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})

	return err
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	err := db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})

	return err
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	var val []byte
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	return val, true, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	key = contentdb.PrependNamespace(namespace, key)
	key = contentdb.ConvNilToBytes(key)

	err := db.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if err != nil {
		if err == badger.ErrKeyNotFound {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (db *DB) Close() error {
	db.cancelFunc()
	<-db.gcDone // wait until gc goroutine is finished
	return db.db.Close()
}

// Iterator walks keys from start towards end, end excluded. The order is
// reversed when start is bigger than end.
func (db *DB) Iterator(start, end []byte) contentdb.Iterator {
	badgerTx := db.db.NewTransaction(false)

	reverse := bytes.Compare(start, end) == 1

	opt := badger.DefaultIteratorOptions
	opt.PrefetchValues = false
	opt.Reverse = reverse

	badgerIter := badgerTx.NewIterator(opt)
	badgerIter.Seek(start)

	return &Iterator{
		start:   start,
		end:     end,
		reverse: reverse,
		tx:      badgerTx,
		iter:    badgerIter,
	}
}

func (db *DB) NewTx() contentdb.Transaction {
	return &Transaction{
		db:    db,
		tx:    db.db.NewTransaction(true),
		stats: newWriteStats(),
	}
}

func (db *DB) NewBulk() contentdb.Bulk {
	return &Bulk{
		db:    db,
		batch: db.db.NewWriteBatch(),
		stats: newWriteStats(),
	}
}
