package badgerdb

import (
	"time"

	"github.com/morph-dev/portal-state-network-utils/log"
)

// writeStats tracks what a transaction or write batch carried so slow
// writes can be reported.
type writeStats struct {
	created   time.Time
	sets      uint
	deletes   uint
	keySize   uint64
	valueSize uint64
}

func newWriteStats() writeStats {
	return writeStats{created: time.Now()}
}

func (s *writeStats) set(key, value []byte) {
	s.sets++
	s.keySize += uint64(len(key))
	s.valueSize += uint64(len(value))
}

func (s *writeStats) delete() {
	s.deletes++
}

// report warns when the write itself took longer than slowWrite or the
// whole batch lived longer than slowBatch.
func (s *writeStats) report(db *DB, op string, writeStart time.Time, slowWrite, slowBatch time.Duration) {
	now := time.Now()
	took := now.Sub(writeStart)
	if took <= slowWrite && now.Sub(s.created) <= slowBatch {
		return
	}
	logger.Warn().Str("name", db.name).Str("op", op).
		Str("caller", log.SkipCaller(3)).
		Dur("prepareTime", writeStart.Sub(s.created)).
		Dur("writeTime", took).
		Uint("setCount", s.sets).Uint("delCount", s.deletes).
		Uint64("setKeySize", s.keySize).Uint64("setValueSize", s.valueSize).
		Msg("Slow database write")
}
