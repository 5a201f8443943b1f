package log

import (
	"runtime"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LazyEval defers building a log argument until the statement is emitted.
type LazyEval func() string

func (l LazyEval) String() string {
	return l()
}

// DoLazyEval returns LazyEval. Use it with Stringer fields so the closure
// only runs at an enabled level.
func DoLazyEval(c func() string) LazyEval {
	return LazyEval(c)
}

// SkipCaller returns the caller's location (file:line), skipping skip frames.
func SkipCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "?"
	}
	return file + ":" + strconv.Itoa(line)
}

// ShortHex renders at most n leading bytes of b as hex, for log fields that
// carry content keys or proof nodes.
func ShortHex(b []byte, n int) string {
	if len(b) <= n {
		return hexutil.Encode(b)
	}
	return hexutil.Encode(b[:n]) + ".."
}
