package memorydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morph-dev/portal-state-network-utils/db"
)

func TestSetGet(t *testing.T) {
	memdb := NewDB()
	require.NoError(t, memdb.Set(db.NamespaceContent, []byte("a"), []byte("1")))

	value, ok, err := memdb.Get(db.NamespaceContent, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	_, ok, err = memdb.Get(db.NamespaceContentKey, []byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, memdb.Delete(db.NamespaceContent, []byte("a")))
	exist, err := memdb.Exist(db.NamespaceContent, []byte("a"))
	require.NoError(t, err)
	assert.False(t, exist)
}

func TestTransaction(t *testing.T) {
	memdb := NewDB()
	tx := memdb.NewTx()
	require.NoError(t, tx.Set(db.NamespaceContent, []byte("a"), []byte("1")))

	exist, _ := memdb.Exist(db.NamespaceContent, []byte("a"))
	assert.False(t, exist)

	require.NoError(t, tx.Commit())
	exist, _ = memdb.Exist(db.NamespaceContent, []byte("a"))
	assert.True(t, exist)
	assert.Error(t, tx.Commit())

	discarded := memdb.NewTx()
	require.NoError(t, discarded.Set(db.NamespaceContent, []byte("b"), []byte("2")))
	discarded.Discard()
	assert.Error(t, discarded.Commit())
}

func TestBulk(t *testing.T) {
	memdb := NewDB()
	bulk := memdb.NewBulk()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, bulk.Set(db.NamespaceOutcome, []byte(k), []byte(k)))
	}
	require.NoError(t, bulk.Delete(db.NamespaceOutcome, []byte("b")))
	require.NoError(t, bulk.Flush())

	exist, _ := memdb.Exist(db.NamespaceOutcome, []byte("a"))
	assert.True(t, exist)
	exist, _ = memdb.Exist(db.NamespaceOutcome, []byte("b"))
	assert.False(t, exist)
}

func TestIteratorNamespace(t *testing.T) {
	memdb := NewDB()
	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, memdb.Set(db.NamespaceContentKey, []byte(k), []byte("v"+k)))
	}
	require.NoError(t, memdb.Set(db.NamespaceContent, []byte("x"), []byte("vx")))
	require.NoError(t, memdb.Set(db.NamespaceOutcome, []byte("y"), []byte("vy")))

	start, end := db.NamespaceRange(db.NamespaceContentKey)
	iter := memdb.Iterator(start, end)
	defer iter.Close()

	var keys, values []string
	for ; iter.Valid(); iter.Next() {
		key, err := iter.Key()
		require.NoError(t, err)
		value, err := iter.Value()
		require.NoError(t, err)
		keys = append(keys, string(db.StripNamespace(db.NamespaceContentKey, key)))
		values = append(values, string(value))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	assert.Equal(t, []string{"va", "vb", "vc"}, values)
	assert.Error(t, iter.Next())
}

func TestIteratorReverse(t *testing.T) {
	memdb := NewDB()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, memdb.Set(nil, []byte(k), []byte(k)))
	}

	iter := memdb.Iterator([]byte("c"), []byte("a"))
	defer iter.Close()
	var keys []string
	for ; iter.Valid(); iter.Next() {
		key, err := iter.Key()
		require.NoError(t, err)
		keys = append(keys, string(key))
	}
	assert.Equal(t, []string{"c", "b"}, keys)
}

func TestBulkDiscard(t *testing.T) {
	memdb := NewDB()
	bulk := memdb.NewBulk()
	require.NoError(t, bulk.Set(db.NamespaceOutcome, []byte("a"), []byte("1")))
	bulk.DiscardLast()
	assert.Error(t, bulk.Flush())

	exist, err := memdb.Exist(db.NamespaceOutcome, []byte("a"))
	require.NoError(t, err)
	assert.False(t, exist)
}
