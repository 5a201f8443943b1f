// Package storage keeps assembled content records in a local key-value
// database, addressed by content id.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/morph-dev/portal-state-network-utils/db"
	"github.com/morph-dev/portal-state-network-utils/portal"
)

// Outcome is the stored result of distributing one record.
type Outcome struct {
	Published bool   `json:"published"`
	Peers     int    `json:"peers"`
	Error     string `json:"error,omitempty"`
}

// ContentStore stores encoded content values under their content id, with
// an index of the encoded keys.
type ContentStore struct {
	db db.DB
}

func NewContentStore(db db.DB) *ContentStore {
	return &ContentStore{
		db: db,
	}
}

// Put stores value and indexes key, atomically.
func (s *ContentStore) Put(key portal.ContentKey, value []byte) error {
	id := portal.ContentID(key)
	tx := s.db.NewTx()
	if err := tx.Set(db.NamespaceContent, id[:], value); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Set(db.NamespaceContentKey, id[:], key.Encode()); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// Get returns the encoded value of key.
func (s *ContentStore) Get(key portal.ContentKey) ([]byte, bool, error) {
	id := portal.ContentID(key)
	return s.db.Get(db.NamespaceContent, id[:])
}

func (s *ContentStore) Has(key portal.ContentKey) (bool, error) {
	id := portal.ContentID(key)
	return s.db.Exist(db.NamespaceContent, id[:])
}

// Keys returns the stored keys of network ordered by content id.
func (s *ContentStore) Keys(network portal.Network) ([]portal.ContentKey, error) {
	start, end := db.NamespaceRange(db.NamespaceContentKey)
	iter := s.db.Iterator(start, end)
	defer iter.Close()

	var keys []portal.ContentKey
	for ; iter.Valid(); iter.Next() {
		raw, err := iter.Value()
		if err != nil {
			return nil, err
		}
		key, err := portal.DecodeKey(raw)
		if err != nil {
			id, _ := iter.Key()
			return nil, fmt.Errorf("stored key %x: %w", db.StripNamespace(db.NamespaceContentKey, id), err)
		}
		if key.Network() == network {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Record loads the stored record of key and decodes its value.
func (s *ContentStore) Record(key portal.ContentKey) (portal.Record, bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return portal.Record{}, ok, err
	}
	value, err := portal.DecodeValue(key, raw)
	if err != nil {
		return portal.Record{}, false, fmt.Errorf("stored value of %s: %w", portal.ContentID(key), err)
	}
	return portal.Record{Key: key, Value: value}, true, nil
}

// RecordOutcomes stores the distribution outcome of every key in one batch.
func (s *ContentStore) RecordOutcomes(outcomes map[common.Hash]Outcome) error {
	bulk := s.db.NewBulk()
	for id, outcome := range outcomes {
		enc, err := json.Marshal(outcome)
		if err != nil {
			bulk.DiscardLast()
			return err
		}
		if err := bulk.Set(db.NamespaceOutcome, id[:], enc); err != nil {
			bulk.DiscardLast()
			return err
		}
	}
	return bulk.Flush()
}

// Outcome returns the last recorded distribution outcome of key.
func (s *ContentStore) Outcome(key portal.ContentKey) (Outcome, bool, error) {
	id := portal.ContentID(key)
	raw, ok, err := s.db.Get(db.NamespaceOutcome, id[:])
	if err != nil || !ok {
		return Outcome{}, ok, err
	}
	var outcome Outcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return Outcome{}, false, err
	}
	return outcome, true, nil
}

// Summary counts the stored records of one network by distribution outcome.
type Summary struct {
	Records     int
	Published   int
	Failed      int
	Unpublished int
}

// Summarize decodes every stored record of network and tallies the recorded
// outcomes. A record without an outcome counts as unpublished.
func (s *ContentStore) Summarize(network portal.Network) (Summary, error) {
	keys, err := s.Keys(network)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for _, key := range keys {
		_, ok, err := s.Record(key)
		if err != nil {
			return Summary{}, err
		}
		if !ok {
			return Summary{}, fmt.Errorf("stored key %s has no value", key)
		}
		summary.Records++

		outcome, ok, err := s.Outcome(key)
		switch {
		case err != nil:
			return Summary{}, err
		case !ok:
			summary.Unpublished++
		case outcome.Published:
			summary.Published++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}
