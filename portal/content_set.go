package portal

// Record is one content key with its value.
type Record struct {
	Key   ContentKey
	Value ContentValue
}

// ContentSet is an insertion ordered map from content key to value, keyed by
// the key encoding. The first value inserted for a key wins.
//
// A ContentSet is not safe for concurrent use.
type ContentSet struct {
	index   map[string]int
	records []Record
}

func NewContentSet() *ContentSet {
	return &ContentSet{index: make(map[string]int)}
}

// Insert adds the record unless the key is already present. It reports
// whether the record was added.
func (s *ContentSet) Insert(key ContentKey, value ContentValue) bool {
	k := string(key.Encode())
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = len(s.records)
	s.records = append(s.records, Record{Key: key, Value: value})
	return true
}

func (s *ContentSet) Has(key ContentKey) bool {
	_, ok := s.index[string(key.Encode())]
	return ok
}

func (s *ContentSet) Get(key ContentKey) (ContentValue, bool) {
	i, ok := s.index[string(key.Encode())]
	if !ok {
		return nil, false
	}
	return s.records[i].Value, true
}

func (s *ContentSet) Len() int {
	return len(s.records)
}

// Records returns the records in insertion order. The slice must not be
// modified.
func (s *ContentSet) Records() []Record {
	return s.records
}

// Merge inserts every record of other in its order, keeping existing values.
// It returns the number of records added.
func (s *ContentSet) Merge(other *ContentSet) int {
	added := 0
	for _, r := range other.records {
		if s.Insert(r.Key, r.Value) {
			added++
		}
	}
	return added
}

// Network returns the records whose key belongs to network, in order.
func (s *ContentSet) Network(network Network) []Record {
	var out []Record
	for _, r := range s.records {
		if r.Key.Network() == network {
			out = append(out, r)
		}
	}
	return out
}
