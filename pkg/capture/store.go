// Package capture holds the plan and script each running instance has
// submitted through its capabilities.
package capture

import (
	"fmt"
	"sort"
	"sync"

	"github.com/entrhq/testforge/pkg/types"
)

// Record is what one instance has captured so far.
type Record struct {
	Plan      []string
	Script    string
	HasPlan   bool
	HasScript bool
}

// Store maps instance ids to records. It is safe for concurrent use; each
// instance only ever touches its own entry.
type Store struct {
	records map[string]*Record
	mu      sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Open creates an empty record for id. Opening an id twice is an error so
// two sessions can never share a record.
func (s *Store) Open(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; ok {
		return fmt.Errorf("capture record for instance %s is already open", id)
	}
	s.records[id] = &Record{}
	return nil
}

// SetPlan replaces the plan of an open record.
func (s *Store) SetPlan(id string, steps []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return types.AgentProtocolError(fmt.Sprintf("no capture record open for instance %s", id))
	}
	rec.Plan = append([]string(nil), steps...)
	rec.HasPlan = true
	return nil
}

// SetScript replaces the script of an open record.
func (s *Store) SetScript(id, script string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return types.AgentProtocolError(fmt.Sprintf("no capture record open for instance %s", id))
	}
	rec.Script = script
	rec.HasScript = true
	return nil
}

// Snapshot returns a copy of the record for id.
func (s *Store) Snapshot(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	out := *rec
	out.Plan = append([]string(nil), rec.Plan...)
	return out, true
}

// Close drops the record for id. Closing an unknown id is a no-op.
func (s *Store) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Len returns the number of open records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// IDs returns the open instance ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
