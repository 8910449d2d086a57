package canvas

import (
	"encoding/json"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opencanvas/canvasd/internal/canvaserr"
)

// Snapshot is a named, independent copy of the scene at a point in time.
type Snapshot struct {
	Name      string     `json:"name"`
	Elements  []*Element `json:"elements"`
	CreatedAt string     `json:"createdAt"`
}

// Store is the authoritative in-memory scene store. All operations
// serialize behind a single mutex, the same way other in-process
// shared-map services in this codebase guard their maps rather than
// routing through a dedicated goroutine.
type Store struct {
	mu       sync.Mutex
	byID     map[string]*Element
	order    []string // element ids in Z-order
	appState AppState
	files    map[string]any

	snapshots map[string]*Snapshot

	now func() time.Time
}

// NewStore constructs an empty scene store, created empty on service
// startup.
func NewStore() *Store {
	return &Store{
		byID:      make(map[string]*Element),
		appState:  DefaultAppState(),
		files:     make(map[string]any),
		snapshots: make(map[string]*Snapshot),
		now:       time.Now,
	}
}

// List returns elements in Z-order.
func (s *Store) List() []*Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() []*Element {
	out := make([]*Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Scene returns the full wire scene (elements + appState + files).
func (s *Store) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make(map[string]any, len(s.files))
	for k, v := range s.files {
		files[k] = v
	}
	return Scene{Elements: s.listLocked(), AppState: s.appState, Files: files}
}

// Get returns the element with id, or NotFound.
func (s *Store) Get(id string) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.byID[id]
	if !ok {
		return nil, canvaserr.New(canvaserr.NotFound, "element %q not found", id)
	}
	return el, nil
}

// Put inserts or replaces el by id. If el.ID is already present its
// ordering position is preserved; otherwise it is appended.
func (s *Store) Put(el *Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(el)
}

func (s *Store) putLocked(el *Element) {
	if _, exists := s.byID[el.ID]; !exists {
		s.order = append(s.order, el.ID)
	}
	s.byID[el.ID] = el
}

// Patch merges delta fields onto the stored element, preserving any field
// absent from delta (so a partial patch never silently zeroes e.g. angle),
// then bumps version/updated/versionNonce/updatedAt.
func (s *Store) Patch(id string, delta map[string]any) (*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return nil, canvaserr.New(canvaserr.NotFound, "element %q not found", id)
	}

	merged, err := mergeDelta(existing, delta)
	if err != nil {
		return nil, canvaserr.New(canvaserr.InvalidArgument, "invalid patch: %v", err)
	}

	merged.ID = existing.ID
	merged.Version = existing.Version + 1
	merged.VersionNonce = rand.Uint32()
	now := s.now()
	merged.Updated = now.UnixMilli()
	merged.UpdatedAt = now.UTC().Format(time.RFC3339Nano)
	merged.IsDeleted = false

	s.byID[id] = merged
	return merged, nil
}

// mergeDelta applies delta on top of existing's JSON projection so any key
// absent from delta is left untouched, regardless of its zero-value-ness.
func mergeDelta(existing *Element, delta map[string]any) (*Element, error) {
	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	var base map[string]any
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	for k, v := range delta {
		base[k] = v
	}
	mergedRaw, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var merged Element
	if err := json.Unmarshal(mergedRaw, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Delete removes id from the store, reporting whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Element)
	s.order = nil
}

// Replace atomically replaces the live element set.
func (s *Store) Replace(elements []*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Element, len(elements))
	s.order = make([]string, 0, len(elements))
	for _, el := range elements {
		s.byID[el.ID] = el
		s.order = append(s.order, el.ID)
	}
}

// Count returns the number of stored elements.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// WorkingMap returns a copy of the id→element map as it stands now, used by
// the arrow binding resolver to resolve references against already-stored
// elements in addition to the current batch.
func (s *Store) WorkingMap() map[string]*Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Element, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

// SnapshotCreate creates (or overwrites) a named snapshot holding a deep
// copy of the current element set, independent of later mutations.
func (s *Store) SnapshotCreate(name string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	elements := make([]*Element, 0, len(s.order))
	for _, id := range s.order {
		elements = append(elements, s.byID[id].Clone())
	}
	snap := &Snapshot{
		Name:      name,
		Elements:  elements,
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
	s.snapshots[name] = snap
	return snap
}

// SnapshotList returns all snapshots, most-recently-created last.
func (s *Store) SnapshotList() []*Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339Nano, out[i].CreatedAt)
		tj, _ := time.Parse(time.RFC3339Nano, out[j].CreatedAt)
		return ti.Before(tj)
	})
	return out
}

// SnapshotGet returns the named snapshot, or NotFound.
func (s *Store) SnapshotGet(name string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[name]
	if !ok {
		return nil, canvaserr.New(canvaserr.NotFound, "snapshot %q not found", name)
	}
	return snap, nil
}

// SnapshotRestore replaces the live element set with a fresh deep copy of
// the named snapshot's elements.
func (s *Store) SnapshotRestore(name string) error {
	s.mu.Lock()
	snap, ok := s.snapshots[name]
	s.mu.Unlock()
	if !ok {
		return canvaserr.New(canvaserr.NotFound, "snapshot %q not found", name)
	}
	restored := make([]*Element, 0, len(snap.Elements))
	for _, el := range snap.Elements {
		restored = append(restored, el.Clone())
	}
	s.Replace(restored)
	return nil
}

// Query is the composite filter predicate used by Search.
type Query struct {
	Types           []string
	FieldEquals     map[string]string
	MinWidth        *float64
	MaxWidth        *float64
	MinHeight       *float64
	MaxHeight       *float64
	TextContains    string
}

// Search returns elements matching q, in Z-order.
func (s *Store) Search(q Query) []*Element {
	all := s.List()
	out := make([]*Element, 0)
	for _, el := range all {
		if matches(el, q) {
			out = append(out, el)
		}
	}
	return out
}

func matches(el *Element, q Query) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if el.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for key, want := range q.FieldEquals {
		got, ok := fieldAsString(el, key)
		if !ok || got != want {
			return false
		}
	}
	if q.MinWidth != nil && el.Width < *q.MinWidth {
		return false
	}
	if q.MaxWidth != nil && el.Width > *q.MaxWidth {
		return false
	}
	if q.MinHeight != nil && el.Height < *q.MinHeight {
		return false
	}
	if q.MaxHeight != nil && el.Height > *q.MaxHeight {
		return false
	}
	if q.TextContains != "" {
		if !strings.Contains(strings.ToLower(el.Text), strings.ToLower(q.TextContains)) {
			return false
		}
	}
	return true
}

// fieldAsString projects an arbitrary element field to its String() form
// for the search endpoint's arbitrary-field string-equality clause. Keys
// not carried by an element fail the predicate.
func fieldAsString(el *Element, key string) (string, bool) {
	raw, err := json.Marshal(el)
	if err != nil {
		return "", false
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", false
	}
	v, ok := generic[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return trimFloat(t), true
	case bool:
		if t {
			return "true", true
		}
		return "false", true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
