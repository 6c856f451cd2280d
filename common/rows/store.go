package rows

// Store is an ordered collection of rows keyed by RowID.
// Stores are values: every operation returns a new Store and never mutates
// the receiver, so an older Store can be kept as an undo snapshot.
type Store[T any] struct {
	order []RowID
	rows  map[RowID]T
}

// Entry is one row together with its id
type Entry[T any] struct {
	ID    RowID `json:"rowID"`
	Value T     `json:"value"`
}

// Editable is implemented by row types whose fields can be set by name
type Editable[T any] interface {
	WithField(field string, value any) (T, error)
}

// New returns an empty store
func New[T any]() Store[T] {
	return Store[T]{rows: map[RowID]T{}}
}

// FromValues pre-populates a store with persisted rows, ids "0".."n-1"
func FromValues[T any](values []T) Store[T] {
	s := Store[T]{
		order: make([]RowID, 0, len(values)),
		rows:  make(map[RowID]T, len(values)),
	}
	for i, v := range values {
		id := PersistedID(i)
		s.order = append(s.order, id)
		s.rows[id] = v
	}
	return s
}

func (s Store[T]) clone() Store[T] {
	out := Store[T]{
		order: make([]RowID, len(s.order)),
		rows:  make(map[RowID]T, len(s.rows)),
	}
	copy(out.order, s.order)
	for id, v := range s.rows {
		out.rows[id] = v
	}
	return out
}

// Add appends value under the next synthetic id
func (s Store[T]) Add(gen *IDGenerator, value T) (Store[T], RowID) {
	id := gen.Next()
	return s.Insert(id, value), id
}

// Insert appends value under id, replacing in place if id already exists
func (s Store[T]) Insert(id RowID, value T) Store[T] {
	out := s.clone()
	if _, exists := out.rows[id]; !exists {
		out.order = append(out.order, id)
	}
	out.rows[id] = value
	return out
}

// Update replaces the row with fn(row). Missing ids are a no-op.
func (s Store[T]) Update(id RowID, fn func(T) T) Store[T] {
	current, ok := s.rows[id]
	if !ok {
		return s
	}
	out := s.clone()
	out.rows[id] = fn(current)
	return out
}

// Remove deletes the row. Other rows keep their ids; missing ids are a no-op.
func (s Store[T]) Remove(id RowID) Store[T] {
	if _, ok := s.rows[id]; !ok {
		return s
	}
	out := Store[T]{
		order: make([]RowID, 0, len(s.order)-1),
		rows:  make(map[RowID]T, len(s.rows)-1),
	}
	for _, existing := range s.order {
		if existing == id {
			continue
		}
		out.order = append(out.order, existing)
		out.rows[existing] = s.rows[existing]
	}
	return out
}

// PruneEmpty removes every row for which isEmpty holds
func (s Store[T]) PruneEmpty(isEmpty func(T) bool) Store[T] {
	out := Store[T]{
		order: make([]RowID, 0, len(s.order)),
		rows:  make(map[RowID]T, len(s.rows)),
	}
	for _, id := range s.order {
		v := s.rows[id]
		if isEmpty(v) {
			continue
		}
		out.order = append(out.order, id)
		out.rows[id] = v
	}
	return out
}

// Get returns the row stored under id
func (s Store[T]) Get(id RowID) (T, bool) {
	v, ok := s.rows[id]
	return v, ok
}

// Has reports whether id is present
func (s Store[T]) Has(id RowID) bool {
	_, ok := s.rows[id]
	return ok
}

// Len returns the number of rows
func (s Store[T]) Len() int {
	return len(s.order)
}

// IDs returns the row ids in insertion order
func (s Store[T]) IDs() []RowID {
	out := make([]RowID, len(s.order))
	copy(out, s.order)
	return out
}

// Values returns the rows in insertion order
func (s Store[T]) Values() []T {
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

// Entries returns id/value pairs in insertion order
func (s Store[T]) Entries() []Entry[T] {
	out := make([]Entry[T], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Entry[T]{ID: id, Value: s.rows[id]})
	}
	return out
}

// UpdateField sets one named field of the row stored under id.
// Missing ids are a no-op; an unknown field or bad value is an error and
// leaves the store unchanged.
func UpdateField[T Editable[T]](s Store[T], id RowID, field string, value any) (Store[T], error) {
	current, ok := s.rows[id]
	if !ok {
		return s, nil
	}
	updated, err := current.WithField(field, value)
	if err != nil {
		return s, err
	}
	out := s.clone()
	out.rows[id] = updated
	return out, nil
}

// Equal reports whether both stores hold the same rows in the same order
func Equal[T comparable](a, b Store[T]) bool {
	return EqualFunc(a, b, func(x, y T) bool { return x == y })
}

// EqualFunc is Equal with a caller-supplied row comparison
func EqualFunc[T any](a, b Store[T], eq func(x, y T) bool) bool {
	if len(a.order) != len(b.order) {
		return false
	}
	for i, id := range a.order {
		if b.order[i] != id {
			return false
		}
		if !eq(a.rows[id], b.rows[id]) {
			return false
		}
	}
	return true
}
