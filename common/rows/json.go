package rows

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the store as an ordered list of entries
func (s Store[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

// UnmarshalJSON decodes the ordered entry list produced by MarshalJSON
func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var entries []Entry[T]
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to decode row store: %w", err)
	}
	out := Store[T]{
		order: make([]RowID, 0, len(entries)),
		rows:  make(map[RowID]T, len(entries)),
	}
	for _, e := range entries {
		if _, dup := out.rows[e.ID]; dup {
			return fmt.Errorf("duplicate row id %q", e.ID)
		}
		out.order = append(out.order, e.ID)
		out.rows[e.ID] = e.Value
	}
	*s = out
	return nil
}
