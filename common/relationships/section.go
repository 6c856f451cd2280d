package relationships

import (
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/undo"
)

// Section is the relationship list of one entity editor.
// Removing a relationship can be undone once; adding or editing one drops
// the pending undo since the snapshot would silently revert that edit too.
type Section struct {
	rows rows.Store[models.Relationship]
	undo undo.EditSet[rows.Store[models.Relationship]]
}

// NewSection loads persisted relationships under ids "0".."n-1"
func NewSection(existing []models.Relationship) *Section {
	loaded := make([]models.Relationship, len(existing))
	for i, rel := range existing {
		rel = rel.Clone()
		rel.RowID = rows.PersistedID(i)
		loaded[i] = rel
	}
	return &Section{rows: rows.FromValues(loaded)}
}

// Rows returns the current relationship rows
func (s *Section) Rows() rows.Store[models.Relationship] {
	return s.rows
}

// Add appends rel under a new synthetic id and returns that id
func (s *Section) Add(gen *rows.IDGenerator, rel models.Relationship) rows.RowID {
	id := gen.Next()
	rel = rel.Clone()
	rel.RowID = id
	s.rows = s.rows.Insert(id, rel)
	s.undo.Discard()
	return id
}

// Edit replaces the relationship stored under id, keeping its row id
func (s *Section) Edit(id rows.RowID, rel models.Relationship) bool {
	if !s.rows.Has(id) {
		return false
	}
	rel = rel.Clone()
	rel.RowID = id
	s.rows = s.rows.Update(id, func(models.Relationship) models.Relationship { return rel })
	s.undo.Discard()
	return true
}

// Remove deletes the relationship after taking an undo snapshot
func (s *Section) Remove(id rows.RowID) bool {
	if !s.rows.Has(id) {
		return false
	}
	s.undo.Snapshot(s.rows)
	s.rows = s.rows.Remove(id)
	return true
}

// Undo restores the rows from before the last removal
func (s *Section) Undo() bool {
	if !s.undo.Available() {
		return false
	}
	s.rows = s.undo.Undo(s.rows)
	return true
}

// CanUndo reports whether Undo would change anything
func (s *Section) CanUndo() bool {
	return s.undo.Available()
}

// Relationships returns clones of every row in order
func (s *Section) Relationships() []models.Relationship {
	values := s.rows.Values()
	out := make([]models.Relationship, len(values))
	for i, rel := range values {
		out[i] = rel.Clone()
	}
	return out
}
