package session

import (
	"fmt"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/series"
)

// Candidates lists the relationship types possible between the edited
// entity and other, in display order
func (s *Session) Candidates(other models.Entity) []relationships.Candidate {
	return s.resolver.Candidates(s.Entity(), other)
}

// findCandidate picks the candidate with the given type and direction
func (s *Session) findCandidate(other models.Entity, typeID int, reversed bool) (relationships.Candidate, error) {
	for _, c := range s.resolver.Candidates(s.entityLocked(), other) {
		if c.Type.ID == typeID && c.Reversed == reversed {
			return c, nil
		}
	}
	return relationships.Candidate{}, fmt.Errorf("relationship type %d (reversed=%t) is not possible between %s and %s",
		typeID, reversed, s.entityType, other.Type)
}

// AddRelationship adds a relationship of the chosen candidate type
func (s *Session) AddRelationship(other models.Entity, typeID int, reversed bool) (rows.RowID, error) {
	var id rows.RowID
	err := s.mutate(func() error {
		c, err := s.findCandidate(other, typeID, reversed)
		if err != nil {
			return err
		}
		id = s.relationships.Add(s.gen, c.Relationship())
		return nil
	})
	return id, err
}

// EditRelationship replaces the type or other entity of a relationship row
func (s *Session) EditRelationship(id rows.RowID, other models.Entity, typeID int, reversed bool) error {
	return s.mutate(func() error {
		current, ok := s.relationships.Rows().Get(id)
		if !ok {
			return fmt.Errorf("%w: relationship %s", ErrNoSuchRow, id)
		}
		c, err := s.findCandidate(other, typeID, reversed)
		if err != nil {
			return err
		}
		current.Type = c.Type
		current.Source = c.Source
		current.Target = c.Target
		s.relationships.Edit(id, current)
		return nil
	})
}

// RemoveRelationship deletes a relationship; it can be undone once
func (s *Session) RemoveRelationship(id rows.RowID) error {
	return s.mutate(func() error {
		if !s.relationships.Remove(id) {
			return fmt.Errorf("%w: relationship %s", ErrNoSuchRow, id)
		}
		return nil
	})
}

// UndoRelationship restores the relationships from before the last removal
func (s *Session) UndoRelationship() (bool, error) {
	var undone bool
	err := s.mutate(func() error {
		undone = s.relationships.Undo()
		return nil
	})
	return undone, err
}

// CanUndoRelationship reports whether a relationship removal can be undone
func (s *Session) CanUndoRelationship() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relationships.CanUndo()
}

// seriesOp runs fn on the series section of a Series entity
func (s *Session) seriesOp(fn func(sec *series.Section) error) error {
	return s.mutate(func() error {
		if s.series == nil {
			return ErrNotSeries
		}
		return fn(s.series)
	})
}

// AddSeriesItem adds member to the series. A zero typeID picks the
// membership type configured for the series' member type.
func (s *Session) AddSeriesItem(member models.Entity, typeID int) (rows.RowID, error) {
	var id rows.RowID
	err := s.seriesOp(func(sec *series.Section) error {
		memberType := sec.OrderState().SeriesType
		if member.Type != "" && member.Type != memberType {
			return fmt.Errorf("series holds %s entities, got %s", memberType, member.Type)
		}
		if typeID == 0 {
			var ok bool
			if typeID, ok = s.seriesRole(memberType); !ok {
				return fmt.Errorf("no series relationship type for %s", memberType)
			}
		}
		relType, ok := s.relationshipType(typeID)
		if !ok {
			return fmt.Errorf("unknown relationship type %d", typeID)
		}
		id = sec.Add(s.gen, series.NewItem(member, s.entityLocked(), relType))
		return nil
	})
	return id, err
}

func (s *Session) seriesRole(memberType models.EntityType) (int, bool) {
	id, ok := s.seriesRoles[memberType]
	return id, ok
}

func (s *Session) relationshipType(id int) (models.RelationshipType, bool) {
	for _, t := range s.resolver.Types() {
		if t.ID == id {
			return t, true
		}
	}
	return models.RelationshipType{}, false
}

// RemoveSeriesItem deletes a member; it can be undone once
func (s *Session) RemoveSeriesItem(id rows.RowID) error {
	s.debounce.CancelPrefix(rowPrefix("series", id))
	return s.seriesOp(func(sec *series.Section) error {
		if !sec.Remove(id) {
			return fmt.Errorf("%w: series item %s", ErrNoSuchRow, id)
		}
		return nil
	})
}

// ReorderSeries drags the member at display index from to index to.
// Automatic order ignores drags and reports false.
func (s *Session) ReorderSeries(from, to int) (bool, error) {
	var moved bool
	err := s.seriesOp(func(sec *series.Section) error {
		moved = sec.Reorder(from, to)
		return nil
	})
	return moved, err
}

// SetSeriesNumber sets the free-text number of a member (debounced)
func (s *Session) SetSeriesNumber(id rows.RowID, number string) error {
	if s.series == nil {
		return ErrNotSeries
	}
	s.debounced(rowKey("series", id, models.RelationshipFieldNumber), func() {
		s.series.SetNumber(id, number)
	})
	return nil
}

// SetSeriesOrderType switches between automatic and manual order
func (s *Session) SetSeriesOrderType(orderType int) error {
	s.Flush()
	return s.seriesOp(func(sec *series.Section) error {
		return sec.SetOrderType(orderType)
	})
}

// SetSeriesType sets the entity type of the series members
func (s *Session) SetSeriesType(entityType models.EntityType) error {
	if !entityType.Valid() || entityType == models.EntitySeries {
		return fmt.Errorf("invalid series member type: %q", entityType)
	}
	return s.seriesOp(func(sec *series.Section) error {
		sec.SetSeriesType(entityType)
		return nil
	})
}

// UndoSeries restores the members from before the last removal or reorder
func (s *Session) UndoSeries() (bool, error) {
	var undone bool
	err := s.seriesOp(func(sec *series.Section) error {
		undone = sec.Undo()
		return nil
	})
	return undone, err
}

// OrderedSeriesItems returns the series members in display order
func (s *Session) OrderedSeriesItems() ([]models.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series == nil {
		return nil, ErrNotSeries
	}
	return s.series.Ordered(), nil
}
