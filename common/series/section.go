package series

import (
	"fmt"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/undo"
)

// Section is the series editor: ordering mode plus member relationships.
// Removing and reordering members can be undone once.
type Section struct {
	order models.SeriesOrderState
	items rows.Store[models.Relationship]
	undo  undo.EditSet[rows.Store[models.Relationship]]
}

// NewSection loads persisted members under ids "0".."n-1"
func NewSection(order models.SeriesOrderState, existing []models.Relationship) *Section {
	if order.OrderType == 0 {
		order.OrderType = models.OrderAutomatic
	}
	loaded := make([]models.Relationship, len(existing))
	for i, rel := range existing {
		rel = rel.Clone()
		rel.RowID = rows.PersistedID(i)
		loaded[i] = rel
	}
	return &Section{order: order, items: rows.FromValues(loaded)}
}

// OrderState returns the ordering mode and member type
func (s *Section) OrderState() models.SeriesOrderState {
	return s.order
}

// Items returns the member rows in insertion order
func (s *Section) Items() rows.Store[models.Relationship] {
	return s.items
}

// Ordered returns the members in display order
func (s *Section) Ordered() []models.Relationship {
	return Sort(s.items.Values(), s.order.OrderType)
}

// Add appends a member under a new synthetic id. Its position is left as
// given, so a member from NewItem sorts after every positioned one.
func (s *Section) Add(gen *rows.IDGenerator, rel models.Relationship) rows.RowID {
	id := gen.Next()
	rel = rel.Clone()
	rel.RowID = id
	s.items = s.items.Insert(id, rel)
	s.undo.Discard()
	return id
}

// Remove deletes a member after taking an undo snapshot. Manual positions
// are re-densified so no gap is left behind.
func (s *Section) Remove(id rows.RowID) bool {
	if !s.items.Has(id) {
		return false
	}
	s.undo.Snapshot(s.items)
	s.items = s.items.Remove(id)
	if s.order.IsManual() {
		s.writeBack(densify(s.Ordered()))
	}
	return true
}

// Reorder drags the member at display index from to index to
func (s *Section) Reorder(from, to int) bool {
	if !s.order.IsManual() {
		return false
	}
	ordered := s.Ordered()
	if from < 0 || from >= len(ordered) || to < 0 || to >= len(ordered) {
		return false
	}
	s.undo.Snapshot(s.items)
	s.writeBack(Reorder(ordered, from, to, s.order.OrderType))
	return true
}

// SetNumber sets the number attribute of one member
func (s *Section) SetNumber(id rows.RowID, number string) bool {
	if !s.items.Has(id) {
		return false
	}
	s.items = s.items.Update(id, func(rel models.Relationship) models.Relationship {
		return SetNumber(rel, number)
	})
	return true
}

// SetOrderType switches between automatic and manual ordering
func (s *Section) SetOrderType(orderType int) error {
	if orderType != models.OrderAutomatic && orderType != models.OrderManual {
		return fmt.Errorf("invalid series order type: %d", orderType)
	}
	if orderType == s.order.OrderType {
		return nil
	}
	s.writeBack(SwitchOrderType(s.items.Values(), s.order.OrderType, orderType))
	s.order.OrderType = orderType
	return nil
}

// SetSeriesType sets the entity type of the members
func (s *Section) SetSeriesType(entityType models.EntityType) {
	s.order.SeriesType = entityType
}

// Undo restores the members from before the last removal or reorder
func (s *Section) Undo() bool {
	if !s.undo.Available() {
		return false
	}
	s.items = s.undo.Undo(s.items)
	return true
}

// CanUndo reports whether Undo would change anything
func (s *Section) CanUndo() bool {
	return s.undo.Available()
}

// writeBack stores updated members by row id, leaving insertion order alone
func (s *Section) writeBack(updated []models.Relationship) {
	for _, rel := range updated {
		rel := rel
		s.items = s.items.Update(rel.RowID, func(models.Relationship) models.Relationship { return rel })
	}
}
