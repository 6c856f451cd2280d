package session

import (
	"fmt"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
)

// Name section fields
const (
	NameFieldName           = "name"
	NameFieldSortName       = "sortName"
	NameFieldLanguage       = "language"
	NameFieldDisambiguation = "disambiguation"
)

func rowKey(section string, id rows.RowID, field string) string {
	return section + "/" + string(id) + "/" + field
}

func rowPrefix(section string, id rows.RowID) string {
	return section + "/" + string(id) + "/"
}

// SetName sets a name section field. Text fields are debounced.
func (s *Session) SetName(field string, value any) error {
	if field == NameFieldDisambiguation {
		text, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: disambiguation expects text, got %T", models.ErrFieldType, value)
		}
		s.debounced("name/"+field, func() { s.disambiguation = text })
		return nil
	}

	// check the field eagerly so bad commands fail now, not in a timer
	if _, err := (models.Alias{}).WithField(field, value); err != nil {
		return err
	}
	apply := func() {
		updated, err := s.name.WithField(field, value)
		if err != nil {
			s.logger.Warn("name update rejected", "session_id", s.id, "field", field, "error", err)
			return
		}
		s.name = updated
	}

	if field == NameFieldLanguage {
		return s.mutate(func() error { apply(); return nil })
	}
	s.debounced("name/"+field, apply)
	return nil
}

// AddAlias appends an empty alias row
func (s *Session) AddAlias() (rows.RowID, error) {
	var id rows.RowID
	err := s.mutate(func() error {
		s.aliases, id = s.aliases.Add(s.gen, models.Alias{})
		return nil
	})
	return id, err
}

// UpdateAlias sets one alias field; name and sortName are debounced
func (s *Session) UpdateAlias(id rows.RowID, field string, value any) error {
	if _, err := (models.Alias{}).WithField(field, value); err != nil {
		return err
	}
	apply := func() {
		updated, err := rows.UpdateField(s.aliases, id, field, value)
		if err != nil {
			s.logger.Warn("alias update rejected", "session_id", s.id, "row", id, "error", err)
			return
		}
		s.aliases = updated
	}

	switch field {
	case models.AliasFieldName, models.AliasFieldSortName:
		s.debounced(rowKey("aliases", id, field), apply)
		return nil
	default:
		return s.mutate(func() error { apply(); return nil })
	}
}

// RemoveAlias deletes an alias row and drops its pending edits
func (s *Session) RemoveAlias(id rows.RowID) error {
	s.debounce.CancelPrefix(rowPrefix("aliases", id))
	return s.mutate(func() error {
		s.aliases = s.aliases.Remove(id)
		return nil
	})
}

// PruneAliases removes alias rows whose name and sort name are both blank
func (s *Session) PruneAliases() error {
	s.Flush()
	return s.mutate(func() error {
		for _, entry := range s.aliases.Entries() {
			if entry.Value.IsEmpty() {
				s.debounce.CancelPrefix(rowPrefix("aliases", entry.ID))
			}
		}
		s.aliases = s.aliases.PruneEmpty(models.Alias.IsEmpty)
		return nil
	})
}

// AddIdentifier appends an empty identifier row
func (s *Session) AddIdentifier() (rows.RowID, error) {
	var id rows.RowID
	err := s.mutate(func() error {
		s.identifierRows, id = s.identifierRows.Add(s.gen, models.Identifier{})
		return nil
	})
	return id, err
}

// SetIdentifierValue is debounced; when applied it infers the type from
// the raw value and canonicalises it
func (s *Session) SetIdentifierValue(id rows.RowID, raw string) {
	s.debounced(rowKey("identifiers", id, models.IdentifierFieldValue), func() {
		s.identifierRows = s.identifierRows.Update(id, func(row models.Identifier) models.Identifier {
			return s.identifiers.ApplyValue(row, raw)
		})
	})
}

// SetIdentifierType sets the type of an identifier row
func (s *Session) SetIdentifierType(id rows.RowID, typeID int) error {
	if typeID != 0 {
		if _, ok := s.identifiers.Lookup(typeID); !ok {
			return fmt.Errorf("identifier type %d is not available for %s", typeID, s.entityType)
		}
	}
	return s.mutate(func() error {
		updated, err := rows.UpdateField(s.identifierRows, id, models.IdentifierFieldType, typeID)
		if err != nil {
			return err
		}
		s.identifierRows = updated
		return nil
	})
}

// ConfirmIdentifier records that the user keeps a value failing validation
func (s *Session) ConfirmIdentifier(id rows.RowID, confirmed bool) error {
	return s.mutate(func() error {
		updated, err := rows.UpdateField(s.identifierRows, id, models.IdentifierFieldConfirmed, confirmed)
		if err != nil {
			return err
		}
		s.identifierRows = updated
		return nil
	})
}

// RemoveIdentifier deletes an identifier row and drops its pending edits
func (s *Session) RemoveIdentifier(id rows.RowID) error {
	s.debounce.CancelPrefix(rowPrefix("identifiers", id))
	return s.mutate(func() error {
		s.identifierRows = s.identifierRows.Remove(id)
		return nil
	})
}

// PruneIdentifiers removes identifier rows with no type and no value
func (s *Session) PruneIdentifiers() error {
	s.Flush()
	return s.mutate(func() error {
		s.identifierRows = s.identifierRows.PruneEmpty(models.Identifier.IsEmpty)
		return nil
	})
}

// IdentifierCompanion suggests the ISBN counterpart of an identifier row
func (s *Session) IdentifierCompanion(id rows.RowID) (models.Identifier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.identifierRows.Get(id)
	if !ok {
		return models.Identifier{}, false
	}
	return s.identifiers.Companion(row)
}

// AcceptCompanion adds the suggested counterpart of a row unless an
// identical identifier is already present
func (s *Session) AcceptCompanion(id rows.RowID) (rows.RowID, error) {
	var added rows.RowID
	err := s.mutate(func() error {
		row, ok := s.identifierRows.Get(id)
		if !ok {
			return fmt.Errorf("%w: identifier %s", ErrNoSuchRow, id)
		}
		companion, ok := s.identifiers.Companion(row)
		if !ok {
			return fmt.Errorf("identifier %s has no companion", id)
		}
		for _, entry := range s.identifierRows.Entries() {
			if entry.Value.Type == companion.Type && entry.Value.Value == companion.Value {
				added = entry.ID
				return nil
			}
		}
		s.identifierRows, added = s.identifierRows.Add(s.gen, companion)
		return nil
	})
	return added, err
}

// SetAnnotation sets the annotation text (debounced)
func (s *Session) SetAnnotation(text string) {
	s.debounced("annotation", func() { s.annotation = text })
}

// SetNote sets the revision note (debounced)
func (s *Session) SetNote(text string) {
	s.debounced("note", func() { s.note = text })
}

// SetAuthorCredits replaces the author credit of an edition
func (s *Session) SetAuthorCredits(credits []models.AuthorCredit) error {
	return s.mutate(func() error {
		s.authorCredits = append([]models.AuthorCredit(nil), credits...)
		return nil
	})
}
