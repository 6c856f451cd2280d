package identifiers

import (
	"github.com/lyzr/entityeditor/common/models"
)

// Catalog labels of the two ISBN types, used to pair companion suggestions
const (
	LabelISBN10 = "ISBN-10"
	LabelISBN13 = "ISBN-13"
)

// ApplyValue is the identifier row transition for a new raw value.
// When a type can be guessed the row takes that type and the canonical
// value; otherwise the raw value is kept with the current type. Changing the
// value drops any earlier confirmation of an invalid value.
func (c *Catalog) ApplyValue(row models.Identifier, raw string) models.Identifier {
	value := raw
	if guessed, ok := c.Guess(raw); ok {
		row.Type = guessed.ID
		value = c.CanonicalValue(raw, guessed.ID)
	}
	if value != row.Value {
		row.Confirmed = false
	}
	row.Value = value
	return row
}

// NeedsConfirmation reports whether the row fails validation and the user
// has not yet confirmed it
func (c *Catalog) NeedsConfirmation(row models.Identifier) bool {
	if row.Value == "" || row.Confirmed {
		return false
	}
	return !c.IsValid(row.Type, row.Value)
}

// Companion suggests the ISBN counterpart of an ISBN row: an ISBN-13 row
// yields its ISBN-10 and vice versa. Other rows yield nothing.
func (c *Catalog) Companion(row models.Identifier) (models.Identifier, bool) {
	typ, ok := c.Lookup(row.Type)
	if !ok {
		return models.Identifier{}, false
	}

	var (
		converted string
		target    models.IdentifierType
	)
	switch typ.Label {
	case LabelISBN13:
		if converted, ok = ISBN13To10(row.Value); !ok {
			return models.Identifier{}, false
		}
		target, ok = c.ByLabel(LabelISBN10)
	case LabelISBN10:
		if converted, ok = ISBN10To13(row.Value); !ok {
			return models.Identifier{}, false
		}
		target, ok = c.ByLabel(LabelISBN13)
	default:
		return models.Identifier{}, false
	}
	if !ok {
		return models.Identifier{}, false
	}

	return models.Identifier{Type: target.ID, Value: converted}, true
}
