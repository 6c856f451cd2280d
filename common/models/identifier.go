package models

import (
	"fmt"
	"strings"
)

// Identifier fields addressable through WithField
const (
	IdentifierFieldType      = "type"
	IdentifierFieldValue     = "value"
	IdentifierFieldConfirmed = "confirmed"
)

// IdentifierType describes one kind of external identifier
// Maps to: identifier_type table
type IdentifierType struct {
	ID    int    `db:"id" json:"id" yaml:"id"`
	Label string `db:"label" json:"label" yaml:"label"`

	// Matched against raw user input to infer the type; capture group 1,
	// when present, is the canonical value
	DetectionRegex string `db:"detection_regex" json:"detectionRegex" yaml:"detectionRegex"`

	// Matched against the canonical value to flag invalid input
	ValidationRegex string `db:"validation_regex" json:"validationRegex" yaml:"validationRegex"`

	EntityType  EntityType `db:"entity_type" json:"entityType" yaml:"entityType"`
	Description string     `db:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Deprecated  bool       `db:"deprecated" json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Identifier is one row of the identifier editor.
// Type is an identifier type id, 0 when unset. Confirmed records that the
// user kept a value that fails validation.
type Identifier struct {
	Type      int    `json:"type,omitempty"`
	Value     string `json:"value"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// IsEmpty reports whether the row carries neither a value nor a type
func (i Identifier) IsEmpty() bool {
	return strings.TrimSpace(i.Value) == "" && i.Type == 0
}

// WithField returns a copy of the identifier with one field replaced
func (i Identifier) WithField(field string, value any) (Identifier, error) {
	switch field {
	case IdentifierFieldType:
		n, err := asInt(field, value)
		if err != nil {
			return i, err
		}
		i.Type = n
	case IdentifierFieldValue:
		s, err := asString(field, value)
		if err != nil {
			return i, err
		}
		i.Value = s
	case IdentifierFieldConfirmed:
		b, err := asBool(field, value)
		if err != nil {
			return i, err
		}
		i.Confirmed = b
	default:
		return i, fmt.Errorf("%w: identifier has no field %q", ErrUnknownField, field)
	}
	return i, nil
}
