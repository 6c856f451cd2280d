package models

import (
	"fmt"
	"strings"
)

// Alias fields addressable through WithField
const (
	AliasFieldName     = "name"
	AliasFieldSortName = "sortName"
	AliasFieldLanguage = "language"
	AliasFieldPrimary  = "primary"
)

// Alias is one row of the alias editor.
// Language is a language id, 0 when unset.
type Alias struct {
	Name     string `json:"name"`
	SortName string `json:"sortName"`
	Language int    `json:"language,omitempty"`
	Primary  bool   `json:"primary"`
	Default  bool   `json:"default,omitempty"`
}

// IsEmpty reports whether the user left both name fields blank
func (a Alias) IsEmpty() bool {
	return strings.TrimSpace(a.Name) == "" && strings.TrimSpace(a.SortName) == ""
}

// WithField returns a copy of the alias with one field replaced
func (a Alias) WithField(field string, value any) (Alias, error) {
	switch field {
	case AliasFieldName:
		s, err := asString(field, value)
		if err != nil {
			return a, err
		}
		a.Name = s
	case AliasFieldSortName:
		s, err := asString(field, value)
		if err != nil {
			return a, err
		}
		a.SortName = s
	case AliasFieldLanguage:
		n, err := asInt(field, value)
		if err != nil {
			return a, err
		}
		a.Language = n
	case AliasFieldPrimary:
		b, err := asBool(field, value)
		if err != nil {
			return a, err
		}
		a.Primary = b
	default:
		return a, fmt.Errorf("%w: alias has no field %q", ErrUnknownField, field)
	}
	return a, nil
}
