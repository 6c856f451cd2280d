package service

import (
	"fmt"
	"strings"

	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/models"
)

// GuessResult is what the editor shows while a value is typed
type GuessResult struct {
	Type      *models.IdentifierType `json:"type"`
	Value     string                 `json:"value"`
	Valid     bool                   `json:"valid"`
	Companion *models.Identifier     `json:"companion,omitempty"`
}

// ISBNResult is the ISBN-10/13 pair of a value
type ISBNResult struct {
	Input  string `json:"input"`
	ISBN10 string `json:"isbn10,omitempty"`
	ISBN13 string `json:"isbn13,omitempty"`
	Valid  bool   `json:"valid"`
}

// IdentifierService answers identifier lookups without a session
type IdentifierService struct {
	catalog *identifiers.Catalog
}

// NewIdentifierService creates an identifier service
func NewIdentifierService(catalog *identifiers.Catalog) *IdentifierService {
	return &IdentifierService{catalog: catalog}
}

// Types lists the identifier types of an entity type, or all of them
func (s *IdentifierService) Types(entityType models.EntityType) ([]models.IdentifierType, error) {
	if entityType == "" {
		return s.catalog.Types(), nil
	}
	if !entityType.Valid() {
		return nil, fmt.Errorf("invalid entity type: %q", entityType)
	}
	return s.catalog.ForEntity(entityType), nil
}

// Guess infers the type of raw among the types of entityType; an empty
// entityType considers every type
func (s *IdentifierService) Guess(entityType models.EntityType, raw string) (GuessResult, error) {
	scoped := s.catalog
	if entityType != "" {
		if !entityType.Valid() {
			return GuessResult{}, fmt.Errorf("invalid entity type: %q", entityType)
		}
		scoped = s.catalog.Scoped(entityType)
	}

	row := scoped.ApplyValue(models.Identifier{}, strings.TrimSpace(raw))
	result := GuessResult{Value: row.Value}
	if typ, ok := scoped.Lookup(row.Type); ok {
		result.Type = &typ
		result.Valid = scoped.IsValid(row.Type, row.Value)
	}
	if companion, ok := scoped.Companion(row); ok {
		result.Companion = &companion
	}
	return result, nil
}

// ISBN converts a value to both ISBN forms
func (s *IdentifierService) ISBN(value string) ISBNResult {
	result := ISBNResult{Input: value}
	switch {
	case identifiers.CheckISBN13(value):
		result.Valid = true
		result.ISBN13 = strings.ReplaceAll(strings.ReplaceAll(value, "-", ""), " ", "")
		result.ISBN10, _ = identifiers.ISBN13To10(value)
	case identifiers.CheckISBN10(value):
		result.Valid = true
		result.ISBN13, _ = identifiers.ISBN10To13(value)
		result.ISBN10, _ = identifiers.ISBN13To10(result.ISBN13)
	}
	return result
}
