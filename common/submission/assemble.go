package submission

import (
	"strings"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/series"
)

// SeriesSection is the series editor state of a Series entity
type SeriesSection struct {
	Order models.SeriesOrderState
	Items []models.Relationship
}

// Sections is the complete editing state of one entity
type Sections struct {
	EntityType     models.EntityType
	Name           models.Alias
	Disambiguation string
	Aliases        rows.Store[models.Alias]
	Identifiers    rows.Store[models.Identifier]
	Relationships  []models.Relationship
	Series         *SeriesSection
	AuthorCredits  []models.AuthorCredit
	Annotation     string
	Note           string
}

// AssembleSingleEntity merges all sections into one payload. The name
// section becomes the default alias, listed first. Empty alias and
// identifier rows are left out.
func AssembleSingleEntity(s Sections) Payload {
	p := Payload{
		EntityType:     s.EntityType,
		Aliases:        []AliasPayload{},
		Identifiers:    []IdentifierPayload{},
		Relationships:  []RelationshipPayload{},
		Annotation:     strings.TrimSpace(s.Annotation),
		Disambiguation: strings.TrimSpace(s.Disambiguation),
		Note:           strings.TrimSpace(s.Note),
	}

	if !s.Name.IsEmpty() {
		p.Aliases = append(p.Aliases, AliasPayload{
			Name:       s.Name.Name,
			SortName:   s.Name.SortName,
			LanguageID: s.Name.Language,
			Primary:    true,
			Default:    true,
		})
	}
	for _, alias := range s.Aliases.Values() {
		if alias.IsEmpty() {
			continue
		}
		p.Aliases = append(p.Aliases, AliasPayload{
			Name:       alias.Name,
			SortName:   alias.SortName,
			LanguageID: alias.Language,
			Primary:    alias.Primary,
		})
	}

	for _, identifier := range s.Identifiers.Values() {
		if strings.TrimSpace(identifier.Value) == "" {
			continue
		}
		p.Identifiers = append(p.Identifiers, IdentifierPayload{
			TypeID: identifier.Type,
			Value:  strings.TrimSpace(identifier.Value),
		})
	}

	for _, rel := range s.Relationships {
		p.Relationships = append(p.Relationships, relationshipPayload(rel))
	}

	if s.Series != nil {
		section := &SeriesPayload{
			OrderType:   s.Series.Order.OrderType,
			SeriesType:  s.Series.Order.SeriesType,
			SeriesItems: []RelationshipPayload{},
		}
		for _, item := range series.Sort(s.Series.Items, s.Series.Order.OrderType) {
			section.SeriesItems = append(section.SeriesItems, relationshipPayload(item))
		}
		p.SeriesSection = section
	}

	if len(s.AuthorCredits) > 0 {
		p.AuthorCredit = append([]models.AuthorCredit(nil), s.AuthorCredits...)
	}

	return p
}
