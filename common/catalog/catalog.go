// Package catalog loads the identifier and relationship type catalogs an
// editor works against, from the embedded default, a YAML file or SQL.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/lyzr/entityeditor/common/identifiers"
	"github.com/lyzr/entityeditor/common/models"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Semantic relationship roles used when assembling batch submissions
const (
	RoleAuthorWroteWork     = "author_wrote_work"
	RoleEditionContainsWork = "edition_contains_work"
	RoleSeriesAuthor        = "series_author"
	RoleSeriesWork          = "series_work"
	RoleSeriesEdition       = "series_edition"
	RoleSeriesEditionGroup  = "series_edition_group"
	RoleSeriesPublisher     = "series_publisher"
)

// seriesRoles maps a series member type to its membership role
var seriesRoles = map[models.EntityType]string{
	models.EntityAuthor:       RoleSeriesAuthor,
	models.EntityWork:         RoleSeriesWork,
	models.EntityEdition:      RoleSeriesEdition,
	models.EntityEditionGroup: RoleSeriesEditionGroup,
	models.EntityPublisher:    RoleSeriesPublisher,
}

// SeriesRole returns the role naming membership of entityType in a series
func SeriesRole(entityType models.EntityType) (string, bool) {
	role, ok := seriesRoles[entityType]
	return role, ok
}

// Catalog is the static configuration of one deployment
type Catalog struct {
	IdentifierTypes   []models.IdentifierType   `json:"identifierTypes" yaml:"identifierTypes"`
	RelationshipTypes []models.RelationshipType `json:"relationshipTypes" yaml:"relationshipTypes"`
	Roles             map[string]int            `json:"roles" yaml:"roles"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
}

// LoadFile reads a YAML catalog from path
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique, entity types are known, identifier types
// carry a validation regex and every role names an existing relationship
// type. Parent references are not checked;
// the resolver drops candidates with a dangling parent.
func (c *Catalog) Validate() error {
	seen := make(map[int]bool, len(c.IdentifierTypes))
	for _, t := range c.IdentifierTypes {
		if seen[t.ID] {
			return fmt.Errorf("duplicate identifier type id %d", t.ID)
		}
		seen[t.ID] = true
		if !t.EntityType.Valid() {
			return fmt.Errorf("identifier type %d: unknown entity type %q", t.ID, t.EntityType)
		}
		if t.ValidationRegex == "" {
			return fmt.Errorf("identifier type %d: missing validation regex", t.ID)
		}
	}

	relTypes := make(map[int]bool, len(c.RelationshipTypes))
	for _, t := range c.RelationshipTypes {
		if relTypes[t.ID] {
			return fmt.Errorf("duplicate relationship type id %d", t.ID)
		}
		relTypes[t.ID] = true
		if !t.SourceEntityType.Valid() || !t.TargetEntityType.Valid() {
			return fmt.Errorf("relationship type %d: unknown entity type %q -> %q", t.ID, t.SourceEntityType, t.TargetEntityType)
		}
	}

	for role, id := range c.Roles {
		if !relTypes[id] {
			return fmt.Errorf("role %s: relationship type %d not in catalog", role, id)
		}
	}
	return nil
}

// Role resolves a semantic role to its relationship type id
func (c *Catalog) Role(name string) (int, error) {
	id, ok := c.Roles[name]
	if !ok {
		return 0, fmt.Errorf("relationship role %s is not configured", name)
	}
	return id, nil
}

// RelationshipType looks up a relationship type by id
func (c *Catalog) RelationshipType(id int) (models.RelationshipType, bool) {
	for _, t := range c.RelationshipTypes {
		if t.ID == id {
			return t, true
		}
	}
	return models.RelationshipType{}, false
}

// Identifiers compiles the identifier type catalog
func (c *Catalog) Identifiers() (*identifiers.Catalog, error) {
	return identifiers.NewCatalog(c.IdentifierTypes)
}
