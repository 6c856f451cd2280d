package identifiers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lyzr/entityeditor/common/models"
)

// entry is an identifier type with its regexes compiled
type entry struct {
	typ        models.IdentifierType
	detection  *regexp.Regexp
	validation *regexp.Regexp
}

// Catalog is the immutable list of identifier types an editor can use.
// Order is significant: Guess returns the first matching type.
type Catalog struct {
	entries []entry
	byID    map[int]int
}

// NewCatalog compiles the detection and validation regexes of every type
func NewCatalog(types []models.IdentifierType) (*Catalog, error) {
	c := &Catalog{
		entries: make([]entry, 0, len(types)),
		byID:    make(map[int]int, len(types)),
	}

	for _, t := range types {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate identifier type id %d", t.ID)
		}

		e := entry{typ: t}
		var err error
		if t.DetectionRegex != "" {
			if e.detection, err = regexp.Compile(t.DetectionRegex); err != nil {
				return nil, fmt.Errorf("identifier type %d (%s): invalid detection regex: %w", t.ID, t.Label, err)
			}
		}
		if t.ValidationRegex != "" {
			if e.validation, err = regexp.Compile(t.ValidationRegex); err != nil {
				return nil, fmt.Errorf("identifier type %d (%s): invalid validation regex: %w", t.ID, t.Label, err)
			}
		}

		c.byID[t.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// MustCatalog is like NewCatalog but panics on error
func MustCatalog(types []models.IdentifierType) *Catalog {
	c, err := NewCatalog(types)
	if err != nil {
		panic(fmt.Sprintf("failed to build identifier catalog: %v", err))
	}
	return c
}

// Types returns the catalog entries in catalog order
func (c *Catalog) Types() []models.IdentifierType {
	out := make([]models.IdentifierType, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.typ
	}
	return out
}

// ForEntity returns the types usable on the given entity type
func (c *Catalog) ForEntity(entityType models.EntityType) []models.IdentifierType {
	var out []models.IdentifierType
	for _, e := range c.entries {
		if e.typ.EntityType == entityType && !e.typ.Deprecated {
			out = append(out, e.typ)
		}
	}
	return out
}

// Scoped returns the catalog restricted to one entity type, keeping
// catalog order and the compiled regexes
func (c *Catalog) Scoped(entityType models.EntityType) *Catalog {
	out := &Catalog{byID: make(map[int]int)}
	for _, e := range c.entries {
		if e.typ.EntityType == entityType {
			out.byID[e.typ.ID] = len(out.entries)
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// Lookup resolves a type id
func (c *Catalog) Lookup(id int) (models.IdentifierType, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.IdentifierType{}, false
	}
	return c.entries[i].typ, true
}

// ByLabel resolves a type by its label, case-insensitively
func (c *Catalog) ByLabel(label string) (models.IdentifierType, bool) {
	for _, e := range c.entries {
		if strings.EqualFold(e.typ.Label, label) {
			return e.typ, true
		}
	}
	return models.IdentifierType{}, false
}

// Guess returns the first non-deprecated type whose detection regex
// matches raw
func (c *Catalog) Guess(raw string) (models.IdentifierType, bool) {
	if raw == "" {
		return models.IdentifierType{}, false
	}
	for _, e := range c.entries {
		if e.typ.Deprecated || e.detection == nil {
			continue
		}
		if e.detection.MatchString(raw) {
			return e.typ, true
		}
	}
	return models.IdentifierType{}, false
}

// CanonicalValue strips raw down to capture group 1 of the type's detection
// regex, e.g. a URL reduced to the bare identifier. Without a (non-empty)
// capture group raw is returned unchanged.
func (c *Catalog) CanonicalValue(raw string, typeID int) string {
	i, ok := c.byID[typeID]
	if !ok || c.entries[i].detection == nil {
		return raw
	}
	match := c.entries[i].detection.FindStringSubmatch(raw)
	if len(match) > 1 && match[1] != "" {
		return match[1]
	}
	return raw
}

// IsValid checks value against the validation regex of the type. A type
// without one validates nothing.
func (c *Catalog) IsValid(typeID int, value string) bool {
	if value == "" {
		return false
	}
	i, ok := c.byID[typeID]
	if !ok {
		return false
	}
	if c.entries[i].validation == nil {
		return false
	}
	return c.entries[i].validation.MatchString(value)
}
