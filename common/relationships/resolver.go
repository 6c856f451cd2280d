package relationships

import (
	"sort"

	"github.com/lyzr/entityeditor/common/models"
)

// Logger interface for resolver logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Candidate is a relationship type that may link the two chosen entities,
// already oriented. Reversed is set when the type runs from the second
// entity to the first. Depth is the distance to the root type.
type Candidate struct {
	Type     models.RelationshipType `json:"relationshipType"`
	Source   models.Entity           `json:"sourceEntity"`
	Target   models.Entity           `json:"targetEntity"`
	Reversed bool                    `json:"reversed"`
	Depth    int                     `json:"depth"`
}

// Phrase returns the link phrase to show from the first entity's side
func (c Candidate) Phrase() string {
	if c.Reversed {
		return c.Type.ReverseLinkPhrase
	}
	return c.Type.LinkPhrase
}

// Indent returns the display indentation for the candidate
func (c Candidate) Indent(unit int) int {
	return c.Depth * unit
}

// Relationship turns the candidate into a new relationship row. The row id
// is assigned when the row is added to a Section.
func (c Candidate) Relationship() models.Relationship {
	return models.Relationship{
		Type:       c.Type,
		Source:     c.Source,
		Target:     c.Target,
		Attributes: []models.Attribute{},
	}
}

// nodeKey identifies a candidate in the hierarchy. Direction is part of the
// key so that forward children hang under forward parents only.
type nodeKey struct {
	typeID   int
	reversed bool
}

// GenerateCandidates lists every non-deprecated relationship type that can
// link a and b, ordered for indented display: roots sorted by
// (ChildOrder, ID), each followed by its sorted children, recursively.
// Candidates whose parent is not itself a candidate are dropped.
func GenerateCandidates(types []models.RelationshipType, a, b models.Entity) []Candidate {
	ordered, _ := generate(types, a, b)
	return ordered
}

func generate(types []models.RelationshipType, a, b models.Entity) ([]Candidate, []Candidate) {
	var flat []Candidate
	for _, t := range types {
		if t.Deprecated {
			continue
		}
		if t.SourceEntityType == a.Type && t.TargetEntityType == b.Type {
			flat = append(flat, Candidate{Type: t, Source: a, Target: b})
		}
		if t.SourceEntityType == b.Type && t.TargetEntityType == a.Type {
			flat = append(flat, Candidate{Type: t, Source: b, Target: a, Reversed: true})
		}
	}
	if len(flat) == 0 {
		return nil, nil
	}

	return flatten(flat)
}

// flatten builds the candidate forest and walks it in pre-order. It returns
// the ordered candidates and the ones no root could reach (dangling or
// cyclic parent references).
func flatten(flat []Candidate) ([]Candidate, []Candidate) {
	present := make(map[nodeKey]bool, len(flat))
	for _, c := range flat {
		present[nodeKey{c.Type.ID, c.Reversed}] = true
	}

	var roots []int
	children := make(map[nodeKey][]int)
	for i, c := range flat {
		if c.Type.IsRoot() {
			roots = append(roots, i)
			continue
		}
		parent := nodeKey{*c.Type.ParentID, c.Reversed}
		if !present[parent] {
			continue
		}
		children[parent] = append(children[parent], i)
	}

	byOrder := func(idx []int) {
		sort.SliceStable(idx, func(x, y int) bool {
			tx, ty := flat[idx[x]].Type, flat[idx[y]].Type
			if tx.ChildOrder != ty.ChildOrder {
				return tx.ChildOrder < ty.ChildOrder
			}
			return tx.ID < ty.ID
		})
	}
	byOrder(roots)
	for key := range children {
		byOrder(children[key])
	}

	ordered := make([]Candidate, 0, len(flat))
	visited := make([]bool, len(flat))

	var walk func(i, depth int)
	walk = func(i, depth int) {
		if visited[i] {
			return
		}
		visited[i] = true

		c := flat[i]
		c.Depth = depth
		ordered = append(ordered, c)

		for _, child := range children[nodeKey{c.Type.ID, c.Reversed}] {
			walk(child, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}

	var dropped []Candidate
	for i, seen := range visited {
		if !seen {
			dropped = append(dropped, flat[i])
		}
	}

	return ordered, dropped
}

// OtherEntityTypes lists the entity types that can appear on the other end
// of a relationship with an entity of type base, in EntityTypes order
func OtherEntityTypes(types []models.RelationshipType, base models.EntityType) []models.EntityType {
	allowed := make(map[models.EntityType]bool)
	for _, t := range types {
		if t.Deprecated {
			continue
		}
		if t.SourceEntityType == base {
			allowed[t.TargetEntityType] = true
		}
		if t.TargetEntityType == base {
			allowed[t.SourceEntityType] = true
		}
	}

	var out []models.EntityType
	for _, et := range models.EntityTypes {
		if allowed[et] {
			out = append(out, et)
		}
	}
	return out
}

// Resolver answers candidate queries against one relationship type catalog
type Resolver struct {
	types  []models.RelationshipType
	logger Logger
}

// NewResolver creates a resolver over a copy of types
func NewResolver(types []models.RelationshipType, logger Logger) *Resolver {
	owned := make([]models.RelationshipType, len(types))
	copy(owned, types)
	return &Resolver{
		types:  owned,
		logger: logger,
	}
}

// Candidates returns the ordered candidates between a and b. An empty
// result means no relationship is possible between the two entities.
func (r *Resolver) Candidates(a, b models.Entity) []Candidate {
	ordered, dropped := generate(r.types, a, b)
	if len(dropped) > 0 {
		ids := make([]int, len(dropped))
		for i, c := range dropped {
			ids[i] = c.Type.ID
		}
		r.logger.Warn("dropped relationship types with unreachable parents",
			"source_type", a.Type,
			"target_type", b.Type,
			"type_ids", ids)
	}
	r.logger.Debug("resolved relationship candidates",
		"source_type", a.Type,
		"target_type", b.Type,
		"count", len(ordered))
	return ordered
}

// OtherEntityTypes is OtherEntityTypes over the resolver's catalog
func (r *Resolver) OtherEntityTypes(base models.EntityType) []models.EntityType {
	return OtherEntityTypes(r.types, base)
}

// Types returns the catalog the resolver was built with
func (r *Resolver) Types() []models.RelationshipType {
	out := make([]models.RelationshipType, len(r.types))
	copy(out, r.types)
	return out
}
