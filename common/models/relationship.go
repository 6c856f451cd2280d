package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lyzr/entityeditor/common/rows"
)

// Relationship attribute types
const (
	// AttributePosition holds the manual series order (dense 0..n-1)
	AttributePosition = 1
	// AttributeNumber holds the free-text number used for automatic series order
	AttributeNumber = 2
)

// Relationship fields addressable through WithField
const (
	RelationshipFieldNumber   = "number"
	RelationshipFieldPosition = "position"
)

// RelationshipType describes a legal relationship between two entity types.
// Types form a forest through ParentID.
// Maps to: relationship_type table
type RelationshipType struct {
	ID                int        `db:"id" json:"id" yaml:"id"`
	Label             string     `db:"label" json:"label" yaml:"label"`
	LinkPhrase        string     `db:"link_phrase" json:"linkPhrase" yaml:"linkPhrase"`
	ReverseLinkPhrase string     `db:"reverse_link_phrase" json:"reverseLinkPhrase" yaml:"reverseLinkPhrase"`
	SourceEntityType  EntityType `db:"source_entity_type" json:"sourceEntityType" yaml:"sourceEntityType"`
	TargetEntityType  EntityType `db:"target_entity_type" json:"targetEntityType" yaml:"targetEntityType"`
	ParentID          *int       `db:"parent_id" json:"parentId" yaml:"parentId"`
	ChildOrder        int        `db:"child_order" json:"childOrder" yaml:"childOrder"`
	Deprecated        bool       `db:"deprecated" json:"deprecated" yaml:"deprecated"`
	Description       string     `db:"description" json:"description,omitempty" yaml:"description,omitempty"`
}

// IsRoot reports whether the type has no parent in the hierarchy
func (t RelationshipType) IsRoot() bool {
	return t.ParentID == nil
}

// AttributeValue is the value of a relationship attribute
type AttributeValue struct {
	TextValue *string `json:"textValue"`
}

// Attribute is one typed attribute attached to a relationship
type Attribute struct {
	AttributeType int            `json:"attributeType"`
	Value         AttributeValue `json:"value"`
}

// Relationship is one row of the relationship editor or a series member.
// AttributeSetID is set only for relationships loaded from persisted data.
type Relationship struct {
	RowID          rows.RowID       `json:"rowID"`
	Type           RelationshipType `json:"relationshipType"`
	Source         Entity           `json:"sourceEntity"`
	Target         Entity           `json:"targetEntity"`
	Attributes     []Attribute      `json:"attributes"`
	AttributeSetID *int             `json:"attributeSetId,omitempty"`
}

// IsNew reports whether the relationship was added during this session
func (r Relationship) IsNew() bool {
	return r.AttributeSetID == nil
}

// Clone returns a deep copy so snapshots never share attribute storage
func (r Relationship) Clone() Relationship {
	out := r
	if r.Attributes != nil {
		out.Attributes = make([]Attribute, len(r.Attributes))
		for i, attr := range r.Attributes {
			out.Attributes[i] = attr
			if attr.Value.TextValue != nil {
				text := *attr.Value.TextValue
				out.Attributes[i].Value.TextValue = &text
			}
		}
	}
	if r.AttributeSetID != nil {
		id := *r.AttributeSetID
		out.AttributeSetID = &id
	}
	if r.Type.ParentID != nil {
		id := *r.Type.ParentID
		out.Type.ParentID = &id
	}
	return out
}

// Attribute returns the text value of the attribute of the given type
func (r Relationship) Attribute(attributeType int) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.AttributeType == attributeType && attr.Value.TextValue != nil {
			return *attr.Value.TextValue, true
		}
	}
	return "", false
}

// WithAttribute returns a copy with the attribute set; a nil value unsets it
// but keeps the attribute slot so the attribute set shape survives
func (r Relationship) WithAttribute(attributeType int, value *string) Relationship {
	out := r.Clone()
	var text *string
	if value != nil {
		v := *value
		text = &v
	}
	for i := range out.Attributes {
		if out.Attributes[i].AttributeType == attributeType {
			out.Attributes[i].Value.TextValue = text
			return out
		}
	}
	out.Attributes = append(out.Attributes, Attribute{
		AttributeType: attributeType,
		Value:         AttributeValue{TextValue: text},
	})
	return out
}

// NumericAttribute parses the attribute as a number
func (r Relationship) NumericAttribute(attributeType int) (float64, bool) {
	text, ok := r.Attribute(attributeType)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithField returns a copy with the number or position attribute replaced
func (r Relationship) WithField(field string, value any) (Relationship, error) {
	var attributeType int
	switch field {
	case RelationshipFieldNumber:
		attributeType = AttributeNumber
	case RelationshipFieldPosition:
		attributeType = AttributePosition
	default:
		return r, fmt.Errorf("%w: relationship has no field %q", ErrUnknownField, field)
	}
	switch v := value.(type) {
	case nil:
		return r.WithAttribute(attributeType, nil), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return r.WithAttribute(attributeType, nil), nil
		}
		return r.WithAttribute(attributeType, &v), nil
	case float64, int:
		text := fmt.Sprint(v)
		return r.WithAttribute(attributeType, &text), nil
	default:
		return r, fmt.Errorf("%w: %s expects text, got %T", ErrFieldType, field, value)
	}
}

// SeriesOrder types
const (
	OrderAutomatic = 1
	OrderManual    = 2
)

// SeriesOrderState is the ordering mode of a series and the entity type of
// its members
type SeriesOrderState struct {
	OrderType  int        `json:"orderType"`
	SeriesType EntityType `json:"seriesType"`
}

// IsManual reports whether members are ordered by drag position
func (s SeriesOrderState) IsManual() bool {
	return s.OrderType == OrderManual
}
