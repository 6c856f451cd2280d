// Package submission turns the editing state of one or more entities into
// the payload posted to the entity endpoint. Assembly is pure; Submitter
// owns the single in-flight request.
package submission

import (
	"github.com/lyzr/entityeditor/common/models"
)

// AliasPayload is one alias as the server expects it
type AliasPayload struct {
	Name       string `json:"name"`
	SortName   string `json:"sortName"`
	LanguageID int    `json:"languageId,omitempty"`
	Primary    bool   `json:"primary"`
	Default    bool   `json:"default"`
}

// IdentifierPayload keeps only type and value; confirmation is editor state
type IdentifierPayload struct {
	TypeID int    `json:"typeId"`
	Value  string `json:"value"`
}

// RelationshipPayload is a relationship without its editor row id
type RelationshipPayload struct {
	RelationshipTypeID int                `json:"relationshipTypeId"`
	SourceBBID         string             `json:"sourceBbid"`
	TargetBBID         string             `json:"targetBbid"`
	Attributes         []models.Attribute `json:"attributes,omitempty"`
	AttributeSetID     *int               `json:"attributeSetId,omitempty"`
	IsAdded            bool               `json:"isAdded"`
}

// SeriesPayload is the ordering state and members of a series
type SeriesPayload struct {
	OrderType   int                   `json:"orderType"`
	SeriesType  models.EntityType     `json:"seriesType"`
	SeriesItems []RelationshipPayload `json:"seriesItems"`
}

// Payload is the entity creation/update body
type Payload struct {
	EntityType     models.EntityType     `json:"entityType"`
	Aliases        []AliasPayload        `json:"aliases"`
	Identifiers    []IdentifierPayload   `json:"identifiers"`
	Relationships  []RelationshipPayload `json:"relationships"`
	SeriesSection  *SeriesPayload        `json:"seriesSection,omitempty"`
	AuthorCredit   []models.AuthorCredit `json:"authorCredit,omitempty"`
	Annotation     string                `json:"annotation,omitempty"`
	Disambiguation string                `json:"disambiguation,omitempty"`
	Note           string                `json:"note,omitempty"`
}

// relationshipPayload drops the row id of rel
func relationshipPayload(rel models.Relationship) RelationshipPayload {
	rel = rel.Clone()
	return RelationshipPayload{
		RelationshipTypeID: rel.Type.ID,
		SourceBBID:         rel.Source.BBID,
		TargetBBID:         rel.Target.BBID,
		Attributes:         rel.Attributes,
		AttributeSetID:     rel.AttributeSetID,
		IsAdded:            rel.IsNew(),
	}
}
