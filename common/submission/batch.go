package submission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/models"
)

// EditionKey is the batch-local id of the edition in a unified submission
const EditionKey = "e0"

// RoleIDs are the relationship type ids the batch transform synthesizes,
// resolved from catalog roles
type RoleIDs struct {
	AuthorWroteWork     int
	EditionContainsWork int
	Series              map[models.EntityType]int
}

// RoleIDsFromCatalog resolves the roles the batch transform needs. The
// author and edition roles are required; series roles are optional.
func RoleIDsFromCatalog(c *catalog.Catalog) (RoleIDs, error) {
	var (
		ids RoleIDs
		err error
	)
	if ids.AuthorWroteWork, err = c.Role(catalog.RoleAuthorWroteWork); err != nil {
		return RoleIDs{}, err
	}
	if ids.EditionContainsWork, err = c.Role(catalog.RoleEditionContainsWork); err != nil {
		return RoleIDs{}, err
	}

	ids.Series = make(map[models.EntityType]int)
	for _, entityType := range models.EntityTypes {
		role, ok := catalog.SeriesRole(entityType)
		if !ok {
			continue
		}
		// a deployment without a series role cannot batch-create members
		// of that type; AssembleBatch reports it when it comes up
		if id, ok := c.Roles[role]; ok {
			ids.Series[entityType] = id
		}
	}
	return ids, nil
}

// PendingWork is a work created inside the unified form
type PendingWork struct {
	Sections Sections
	Include  bool
}

// ISBNField is the edition's dedicated ISBN input; Type is 0 until the
// value has been recognised as an ISBN
type ISBNField struct {
	Type  int    `json:"type,omitempty"`
	Value string `json:"value"`
}

// BatchSections is the state of the unified creation form. Works and
// Series are keyed by their batch-local ids, which relationships in the
// batch use in place of a BBID.
type BatchSections struct {
	Edition Sections
	Works   map[string]PendingWork
	Series  map[string]Sections
	ISBN    ISBNField
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// AssembleBatch builds the per-entity payloads of a unified submission,
// keyed by batch-local id: EditionKey for the edition, the original keys
// for works and series. Works not marked for inclusion are left out.
func AssembleBatch(b BatchSections, roles RoleIDs) (map[string]Payload, error) {
	out := make(map[string]Payload, 1+len(b.Works)+len(b.Series))

	// 1. new series members point at their series
	for _, key := range sortedKeys(b.Series) {
		sections := b.Series[key]
		payload := AssembleSingleEntity(sections)
		if payload.SeriesSection != nil {
			for i, item := range payload.SeriesSection.SeriesItems {
				if !item.IsAdded {
					continue
				}
				item.TargetBBID = key
				if item.RelationshipTypeID == 0 {
					id, ok := roles.Series[payload.SeriesSection.SeriesType]
					if !ok {
						return nil, fmt.Errorf("series %s: no relationship type for %s members", key, payload.SeriesSection.SeriesType)
					}
					item.RelationshipTypeID = id
				}
				payload.SeriesSection.SeriesItems[i] = item
				payload.Relationships = append(payload.Relationships, item)
			}
		}
		out[key] = payload
	}

	edition := AssembleSingleEntity(b.Edition)

	for _, key := range sortedKeys(b.Works) {
		work := b.Works[key]
		if !work.Include {
			continue
		}
		payload := AssembleSingleEntity(work.Sections)

		// 2. credited authors wrote the work, each at most once
		linked := make(map[string]bool)
		for _, rel := range payload.Relationships {
			if rel.RelationshipTypeID == roles.AuthorWroteWork {
				linked[rel.SourceBBID] = true
			}
		}
		for _, credit := range b.Edition.AuthorCredits {
			author := credit.Author.BBID
			if author == "" || linked[author] {
				continue
			}
			linked[author] = true
			payload.Relationships = append(payload.Relationships, RelationshipPayload{
				RelationshipTypeID: roles.AuthorWroteWork,
				SourceBBID:         author,
				TargetBBID:         key,
				IsAdded:            true,
			})
		}
		out[key] = payload

		// 3. the edition contains the work
		if !hasRelationship(edition.Relationships, roles.EditionContainsWork, key) {
			edition.Relationships = append(edition.Relationships, RelationshipPayload{
				RelationshipTypeID: roles.EditionContainsWork,
				SourceBBID:         EditionKey,
				TargetBBID:         key,
				IsAdded:            true,
			})
		}
	}

	// 4. ISBN fast path
	if value := strings.TrimSpace(b.ISBN.Value); b.ISBN.Type != 0 && value != "" {
		isbn := IdentifierPayload{TypeID: b.ISBN.Type, Value: value}
		if !hasIdentifier(edition.Identifiers, isbn) {
			edition.Identifiers = append(edition.Identifiers, isbn)
		}
	}

	// 5. key by batch-local id
	out[EditionKey] = edition
	return out, nil
}

func hasRelationship(rels []RelationshipPayload, typeID int, target string) bool {
	for _, rel := range rels {
		if rel.RelationshipTypeID == typeID && rel.TargetBBID == target {
			return true
		}
	}
	return false
}

func hasIdentifier(identifiers []IdentifierPayload, want IdentifierPayload) bool {
	for _, identifier := range identifiers {
		if identifier == want {
			return true
		}
	}
	return false
}
