package models

// EntityType names a kind of bibliographic entity
type EntityType string

const (
	EntityAuthor       EntityType = "Author"
	EntityEdition      EntityType = "Edition"
	EntityEditionGroup EntityType = "EditionGroup"
	EntityPublisher    EntityType = "Publisher"
	EntitySeries       EntityType = "Series"
	EntityWork         EntityType = "Work"
)

// EntityTypes lists every supported entity type in display order
var EntityTypes = []EntityType{
	EntityAuthor,
	EntityWork,
	EntityEdition,
	EntityEditionGroup,
	EntityPublisher,
	EntitySeries,
}

// Valid reports whether t is one of the known entity types
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Entity is a reference to an entity as returned by the search service.
// BBID is empty for entities that have not been persisted yet; batch
// submissions put a batch-local key there instead.
type Entity struct {
	BBID           string     `json:"bbid"`
	Type           EntityType `json:"type"`
	DefaultAlias   string     `json:"defaultAlias,omitempty"`
	Disambiguation string     `json:"disambiguation,omitempty"`
}

// AuthorCredit is one author named on an edition's author credit
type AuthorCredit struct {
	Author     Entity `json:"author"`
	Name       string `json:"name"`
	JoinPhrase string `json:"joinPhrase,omitempty"`
}
