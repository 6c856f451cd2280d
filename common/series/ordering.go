// Package series orders the member relationships of a series, either
// automatically from each member's "number" attribute or manually from
// drag-and-drop positions.
package series

import (
	"sort"
	"strconv"
	"strings"

	"github.com/lyzr/entityeditor/common/models"
)

// sort classes: numbers first, then free text, then unset
const (
	classNumber = iota
	classText
	classUnset
)

type sortKey struct {
	class  int
	number float64
	text   string
}

func keyFor(item models.Relationship, attributeType int, allowText bool) sortKey {
	text, ok := item.Attribute(attributeType)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return sortKey{class: classUnset}
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return sortKey{class: classNumber, number: n}
	}
	if !allowText {
		return sortKey{class: classUnset}
	}
	return sortKey{class: classText, text: strings.ToLower(text)}
}

func (k sortKey) less(other sortKey) bool {
	if k.class != other.class {
		return k.class < other.class
	}
	switch k.class {
	case classNumber:
		return k.number < other.number
	case classText:
		return k.text < other.text
	}
	return false
}

// Sort returns items in display order. Automatic order sorts by the numeric
// "number" attribute, non-numeric numbers after numeric ones, unset last.
// Manual order sorts by "position", unset last. Ties keep input order.
func Sort(items []models.Relationship, orderType int) []models.Relationship {
	attributeType, allowText := models.AttributeNumber, true
	if orderType == models.OrderManual {
		attributeType, allowText = models.AttributePosition, false
	}

	type keyed struct {
		item models.Relationship
		key  sortKey
	}
	entries := make([]keyed, len(items))
	for i, item := range items {
		entries[i] = keyed{item: item, key: keyFor(item, attributeType, allowText)}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].key.less(entries[j].key)
	})

	out := make([]models.Relationship, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out
}

// Reorder moves the item at from to index to and rewrites every position
// attribute to the item's new index. Only manual order accepts drags;
// automatic order and out-of-range indices return the items unchanged.
func Reorder(items []models.Relationship, from, to, orderType int) []models.Relationship {
	out := make([]models.Relationship, len(items))
	copy(out, items)

	if orderType != models.OrderManual {
		return out
	}
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) {
		return out
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]models.Relationship{moved}, out[to:]...)...)

	return densify(out)
}

// densify sets the position attribute of each item to its index
func densify(items []models.Relationship) []models.Relationship {
	out := make([]models.Relationship, len(items))
	for i, item := range items {
		position := strconv.Itoa(i)
		out[i] = item.WithAttribute(models.AttributePosition, &position)
	}
	return out
}

// SwitchOrderType returns the items in the display order of the old mode.
// Switching to manual order seeds dense positions from that order so the
// list does not jump.
func SwitchOrderType(items []models.Relationship, from, to int) []models.Relationship {
	ordered := Sort(items, from)
	if to == models.OrderManual && from != models.OrderManual {
		return densify(ordered)
	}
	return ordered
}

// NewItem builds a series member relationship with position and number
// unset. The row id is assigned when the item is added to a Section.
func NewItem(member, series models.Entity, relType models.RelationshipType) models.Relationship {
	return models.Relationship{
		Type:   relType,
		Source: member,
		Target: series,
		Attributes: []models.Attribute{
			{AttributeType: models.AttributePosition},
			{AttributeType: models.AttributeNumber},
		},
	}
}

// SetNumber sets the free-text number of a series member; blank unsets it
func SetNumber(item models.Relationship, number string) models.Relationship {
	if strings.TrimSpace(number) == "" {
		return item.WithAttribute(models.AttributeNumber, nil)
	}
	return item.WithAttribute(models.AttributeNumber, &number)
}
