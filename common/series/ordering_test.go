package series

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seriesEntity = models.Entity{BBID: "s-1", Type: models.EntitySeries}
	partOf       = models.RelationshipType{ID: 71, Label: "Work series", SourceEntityType: models.EntityWork, TargetEntityType: models.EntitySeries}
)

func member(id rows.RowID, number, position *string) models.Relationship {
	rel := models.Relationship{
		RowID:  id,
		Type:   partOf,
		Source: models.Entity{BBID: "w-" + string(id), Type: models.EntityWork},
		Target: seriesEntity,
	}
	rel = rel.WithAttribute(models.AttributePosition, position)
	return rel.WithAttribute(models.AttributeNumber, number)
}

func str(s string) *string { return &s }

func rowIDs(items []models.Relationship) []rows.RowID {
	out := make([]rows.RowID, len(items))
	for i, item := range items {
		out[i] = item.RowID
	}
	return out
}

func positions(t *testing.T, items []models.Relationship) []int {
	t.Helper()
	out := make([]int, len(items))
	for i, item := range items {
		text, ok := item.Attribute(models.AttributePosition)
		require.True(t, ok, "item %s has no position", item.RowID)
		n, err := strconv.Atoi(text)
		require.NoError(t, err)
		out[i] = n
	}
	return out
}

func TestSort_Automatic(t *testing.T) {
	items := []models.Relationship{
		member("a", nil, nil),
		member("b", str("10"), nil),
		member("c", str("2"), nil),
		member("d", str("Part A"), nil),
		member("e", nil, nil),
		member("f", str("2.5"), nil),
	}

	got := Sort(items, models.OrderAutomatic)

	assert.Equal(t, []rows.RowID{"c", "f", "b", "d", "a", "e"}, rowIDs(got))
	assert.Equal(t, []rows.RowID{"a", "b", "c", "d", "e", "f"}, rowIDs(items), "input must not be reordered")
}

func TestSort_Manual(t *testing.T) {
	items := []models.Relationship{
		member("a", str("1"), str("2")),
		member("b", str("2"), nil),
		member("c", str("3"), str("0")),
		member("d", str("4"), str("1")),
	}

	assert.Equal(t, []rows.RowID{"c", "d", "a", "b"}, rowIDs(Sort(items, models.OrderManual)))
}

func TestReorder_DensePositions(t *testing.T) {
	items := []models.Relationship{
		member("a", nil, str("7")),
		member("b", nil, str("7")),
		member("c", nil, nil),
		member("d", nil, str("-3")),
		member("e", nil, str("40")),
	}

	for from := range items {
		for to := range items {
			t.Run(fmt.Sprintf("%d_to_%d", from, to), func(t *testing.T) {
				got := Reorder(items, from, to, models.OrderManual)

				assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, positions(t, got))
				assert.ElementsMatch(t, rowIDs(items), rowIDs(got))
				assert.Equal(t, items[from].RowID, got[to].RowID)
				for i, item := range got {
					assert.Equal(t, []int{i}, positions(t, []models.Relationship{item}))
				}
			})
		}
	}
}

func TestReorder_KeepsOtherAttributes(t *testing.T) {
	items := []models.Relationship{member("a", str("1"), nil), member("b", str("2"), nil)}

	got := Reorder(items, 0, 1, models.OrderManual)

	number, ok := got[1].Attribute(models.AttributeNumber)
	require.True(t, ok)
	assert.Equal(t, "1", number)
	_, ok = items[0].Attribute(models.AttributePosition)
	assert.False(t, ok, "input items must not be modified")
}

func TestReorder_IgnoredInAutomaticMode(t *testing.T) {
	items := []models.Relationship{member("a", str("1"), nil), member("b", str("2"), nil)}

	got := Reorder(items, 0, 1, models.OrderAutomatic)
	assert.Equal(t, items, got)

	got = Reorder(items, 0, 5, models.OrderManual)
	assert.Equal(t, items, got)
}

func TestSwitchOrderType_SeedsPositions(t *testing.T) {
	items := []models.Relationship{member("a", str("3"), nil), member("b", str("1"), nil)}

	got := SwitchOrderType(items, models.OrderAutomatic, models.OrderManual)

	assert.Equal(t, []rows.RowID{"b", "a"}, rowIDs(got))
	assert.Equal(t, []int{0, 1}, positions(t, got))
}

func TestNewItemAndSetNumber(t *testing.T) {
	item := NewItem(models.Entity{BBID: "w-9", Type: models.EntityWork}, seriesEntity, partOf)

	assert.Empty(t, item.RowID)
	_, ok := item.Attribute(models.AttributeNumber)
	assert.False(t, ok)
	_, ok = item.Attribute(models.AttributePosition)
	assert.False(t, ok)
	assert.Len(t, item.Attributes, 2)

	numbered := SetNumber(item, "4")
	n, ok := numbered.NumericAttribute(models.AttributeNumber)
	require.True(t, ok)
	assert.Equal(t, 4.0, n)

	cleared := SetNumber(numbered, "  ")
	_, ok = cleared.Attribute(models.AttributeNumber)
	assert.False(t, ok)
	assert.Len(t, cleared.Attributes, 2)
}
