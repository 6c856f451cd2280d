package identifiers

import (
	"testing"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTypes() []models.IdentifierType {
	return []models.IdentifierType{
		{
			ID:              9,
			Label:           LabelISBN13,
			EntityType:      models.EntityEdition,
			DetectionRegex:  `^(97[89]\d{10})$`,
			ValidationRegex: `^97[89]\d{10}$`,
		},
		{
			ID:              10,
			Label:           LabelISBN10,
			EntityType:      models.EntityEdition,
			DetectionRegex:  `^(\d{9}[\dX])$`,
			ValidationRegex: `^\d{9}[\dX]$`,
		},
		{
			ID:              2,
			Label:           "Wikidata ID",
			EntityType:      models.EntityWork,
			DetectionRegex:  `^https?://www\.wikidata\.org/wiki/(Q\d+)$`,
			ValidationRegex: `^Q\d+$`,
		},
		{
			ID:              3,
			Label:           "OpenLibrary Work ID",
			EntityType:      models.EntityWork,
			DetectionRegex:  `^OL\d+W$`,
			ValidationRegex: `^OL\d+W$`,
		},
	}
}

func testCatalog(t *testing.T) *Catalog {
	c, err := NewCatalog(testTypes())
	require.NoError(t, err)
	return c
}

func TestGuess(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		raw    string
		wantID int
		wantOK bool
	}{
		{"9780143127550", 9, true},
		{"0143127550", 10, true},
		{"014312755X", 10, true},
		{"https://www.wikidata.org/wiki/Q42", 2, true},
		{"OL45883W", 3, true},
		{"not-an-id", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := c.Guess(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestGuess_FirstMatchWins(t *testing.T) {
	types := []models.IdentifierType{
		{ID: 1, Label: "any digits", DetectionRegex: `^\d+$`},
		{ID: 2, Label: "ten digits", DetectionRegex: `^\d{10}$`},
	}
	c, err := NewCatalog(types)
	require.NoError(t, err)

	got, ok := c.Guess("0143127550")
	require.True(t, ok)
	assert.Equal(t, 1, got.ID)
}

func TestCanonicalValue(t *testing.T) {
	c := testCatalog(t)

	assert.Equal(t, "Q42", c.CanonicalValue("https://www.wikidata.org/wiki/Q42", 2))
	assert.Equal(t, "OL45883W", c.CanonicalValue("OL45883W", 3), "no capture group keeps raw value")
	assert.Equal(t, "whatever", c.CanonicalValue("whatever", 404), "unknown type keeps raw value")
}

func TestIsValid(t *testing.T) {
	c := testCatalog(t)

	assert.True(t, c.IsValid(9, "9780143127550"))
	assert.False(t, c.IsValid(9, "978014312755"))
	assert.False(t, c.IsValid(9, ""))
	assert.False(t, c.IsValid(404, "9780143127550"))
	assert.True(t, c.IsValid(2, "Q42"))

	bare, err := NewCatalog([]models.IdentifierType{{ID: 7, Label: "no rule", DetectionRegex: `^(x\d+)$`}})
	require.NoError(t, err)
	assert.False(t, bare.IsValid(7, "x1"))
}

func TestNewCatalog_Errors(t *testing.T) {
	_, err := NewCatalog([]models.IdentifierType{{ID: 1, DetectionRegex: `(`}})
	assert.Error(t, err)

	_, err = NewCatalog([]models.IdentifierType{{ID: 1}, {ID: 1}})
	assert.Error(t, err)
}

func TestForEntity(t *testing.T) {
	c := testCatalog(t)

	edition := c.ForEntity(models.EntityEdition)
	require.Len(t, edition, 2)
	assert.Equal(t, LabelISBN13, edition[0].Label)
	assert.Empty(t, c.ForEntity(models.EntityPublisher))
}

func TestApplyValue(t *testing.T) {
	c := testCatalog(t)

	row := c.ApplyValue(models.Identifier{}, "https://www.wikidata.org/wiki/Q42")
	assert.Equal(t, models.Identifier{Type: 2, Value: "Q42"}, row)

	confirmed := models.Identifier{Type: 9, Value: "123", Confirmed: true}
	changed := c.ApplyValue(confirmed, "1234")
	assert.Equal(t, 9, changed.Type, "unguessable value keeps the chosen type")
	assert.False(t, changed.Confirmed)

	same := c.ApplyValue(confirmed, "123")
	assert.True(t, same.Confirmed, "unchanged value keeps confirmation")
}

func TestNeedsConfirmation(t *testing.T) {
	c := testCatalog(t)

	assert.True(t, c.NeedsConfirmation(models.Identifier{Type: 9, Value: "123"}))
	assert.False(t, c.NeedsConfirmation(models.Identifier{Type: 9, Value: "123", Confirmed: true}))
	assert.False(t, c.NeedsConfirmation(models.Identifier{Type: 9, Value: "9780143127550"}))
	assert.False(t, c.NeedsConfirmation(models.Identifier{}))
}

func TestCompanion(t *testing.T) {
	c := testCatalog(t)

	got, ok := c.Companion(models.Identifier{Type: 9, Value: "9780143127550"})
	require.True(t, ok)
	assert.Equal(t, models.Identifier{Type: 10, Value: "0143127551"}, got)

	got, ok = c.Companion(models.Identifier{Type: 10, Value: "0143127551"})
	require.True(t, ok)
	assert.Equal(t, models.Identifier{Type: 9, Value: "9780143127550"}, got)

	_, ok = c.Companion(models.Identifier{Type: 9, Value: "9791032305690"})
	assert.False(t, ok, "979 prefix has no ISBN-10")

	_, ok = c.Companion(models.Identifier{Type: 2, Value: "Q42"})
	assert.False(t, ok)
}

func TestScoped(t *testing.T) {
	c := testCatalog(t).Scoped(models.EntityWork)

	assert.Len(t, c.Types(), 2)
	_, ok := c.Guess("9780143127550")
	assert.False(t, ok, "edition types are not visible on a work")

	got, ok := c.Guess("OL45804W")
	require.True(t, ok)
	assert.Equal(t, 3, got.ID)
	assert.True(t, c.IsValid(3, "OL45804W"))
}

func TestGuess_SkipsDeprecated(t *testing.T) {
	types := testTypes()
	types[0].Deprecated = true
	c, err := NewCatalog(types)
	require.NoError(t, err)

	_, ok := c.Guess("9780143127550")
	assert.False(t, ok)
	assert.True(t, c.IsValid(9, "9780143127550"), "deprecated types still validate persisted rows")
}
