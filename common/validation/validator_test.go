package validation

import (
	"strings"
	"testing"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// digitsChecker accepts type 9 values made of 13 digits
type digitsChecker struct{}

func (digitsChecker) IsValid(typeID int, value string) bool {
	if typeID != 9 || len(value) != 13 {
		return false
	}
	return strings.Trim(value, "0123456789") == ""
}

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(DefaultRules(), digitsChecker{})
	require.NoError(t, err)
	return v
}

func TestCheck_RequiredField(t *testing.T) {
	v := newValidator(t)

	state, err := v.Check(FieldName, "  ", nil)
	require.NoError(t, err)
	assert.Equal(t, FieldState{Empty: true, Error: true}, state)

	state, err = v.Check(FieldName, "Jules Verne", nil)
	require.NoError(t, err)
	assert.Equal(t, FieldState{}, state)

	state, err = v.Check("unknownField", "", nil)
	require.NoError(t, err)
	assert.Equal(t, FieldState{Empty: true}, state)
}

func TestCheck_IdentifierRule(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name      string
		value     string
		typeID    int64
		confirmed bool
		wantError bool
	}{
		{name: "valid", value: "9780143127550", typeID: 9},
		{name: "invalid", value: "97801431", typeID: 9, wantError: true},
		{name: "invalid but confirmed", value: "97801431", typeID: 9, confirmed: true},
		{name: "unknown type", value: "9780143127550", typeID: 3, wantError: true},
		{name: "surrounding spaces", value: " 9780143127550 ", typeID: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := v.Check(FieldIdentifierValue, tt.value, map[string]any{
				"type":      tt.typeID,
				"confirmed": tt.confirmed,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantError, state.Error)
			assert.False(t, state.Empty)
		})
	}
	assert.Equal(t, 1, v.CacheSize(), "program is compiled once")
}

func TestCheck_BadExpression(t *testing.T) {
	v, err := NewValidator([]Rule{{Field: "x", Expression: "value +"}}, nil)
	require.NoError(t, err)

	state, err := v.Check("x", "abc", nil)
	assert.Error(t, err)
	assert.True(t, state.Error)

	v, err = NewValidator([]Rule{{Field: "x", Expression: "value"}}, nil)
	require.NoError(t, err)
	_, err = v.Check("x", "abc", nil)
	assert.ErrorContains(t, err, "did not return boolean")
}

func TestValidate_Form(t *testing.T) {
	v := newValidator(t)
	gen := rows.NewIDGenerator()

	aliases := rows.New[models.Alias]()
	aliases, filled := aliases.Add(gen, models.Alias{Name: "Verne"})
	aliases, _ = aliases.Add(gen, models.Alias{})

	identifiers := rows.New[models.Identifier]()
	identifiers, good := identifiers.Add(gen, models.Identifier{Type: 9, Value: "9780143127550"})
	identifiers, bad := identifiers.Add(gen, models.Identifier{Type: 9, Value: "123"})

	report, err := v.Validate(Form{
		Name:        models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
		Aliases:     aliases,
		Identifiers: identifiers,
	})
	require.NoError(t, err)

	assert.True(t, report.Blocking())
	assert.Equal(t, []string{
		"aliases/" + string(filled) + "/sortName",
		"identifiers/" + string(bad) + "/value",
	}, report.Errors())
	assert.False(t, report.Fields["identifiers/"+string(good)+"/value"].Error)
	assert.Len(t, report.Fields, 7, "empty alias row is skipped")

	confirmed := identifiers.Update(bad, func(i models.Identifier) models.Identifier {
		i.Confirmed = true
		return i
	})
	report, err = v.Validate(Form{
		Name:        models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
		Identifiers: confirmed,
	})
	require.NoError(t, err)
	assert.False(t, report.Blocking())
}
