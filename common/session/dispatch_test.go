package session

import (
	"encoding/json"
	"testing"

	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeCommand(t *testing.T, raw string) Command {
	t.Helper()
	var cmd Command
	require.NoError(t, json.Unmarshal([]byte(raw), &cmd))
	return cmd
}

func TestDispatch_JSONCommands(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition, BBID: "edition-1"})

	res, err := s.Dispatch(decodeCommand(t, `{"op":"name.set","field":"name","value":"Around the World in Eighty Days"}`))
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.False(t, res.Applied)

	res, err = s.Dispatch(decodeCommand(t, `{"op":"name.set","field":"language","value":120}`))
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = s.Dispatch(decodeCommand(t, `{"op":"identifier.add"}`))
	require.NoError(t, err)
	id := res.RowID
	assert.Equal(t, rows.RowID("n0"), id)

	res, err = s.Dispatch(Command{Op: OpIdentifierSetValue, RowID: id, Value: json.RawMessage(`"0143127551"`)})
	require.NoError(t, err)
	assert.True(t, res.Pending)

	_, err = s.Dispatch(Command{Op: OpFlush})
	require.NoError(t, err)

	st := s.State()
	assert.Equal(t, "Around the World in Eighty Days", st.Name.Name)
	assert.Equal(t, 120, st.Name.Language)
	row, _ := st.Identifiers.Get(id)
	assert.Equal(t, models.Identifier{Type: 10, Value: "0143127551"}, row)

	res, err = s.Dispatch(Command{Op: OpIdentifierCompanion, RowID: id})
	require.NoError(t, err)
	companion, ok := s.State().Identifiers.Get(res.RowID)
	require.True(t, ok)
	assert.Equal(t, "9780143127550", companion.Value)
}

func TestDispatch_AliasLifecycle(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	res, err := s.Dispatch(Command{Op: OpAliasAdd})
	require.NoError(t, err)
	id := res.RowID

	res, err = s.Dispatch(Command{Op: OpAliasUpdate, RowID: id, Field: models.AliasFieldName, Value: json.RawMessage(`"J. Verne"`)})
	require.NoError(t, err)
	assert.True(t, res.Pending)

	res, err = s.Dispatch(Command{Op: OpAliasUpdate, RowID: id, Field: models.AliasFieldPrimary, Value: json.RawMessage(`true`)})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	s.Flush()
	alias, _ := s.State().Aliases.Get(id)
	assert.Equal(t, models.Alias{Name: "J. Verne", Primary: true}, alias)

	_, err = s.Dispatch(Command{Op: OpAliasRemove, RowID: id})
	require.NoError(t, err)
	assert.Equal(t, 0, s.State().Aliases.Len())
}

func TestDispatch_RelationshipCommands(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor, BBID: "author-verne"})
	work := &models.Entity{BBID: "work-1", Type: models.EntityWork}

	_, err := s.Dispatch(Command{Op: OpRelationshipAdd, RelationshipTypeID: 8})
	assert.Error(t, err, "entity is required")

	res, err := s.Dispatch(Command{Op: OpRelationshipAdd, Entity: work, RelationshipTypeID: 8})
	require.NoError(t, err)
	id := res.RowID

	_, err = s.Dispatch(Command{Op: OpRelationshipRemove, RowID: id})
	require.NoError(t, err)

	res, err = s.Dispatch(Command{Op: OpRelationshipUndo})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, s.State().Relationships.Has(id))
}

func TestDispatch_SeriesCommands(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntitySeries, BBID: "series-1"})

	add := func(bbid string) rows.RowID {
		res, err := s.Dispatch(Command{Op: OpSeriesAdd, Entity: &models.Entity{BBID: bbid, Type: models.EntityWork}})
		require.NoError(t, err)
		return res.RowID
	}
	first := add("work-1")
	second := add("work-2")

	_, err := s.Dispatch(Command{Op: OpSeriesSetOrderType, Value: json.RawMessage(`2`)})
	require.NoError(t, err)

	res, err := s.Dispatch(Command{Op: OpSeriesReorder, From: 1, To: 0})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	ordered, err := s.OrderedSeriesItems()
	require.NoError(t, err)
	assert.Equal(t, []rows.RowID{second, first}, []rows.RowID{ordered[0].RowID, ordered[1].RowID})

	res, err = s.Dispatch(Command{Op: OpSeriesUndo})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	_, err = s.Dispatch(Command{Op: OpSeriesSetSeriesType, Value: json.RawMessage(`"Edition"`)})
	require.NoError(t, err)
	assert.Equal(t, models.EntityEdition, s.State().Series.Order.SeriesType)
}

func TestDispatch_TextSectionsArePending(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityWork})

	for _, op := range []string{OpAnnotationSet, OpNoteSet} {
		res, err := s.Dispatch(Command{Op: op, Value: json.RawMessage(`"text"`)})
		require.NoError(t, err)
		assert.True(t, res.Pending, op)
	}
	assert.Equal(t, []string{"annotation", "note"}, s.Pending())
}

func TestDispatch_AuthorCredits(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition})

	_, err := s.Dispatch(Command{
		Op:    OpAuthorCreditsSet,
		Value: json.RawMessage(`[{"author":{"bbid":"author-verne","type":"Author"},"name":"Jules Verne"}]`),
	})
	require.NoError(t, err)
	credits := s.State().AuthorCredits
	require.Len(t, credits, 1)
	assert.Equal(t, "author-verne", credits[0].Author.BBID)
}

func TestDispatch_Errors(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	_, err := s.Dispatch(Command{Op: "alias.rename"})
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = s.Dispatch(Command{Op: OpIdentifierSetType, Value: json.RawMessage(`"nine"`)})
	assert.Error(t, err)

	_, err = s.Dispatch(Command{Op: OpSeriesReorder})
	assert.ErrorIs(t, err, ErrNotSeries)

	s.Close()
	_, err = s.Dispatch(Command{Op: OpAliasAdd})
	assert.ErrorIs(t, err, ErrClosed)
}
