package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lyzr/entityeditor/common/catalog"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/relationships"
	"github.com/lyzr/entityeditor/common/rows"
	"github.com/lyzr/entityeditor/common/submission"
	"github.com/lyzr/entityeditor/common/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	t *testing.T
}

func (l *testLogger) Info(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[INFO] %s %v", msg, keysAndValues)
}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[ERROR] %s %v", msg, keysAndValues)
}
func (l *testLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[WARN] %s %v", msg, keysAndValues)
}
func (l *testLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.t.Logf("[DEBUG] %s %v", msg, keysAndValues)
}

// fakePoster records submitted payloads
type fakePoster struct {
	mu       sync.Mutex
	payloads []any
	result   *clients.SubmitResult
	err      error
}

func (p *fakePoster) Submit(ctx context.Context, payload any) (*clients.SubmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	if p.err != nil {
		return nil, p.err
	}
	if p.result != nil {
		return p.result, nil
	}
	return &clients.SubmitResult{BBID: "new-bbid"}, nil
}

func (p *fakePoster) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

// testDeps wires the default catalog. The debounce window is long enough
// that nothing fires on its own; tests apply edits with Flush.
func testDeps(t *testing.T, poster submission.Poster) Deps {
	t.Helper()
	log := &testLogger{t}

	c, err := catalog.Default()
	require.NoError(t, err)
	idents, err := c.Identifiers()
	require.NoError(t, err)
	validator, err := validation.NewValidator(validation.DefaultRules(), idents)
	require.NoError(t, err)
	roles, err := submission.RoleIDsFromCatalog(c)
	require.NoError(t, err)

	return Deps{
		Identifiers:    idents,
		Resolver:       relationships.NewResolver(c.RelationshipTypes, log),
		Validator:      validator,
		Roles:          roles,
		Poster:         poster,
		DebounceWindow: time.Hour,
		Logger:         log,
	}
}

func newSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := New(testDeps(t, nil), opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNew_RejectsUnknownEntityType(t *testing.T) {
	_, err := New(testDeps(t, nil), Options{EntityType: "Magazine"})
	assert.Error(t, err)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{Logger: &testLogger{t}}, Options{EntityType: models.EntityAuthor})
	assert.Error(t, err)
}

func TestNew_LoadsPersistedRowsWithIndexIDs(t *testing.T) {
	s := newSession(t, Options{
		EntityType: models.EntityAuthor,
		BBID:       "author-verne",
		Name:       models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
		Aliases: []models.Alias{
			{Name: "Jules Gabriel Verne", SortName: "Verne, Jules Gabriel"},
			{Name: "Жюль Верн", SortName: "Верн, Жюль"},
		},
	})

	st := s.State()
	assert.Equal(t, []rows.RowID{"0", "1"}, st.Aliases.IDs())

	id, err := s.AddAlias()
	require.NoError(t, err)
	assert.Equal(t, rows.RowID("n0"), id)
	assert.True(t, s.HasUnsavedChanges())
}

func TestSession_NameEditsAreDebounced(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	require.NoError(t, s.SetName(NameFieldName, "Jules"))
	require.NoError(t, s.SetName(NameFieldName, "Jules Verne"))
	require.NoError(t, s.SetName(NameFieldSortName, "Verne, Jules"))
	require.NoError(t, s.SetName(NameFieldLanguage, 120))

	st := s.State()
	assert.Empty(t, st.Name.Name, "text edits wait for the window")
	assert.Equal(t, 120, st.Name.Language, "language applies immediately")
	assert.Equal(t, []string{"name/name", "name/sortName"}, s.Pending())

	assert.Equal(t, 2, s.Flush())
	st = s.State()
	assert.Equal(t, "Jules Verne", st.Name.Name)
	assert.Equal(t, "Verne, Jules", st.Name.SortName)
	assert.Empty(t, s.Pending())
}

func TestSession_DebounceFiresAfterWindow(t *testing.T) {
	deps := testDeps(t, nil)
	deps.DebounceWindow = 10 * time.Millisecond
	s, err := New(deps, Options{EntityType: models.EntityWork})
	require.NoError(t, err)
	defer s.Close()

	s.SetAnnotation("first draft")
	s.SetAnnotation("final text")

	assert.Eventually(t, func() bool {
		return s.State().Annotation == "final text"
	}, time.Second, 5*time.Millisecond)
}

func TestSession_SetNameRejectsBadValues(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	assert.ErrorIs(t, s.SetName(NameFieldLanguage, "french"), models.ErrFieldType)
	assert.ErrorIs(t, s.SetName(NameFieldDisambiguation, 12), models.ErrFieldType)
	assert.ErrorIs(t, s.SetName("nickname", "x"), models.ErrUnknownField)
	assert.Empty(t, s.Pending())
}

func TestSession_RemoveAliasDropsPendingEdits(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	keep, err := s.AddAlias()
	require.NoError(t, err)
	drop, err := s.AddAlias()
	require.NoError(t, err)

	require.NoError(t, s.UpdateAlias(keep, models.AliasFieldName, "Jules Gabriel Verne"))
	require.NoError(t, s.UpdateAlias(drop, models.AliasFieldName, "typo"))
	require.NoError(t, s.UpdateAlias(drop, models.AliasFieldSortName, "typo"))

	require.NoError(t, s.RemoveAlias(drop))
	assert.Equal(t, []string{"aliases/" + string(keep) + "/name"}, s.Pending())

	s.Flush()
	st := s.State()
	assert.Equal(t, []rows.RowID{keep}, st.Aliases.IDs())
	alias, _ := st.Aliases.Get(keep)
	assert.Equal(t, "Jules Gabriel Verne", alias.Name)
}

func TestSession_PruneAliases(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	filled, _ := s.AddAlias()
	_, _ = s.AddAlias()
	require.NoError(t, s.UpdateAlias(filled, models.AliasFieldSortName, "Verne, J."))

	require.NoError(t, s.PruneAliases())
	assert.Equal(t, []rows.RowID{filled}, s.State().Aliases.IDs())
}

func TestSession_IdentifierInference(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition})

	id, err := s.AddIdentifier()
	require.NoError(t, err)
	s.SetIdentifierValue(id, "https://openlibrary.org/books/OL7353617M/Around_the_World")
	s.Flush()

	row, ok := s.State().Identifiers.Get(id)
	require.True(t, ok)
	assert.Equal(t, 11, row.Type)
	assert.Equal(t, "OL7353617M", row.Value)
}

func TestSession_IdentifierTypeMustMatchEntity(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition})
	id, _ := s.AddIdentifier()

	// 3 is the OpenLibrary Author id
	assert.Error(t, s.SetIdentifierType(id, 3))
	assert.NoError(t, s.SetIdentifierType(id, 9))
	assert.Error(t, s.SetIdentifierType("n99", 9))
}

func TestSession_IdentifierCompanion(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition})

	id, _ := s.AddIdentifier()
	s.SetIdentifierValue(id, "9780143127550")
	s.Flush()

	companion, ok := s.IdentifierCompanion(id)
	require.True(t, ok)
	assert.Equal(t, models.Identifier{Type: 10, Value: "0143127551"}, companion)

	added, err := s.AcceptCompanion(id)
	require.NoError(t, err)
	again, err := s.AcceptCompanion(id)
	require.NoError(t, err)
	assert.Equal(t, added, again, "an identical companion is not added twice")
	assert.Equal(t, 2, s.State().Identifiers.Len())

	_, err = s.AcceptCompanion("n99")
	assert.ErrorIs(t, err, ErrNoSuchRow)
}

func TestSession_InvalidIdentifierBlocksUntilConfirmed(t *testing.T) {
	s := newSession(t, Options{
		EntityType: models.EntityAuthor,
		Name:       models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
	})

	id, _ := s.AddIdentifier()
	require.NoError(t, s.SetIdentifierType(id, 3))
	s.SetIdentifierValue(id, "not-an-ol-id")
	s.Flush()

	report := s.Validate()
	key := "identifiers/" + string(id) + "/value"
	assert.Equal(t, []string{key}, report.Errors())

	require.NoError(t, s.ConfirmIdentifier(id, true))
	assert.False(t, s.Validate().Blocking())

	// a new value needs a new confirmation
	s.SetIdentifierValue(id, "still-not-valid")
	s.Flush()
	assert.Equal(t, []string{key}, s.Validate().Errors())
}

func TestSession_RemoveIdentifierDropsPendingValue(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityEdition})

	id, _ := s.AddIdentifier()
	s.SetIdentifierValue(id, "9780143127550")
	require.NoError(t, s.RemoveIdentifier(id))

	assert.Empty(t, s.Pending())
	assert.Equal(t, 0, s.Flush())
	assert.Equal(t, 0, s.State().Identifiers.Len())
}

func TestSession_Relationships(t *testing.T) {
	s := newSession(t, Options{
		EntityType: models.EntityAuthor,
		BBID:       "author-verne",
		Name:       models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
	})
	work := models.Entity{BBID: "work-1", Type: models.EntityWork, DefaultAlias: "Around the World in Eighty Days"}

	candidates := s.Candidates(work)
	require.NotEmpty(t, candidates)
	assert.Equal(t, 8, candidates[0].Type.ID)

	id, err := s.AddRelationship(work, 8, false)
	require.NoError(t, err)

	rel, ok := s.State().Relationships.Get(id)
	require.True(t, ok)
	assert.Equal(t, "author-verne", rel.Source.BBID)
	assert.Equal(t, "work-1", rel.Target.BBID)
	assert.True(t, rel.IsNew())

	// Edition contains Work is not possible from an author
	_, err = s.AddRelationship(work, 10, false)
	assert.Error(t, err)

	require.NoError(t, s.RemoveRelationship(id))
	assert.True(t, s.CanUndoRelationship())
	assert.Equal(t, 0, s.State().Relationships.Len())

	undone, err := s.UndoRelationship()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.Equal(t, []rows.RowID{id}, s.State().Relationships.IDs())

	undone, err = s.UndoRelationship()
	require.NoError(t, err)
	assert.False(t, undone, "only one level of undo")

	assert.ErrorIs(t, s.RemoveRelationship("n99"), ErrNoSuchRow)
}

func TestSession_EditRelationshipKeepsRowID(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor, BBID: "author-verne"})
	work := models.Entity{BBID: "work-1", Type: models.EntityWork}
	other := models.Entity{BBID: "work-2", Type: models.EntityWork}

	id, err := s.AddRelationship(work, 8, false)
	require.NoError(t, err)
	require.NoError(t, s.EditRelationship(id, other, 22, false))

	rel, ok := s.State().Relationships.Get(id)
	require.True(t, ok)
	assert.Equal(t, 22, rel.Type.ID)
	assert.Equal(t, "work-2", rel.Target.BBID)

	assert.ErrorIs(t, s.EditRelationship("n99", other, 22, false), ErrNoSuchRow)
}

func TestSession_SeriesCommands(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntitySeries, BBID: "series-voyages"})

	first := models.Entity{BBID: "work-1", Type: models.EntityWork, DefaultAlias: "Five Weeks in a Balloon"}
	second := models.Entity{BBID: "work-2", Type: models.EntityWork, DefaultAlias: "Journey to the Centre of the Earth"}

	a, err := s.AddSeriesItem(second, 0)
	require.NoError(t, err)
	b, err := s.AddSeriesItem(first, 0)
	require.NoError(t, err)

	_, err = s.AddSeriesItem(models.Entity{BBID: "author-verne", Type: models.EntityAuthor}, 0)
	assert.Error(t, err, "members must match the series type")

	require.NoError(t, s.SetSeriesNumber(a, "3"))
	require.NoError(t, s.SetSeriesNumber(b, "1"))
	s.Flush()

	ordered, err := s.OrderedSeriesItems()
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, b, ordered[0].RowID)
	assert.Equal(t, 71, ordered[0].Type.ID)
	assert.Equal(t, "series-voyages", ordered[0].Target.BBID)

	moved, err := s.ReorderSeries(0, 1)
	require.NoError(t, err)
	assert.False(t, moved, "automatic order ignores drags")

	require.NoError(t, s.SetSeriesOrderType(models.OrderManual))
	moved, err = s.ReorderSeries(0, 1)
	require.NoError(t, err)
	assert.True(t, moved)

	ordered, _ = s.OrderedSeriesItems()
	assert.Equal(t, a, ordered[0].RowID)

	undone, err := s.UndoSeries()
	require.NoError(t, err)
	assert.True(t, undone)
	ordered, _ = s.OrderedSeriesItems()
	assert.Equal(t, b, ordered[0].RowID)

	require.NoError(t, s.RemoveSeriesItem(a))
	ordered, _ = s.OrderedSeriesItems()
	assert.Len(t, ordered, 1)
	assert.ErrorIs(t, s.RemoveSeriesItem(a), ErrNoSuchRow)
}

func TestSession_SeriesItemTakesOneRowID(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntitySeries, BBID: "series-1"})

	item, err := s.AddSeriesItem(models.Entity{BBID: "work-1", Type: models.EntityWork}, 0)
	require.NoError(t, err)
	alias, err := s.AddAlias()
	require.NoError(t, err)

	n, err := strconv.Atoi(strings.TrimPrefix(string(item), "n"))
	require.NoError(t, err)
	assert.Equal(t, rows.RowID("n"+strconv.Itoa(n+1)), alias)
}

func TestSession_SeriesTypeChangesMembershipRole(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntitySeries, BBID: "series-1"})

	require.NoError(t, s.SetSeriesType(models.EntityEdition))
	id, err := s.AddSeriesItem(models.Entity{BBID: "edition-1", Type: models.EntityEdition}, 0)
	require.NoError(t, err)

	item, ok := s.State().Series.Items.Get(id)
	require.True(t, ok)
	assert.Equal(t, 72, item.Type.ID)

	assert.Error(t, s.SetSeriesType(models.EntitySeries))
}

func TestSession_SeriesCommandsNeedSeriesEntity(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityWork})

	_, err := s.AddSeriesItem(models.Entity{BBID: "work-1", Type: models.EntityWork}, 0)
	assert.ErrorIs(t, err, ErrNotSeries)
	assert.ErrorIs(t, s.SetSeriesNumber("n0", "1"), ErrNotSeries)
	_, err = s.OrderedSeriesItems()
	assert.ErrorIs(t, err, ErrNotSeries)
	assert.Nil(t, s.State().Series)
}

func TestSession_Changes(t *testing.T) {
	s := newSession(t, Options{
		EntityType: models.EntityWork,
		Name:       models.Alias{Name: "Twenty Thousand Leagues", SortName: "Twenty Thousand Leagues"},
	})

	patch, err := s.Changes()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(patch))
	assert.False(t, s.HasUnsavedChanges())

	s.SetAnnotation("Serialised 1869-1870.")
	assert.False(t, s.HasUnsavedChanges(), "pending edits are not state yet")
	s.Flush()
	assert.True(t, s.HasUnsavedChanges())

	patch, err = s.Changes()
	require.NoError(t, err)
	var diff map[string]any
	require.NoError(t, json.Unmarshal(patch, &diff))
	assert.Equal(t, "Serialised 1869-1870.", diff["annotation"])

	// typing the original text back clears the change
	s.SetAnnotation("")
	s.Flush()
	assert.False(t, s.HasUnsavedChanges())
}

func TestSession_Payload(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})

	require.NoError(t, s.SetName(NameFieldName, "Jules Verne"))
	require.NoError(t, s.SetName(NameFieldSortName, "Verne, Jules"))
	_, _ = s.AddAlias()
	s.SetNote("from the catalog")

	payload := s.Payload()
	assert.Equal(t, models.EntityAuthor, payload.EntityType)
	require.Len(t, payload.Aliases, 1, "empty alias rows are left out")
	assert.Equal(t, "Jules Verne", payload.Aliases[0].Name)
	assert.True(t, payload.Aliases[0].Default)
	assert.Equal(t, "from the catalog", payload.Note)
}

func TestSession_SubmitBlockedByValidation(t *testing.T) {
	poster := &fakePoster{}
	s, err := New(testDeps(t, poster), Options{EntityType: models.EntityAuthor})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 0, poster.calls())
	assert.False(t, s.Submitted())
}

func TestSession_Submit(t *testing.T) {
	poster := &fakePoster{}
	s, err := New(testDeps(t, poster), Options{EntityType: models.EntityAuthor})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetName(NameFieldName, "Jules Verne"))
	require.NoError(t, s.SetName(NameFieldSortName, "Verne, Jules"))

	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-bbid", result.BBID)
	assert.True(t, s.Submitted())

	require.Equal(t, 1, poster.calls())
	payload, ok := poster.payloads[0].(submission.Payload)
	require.True(t, ok)
	assert.Equal(t, "Jules Verne", payload.Aliases[0].Name, "pending edits are flushed first")

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, submission.ErrAlreadySubmitted)
	assert.Equal(t, 1, poster.calls())
}

func TestSession_SubmitFailureKeepsState(t *testing.T) {
	poster := &fakePoster{err: &clients.ServerError{Status: 500, Message: "database unavailable"}}
	s, err := New(testDeps(t, poster), Options{
		EntityType: models.EntityAuthor,
		Name:       models.Alias{Name: "Jules Verne", SortName: "Verne, Jules"},
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Submit(context.Background())
	var serverErr *clients.ServerError
	assert.True(t, errors.As(err, &serverErr))
	assert.Equal(t, "database unavailable", s.SubmitError())
	assert.False(t, s.Submitted())
	assert.Equal(t, "Jules Verne", s.State().Name.Name)

	poster.mu.Lock()
	poster.err = nil
	poster.mu.Unlock()
	_, err = s.Submit(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, s.SubmitError())
}

func TestSession_SubmitWithoutEndpoint(t *testing.T) {
	s := newSession(t, Options{EntityType: models.EntityAuthor})
	_, err := s.Submit(context.Background())
	assert.Error(t, err)
}

func TestSession_Close(t *testing.T) {
	s, err := New(testDeps(t, nil), Options{EntityType: models.EntityAuthor})
	require.NoError(t, err)

	require.NoError(t, s.SetName(NameFieldName, "Jules Verne"))
	s.Close()
	s.Close()

	_, err = s.AddAlias()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, s.Flush())
	assert.Empty(t, s.State().Name.Name, "pending edits are dropped")
}
